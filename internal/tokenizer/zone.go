package tokenizer

import "math"

// BudgetZone represents how much of the spend budget an estimate uses.
type BudgetZone int

const (
	ZoneGreen  BudgetZone = iota // under 60%
	ZoneYellow                   // 60–80%
	ZoneOrange                   // 80–90%
	ZoneRed                      // 90% and above
)

// Zone thresholds in percent of budget.
const (
	YellowPct = 60
	OrangePct = 80
	RedPct    = 90
)

// String returns a human-readable label for the zone.
func (z BudgetZone) String() string {
	switch z {
	case ZoneYellow:
		return "YELLOW"
	case ZoneOrange:
		return "ORANGE"
	case ZoneRed:
		return "RED"
	default:
		return "GREEN"
	}
}

// MarshalText renders the zone label in JSON.
func (z BudgetZone) MarshalText() ([]byte, error) {
	return []byte(z.String()), nil
}

// Zone classifies cost against budget. A zero budget is always GREEN.
func Zone(cost, budget float64) BudgetZone {
	if budget <= 0 {
		return ZoneGreen
	}
	pct := cost * 100 / budget
	switch {
	case pct >= RedPct:
		return ZoneRed
	case pct >= OrangePct:
		return ZoneOrange
	case pct >= YellowPct:
		return ZoneYellow
	default:
		return ZoneGreen
	}
}

// Progress returns min(100, round(cost/budget*100)), or 0 without a budget.
func Progress(cost, budget float64) int {
	if budget <= 0 {
		return 0
	}
	p := int(math.Round(cost / budget * 100))
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return p
}

// OverBudget reports whether a positive budget is exceeded.
func OverBudget(cost, budget float64) bool {
	return budget > 0 && cost > budget
}
