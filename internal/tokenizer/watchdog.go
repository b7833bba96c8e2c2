package tokenizer

import (
	"fmt"
	"sync"
)

// Notification events raised by the watchdog.
const (
	EventBudgetWarning  = "budget.warning"
	EventBudgetExceeded = "budget.exceeded"
)

// Notifier can dispatch a named event.
type Notifier interface {
	Send(event string, payload interface{})
}

// BudgetStatus is the watchdog's view of one estimate.
type BudgetStatus struct {
	Cost       float64    `json:"cost"`
	Budget     float64    `json:"budget"`
	Progress   int        `json:"progress"`
	Zone       BudgetZone `json:"zone"`
	OverBudget bool       `json:"over_budget"`
	Message    string     `json:"message,omitempty"`
}

// Status computes the BudgetStatus without side effects.
func Status(cost, budget float64) BudgetStatus {
	s := BudgetStatus{
		Cost:       cost,
		Budget:     budget,
		Progress:   Progress(cost, budget),
		Zone:       Zone(cost, budget),
		OverBudget: OverBudget(cost, budget),
	}
	if s.OverBudget {
		s.Message = fmt.Sprintf("Analysis cost $%.2f is above your budget target of $%.2f.", cost, budget)
	}
	return s
}

// Watchdog checks budget zones and alerts when a zone is crossed upward.
type Watchdog struct {
	mu     sync.Mutex
	notify Notifier
	// Last known zone per key to avoid duplicate alerts.
	lastZone map[string]BudgetZone
}

// NewWatchdog creates a Watchdog. notify may be nil.
func NewWatchdog(notify Notifier) *Watchdog {
	return &Watchdog{notify: notify, lastZone: make(map[string]BudgetZone)}
}

// Check computes the status for key and notifies on escalation only.
// It returns the status and whether this check escalated the zone.
func (w *Watchdog) Check(key string, cost, budget float64) (BudgetStatus, bool) {
	s := Status(cost, budget)

	w.mu.Lock()
	prev, known := w.lastZone[key]
	w.lastZone[key] = s.Zone
	w.mu.Unlock()

	if s.Zone == ZoneGreen || (known && s.Zone <= prev) {
		return s, false
	}
	if w.notify != nil {
		if s.OverBudget {
			w.notify.Send(EventBudgetExceeded, s)
		} else {
			w.notify.Send(EventBudgetWarning, s)
		}
	}
	return s, true
}

// Reset forgets the last zone for key, e.g. after the budget changes.
func (w *Watchdog) Reset(key string) {
	w.mu.Lock()
	delete(w.lastZone, key)
	w.mu.Unlock()
}

// Text is the human-readable form used in chat notifications.
func (s BudgetStatus) Text() string {
	if s.Message != "" {
		return s.Message
	}
	return fmt.Sprintf("Analysis cost $%.2f is at %d%% of your $%.2f budget (%s).", s.Cost, s.Progress, s.Budget, s.Zone)
}
