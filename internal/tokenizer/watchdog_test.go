package tokenizer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	events []string
}

func (r *recordingNotifier) Send(event string, _ interface{}) {
	r.events = append(r.events, event)
}

func TestZone(t *testing.T) {
	assert.Equal(t, ZoneGreen, Zone(10, 0))
	assert.Equal(t, ZoneGreen, Zone(59, 100))
	assert.Equal(t, ZoneYellow, Zone(60, 100))
	assert.Equal(t, ZoneOrange, Zone(80, 100))
	assert.Equal(t, ZoneRed, Zone(90, 100))
	assert.Equal(t, ZoneRed, Zone(500, 100))
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 0, Progress(5, 0))
	assert.Equal(t, 50, Progress(25, 50))
	assert.Equal(t, 1, Progress(0.006, 1))
	assert.Equal(t, 100, Progress(75, 50))
}

func TestOverBudget(t *testing.T) {
	assert.False(t, OverBudget(100, 0))
	assert.False(t, OverBudget(50, 50))
	assert.True(t, OverBudget(50.01, 50))
}

func TestStatus_JSON(t *testing.T) {
	s := Status(60, 50)
	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"zone":"RED"`)
	assert.Contains(t, string(b), `"over_budget":true`)
	assert.Contains(t, s.Message, "$60.00")
}

func TestWatchdog_EscalationOnly(t *testing.T) {
	n := &recordingNotifier{}
	w := NewWatchdog(n)

	_, escalated := w.Check("p1", 10, 100)
	assert.False(t, escalated)

	_, escalated = w.Check("p1", 65, 100)
	assert.True(t, escalated)

	_, escalated = w.Check("p1", 70, 100)
	assert.False(t, escalated, "same zone does not re-alert")

	_, escalated = w.Check("p1", 120, 100)
	assert.True(t, escalated)

	_, escalated = w.Check("p1", 10, 100)
	assert.False(t, escalated)

	assert.Equal(t, []string{EventBudgetWarning, EventBudgetExceeded}, n.events)

	w.Reset("p1")
	_, escalated = w.Check("p1", 95, 100)
	assert.True(t, escalated)
}

func TestWatchdog_NilNotifier(t *testing.T) {
	w := NewWatchdog(nil)
	s, escalated := w.Check("k", 200, 100)
	assert.True(t, escalated)
	assert.True(t, s.OverBudget)
}
