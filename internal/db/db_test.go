package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := New(filepath.Join(t.TempDir(), "tokenbench_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.Migrate())
	return database
}

func TestMigrate_Idempotent(t *testing.T) {
	database := openTestDB(t)
	require.NoError(t, database.Migrate())
	assert.Equal(t, "1", database.GetSetting("schema_version", ""))
}

func TestSettings(t *testing.T) {
	database := openTestDB(t)
	assert.Equal(t, "fallback", database.GetSetting("missing", "fallback"))

	require.NoError(t, database.SetSetting("theme", "dark"))
	require.NoError(t, database.SetSetting("theme", "light"))
	assert.Equal(t, "light", database.GetSetting("theme", ""))
}

func TestUsage(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, database.RecordUsage(ctx, "cl100k_base", 100, 0.5))
	require.NoError(t, database.RecordUsage(ctx, "cl100k_base", 50, 0.25))
	require.NoError(t, database.RecordUsage(ctx, "gpt2", 10, 0.01))

	days, err := database.UsageSince(ctx, time.Now().Format("2006-01-02"))
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "cl100k_base", days[0].Encoding)
	assert.Equal(t, 2, days[0].Runs)
	assert.Equal(t, 150, days[0].Tokens)
	assert.InDelta(t, 0.75, days[0].Cost, 1e-9)
}

func TestPeriodStart(t *testing.T) {
	now := time.Date(2025, 3, 31, 10, 0, 0, 0, time.UTC)

	for period, want := range map[string]string{
		"":            "2025-03-31",
		PeriodDaily:   "2025-03-31",
		PeriodWeekly:  "2025-03-24",
		PeriodMonthly: "2025-03-03",
	} {
		got, err := PeriodStart(period, now)
		require.NoError(t, err, period)
		assert.Equal(t, want, got, period)
	}

	_, err := PeriodStart("yearly", now)
	assert.Error(t, err)
}
