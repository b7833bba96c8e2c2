package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFire_RetriesUntilSuccess(t *testing.T) {
	var calls int32
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := New([]string{"", srv.URL})
	d.delays = []time.Duration{0, time.Millisecond, time.Millisecond}
	d.Fire("analysis.complete", map[string]int{"total_tokens": 7})
	d.Wait()

	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
	assert.Equal(t, "analysis.complete", got.Event)
	assert.False(t, got.Timestamp.IsZero())
}

func TestFire_GivesUpAfterThreeRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	d := New([]string{srv.URL})
	var mu sync.Mutex
	var waited []time.Duration
	d.sleep = func(wait time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		waited = append(waited, wait)
	}
	d.Fire("budget.exceeded", nil)
	d.Wait()

	assert.EqualValues(t, 4, atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second}, waited,
		"every backoff step is used, starting at 500ms")
}

func TestDisabled(t *testing.T) {
	d := New(nil)
	assert.False(t, d.Enabled())
	d.Fire("x", nil)
	d.Wait()

	var nilD *Dispatcher
	assert.False(t, nilD.Enabled())
}

func TestTest(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ok.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer bad.Close()

	d := New(nil)
	require.NoError(t, d.Test(context.Background(), ok.URL))
	assert.Error(t, d.Test(context.Background(), bad.URL))
}
