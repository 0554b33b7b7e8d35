package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCommand(t *testing.T) {
	m := New()

	m.ObserveCommand("bonus", 10*time.Millisecond, []string{"bonus_claimed", "level_up"}, nil)
	m.ObserveCommand("bonus", time.Millisecond, []string{"bonus_cooldown"}, nil)
	m.ObserveCommand("give", time.Millisecond, nil, errors.New("db down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.commands.WithLabelValues("bonus")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("give")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.responses.WithLabelValues("bonus_cooldown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bonusGrants))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.levelUps))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.Throttled()
	m.Panic()
	m.Error()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "respect_bot_throttled_total 1")
	assert.Contains(t, body, "respect_bot_panics_total 1")
	assert.Contains(t, body, "respect_bot_errors_total 1")
	assert.NotContains(t, body, "go_goroutines")
}
