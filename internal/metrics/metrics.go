// Package metrics собирает метрики бота в собственный реестр Prometheus
// и отдаёт их по HTTP.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const namespace = "respect_bot"

// Имена ответов, для которых ведутся отдельные счётчики.
const (
	kindBonusClaimed = "bonus_claimed"
	kindLevelUp      = "level_up"
)

// Metrics — счётчики обработки сообщений.
type Metrics struct {
	registry *prometheus.Registry

	commands    *prometheus.CounterVec
	responses   *prometheus.CounterVec
	errors      prometheus.Counter
	throttled   prometheus.Counter
	panics      prometheus.Counter
	bonusGrants prometheus.Counter
	levelUps    prometheus.Counter
	duration    *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Распознанные команды по типу.",
		}, []string{"command"}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_total",
			Help:      "Ответы интерпретатора по типу.",
		}, []string{"kind"}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Ошибки обработки сообщений.",
		}),
		throttled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "throttled_total",
			Help:      "Команды, отброшенные лимитом запросов.",
		}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "panics_total",
			Help:      "Восстановленные паники в обработчиках.",
		}),
		bonusGrants: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bonus_grants_total",
			Help:      "Выданные ежедневные бонусы.",
		}),
		levelUps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "level_ups_total",
			Help:      "Повышения уровня.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handle_duration_seconds",
			Help:      "Время обработки команды.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
	}
	m.registry.MustRegister(
		m.commands, m.responses, m.errors, m.throttled,
		m.panics, m.bonusGrants, m.levelUps, m.duration,
	)
	return m
}

// ObserveCommand учитывает выполненную команду и её ответы.
func (m *Metrics) ObserveCommand(command string, took time.Duration, kinds []string, err error) {
	m.commands.WithLabelValues(command).Inc()
	m.duration.WithLabelValues(command).Observe(took.Seconds())
	if err != nil {
		m.errors.Inc()
	}
	for _, kind := range kinds {
		m.responses.WithLabelValues(kind).Inc()
		switch kind {
		case kindBonusClaimed:
			m.bonusGrants.Inc()
		case kindLevelUp:
			m.levelUps.Inc()
		}
	}
}

// Error учитывает ошибку вне команд (например, регистрации участника).
func (m *Metrics) Error() { m.errors.Inc() }

func (m *Metrics) Throttled() { m.throttled.Inc() }

func (m *Metrics) Panic() { m.panics.Inc() }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve отдаёт /metrics на addr до отмены ctx.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Ошибка остановки сервера метрик")
		}
	}()

	log.WithField("addr", addr).Info("Метрики доступны на /metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
