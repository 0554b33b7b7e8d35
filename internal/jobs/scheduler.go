// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: проверку хранилища
// и ежедневный отчёт о выданных бонусах. Все расписания в UTC,
// как и смена суток для .bonus.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/respect-bot/internal/common"
)

// LedgerStats — то, что задачам нужно от хранилища уважения.
type LedgerStats interface {
	Ping(ctx context.Context) error
	CountBonusClaims(ctx context.Context, day string) (int, error)
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron  *cron.Cron
	store LedgerStats
	now   func() time.Time

	healthcheckSpec string
	reportSpec      string
}

// NewScheduler создаёт планировщик задач в UTC.
func NewScheduler(store LedgerStats, healthcheckSpec, reportSpec string) *Scheduler {
	return &Scheduler{
		cron:            cron.New(cron.WithLocation(time.UTC)),
		store:           store,
		now:             time.Now,
		healthcheckSpec: healthcheckSpec,
		reportSpec:      reportSpec,
	}
}

// Start регистрирует задачи и запускает cron.
// Ошибка — только если расписание не разбирается.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.healthcheckSpec, func() { s.healthcheck(ctx) }); err != nil {
		return fmt.Errorf("расписание JOBS_HEALTHCHECK_SPEC %q: %w", s.healthcheckSpec, err)
	}

	// Ежедневный отчёт в 00:00 UTC — за прошедшие сутки
	if _, err := s.cron.AddFunc(s.reportSpec, func() { s.dailyReport(ctx) }); err != nil {
		return fmt.Errorf("расписание JOBS_DAILY_REPORT_SPEC %q: %w", s.reportSpec, err)
	}

	s.cron.Start()
	log.Info("Планировщик задач запущен (UTC)")
	return nil
}

// Stop останавливает планировщик и ждёт завершения запущенных задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}

func (s *Scheduler) healthcheck(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.store.Ping(pingCtx); err != nil {
		log.WithError(err).Error("[CRON] Хранилище уважения недоступно")
		return
	}
	log.Debug("[CRON] Хранилище доступно")
}

func (s *Scheduler) dailyReport(ctx context.Context) {
	day := common.PreviousUTCDate(s.now())

	count, err := s.store.CountBonusClaims(ctx, day)
	if err != nil {
		log.WithError(err).WithField("date", day).Error("[CRON] Ошибка подсчёта бонусов")
		return
	}
	log.WithFields(log.Fields{
		"date":    day,
		"bonuses": count,
	}).Info("[CRON] Ежедневный отчёт")
}
