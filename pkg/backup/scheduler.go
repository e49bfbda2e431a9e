package backup

import (
	"context"
	"time"

	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"

	"github.com/tankobonapp/tankobon/pkg/config"
	"github.com/tankobonapp/tankobon/pkg/settings"
)

// Settings keys read on every wake. Absent or malformed values fall back to
// the defaults.
const (
	SettingEnabled       = "backup_enabled"
	SettingFrequencyDays = "backup_frequency_days"
	SettingLastTimestamp = "last_backup_timestamp"

	defaultFrequencyDays = 7
)

// Scheduler wakes on a fixed interval and triggers a full export when the
// configured backup frequency has elapsed. A failed export is logged and
// simply retried on the next wake; there is no mid-cycle retry.
type Scheduler struct {
	cfg *config.Config
	log logger.Logger

	settingsService *settings.Service
	exporter        *Exporter

	now func() time.Time

	shutdown chan struct{}
	done     chan struct{}
}

func NewScheduler(cfg *config.Config, db *bun.DB) *Scheduler {
	return &Scheduler{
		cfg: cfg,
		log: logger.New(),

		settingsService: settings.NewService(db),
		exporter:        NewExporter(db, cfg),

		now: time.Now,

		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	go s.run()
}

func (s *Scheduler) run() {
	timer := time.NewTimer(s.cfg.SchedulerInterval)

	for {
		select {
		case <-s.shutdown:
			timer.Stop()
			s.done <- struct{}{}
			return
		case <-timer.C:
			s.wake(context.Background())
			timer.Reset(s.cfg.SchedulerInterval)
		}
	}
}

func (s *Scheduler) Shutdown() {
	close(s.shutdown)
	<-s.done
}

// wake runs one scheduler cycle.
func (s *Scheduler) wake(ctx context.Context) {
	enabled, err := s.settingsService.GetBool(ctx, SettingEnabled, false)
	if err != nil {
		s.log.Err(err).Error("read backup settings error")
		return
	}
	if !enabled {
		return
	}

	frequencyDays, err := s.settingsService.GetInt(ctx, SettingFrequencyDays, defaultFrequencyDays)
	if err != nil {
		s.log.Err(err).Error("read backup settings error")
		return
	}
	if frequencyDays <= 0 {
		frequencyDays = defaultFrequencyDays
	}

	last, err := s.settingsService.GetInt(ctx, SettingLastTimestamp, 0)
	if err != nil {
		s.log.Err(err).Error("read backup settings error")
		return
	}

	now := s.now()
	if now.Unix()-last < frequencyDays*86400 {
		return
	}

	path, err := s.exporter.Export(ctx, now)
	if err != nil {
		// No mid-cycle retry; the next wake will try again.
		s.log.Err(err).Error("backup export error")
		return
	}

	if err := s.settingsService.SetInt(ctx, SettingLastTimestamp, now.Unix()); err != nil {
		s.log.Err(err).Error("persist backup timestamp error")
		return
	}

	s.log.Info("backup written", logger.Data{"path": path})
}
