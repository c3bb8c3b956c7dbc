package cron

import (
	"Haggle/internal/api/config"
	"Haggle/internal/job"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

type Manager struct {
	engine         *cron.Cron
	cfg            config.CronConfig
	offerExpiryJob *job.OfferExpiryJob
	listingRoomJob *job.ListingRoomJob
}

func NewCronManager(cfg config.CronConfig, offerExpiryJob *job.OfferExpiryJob, listingRoomJob *job.ListingRoomJob) *Manager {
	return &Manager{
		engine:         cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		cfg:            cfg,
		offerExpiryJob: offerExpiryJob,
		listingRoomJob: listingRoomJob,
	}
}

// RegisterJobs 注册定时任务
func (s *Manager) RegisterJobs() error {
	if _, err := s.engine.AddJob(s.cfg.OfferExpirySpec, s.offerExpiryJob); err != nil {
		return err
	}
	if _, err := s.engine.AddJob(s.cfg.RoomSweepSpec, s.listingRoomJob); err != nil {
		return err
	}
	return nil
}

func (s *Manager) Start() {
	log.Info("Cron 定时任务引擎启动")
	s.engine.Start()
}

func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	s.engine.Stop()
}
