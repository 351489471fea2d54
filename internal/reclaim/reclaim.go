package reclaim

import (
	"log/slog"
	"sync"
	"time"
)

type Config struct {
	Interval time.Duration
	MaxAge   time.Duration
}

func DefaultConfig() Config {
	return Config{
		Interval: time.Hour,
		MaxAge:   24 * time.Hour,
	}
}

// Sweeper removes rooms that have been empty for longer than maxAge and
// returns their ids.
type Sweeper interface {
	Sweep(maxAge time.Duration) []string
}

// Service periodically reclaims rooms nobody ever joined
type Service struct {
	rooms       Sweeper
	config      Config
	onReclaimed func(ids []string)
	log         *slog.Logger
	stop        chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

// New builds the service. onReclaimed, when set, runs after every sweep
// that removed at least one room.
func New(rooms Sweeper, config Config, onReclaimed func(ids []string), log *slog.Logger) *Service {
	defaults := DefaultConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.MaxAge <= 0 {
		config.MaxAge = defaults.MaxAge
	}
	return &Service{
		rooms:       rooms,
		config:      config,
		onReclaimed: onReclaimed,
		log:         log,
		stop:        make(chan struct{}),
	}
}

func (s *Service) Start() {
	s.wg.Add(1)
	go s.run()
	s.log.Info("Room reclaim started", "interval", s.config.Interval, "maxAge", s.config.MaxAge)
}

func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
	s.log.Info("Room reclaim stopped")
}

func (s *Service) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.SweepNow()
		}
	}
}

// SweepNow runs one reclaim pass and returns the removed room ids
func (s *Service) SweepNow() []string {
	ids := s.rooms.Sweep(s.config.MaxAge)
	if len(ids) == 0 {
		return nil
	}

	s.log.Info("Reclaimed stale rooms", "count", len(ids), "rooms", ids)
	if s.onReclaimed != nil {
		s.onReclaimed(ids)
	}
	return ids
}
