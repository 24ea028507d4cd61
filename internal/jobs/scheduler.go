package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"vendora/presence/internal/config"
	"vendora/presence/internal/models"
	"vendora/presence/internal/registry"
	"vendora/presence/internal/repository"
)

// Scheduler runs the background hygiene sweeps: evicting long-dead registry
// sessions and mirroring stale persisted online flags back to offline.
// Neither sweep changes observable presence semantics; liveness is always
// re-derived at read time.
type Scheduler struct {
	cron     *cron.Cron
	registry *registry.Registry
	store    *repository.PresenceRepository
	cfg      config.PresenceConfig
	log      zerolog.Logger
}

func NewScheduler(reg *registry.Registry, store *repository.PresenceRepository, cfg config.PresenceConfig, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:     c,
		registry: reg,
		store:    store,
		cfg:      cfg,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	spec := fmt.Sprintf("@every %s", s.cfg.SweepInterval)

	if _, err := s.cron.AddFunc(spec, s.sweepSessions); err != nil {
		return err
	}
	if s.cfg.AutoOfflineEnabled {
		if _, err := s.cron.AddFunc(spec, s.sweepStaleOnline); err != nil {
			return err
		}
	}

	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() context.CancelFunc {
	_, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	go func() {
		s.cron.Stop()
		cancel()
	}()
	return cancel
}

func (s *Scheduler) sweepSessions() {
	s.registry.Sweep(s.cfg.OnlineThreshold)
}

// sweepStaleOnline flips the persisted flag for auto-mode users whose last
// seen fell outside the online threshold. Per-user failures are skipped.
func (s *Scheduler) sweepStaleOnline() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-s.cfg.OnlineThreshold)
	userIDs, err := s.store.ListStaleOnline(ctx, cutoff)
	if err != nil {
		s.log.Error().Err(err).Msg("list stale online failed")
		return
	}

	offline := false
	for _, userID := range userIDs {
		if s.registry.IsConnected(userID) {
			continue
		}
		if err := s.store.Upsert(ctx, userID, models.PresenceUpdate{IsOnline: &offline}); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("auto offline failed")
		}
	}

	if len(userIDs) > 0 {
		s.log.Debug().Int("count", len(userIDs)).Msg("auto offline sweep")
	}
}
