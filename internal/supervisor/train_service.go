// Wayfarer - Hybrid Travel Destination Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package supervisor

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/wayfarer/internal/logging"
	"github.com/tomtom215/wayfarer/internal/recommend"
)

// Trainer is the slice of the engine the retrain loop drives.
type Trainer interface {
	Train(ctx context.Context) error
}

// TrainService rebuilds the recommendation models on a fixed interval.
// A failed rebuild keeps the previous snapshot serving, so failures
// are logged and the loop keeps ticking instead of crashing the
// supervisor.
type TrainService struct {
	trainer        Trainer
	interval       time.Duration
	trainOnStartup bool
}

// NewTrainService creates the retrain loop. A zero interval disables
// periodic rebuilds; the loop then only performs the optional startup
// training.
func NewTrainService(trainer Trainer, interval time.Duration, trainOnStartup bool) *TrainService {
	return &TrainService{
		trainer:        trainer,
		interval:       interval,
		trainOnStartup: trainOnStartup,
	}
}

// Serve implements suture.Service.
func (s *TrainService) Serve(ctx context.Context) error {
	if s.trainOnStartup {
		s.runOnce(ctx)
	}

	if s.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *TrainService) runOnce(ctx context.Context) {
	err := s.trainer.Train(ctx)
	switch {
	case err == nil:
	case errors.Is(err, recommend.ErrTrainingInProgress):
		logging.Debug().Msg("Skipping scheduled training, rebuild already running")
	case errors.Is(err, context.Canceled):
	default:
		logging.Error().Err(err).Msg("Scheduled training failed")
	}
}

// String implements fmt.Stringer for suture event logs.
func (s *TrainService) String() string {
	return "model-trainer"
}
