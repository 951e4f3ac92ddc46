package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/khaledhikmat/fire-go/model"
	"github.com/khaledhikmat/fire-go/service/config"
	"github.com/khaledhikmat/fire-go/service/lgr"
)

// Agent runs the live loop of one source: a framer feeding a detector over a
// small buffer, plus a heartbeat. The first stage to fail ends the others.
// Closing the viewer is a normal exit.
func Agent(canxCtx context.Context,
	svcs ServicesFactory,
	errorStream chan interface{},
	statsStream chan interface{},
	alertStream chan<- AlertData,
	source config.Source,
	framer Framer,
	detector Detector) error {
	agentID := uuid.NewString()
	lgr.Logger.Info(
		"agent starting....",
		slog.String("agentID", agentID),
		slog.String("source", source.Name),
		slog.String("type", source.Type),
		slog.String("url", source.URL),
	)

	agentStartTime := time.Now().Unix()
	agentStats := model.AgentStats{
		ID:     agentID,
		Source: source.Name,
	}

	bufferSize := svcs.CfgSvc.GetFramerBufferSize()
	if bufferSize < 1 {
		bufferSize = 1
	}
	frames := make(chan FrameData, bufferSize)

	agentCtx, cancel := context.WithCancel(canxCtx)
	defer cancel()

	g, groupCtx := errgroup.WithContext(agentCtx)

	g.Go(func() error {
		return framer(groupCtx, svcs, source, errorStream, statsStream, frames)
	})

	g.Go(func() error {
		// The framer only closes frames once the group is cancelled.
		defer func() {
			cancel()
			closeFrames(frames)
		}()
		return detector(groupCtx, svcs, source, frames, errorStream, statsStream, alertStream)
	})

	g.Go(func() error {
		period := time.Duration(svcs.CfgSvc.GetAgentPeriodicTimeout()) * time.Second
		if period <= 0 {
			period = 10 * time.Second
		}
		ticker := time.NewTicker(period)
		defer ticker.Stop()

		for {
			select {
			case <-groupCtx.Done():
				lgr.Logger.Info(
					"agent context cancelled",
				)
				return nil

			case <-ticker.C:
				agentStats.Uptime = time.Now().Unix() - agentStartTime
				send(groupCtx, statsStream, agentStats)
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, ErrViewerClosed) {
		return nil
	}
	return err
}

// closeFrames releases frames the detector never consumed.
func closeFrames(frames <-chan FrameData) {
	for f := range frames {
		f.Mat.Close()
	}
}
