package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"gocv.io/x/gocv"

	"github.com/khaledhikmat/fire-go/ensemble"
	"github.com/khaledhikmat/fire-go/model"
	"github.com/khaledhikmat/fire-go/service/config"
	"github.com/khaledhikmat/fire-go/service/inference"
	"github.com/khaledhikmat/fire-go/service/lgr"
)

const windowTitle = "Sample Application."

// ErrViewerClosed reports that the user quit the display window.
var ErrViewerClosed = errors.New("viewer closed")

// NewLiveStream builds the sampler and debouncer of one live source. Sampled
// frames are preprocessed and voted on with the live voter: at most
// LIVE_MAX_VOTES labels and fire at a probability of 0.5 or more.
func NewLiveStream(svcs ServicesFactory) *ensemble.Stream[gocv.Mat] {
	voter := ensemble.LiveVoter(svcs.CfgSvc.GetClassifierTimeout())
	voter.MaxVotes = svcs.CfgSvc.GetLiveMaxVotes()
	size := svcs.CfgSvc.GetFrameSize()

	vote := func(ctx context.Context, mat gocv.Mat) (ensemble.Decision, error) {
		pool, err := svcs.Pools.Get(ctx)
		if err != nil {
			return ensemble.Decision{}, err
		}

		img, err := mat.ToImage()
		if err != nil {
			return ensemble.Decision{}, fmt.Errorf("error converting frame: %w", err)
		}

		frame, err := inference.Preprocess(img, size)
		if err != nil {
			return ensemble.Decision{}, err
		}

		return voter.Vote(ctx, frame, pool)
	}

	return ensemble.NewStream(
		ensemble.NewSampler(svcs.CfgSvc.GetSamplingInterval(), vote),
		ensemble.NewDebouncer(svcs.CfgSvc.GetAlertCooldown()),
		svcs.Clock,
	)
}

// FireDetector classifies the frames of one source in arrival order, draws
// the decision on each frame and raises debounced alerts.
func FireDetector(canxCtx context.Context, svcs ServicesFactory, source config.Source, in <-chan FrameData, errorStream chan interface{}, statsStream chan interface{}, alertStream chan<- AlertData) error {
	stream := NewLiveStream(svcs)
	sampler := stream.Sampler()

	lgr.Logger.Info("fire detector starting...",
		slog.String("source", source.Name),
		slog.Int("samplingInterval", sampler.Interval()),
		slog.Int("maxVotes", svcs.CfgSvc.GetLiveMaxVotes()),
		slog.Duration("cooldown", stream.Cooldown()),
		slog.String("openCV", gocv.Version()),
	)

	var window *gocv.Window
	if svcs.CfgSvc.GetLiveDisplay() {
		window = gocv.NewWindow(windowTitle)
		defer window.Close()
	}

	beginTime := time.Now().Unix()
	droppedAlerts := 0
	errs := 0
	var totalProcTime time.Duration

	defer func() {
		uptime := time.Now().Unix() - beginTime
		frames := stream.Frames()
		fps := 0
		var avgProcTime float64
		if uptime > 0 {
			fps = int(float64(frames) / float64(uptime))
		}
		if frames > 0 {
			avgProcTime = totalProcTime.Seconds() / float64(frames)
		}
		send(canxCtx, statsStream, model.DetectorStats{
			Name:         "fireDetector",
			Source:       source.Name,
			Frames:       frames,
			Votes:        sampler.Votes(),
			VoteFailures: sampler.Failures(),
			Alerts:       stream.Alerts(),
			DroppedAlert: droppedAlerts,
			Errors:       errs,
			Uptime:       uptime,
			FPS:          fps,
			AvgProcTime:  avgProcTime,
		})
	}()

	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"fire detector context cancelled",
			)
			return nil

		case f, ok := <-in:
			if !ok {
				return nil
			}

			if f.Mat.Empty() {
				f.Mat.Close()
				errs++
				continue
			}

			start := time.Now()
			votes := sampler.Votes()
			result := stream.Process(canxCtx, f.Mat)
			totalProcTime += time.Since(start)

			if sampler.Votes() != votes {
				recordDecision(svcs, source, stream.Frames(), result)
			}

			if result.Alert {
				select {
				case alertStream <- AlertData{
					Mat:       f.Mat.Clone(),
					Source:    source,
					Decision:  result.Decision,
					Timestamp: f.Timestamp,
				}:
				default:
					droppedAlerts++
					lgr.Logger.Warn("alertStream full, dropping alert")
				}
			}

			drawOverlay(&f.Mat, result.Decision)

			quit := false
			if window != nil {
				window.IMShow(f.Mat)
				quit = window.WaitKey(1) == 'q'
			}
			f.Mat.Close()

			if quit {
				return ErrViewerClosed
			}
		}
	}
}

func recordDecision(svcs ServicesFactory, source config.Source, frame int, result ensemble.StreamResult) {
	if svcs.DataSvc == nil {
		return
	}

	err := svcs.DataSvc.NewDecision(model.Decision{
		Source:      source.Name,
		Frame:       frame,
		IsFire:      result.Decision.IsFire,
		Probability: result.Decision.Probability,
		Predictions: answers(result.Decision),
		Failures:    len(result.Decision.Failures()),
		Alert:       result.Alert,
		Timestamp:   result.At.Unix(),
	})
	if err != nil {
		lgr.Logger.Error("error recording decision", slog.Any("error", err))
	}
}

// answers maps the labels of a decision to YES/NO in pool order.
func answers(d ensemble.Decision) []string {
	return lo.Map(d.Labels(), func(l ensemble.Label, _ int) string {
		return l.Answer()
	})
}
