package ensemble

import (
	"context"
	"log/slog"

	"github.com/khaledhikmat/fire-go/service/lgr"
)

// DefaultSamplingInterval is the number of frames per classification on the live path.
const DefaultSamplingInterval = 10

// VoteFunc classifies one stream frame.
type VoteFunc[F any] func(ctx context.Context, frame F) (Decision, error)

// Sampler submits one frame out of every interval frames to the voter and
// answers every other frame with the last decision.
// It is not safe for concurrent use; frames must arrive in order.
type Sampler[F any] struct {
	interval int
	vote     VoteFunc[F]

	counter  int
	cached   Decision
	votes    int
	failures int
}

func NewSampler[F any](interval int, vote VoteFunc[F]) *Sampler[F] {
	if interval < 1 {
		interval = 1
	}
	return &Sampler[F]{
		interval: interval,
		vote:     vote,
		cached:   PendingDecision(),
	}
}

func (s *Sampler[F]) OnFrame(ctx context.Context, frame F) Decision {
	s.counter++
	if s.counter < s.interval {
		return s.cached
	}
	s.counter = 0

	// Each sampled round gets its own trace.
	ctx = lgr.NewTraceContext(ctx)

	d, err := s.vote(ctx, frame)
	if err != nil {
		s.failures++
		lgr.Logger.WarnContext(ctx,
			"sampled frame was not classified, keeping last decision",
			slog.Bool("pending", s.cached.Pending),
			slog.Bool("fire", s.cached.IsFire),
			slog.Any("error", err),
		)
		return s.cached
	}

	s.votes++
	s.cached = d
	return s.cached
}

// Votes returns the number of successful classifications.
func (s *Sampler[F]) Votes() int {
	return s.votes
}

// Failures returns the number of sampled frames whose classification failed.
func (s *Sampler[F]) Failures() int {
	return s.failures
}

// Interval returns the number of frames per classification.
func (s *Sampler[F]) Interval() int {
	return s.interval
}
