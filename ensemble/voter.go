package ensemble

import (
	"context"
	"log/slog"
	"time"

	"github.com/khaledhikmat/fire-go/service/lgr"
)

const (
	// LiveMaxVotes caps the live path for latency.
	LiveMaxVotes = 3
	// Unbounded consults every classifier of the pool.
	Unbounded = 0
)

// Voter runs one voting round over a pool.
type Voter struct {
	// MaxVotes stops the round once that many labels were collected. Zero means no cap.
	MaxVotes  int
	Threshold Threshold
	// Timeout bounds each Predict call. A timed out classifier counts as failed.
	Timeout time.Duration
}

// LiveVoter returns the voter used by camera streams.
func LiveVoter(timeout time.Duration) Voter {
	return Voter{MaxVotes: LiveMaxVotes, Threshold: WeakMajority, Timeout: timeout}
}

// BatchVoter returns the voter used by the upload path.
func BatchVoter(timeout time.Duration) Voter {
	return Voter{MaxVotes: Unbounded, Threshold: StrictMajority, Timeout: timeout}
}

// Vote queries the pool in order and aggregates the labels.
// It fails with an error matching ErrNoVotes when every queried classifier failed.
func (v Voter) Vote(ctx context.Context, frame Frame, pool *Pool) (Decision, error) {
	if pool == nil || pool.Len() == 0 {
		return Decision{}, ErrEmptyPool
	}

	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	votes := make([]Vote, 0, pool.Len())
	labels := 0
	for i, c := range pool.Classifiers() {
		if v.MaxVotes > 0 && labels >= v.MaxVotes {
			break
		}
		if ctx.Err() != nil {
			break
		}

		vote := v.ask(ctx, i, c, frame)
		if vote.OK() {
			labels++
		} else {
			lgr.Logger.WarnContext(ctx,
				"classifier did not vote",
				slog.Int("index", i),
				slog.String("classifier", c.Name()),
				slog.Any("error", vote.Err),
			)
		}
		votes = append(votes, vote)
	}

	// An abandoned round is not a decision.
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	return tally(votes, v.Threshold)
}

func (v Voter) ask(ctx context.Context, index int, c Classifier, frame Frame) (vote Vote) {
	vote = Vote{Index: index, Classifier: c.Name()}

	callCtx := ctx
	if v.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, v.Timeout)
		defer cancel()
	}

	type result struct {
		label Label
		err   error
	}

	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: &panicError{value: r}}
			}
		}()
		label, err := c.Predict(callCtx, frame)
		done <- result{label: label, err: err}
	}()

	settle := func(r result) Vote {
		if r.err == nil && r.label != LabelFire && r.label != LabelNoFire {
			r.err = &invalidLabelError{label: r.label}
		}
		if r.err != nil {
			vote.Err = &ClassifierPredictError{Index: index, Classifier: c.Name(), Err: r.err}
			return vote
		}
		vote.Label = r.label
		return vote
	}

	select {
	case r := <-done:
		return settle(r)

	case <-callCtx.Done():
		// A label that arrived together with the deadline still counts.
		select {
		case r := <-done:
			return settle(r)
		default:
		}
		vote.Err = &ClassifierPredictError{Index: index, Classifier: c.Name(), Err: callCtx.Err()}
		return vote
	}
}
