package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/khaledhikmat/fire-go/ensemble"
	"github.com/khaledhikmat/fire-go/service/inference"
	"github.com/khaledhikmat/fire-go/service/lgr"
)

// Classifier is the part of ensemble.Batch evaluation needs.
type Classifier interface {
	Classify(ctx context.Context, frame ensemble.Frame) (ensemble.Decision, error)
}

// Report counts ensemble outcomes over labelled samples. Fire is the positive class.
type Report struct {
	TruePositives  int `json:"truePositives"`
	FalsePositives int `json:"falsePositives"`
	TrueNegatives  int `json:"trueNegatives"`
	FalseNegatives int `json:"falseNegatives"`
	NoVotes        int `json:"noVotes"`
}

func (r Report) Total() int {
	return r.TruePositives + r.FalsePositives + r.TrueNegatives + r.FalseNegatives
}

func (r Report) Accuracy() float64 {
	return ratio(r.TruePositives+r.TrueNegatives, r.Total())
}

func (r Report) Precision() float64 {
	return ratio(r.TruePositives, r.TruePositives+r.FalsePositives)
}

func (r Report) Recall() float64 {
	return ratio(r.TruePositives, r.TruePositives+r.FalseNegatives)
}

// Result is a report with its derived scores.
type Result struct {
	Report
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
}

func (r Report) Result() Result {
	return Result{
		Report:    r,
		Accuracy:  r.Accuracy(),
		Precision: r.Precision(),
		Recall:    r.Recall(),
	}
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// Evaluate classifies every sample. Samples nobody voted on are counted
// apart; any other failure stops the evaluation.
func Evaluate(ctx context.Context, c Classifier, samples []Sample, size int) (Report, error) {
	var r Report

	for _, s := range samples {
		if err := ctx.Err(); err != nil {
			return r, err
		}

		frame, err := inference.Preprocess(s.Image, size)
		if err != nil {
			return r, fmt.Errorf("error preprocessing %s: %w", s.Path, err)
		}

		d, err := c.Classify(ctx, frame)
		if errors.Is(err, ensemble.ErrNoVotes) {
			lgr.Logger.Warn("no classifier voted", slog.String("path", s.Path))
			r.NoVotes++
			continue
		}
		if err != nil {
			return r, err
		}

		switch {
		case d.IsFire && s.Fire:
			r.TruePositives++
		case d.IsFire && !s.Fire:
			r.FalsePositives++
		case !d.IsFire && s.Fire:
			r.FalseNegatives++
		default:
			r.TrueNegatives++
		}
	}

	return r, nil
}

// VoterClassifier classifies with one voting policy over a fixed pool.
type VoterClassifier struct {
	Voter ensemble.Voter
	Pool  *ensemble.Pool
}

func (v VoterClassifier) Classify(ctx context.Context, frame ensemble.Frame) (ensemble.Decision, error) {
	return v.Voter.Vote(ctx, frame, v.Pool)
}

// PathPolicies returns the upload ("batch") and camera ("live") voting
// policies over the same pool.
func PathPolicies(pool *ensemble.Pool, timeout time.Duration, liveMaxVotes int) map[string]Classifier {
	live := ensemble.LiveVoter(timeout)
	live.MaxVotes = liveMaxVotes

	return map[string]Classifier{
		"batch": ensemble.NewBatch(ensemble.Static(pool), timeout),
		"live":  VoterClassifier{Voter: live, Pool: pool},
	}
}

// EvaluatePolicies evaluates every policy on the same samples.
func EvaluatePolicies(ctx context.Context, policies map[string]Classifier, samples []Sample, size int) (map[string]Result, error) {
	results := make(map[string]Result, len(policies))
	for name, c := range policies {
		r, err := Evaluate(ctx, c, samples, size)
		if err != nil {
			return nil, fmt.Errorf("error evaluating %s policy: %w", name, err)
		}
		results[name] = r.Result()
	}
	return results, nil
}
