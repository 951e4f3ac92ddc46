package ensemble

import (
	"errors"
	"fmt"
)

var (
	// ErrNoVotes is returned when no classifier produced a label for a frame.
	ErrNoVotes = errors.New("no classifier produced a vote")
	// ErrEmptyPool is returned when a pool would hold no classifiers.
	ErrEmptyPool = errors.New("classifier pool is empty")
	// ErrStreamRead terminates a live stream.
	ErrStreamRead = errors.New("cannot read frame from source")
)

type ClassifierLoadError struct {
	Path string
	Err  error
}

func (e *ClassifierLoadError) Error() string {
	return fmt.Sprintf("loading classifier %s: %v", e.Path, e.Err)
}

func (e *ClassifierLoadError) Unwrap() error {
	return e.Err
}

type ClassifierPredictError struct {
	Index      int
	Classifier string
	Err        error
}

func (e *ClassifierPredictError) Error() string {
	return fmt.Sprintf("classifier %d (%s) failed: %v", e.Index, e.Classifier, e.Err)
}

func (e *ClassifierPredictError) Unwrap() error {
	return e.Err
}

// NoVotesError carries the failures of a round that produced no vote.
// errors.Is(err, ErrNoVotes) holds for it.
type NoVotesError struct {
	Failures []Vote
}

func (e *NoVotesError) Error() string {
	return fmt.Sprintf("%s (%d classifiers failed)", ErrNoVotes.Error(), len(e.Failures))
}

func (e *NoVotesError) Is(target error) bool {
	return target == ErrNoVotes
}

type panicError struct {
	value interface{}
}

func (e *panicError) Error() string {
	return fmt.Sprintf("classifier panicked: %v", e.value)
}

type invalidLabelError struct {
	label Label
}

func (e *invalidLabelError) Error() string {
	return fmt.Sprintf("classifier returned invalid label %d", int(e.label))
}
