package model

import (
	"fmt"

	"github.com/mdobak/go-xerrors"
)

type CustomError struct {
	Processor  string                 `json:"processor"`
	Inner      error                  `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}

func (e CustomError) Error() string {
	if e.Inner == nil {
		return fmt.Sprintf("%s: %s", e.Processor, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Processor, e.Message, e.Inner)
}

func (e CustomError) Unwrap() error {
	return e.Inner
}

// GenError wraps err for the error stream. The stack is the one err carries,
// or the caller's when it carries none.
func GenError(proc string, err error, misc map[string]interface{}, messagef string, args ...interface{}) CustomError {
	msg := fmt.Sprintf(messagef, args...)

	if err != nil && xerrors.StackTrace(err) == nil {
		err = xerrors.WithStackTrace(err, 1)
	}

	stack := xerrors.StackTrace(err)
	if stack == nil {
		stack = xerrors.StackTrace(xerrors.WithStackTrace(xerrors.Message(msg), 1))
	}

	return CustomError{
		Processor:  proc,
		Inner:      err,
		Message:    msg,
		StackTrace: stack.String(),
		Misc:       misc,
	}
}

// Decision is one persisted live or batch decision.
type Decision struct {
	Source      string   `json:"source"`
	Frame       int      `json:"frame"`
	IsFire      bool     `json:"isFire"`
	Probability float64  `json:"probability"`
	Predictions []string `json:"predictions"`
	Failures    int      `json:"failures"`
	Alert       bool     `json:"alert"`
	Timestamp   int64    `json:"timestamp"`
}

type AlerterStats struct {
	Name      string `json:"name"`
	Alerts    int    `json:"alerts"`
	Spoken    int    `json:"spoken"`
	Snapshots int    `json:"snapshots"`
	Webhooks  int    `json:"webhooks"`
	Errors    int    `json:"errors"`
	Uptime    int64  `json:"uptime"`
	Timestamp int64  `json:"timestamp"`
}

type DetectorStats struct {
	Name         string  `json:"name"`
	Source       string  `json:"source"`
	FPS          int     `json:"fps"`
	Frames       int     `json:"frames"`
	Votes        int     `json:"votes"`
	VoteFailures int     `json:"voteFailures"`
	Alerts       int     `json:"alerts"`
	DroppedAlert int     `json:"droppedAlerts"`
	Errors       int     `json:"errors"`
	Uptime       int64   `json:"uptime"`
	AvgProcTime  float64 `json:"avgProcTime"`
	Timestamp    int64   `json:"timestamp"`
}

type FramerStats struct {
	Name          string `json:"name"`
	Source        string `json:"source"`
	FPS           int    `json:"fps"`
	Frames        int    `json:"frames"`
	SkippedFrames int    `json:"skippedFrames"`
	Errors        int    `json:"errors"`
	Uptime        int64  `json:"uptime"`
	Timestamp     int64  `json:"timestamp"`
}

type AgentStats struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	Uptime    int64  `json:"uptime"`
	Timestamp int64  `json:"timestamp"`
}

type ServerStats struct {
	Requests  int   `json:"requests"`
	Fire      int   `json:"fire"`
	NoFire    int   `json:"noFire"`
	NoVotes   int   `json:"noVotes"`
	BadImages int   `json:"badImages"`
	Uptime    int64 `json:"uptime"`
	Timestamp int64 `json:"timestamp"`
}
