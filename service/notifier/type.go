package notifier

import (
	"context"
	"time"
)

// Alert is what a sink learns about a fire alert.
type Alert struct {
	Source      string    `json:"source"`
	Probability float64   `json:"probability"`
	Predictions []string  `json:"predictions"`
	Snapshot    string    `json:"snapshot,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type IService interface {
	Name() string
	Notify(ctx context.Context, alert Alert) error
}
