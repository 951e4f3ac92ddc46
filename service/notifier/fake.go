package notifier

import (
	"context"
	"sync"
)

// Fake records alerts instead of sending them.
type Fake struct {
	mu     sync.Mutex
	alerts []Alert
	Err    error
}

func NewFake() *Fake {
	return &Fake{}
}

func (f *Fake) Name() string {
	return "fake"
}

func (f *Fake) Notify(_ context.Context, alert Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, alert)
	return f.Err
}

func (f *Fake) Alerts() []Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Alert(nil), f.alerts...)
}
