package ensemble

import "time"

// DefaultAlertCooldown is the minimum time between two alerts of a stream.
const DefaultAlertCooldown = time.Second

// Debouncer lets at most one alert through per cooldown, measured from the last alert.
type Debouncer struct {
	cooldown time.Duration
	last     time.Time
	alerted  bool
}

func NewDebouncer(cooldown time.Duration) *Debouncer {
	return &Debouncer{cooldown: cooldown}
}

// MaybeAlert reports whether the decision should trigger the alert now.
// Decisions without fire never change the state.
func (d *Debouncer) MaybeAlert(decision Decision, now time.Time) bool {
	if !decision.IsFire {
		return false
	}

	if d.alerted && now.Sub(d.last) < d.cooldown {
		return false
	}

	d.last = now
	d.alerted = true
	return true
}

// LastAlert returns the time of the last alert, if any.
func (d *Debouncer) LastAlert() (time.Time, bool) {
	return d.last, d.alerted
}

func (d *Debouncer) Cooldown() time.Duration {
	return d.cooldown
}
