package ensemble

// Label is the binary output of a single classifier.
// The encoding follows the convention the models were trained with: 0 means fire.
type Label int

const (
	LabelFire   Label = 0
	LabelNoFire Label = 1
)

// Answer renders the label the way the upload endpoint reports it.
func (l Label) Answer() string {
	if l == LabelFire {
		return "YES"
	}
	return "NO"
}

func (l Label) String() string {
	switch l {
	case LabelFire:
		return "fire"
	case LabelNoFire:
		return "no-fire"
	default:
		return "unknown"
	}
}

// Threshold turns a fire probability into a verdict.
type Threshold int

const (
	// StrictMajority requires more than half of the votes (upload path).
	StrictMajority Threshold = iota
	// WeakMajority accepts a tie (live path).
	WeakMajority
)

func (t Threshold) Decide(probability float64) bool {
	if t == WeakMajority {
		return probability >= 0.5
	}
	return probability > 0.5
}

func (t Threshold) String() string {
	if t == WeakMajority {
		return "weak-majority"
	}
	return "strict-majority"
}

// Vote is the outcome of one classifier for one frame. Err is set when the
// classifier did not produce a label.
type Vote struct {
	Index      int    `json:"index"`
	Classifier string `json:"classifier"`
	Label      Label  `json:"label"`
	Err        error  `json:"-"`
}

func (v Vote) OK() bool {
	return v.Err == nil
}

// Decision is the aggregated verdict of one voting round.
type Decision struct {
	FireVotes   int     `json:"fireVotes"`
	NoFireVotes int     `json:"noFireVotes"`
	Probability float64 `json:"probability"`
	IsFire      bool    `json:"isFire"`
	// Pending marks the value a stream reports before its first classification.
	Pending bool   `json:"pending"`
	Votes   []Vote `json:"-"`
}

// PendingDecision is the explicit "nothing classified yet" value. It reads as no fire.
func PendingDecision() Decision {
	return Decision{Pending: true}
}

// Labels returns the labels of the classifiers that voted, in pool order.
func (d Decision) Labels() []Label {
	labels := make([]Label, 0, len(d.Votes))
	for _, v := range d.Votes {
		if v.OK() {
			labels = append(labels, v.Label)
		}
	}
	return labels
}

// Failures returns the votes that did not produce a label.
func (d Decision) Failures() []Vote {
	var failed []Vote
	for _, v := range d.Votes {
		if !v.OK() {
			failed = append(failed, v)
		}
	}
	return failed
}

func (d Decision) Total() int {
	return d.FireVotes + d.NoFireVotes
}

func tally(votes []Vote, threshold Threshold) (Decision, error) {
	d := Decision{Votes: votes}
	for _, v := range votes {
		if !v.OK() {
			continue
		}
		if v.Label == LabelFire {
			d.FireVotes++
		} else {
			d.NoFireVotes++
		}
	}

	if d.Total() == 0 {
		return Decision{}, &NoVotesError{Failures: d.Failures()}
	}

	d.Probability = float64(d.FireVotes) / float64(d.Total())
	d.IsFire = threshold.Decide(d.Probability)
	return d, nil
}
