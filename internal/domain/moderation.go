package domain

import "context"

// SpamClass is the classifier's label.
type SpamClass int

const (
	ClassNotSpam SpamClass = 0
	ClassSpam    SpamClass = 1
)

// Verdict is a classifier answer. Confidence is passed through as returned
// by the service (percentage-like, not normalised to [0,1]).
type Verdict struct {
	Class      SpamClass
	Confidence float64
}

func (v Verdict) IsSpam() bool {
	return v.Class == ClassSpam
}

// Classifier labels message text. Any failure is reported as
// ErrModerationUnavailable, meaning "no verdict".
type Classifier interface {
	Classify(ctx context.Context, text string) (Verdict, error)
}
