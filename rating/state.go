package rating

import "context"

// State is one snapshot of the rating form.
type State struct {
	Rating     int
	Hovered    int
	Feedback   string
	Submitting bool
	Submitted  bool
	Stats      Stats
	Error      string
}

// CanSubmit reports whether the submit action is enabled.
func CanSubmit(s State) bool { return Valid(s.Rating) && !s.Submitting }

// Action is anything Reduce understands.
type Action interface{ isAction() }

type (
	StarHovered     struct{ Star int }
	StarSelected    struct{ Star int }
	FeedbackChanged struct{ Text string }
	StatsLoaded     struct{ Stats Stats }
	SubmitStarted   struct{}
	SubmitFailed    struct{ Err error }
	SubmitSucceeded struct{ Stats Stats }
	// ResetDone returns to an empty form showing stats re-read from storage.
	ResetDone struct{ Stats Stats }
)

func (StarHovered) isAction()     {}
func (StarSelected) isAction()    {}
func (FeedbackChanged) isAction() {}
func (StatsLoaded) isAction()     {}
func (SubmitStarted) isAction()   {}
func (SubmitFailed) isAction()    {}
func (SubmitSucceeded) isAction() {}
func (ResetDone) isAction()       {}

// Reduce applies a to the rating form.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case StarHovered:
		s.Hovered = a.Star
	case StarSelected:
		if Valid(a.Star) {
			s.Rating = a.Star
		}
	case FeedbackChanged:
		s.Feedback = a.Text
	case StatsLoaded:
		s.Stats = a.Stats
	case SubmitStarted:
		s.Submitting = true
		s.Error = ""
	case SubmitFailed:
		s.Submitting = false
		if a.Err != nil {
			s.Error = a.Err.Error()
		}
	case SubmitSucceeded:
		s.Submitting = false
		s.Submitted = true
		s.Stats = a.Stats
	case ResetDone:
		return State{Stats: a.Stats}
	}
	return s
}

// Run submits the form when it can be submitted and returns the next snapshot.
func (s *Service) Run(ctx context.Context, form State) State {
	if !CanSubmit(form) {
		return Reduce(form, SubmitFailed{Err: ErrInvalidRating})
	}
	form = Reduce(form, SubmitStarted{})
	st, err := s.Submit(ctx, form.Rating, form.Feedback)
	if err != nil {
		return Reduce(form, SubmitFailed{Err: err})
	}
	return Reduce(form, SubmitSucceeded{Stats: st})
}

// Reset clears the form and reloads the aggregates from storage.
func (s *Service) Reset(ctx context.Context) (State, error) {
	st, err := s.Stats(ctx)
	if err != nil {
		return State{}, err
	}
	return Reduce(State{}, ResetDone{Stats: st}), nil
}
