package batches

import "herbtrace/models"

// State is one immutable snapshot of the active-batches screen.
type State struct {
	Batches     []models.Batch
	Loading     bool
	Filter      string
	Downloading string // batch id whose QR download is in flight
	LastError   string
}

// Initial is the state before the first fetch.
func Initial() State {
	return State{Loading: true, Filter: FilterAll}
}

// Action is anything Reduce understands.
type Action interface{ isAction() }

type (
	Loaded           struct{ Batches []models.Batch }
	LoadFailed       struct{ Err error }
	FilterChanged    struct{ Filter string }
	DownloadStarted  struct{ BatchID string }
	DownloadFinished struct{}
)

func (Loaded) isAction()           {}
func (LoadFailed) isAction()       {}
func (FilterChanged) isAction()    {}
func (DownloadStarted) isAction()  {}
func (DownloadFinished) isAction() {}

// Reduce returns the snapshot that follows s after a.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case Loaded:
		s.Batches = a.Batches
		s.Loading = false
		s.LastError = ""
	case LoadFailed:
		// Keep the previous list; a failed poll is not an empty pipeline.
		s.Loading = false
		if a.Err != nil {
			s.LastError = a.Err.Error()
		}
	case FilterChanged:
		s.Filter = a.Filter
		if s.Filter == "" {
			s.Filter = FilterAll
		}
	case DownloadStarted:
		s.Downloading = a.BatchID
	case DownloadFinished:
		s.Downloading = ""
	}
	return s
}

// Visible applies the snapshot's filter for u.
func (s State) Visible(u *models.User) []models.Batch {
	return Apply(s.Batches, s.Filter, u)
}

// Find looks a batch up in the snapshot by id.
func (s State) Find(batchID string) (models.Batch, bool) {
	for _, b := range s.Batches {
		if b.BatchID == batchID {
			return b, true
		}
	}
	return models.Batch{}, false
}
