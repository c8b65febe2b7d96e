// Package tracker looks up a batch by batch or event id and renders its
// timeline, refreshing when the ledger reports new data.
package tracker

import "herbtrace/models"

// State is one snapshot of a tracking session.
type State struct {
	Query       string
	LastQuery   string
	Loading     bool
	Refreshing  bool // the in-flight search repeats the one that loaded Batch
	Batch       *models.Batch
	Error       string
	Err         error // cause of Error, for errors.Is
	Downloading bool
}

// Action is anything Reduce understands.
type Action interface{ isAction() }

// Session actions.
type (
	QueryChanged     struct{ Text string }
	SearchStarted    struct{ Query string }
	SearchSucceeded  struct{ Batch models.Batch }
	SearchFailed     struct{ Err error }
	DownloadStarted  struct{}
	DownloadFinished struct{}
)

func (QueryChanged) isAction()     {}
func (SearchStarted) isAction()    {}
func (SearchSucceeded) isAction()  {}
func (SearchFailed) isAction()     {}
func (DownloadStarted) isAction()  {}
func (DownloadFinished) isAction() {}

// Reduce applies a to s. A failed new search clears the loaded batch; a failed
// refresh of the same query keeps it alongside the error.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case QueryChanged:
		s.Query = a.Text
	case SearchStarted:
		// the previous batch stays visible until the new result lands
		s.Loading = true
		s.Refreshing = s.Batch != nil && a.Query == s.LastQuery
		s.LastQuery = a.Query
		s.Error, s.Err = "", nil
	case SearchSucceeded:
		b := a.Batch
		s.Loading, s.Refreshing = false, false
		s.Batch = &b
		s.Error, s.Err = "", nil
	case SearchFailed:
		if !s.Refreshing {
			s.Batch = nil
		}
		s.Loading, s.Refreshing = false, false
		s.Err = a.Err
		if a.Err != nil {
			s.Error = a.Err.Error()
		}
	case DownloadStarted:
		s.Downloading = true
	case DownloadFinished:
		s.Downloading = false
	}
	return s
}
