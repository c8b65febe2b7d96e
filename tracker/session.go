package tracker

import (
	"context"
	"errors"
	"strings"
	"sync"

	"herbtrace/batches"
	"herbtrace/ledger"
	"herbtrace/models"
	"herbtrace/notify"
	"herbtrace/qr"

	"go.uber.org/zap"
)

// ErrNoBatch is returned by DownloadQR before a batch is loaded.
var ErrNoBatch = errors.New("no batch loaded")

// Lookup is the part of the ledger a session reads from.
type Lookup interface {
	GetBatchInfo(ctx context.Context, idOrEventID string) (*models.Batch, error)
}

// Session holds one user's tracking state. Searches are not cancelled when a
// newer one starts, so a slow lookup can still overwrite a faster later one.
type Session struct {
	lookup Lookup
	qr     qr.Service
	logger *zap.Logger

	mu    sync.Mutex
	state State
}

// NewSession starts an empty session. qrs may be nil when downloads are not used.
func NewSession(lookup Lookup, qrs qr.Service, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{lookup: lookup, qr: qrs, logger: logger}
}

// Dispatch applies a and returns the new snapshot.
func (s *Session) Dispatch(a Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, a)
	return s.state
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Search looks up query as a batch or event id. A blank query does nothing.
func (s *Session) Search(ctx context.Context, query string) State {
	q := strings.TrimSpace(query)
	if q == "" {
		return s.State()
	}
	s.Dispatch(QueryChanged{Text: query})
	s.Dispatch(SearchStarted{Query: q})

	b, err := s.lookup.GetBatchInfo(ctx, q)
	if err != nil {
		if !errors.Is(err, ledger.ErrNotFound) {
			s.logger.Error("track batch", zap.String("query", q), zap.Error(err))
		}
		return s.Dispatch(SearchFailed{Err: err})
	}
	return s.Dispatch(SearchSucceeded{Batch: *b})
}

// Refresh re-runs the last search; before any search it does nothing.
func (s *Session) Refresh(ctx context.Context) State {
	return s.Search(ctx, s.State().LastQuery)
}

// Watch refreshes the session on every ledger update until the returned
// disposer is called or ctx ends. onChange, when set, sees each refreshed
// snapshot. The disposer waits for the watch goroutine to exit.
func (s *Session) Watch(ctx context.Context, n notify.Notifier, onChange func(State)) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	sub, unsubscribe := n.Subscribe()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-sub:
				if !ok {
					return
				}
				if s.State().LastQuery == "" {
					continue
				}
				st := s.Refresh(ctx)
				if onChange != nil && ctx.Err() == nil {
					onChange(st)
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			unsubscribe()
			<-done
		})
	}
}

// DownloadQR renders the printable code for the loaded batch's latest event.
func (s *Session) DownloadQR(ctx context.Context) (*batches.Download, error) {
	cur := s.State().Batch
	if cur == nil {
		return nil, ErrNoBatch
	}
	s.Dispatch(DownloadStarted{})
	defer s.Dispatch(DownloadFinished{})

	d, err := batches.LatestQR(ctx, s.qr, *cur)
	if err != nil {
		s.logger.Error("download tracked batch qr", zap.String("batchId", cur.BatchID), zap.Error(err))
		return nil, err
	}
	return d, nil
}
