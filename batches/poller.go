package batches

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"herbtrace/models"
	"herbtrace/qr"

	"go.uber.org/zap"
)

const DefaultInterval = 5 * time.Second

var (
	ErrUnknownBatch = errors.New("batch not in active list")
	ErrNoEvents     = errors.New("batch has no events")
)

// Poller refreshes the active-batch snapshot from its source on a fixed interval.
type Poller struct {
	source   Source
	interval time.Duration
	logger   *zap.Logger

	mu    sync.RWMutex
	state State
}

// NewPoller polls source every interval once started.
func NewPoller(source Source, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{source: source, interval: interval, logger: logger, state: Initial()}
}

// Start fetches once, then on every tick until the returned disposer is called
// or ctx ends. The disposer blocks until the polling goroutine has exited.
func (p *Poller) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.Refresh(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.Refresh(ctx)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}
}

// Refresh runs one fetch and replaces the snapshot wholesale.
func (p *Poller) Refresh(ctx context.Context) {
	list, err := p.source.Fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Error("fetch active batches", zap.Error(err))
		p.Dispatch(LoadFailed{Err: err})
		return
	}
	p.Dispatch(Loaded{Batches: list})
}

func (p *Poller) Dispatch(a Action) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = Reduce(p.state, a)
	return p.state
}

func (p *Poller) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Download is a printable code ready to be saved by the client.
type Download struct {
	FileName string
	PNG      []byte
}

// LatestQR renders the printable code for the batch's latest event.
func LatestQR(ctx context.Context, svc qr.Service, b models.Batch) (*Download, error) {
	latest, ok := b.LatestEvent()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoEvents, b.BatchID)
	}
	png, err := svc.GeneratePrintableQR(ctx, b.BatchID, latest.EventID, qr.Label{
		HerbSpecies:  b.HerbSpecies,
		CurrentStage: string(b.CurrentStatus),
		Participant:  latest.Participant,
	})
	if err != nil {
		return nil, err
	}
	return &Download{FileName: qr.FileName(b.BatchID, string(b.CurrentStatus)), PNG: png}, nil
}

// DownloadQR renders the code of a batch from the current snapshot. The
// downloading flag is held for the duration of the call; failures are logged
// and only reset the flag.
func (p *Poller) DownloadQR(ctx context.Context, svc qr.Service, batchID string) (*Download, error) {
	b, ok := p.State().Find(batchID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBatch, batchID)
	}

	p.Dispatch(DownloadStarted{BatchID: batchID})
	defer p.Dispatch(DownloadFinished{})

	d, err := LatestQR(ctx, svc, b)
	if err != nil {
		p.logger.Error("download batch qr", zap.String("batchId", batchID), zap.Error(err))
		return nil, err
	}
	return d, nil
}
