package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"herbtrace/ledger"
	"herbtrace/tracker"

	"go.uber.org/zap"
)

func (a *App) trackSession() *tracker.Session {
	return tracker.NewSession(a.ledger, a.qr, a.log.Named("tracker"))
}

// handleTrack looks up ?q= as a batch or event id and returns its timeline.
func (a *App) handleTrack(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		http.Error(w, "q is required", http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	st := a.trackSession().Search(ctx, q)
	if st.Batch == nil {
		trackError(w, st)
		return
	}
	writeJSON(w, http.StatusOK, tracker.BuildView(*st.Batch))
}

// handleTrackQR downloads the printable code for the tracked batch.
func (a *App) handleTrackQR(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		http.Error(w, "q is required", http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	s := a.trackSession()
	if st := s.Search(ctx, q); st.Batch == nil {
		trackError(w, st)
		return
	}
	d, err := s.DownloadQR(ctx)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusBadGateway)
		return
	}
	writePNG(w, d)
}

// handleTrackStream serves the timeline of ?q= as server-sent events: one
// "batch" event now and another after every ledger update, until the client
// goes away.
func (a *App) handleTrackStream(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		http.Error(w, "q is required", http.StatusBadRequest)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	ctx, cancel := context.WithCancel(r.Context())

	s := a.trackSession()
	st := s.Search(ctx, q)
	if st.Batch == nil {
		cancel()
		trackError(w, st)
		return
	}

	updates := make(chan tracker.State, 1)
	stop := s.Watch(ctx, a.broker, func(st tracker.State) {
		select {
		case updates <- st:
		case <-ctx.Done():
		}
	})
	// unblock a pending callback before waiting for the watch to exit
	defer func() { cancel(); stop() }()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for {
		if err := writeEvent(w, st); err != nil {
			a.log.Debug("track stream closed", zap.String("query", q), zap.Error(err))
			return
		}
		flusher.Flush()

		select {
		case <-ctx.Done():
			return
		case st = <-updates:
		}
	}
}

func writeEvent(w http.ResponseWriter, st tracker.State) error {
	name, payload := "batch", any(nil)
	if st.Batch != nil {
		payload = tracker.BuildView(*st.Batch)
	} else {
		name, payload = "error", errorResp{Error: st.Error}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}

func trackError(w http.ResponseWriter, st tracker.State) {
	if errors.Is(st.Err, ledger.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResp{Error: "No batch found for " + st.LastQuery + ". Check the batch or event ID and try again."})
		return
	}
	writeJSON(w, http.StatusBadGateway, errorResp{Error: st.Error})
}
