package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"herbtrace/batches"
	"herbtrace/ledger"
	"herbtrace/models"
	"herbtrace/notify"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// handleListBatches returns the poller's current snapshot narrowed by
// ?filter= (all, accessible, or a status).
func (a *App) handleListBatches(w http.ResponseWriter, r *http.Request) {
	filter := strings.TrimSpace(r.URL.Query().Get("filter"))
	if filter == "" {
		filter = batches.FilterAll
	}
	st := a.poller.State()
	resp := batchListResp{
		Batches: batches.Apply(st.Batches, filter, currentUser(r)),
		Filter:  filter,
		Loading: st.Loading,
		Error:   st.LastError,
	}
	if resp.Batches == nil {
		resp.Batches = []models.Batch{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleBatchQR streams the printable code of a batch's latest event.
func (a *App) handleBatchQR(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	d, err := a.poller.DownloadQR(ctx, a.qr, id)
	switch {
	case errors.Is(err, batches.ErrUnknownBatch):
		http.Error(w, "batch not found", http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, "qr generation failed", http.StatusBadGateway)
		return
	}
	writePNG(w, d)
}

// handleAppendEvent records the next pipeline stage on a batch. Only users
// who may act on the batch's current stage can append to it, and only the
// stage that follows it; the ledger rejects anything else with a 400.
func (a *App) handleAppendEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user := currentUser(r)

	var req appendEventReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	b, err := a.ledger.GetBatchInfo(ctx, id)
	if err != nil {
		a.ledgerError(w, "load batch", err)
		return
	}
	if b.BatchID != id {
		http.Error(w, "batch not found", http.StatusNotFound)
		return
	}
	if !batches.CanAccess(user, *b) {
		http.Error(w, "your role cannot act on a "+string(b.CurrentStatus)+" batch", http.StatusForbidden)
		return
	}

	updated, err := a.ledger.AppendEvent(ctx, id, user.Actor(), ledger.StageEvent{
		EventID:   a.ledger.GenerateEventID(req.EventType.IDPrefix()),
		EventType: req.EventType,
		Data:      req.Data,
	})
	if err != nil {
		a.ledgerError(w, "append event", err)
		return
	}
	latest, _ := updated.LatestEvent()
	a.broker.Publish(notify.Update{BatchID: id, EventID: latest.EventID})
	a.poller.Refresh(ctx)
	a.log.Info("event appended",
		zap.String("batchId", id),
		zap.String("eventId", latest.EventID),
		zap.String("type", string(latest.EventType)))

	writeJSON(w, http.StatusCreated, updated)
}

// ledgerError maps ledger failures onto HTTP statuses.
func (a *App) ledgerError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		http.Error(w, "batch not found", http.StatusNotFound)
	case errors.Is(err, ledger.ErrInvalidEvent):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ledger.ErrExists):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		a.log.Error(op, zap.Error(err))
		http.Error(w, "ledger unavailable", http.StatusBadGateway)
	}
}

func writePNG(w http.ResponseWriter, d *batches.Download) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `attachment; filename="`+d.FileName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(d.PNG)))
	_, _ = w.Write(d.PNG)
}
