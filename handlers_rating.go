package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"herbtrace/rating"

	"go.uber.org/zap"
)

func (a *App) handleRatingStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	st, err := a.ratings.Stats(ctx)
	if err != nil {
		a.log.Error("load rating stats", zap.Error(err))
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, ratingResp{Stats: st.Rounded()})
}

// handleSubmitRating records a 1-5 star rating with optional feedback.
func (a *App) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	var req ratingReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	form := rating.Reduce(rating.Reduce(rating.State{}, rating.StarSelected{Star: req.Rating}),
		rating.FeedbackChanged{Text: req.Feedback})
	if !rating.CanSubmit(form) {
		http.Error(w, rating.ErrInvalidRating.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), a.cfg.RatingDelay+10*time.Second)
	defer cancel()
	next := a.ratings.Run(ctx, form)
	if !next.Submitted {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		a.log.Error("submit rating", zap.String("error", next.Error))
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, ratingResp{Stats: next.Stats.Rounded(), Label: rating.Label(next.Rating)})
}

// handleResetRating returns an empty form with stats re-read from storage.
func (a *App) handleResetRating(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	st, err := a.ratings.Reset(ctx)
	if err != nil {
		a.log.Error("reset rating form", zap.Error(err))
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, ratingResp{Stats: st.Stats.Rounded()})
}
