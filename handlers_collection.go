package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"herbtrace/collection"
	"herbtrace/models"
)

// handleHerbs serves the species typeahead; without ?q= the whole catalogue.
func (a *App) handleHerbs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusOK, models.Herbs)
		return
	}
	out := collection.Suggest(q, models.Herbs)
	if out == nil {
		out = []models.Herb{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *App) handleZones(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"zones":         models.ApprovedZones,
		"qualityGrades": models.QualityGrades,
	})
}

// handleWeather reports current conditions at ?lat=&lon=. Provider failures
// come back as the fallback reading, never as an error.
func (a *App) handleWeather(w http.ResponseWriter, r *http.Request) {
	lat, err1 := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, err2 := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err1 != nil || err2 != nil {
		http.Error(w, "lat and lon are required numbers", http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	writeJSON(w, http.StatusOK, a.weather.Current(ctx, lat, lon))
}

// handleCreateCollection records a new batch from a completed collection form.
func (a *App) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	var req collectionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	form := formFromRequest(*user, a.collector.Today(), req)

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	res, err := a.collector.Submit(ctx, *user, form)
	var verr *collection.ValidationError
	switch {
	case errors.Is(err, collection.ErrLocationRequired):
		writeJSON(w, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResp{Error: "invalid collection", Fields: verr.Fields})
		return
	case err != nil:
		// the form stays with the client for correction and resubmission
		writeJSON(w, http.StatusBadGateway, errorResp{Error: err.Error()})
		return
	}
	a.poller.Refresh(ctx)
	writeJSON(w, http.StatusCreated, res)
}

// formFromRequest replays the request onto the user's default form, so unset
// harvest date and collector group keep their defaults and total price is
// derived the same way as on screen.
func formFromRequest(u models.User, today time.Time, req collectionReq) collection.State {
	s := collection.Defaults(&u, today)
	actions := []collection.Action{
		collection.SpeciesTyped{Text: req.Species},
		collection.SuggestionsClosed{},
		collection.WeightChanged{Value: req.Weight},
		collection.PriceChanged{Value: req.PricePerUnit},
		collection.ZoneChanged{Value: req.Zone},
		collection.GradeChanged{Value: req.QualityGrade},
		collection.NotesChanged{Value: req.Notes},
	}
	if req.HarvestDate != "" {
		actions = append(actions, collection.HarvestDateChanged{Value: req.HarvestDate})
	}
	if req.CollectorGroup != "" {
		actions = append(actions, collection.GroupChanged{Value: req.CollectorGroup})
	}
	if req.Image != nil {
		actions = append(actions, collection.ImageAttached{Image: &collection.Image{Name: req.Image.Name, Content: req.Image.Content}})
	}
	if req.Location != nil {
		actions = append(actions, collection.LocationCaptured{Location: *req.Location})
	} else {
		actions = append(actions, collection.LocationFailed{})
	}
	for _, act := range actions {
		s = collection.Reduce(s, act)
	}
	return s
}
