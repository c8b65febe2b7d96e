package main

import (
	"herbtrace/models"
	"herbtrace/rating"
)

// Request/response DTOs. Keep them minimal and explicit.

type registerReq struct {
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	Password     string      `json:"password"`
	Role         models.Role `json:"role"`
	Address      string      `json:"address"`
	Organization string      `json:"organization,omitempty"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResp struct {
	Token string       `json:"token"`
	User  *models.User `json:"user,omitempty"`
}

type errorResp struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type batchListResp struct {
	Batches []models.Batch `json:"batches"`
	Filter  string         `json:"filter"`
	Loading bool           `json:"loading"`
	Error   string         `json:"error,omitempty"`
}

type appendEventReq struct {
	EventType models.EventType `json:"eventType"`
	Data      map[string]any   `json:"data"`
}

type imageReq struct {
	Name    string `json:"name"`
	Content []byte `json:"content"` // base64 in JSON
}

type collectionReq struct {
	Species        string           `json:"species"`
	Weight         float64          `json:"weight"`
	PricePerUnit   float64          `json:"pricePerUnit"`
	HarvestDate    string           `json:"harvestDate,omitempty"` // defaults to today
	Zone           string           `json:"zone"`
	QualityGrade   string           `json:"qualityGrade"`
	CollectorGroup string           `json:"collectorGroup,omitempty"` // defaults from the user
	Notes          string           `json:"notes,omitempty"`
	Location       *models.Location `json:"location"`
	Image          *imageReq        `json:"image,omitempty"`
}

type ratingReq struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback,omitempty"`
}

type ratingResp struct {
	Stats rating.Stats `json:"stats"`
	Label string       `json:"label,omitempty"`
}
