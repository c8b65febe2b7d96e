// Package qr renders tracking QR codes for batches.
package qr

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

// CollectionQR is what the confirmation view shows after a collection.
type CollectionQR struct {
	QRHash      string `json:"qrHash"`
	DataURL     string `json:"dataURL"`
	TrackingURL string `json:"trackingUrl"`
}

// Label is the human-readable payload printed alongside a batch code.
type Label struct {
	HerbSpecies  string `json:"herbSpecies"`
	CurrentStage string `json:"currentStage"`
	Participant  string `json:"participant"`
}

// Service renders batch QR codes.
type Service interface {
	GenerateCollectionQR(ctx context.Context, batchID, eventID, species, collector string) (*CollectionQR, error)
	GeneratePrintableQR(ctx context.Context, batchID, eventID string, label Label) ([]byte, error)
}

// FileName is the download name for a printable code.
func FileName(batchID, status string) string {
	return fmt.Sprintf("%s-%s-QR.png", batchID, status)
}

type Generator struct {
	trackingBase string
	now          func() time.Time
}

// NewGenerator builds codes whose tracking links point at trackingBase.
func NewGenerator(trackingBase string) *Generator {
	return &Generator{trackingBase: strings.TrimRight(trackingBase, "/"), now: time.Now}
}

type codePayload struct {
	Type        string `json:"type"`
	BatchID     string `json:"batchId"`
	EventID     string `json:"eventId"`
	HerbSpecies string `json:"herbSpecies,omitempty"`
	Collector   string `json:"collector,omitempty"`
	Stage       string `json:"currentStage,omitempty"`
	Participant string `json:"participant,omitempty"`
	TrackingURL string `json:"trackingUrl"`
	Timestamp   string `json:"timestamp"`
}

func (g *Generator) trackingURL(batchID string) string {
	return g.trackingBase + "/track?q=" + url.QueryEscape(batchID)
}

func (g *Generator) GenerateCollectionQR(ctx context.Context, batchID, eventID, species, collector string) (*CollectionQR, error) {
	if batchID == "" || eventID == "" {
		return nil, fmt.Errorf("batch and event ids are required")
	}
	p := codePayload{
		Type:        "collection",
		BatchID:     batchID,
		EventID:     eventID,
		HerbSpecies: species,
		Collector:   collector,
		TrackingURL: g.trackingURL(batchID),
		Timestamp:   g.now().UTC().Format(time.RFC3339),
	}
	content, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal qr payload: %w", err)
	}
	png, err := qrcode.Encode(string(content), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	sum := sha256.Sum256(content)
	return &CollectionQR{
		QRHash:      hex.EncodeToString(sum[:]),
		DataURL:     "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		TrackingURL: p.TrackingURL,
	}, nil
}

// GeneratePrintableQR returns a high-redundancy PNG sized for labels.
func (g *Generator) GeneratePrintableQR(ctx context.Context, batchID, eventID string, label Label) ([]byte, error) {
	if batchID == "" || eventID == "" {
		return nil, fmt.Errorf("batch and event ids are required")
	}
	p := codePayload{
		Type:        "batch",
		BatchID:     batchID,
		EventID:     eventID,
		HerbSpecies: label.HerbSpecies,
		Stage:       label.CurrentStage,
		Participant: label.Participant,
		TrackingURL: g.trackingURL(batchID),
		Timestamp:   g.now().UTC().Format(time.RFC3339),
	}
	content, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal qr payload: %w", err)
	}
	png, err := qrcode.Encode(string(content), qrcode.High, 512)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
