package collection

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"herbtrace/ipfs"
	"herbtrace/ledger"
	"herbtrace/models"
	"herbtrace/notify"
	"herbtrace/qr"
	"herbtrace/weather"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Result is what the confirmation view shows.
type Result struct {
	BatchID      string           `json:"batchId"`
	EventID      string           `json:"eventId"`
	HerbSpecies  string           `json:"herbSpecies"`
	TotalPrice   float64          `json:"totalPrice"`
	ImageHash    string           `json:"imageHash,omitempty"`
	MetadataHash string           `json:"metadataHash,omitempty"`
	QR           *qr.CollectionQR `json:"qr,omitempty"`
}

// Submitter records a completed form. Image, metadata and QR steps are
// optional and degrade silently; only the ledger write can fail the submit.
type Submitter struct {
	ledger   ledger.Ledger
	storage  ipfs.Storage
	qr       qr.Service
	weather  weather.Provider
	notifier notify.Notifier
	logger   *zap.Logger
	validate *validator.Validate
	now      func() time.Time
}

// Option configures a Submitter.
type Option func(*Submitter)

func WithWeather(p weather.Provider) Option { return func(s *Submitter) { s.weather = p } }

func WithNotifier(n notify.Notifier) Option { return func(s *Submitter) { s.notifier = n } }

func WithLogger(l *zap.Logger) Option { return func(s *Submitter) { s.logger = l } }

func WithClock(now func() time.Time) Option { return func(s *Submitter) { s.now = now } }

// NewSubmitter records collections on l. Weather and notifications are optional.
func NewSubmitter(l ledger.Ledger, storage ipfs.Storage, qrs qr.Service, opts ...Option) *Submitter {
	s := &Submitter{
		ledger:  l,
		storage: storage,
		qr:      qrs,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.validate = newValidator(s.now)
	return s
}

// Today is the submitter's current date, used for form defaults.
func (s *Submitter) Today() time.Time { return s.now() }

// Submit validates the form and records it. Validation problems and a missing
// location fix are reported before any service is called.
func (s *Submitter) Submit(ctx context.Context, user models.User, form State) (*Result, error) {
	if form.Location == nil {
		return nil, ErrLocationRequired
	}
	if err := validate(s.validate, form); err != nil {
		return nil, err
	}

	species := strings.TrimSpace(form.Species)
	batchID := s.ledger.GenerateBatchID()
	eventID := s.ledger.GenerateEventID(models.EventCollection.IDPrefix())
	log := s.logger.With(zap.String("batchId", batchID), zap.String("eventId", eventID))

	if form.Weather == nil && s.weather != nil {
		r := s.weather.Current(ctx, form.Location.Latitude, form.Location.Longitude)
		form.Weather = &r
	}

	res := &Result{
		BatchID:     batchID,
		EventID:     eventID,
		HerbSpecies: species,
		TotalPrice:  TotalPrice(form.Weight, form.PricePerUnit),
	}

	if form.Image != nil && len(form.Image.Content) > 0 {
		name := path.Base(form.Image.Name)
		if name == "." || name == "/" {
			name = batchID + ".jpg"
		}
		hash, err := s.storage.UploadFile(ctx, name, form.Image.Content)
		if err != nil {
			log.Warn("image upload failed, continuing without image", zap.Error(err))
		} else {
			res.ImageHash = hash
		}
	}

	data := eventData(user, form, res)

	if hash, err := s.storage.CreateCollectionMetadata(ctx, metadata(batchID, eventID, data)); err != nil {
		log.Warn("metadata upload failed, continuing without metadata", zap.Error(err))
	} else {
		res.MetadataHash = hash
		data["ipfsHash"] = hash
	}

	if code, err := s.qr.GenerateCollectionQR(ctx, batchID, eventID, species, user.Name); err != nil {
		log.Warn("qr generation failed, continuing without code", zap.Error(err))
	} else {
		res.QR = code
		data["qrHash"] = code.QRHash
		data["trackingUrl"] = code.TrackingURL
	}

	b, err := s.ledger.CreateBatch(ctx, user.Actor(), ledger.CollectionPayload{
		BatchID:     batchID,
		EventID:     eventID,
		HerbSpecies: species,
		Timestamp:   s.now().UTC(),
		Data:        data,
	})
	if err != nil {
		log.Error("record collection on ledger", zap.Error(err))
		return nil, fmt.Errorf("record collection: %w", err)
	}
	log.Info("collection recorded", zap.String("species", b.HerbSpecies), zap.String("collector", user.Name))

	if s.notifier != nil {
		s.notifier.Publish(notify.Update{BatchID: batchID, EventID: eventID})
	}
	return res, nil
}

// Run drives the form through submission: SubmitStarted, then either
// SubmitFailed with the form preserved or SubmitSucceeded with the defaults.
func (s *Submitter) Run(ctx context.Context, user models.User, form State) State {
	form = Reduce(form, SubmitStarted{})
	res, err := s.Submit(ctx, user, form)
	if err != nil {
		return Reduce(form, SubmitFailed{Err: err})
	}
	return Reduce(form, SubmitSucceeded{Result: res, Defaults: Defaults(&user, s.now())})
}

func eventData(user models.User, form State, res *Result) map[string]any {
	data := map[string]any{
		"herbSpecies":    res.HerbSpecies,
		"collector":      user.Name,
		"collectorGroup": strings.TrimSpace(form.CollectorGroup),
		"weight":         form.Weight,
		"pricePerUnit":   form.PricePerUnit,
		"totalPrice":     res.TotalPrice,
		"harvestDate":    form.HarvestDate,
		"zone":           form.Zone,
		"qualityGrade":   strings.TrimSpace(form.QualityGrade),
		"location": map[string]any{
			"latitude":  form.Location.Latitude,
			"longitude": form.Location.Longitude,
			"zone":      form.Zone,
		},
	}
	if n := strings.TrimSpace(form.Notes); n != "" {
		data["notes"] = n
	}
	if res.ImageHash != "" {
		data["images"] = []any{res.ImageHash}
	}
	if form.Weather != nil {
		data["weather"] = map[string]any{
			"temperature": form.Weather.Temperature,
			"humidity":    form.Weather.Humidity,
			"description": form.Weather.Description,
		}
	}
	return data
}

func metadata(batchID, eventID string, data map[string]any) map[string]any {
	meta := make(map[string]any, len(data)+3)
	for k, v := range data {
		meta[k] = v
	}
	meta["batchId"] = batchID
	meta["eventId"] = eventID
	meta["eventType"] = models.EventCollection
	return meta
}
