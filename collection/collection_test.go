package collection

import (
	"context"
	"errors"
	"testing"
	"time"

	"herbtrace/ledger"
	"herbtrace/models"
	"herbtrace/notify"
	"herbtrace/qr"
	"herbtrace/weather"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

var collector = models.User{Name: "Asha Devi", Role: models.RoleCollector, Address: "0xabc", Organization: "Nilgiri Collectors"}

func TestTotalPrice(t *testing.T) {
	assert.Equal(t, 0.0, TotalPrice(0, 0))
	assert.Equal(t, 30.0, TotalPrice(12, 2.5))
	assert.Equal(t, 0.35, TotalPrice(0.1, 3.45), "0.345 rounds up")
	assert.Equal(t, 41.15, TotalPrice(3.3, 12.47))
	assert.Equal(t, 1234.57, TotalPrice(1, 1234.5678))
}

func TestReduce_TotalPriceIsDerivedAndReadOnly(t *testing.T) {
	s := Defaults(&collector, today)
	s = Reduce(s, WeightChanged{Value: 2.5})
	assert.Equal(t, 0.0, s.TotalPrice)

	s = Reduce(s, PriceChanged{Value: 40.333})
	assert.Equal(t, 100.83, s.TotalPrice)

	s = Reduce(s, TotalPriceEdited{Value: 1})
	assert.Equal(t, 100.83, s.TotalPrice, "direct edits are ignored")

	s = Reduce(s, WeightChanged{Value: 3})
	assert.Equal(t, 121.0, s.TotalPrice)
}

func TestDefaults(t *testing.T) {
	s := Defaults(&collector, today)
	assert.Equal(t, "Nilgiri Collectors", s.CollectorGroup)
	assert.Equal(t, "2025-03-14", s.HarvestDate)

	s = Defaults(&models.User{Name: "Solo"}, today)
	assert.Equal(t, "Solo", s.CollectorGroup)
}

func TestSuggest(t *testing.T) {
	names := func(hs []models.Herb) []string {
		var out []string
		for _, h := range hs {
			out = append(out, h.Name)
		}
		return out
	}

	assert.Equal(t, []string{"Ashwagandha", "Indian Ginseng"}, names(Suggest("ash", models.Herbs)))
	assert.Equal(t, []string{"Tulsi"}, names(Suggest("OCIMUM", models.Herbs)))
	assert.Empty(t, Suggest("  ", models.Herbs))
	assert.Empty(t, Suggest("zzz", models.Herbs))
}

func TestReduce_Typeahead(t *testing.T) {
	s := Reduce(State{}, SpeciesTyped{Text: "bra"})
	assert.True(t, s.ShowSuggestions)
	require.NotEmpty(t, s.Suggestions)
	assert.Equal(t, "Brahmi", s.Suggestions[0].Name)

	s = Reduce(s, HerbSelected{Herb: s.Suggestions[0]})
	assert.Equal(t, "Brahmi", s.Species)
	assert.False(t, s.ShowSuggestions)
	assert.Empty(t, s.Suggestions)
}

func TestReduce_Location(t *testing.T) {
	s := Reduce(State{}, LocationFailed{})
	assert.Equal(t, LocationHelp, s.Error)
	assert.Nil(t, s.Location)

	s = Reduce(s, LocationCaptured{Location: models.Location{Latitude: 11.4, Longitude: 76.7}})
	require.NotNil(t, s.Location)
	assert.Empty(t, s.Error)
}

// spies record every call so tests can assert what was (not) contacted.
type spyLedger struct {
	*ledger.Memory
	created int
	err     error
}

func (l *spyLedger) CreateBatch(ctx context.Context, actor models.Actor, p ledger.CollectionPayload) (*models.Batch, error) {
	l.created++
	if l.err != nil {
		return nil, l.err
	}
	return l.Memory.CreateBatch(ctx, actor, p)
}

type spyStorage struct {
	uploads, metas int
	uploadErr      error
	metaErr        error
}

func (s *spyStorage) UploadFile(ctx context.Context, name string, content []byte) (string, error) {
	s.uploads++
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	return "QmImage", nil
}

func (s *spyStorage) CreateCollectionMetadata(ctx context.Context, meta any) (string, error) {
	s.metas++
	if s.metaErr != nil {
		return "", s.metaErr
	}
	return "QmMeta", nil
}

type spyQR struct {
	calls int
	err   error
}

func (q *spyQR) GenerateCollectionQR(ctx context.Context, batchID, eventID, species, collector string) (*qr.CollectionQR, error) {
	q.calls++
	if q.err != nil {
		return nil, q.err
	}
	return &qr.CollectionQR{QRHash: "abc", DataURL: "data:image/png;base64,AA==", TrackingURL: "https://t/track?q=" + batchID}, nil
}

func (q *spyQR) GeneratePrintableQR(ctx context.Context, batchID, eventID string, label qr.Label) ([]byte, error) {
	return nil, errors.New("not used")
}

type spyWeather struct{ calls int }

func (w *spyWeather) Current(ctx context.Context, lat, lon float64) weather.Reading {
	w.calls++
	return weather.Reading{Temperature: 24, Humidity: 70, Code: 1, Description: "Mainly clear"}
}

type harness struct {
	ledger  *spyLedger
	storage *spyStorage
	qr      *spyQR
	weather *spyWeather
	broker  *notify.Broker
	sub     *Submitter
}

func newHarness() *harness {
	h := &harness{
		ledger:  &spyLedger{Memory: ledger.NewMemory()},
		storage: &spyStorage{},
		qr:      &spyQR{},
		weather: &spyWeather{},
		broker:  notify.NewBroker(nil),
	}
	h.sub = NewSubmitter(h.ledger, h.storage, h.qr,
		WithWeather(h.weather),
		WithNotifier(h.broker),
		WithClock(func() time.Time { return today }),
	)
	return h
}

func (h *harness) calls() int {
	return h.ledger.created + h.storage.uploads + h.storage.metas + h.qr.calls + h.weather.calls
}

func validForm() State {
	s := Defaults(&collector, today)
	for _, a := range []Action{
		SpeciesTyped{Text: "Tulsi"},
		WeightChanged{Value: 12.5},
		PriceChanged{Value: 40},
		ZoneChanged{Value: "Nilgiri Hills"},
		GradeChanged{Value: "A"},
		NotesChanged{Value: "morning harvest"},
		LocationCaptured{Location: models.Location{Latitude: 11.406414, Longitude: 76.693245}},
	} {
		s = Reduce(s, a)
	}
	return s
}

func TestSubmit_WithoutLocationMakesNoCalls(t *testing.T) {
	h := newHarness()
	form := validForm()
	form.Location = nil

	_, err := h.sub.Submit(context.Background(), collector, form)
	assert.ErrorIs(t, err, ErrLocationRequired)

	_, err = h.sub.Submit(context.Background(), collector, State{})
	assert.ErrorIs(t, err, ErrLocationRequired, "location is checked before anything else")

	assert.Zero(t, h.calls())
}

func TestSubmit_ValidationErrors(t *testing.T) {
	h := newHarness()
	form := validForm()
	form.Weight = 0
	form.PricePerUnit = -1
	form.HarvestDate = "2025-03-15"
	form.Zone = "Atlantis"
	form.QualityGrade = " "

	_, err := h.sub.Submit(context.Background(), collector, form)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string]string{
		"weight":       "must be greater than 0",
		"pricePerUnit": "must not be negative",
		"harvestDate":  "must be a date (YYYY-MM-DD) no later than today",
		"zone":         "is not an approved harvesting zone",
		"qualityGrade": "is required",
	}, verr.Fields)
	assert.Zero(t, h.calls())
}

func TestSubmit_Success(t *testing.T) {
	h := newHarness()
	sub, stop := h.broker.Subscribe()
	defer stop()

	form := validForm()
	form.Image = &Image{Name: "../leaf.jpg", Content: []byte{0xff, 0xd8}}

	res, err := h.sub.Submit(context.Background(), collector, form)
	require.NoError(t, err)

	assert.Equal(t, 500.0, res.TotalPrice)
	assert.Equal(t, "QmImage", res.ImageHash)
	assert.Equal(t, "QmMeta", res.MetadataHash)
	require.NotNil(t, res.QR)
	assert.Equal(t, 1, h.weather.calls)

	b, err := h.ledger.GetBatchInfo(context.Background(), res.EventID)
	require.NoError(t, err)
	assert.Equal(t, res.BatchID, b.BatchID)
	assert.Equal(t, "Asha Devi", b.Creator)

	d, err := models.DecodeDetails(b.Events[0])
	require.NoError(t, err)
	cd := d.(models.CollectionDetails)
	assert.Equal(t, "Nilgiri Hills", cd.LocationName())
	assert.Equal(t, "11.406414, 76.693245", cd.Coordinates())
	assert.Equal(t, []string{"QmImage"}, cd.Images)
	assert.Equal(t, "Mainly clear", cd.Weather.Description)
	assert.Equal(t, "QmMeta", cd.IPFSHash)

	select {
	case u := <-sub:
		assert.Equal(t, res.BatchID, u.BatchID)
	default:
		t.Fatal("no data-updated notification")
	}
}

func TestSubmit_OptionalFailuresDegrade(t *testing.T) {
	h := newHarness()
	h.storage.uploadErr = errors.New("ipfs down")
	h.storage.metaErr = errors.New("ipfs down")
	h.qr.err = errors.New("encoder broke")

	form := validForm()
	form.Image = &Image{Name: "leaf.jpg", Content: []byte{1}}

	res, err := h.sub.Submit(context.Background(), collector, form)
	require.NoError(t, err)
	assert.Empty(t, res.ImageHash)
	assert.Empty(t, res.MetadataHash)
	assert.Nil(t, res.QR)
	assert.Equal(t, 1, h.ledger.created)
}

func TestSubmit_LedgerFailureAborts(t *testing.T) {
	h := newHarness()
	h.ledger.err = errors.New("peer unreachable")
	sub, stop := h.broker.Subscribe()
	defer stop()

	_, err := h.sub.Submit(context.Background(), collector, validForm())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "peer unreachable")

	select {
	case u := <-sub:
		t.Fatalf("unexpected notification for %s", u.BatchID)
	default:
	}
}

func TestRun(t *testing.T) {
	h := newHarness()

	done := h.sub.Run(context.Background(), collector, validForm())
	require.NotNil(t, done.Result)
	assert.False(t, done.Submitting)
	assert.Empty(t, done.Species, "form cleared after success")
	assert.Equal(t, "Nilgiri Collectors", done.CollectorGroup)
	assert.Equal(t, "2025-03-14", done.HarvestDate)

	h.ledger.err = errors.New("peer unreachable")
	failed := h.sub.Run(context.Background(), collector, validForm())
	assert.Nil(t, failed.Result)
	assert.Equal(t, "Tulsi", failed.Species, "form preserved for correction")
	assert.Contains(t, failed.Error, "peer unreachable")
}
