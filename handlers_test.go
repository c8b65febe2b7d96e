package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"herbtrace/collection"
	"herbtrace/models"
	"herbtrace/tracker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	t   *testing.T
	app *App
	srv *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	weatherSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"current":{"temperature_2m":22.5,"relative_humidity_2m":71,"weather_code":1}}`))
	}))
	t.Cleanup(weatherSrv.Close)

	cfg := Config{
		JWTSecret:       "test-secret",
		LedgerBackend:   backendMemory,
		KVBackend:       backendMemory,
		WeatherURL:      weatherSrv.URL,
		TrackingBaseURL: "https://herbs.example",
		BatchSource:     sourceLedger,
		PollInterval:    time.Hour,
	}
	app, err := newApp(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	srv := httptest.NewServer(app.routes())
	t.Cleanup(func() {
		srv.Close()
		app.close(context.Background())
	})
	return &testEnv{t: t, app: app, srv: srv}
}

func (e *testEnv) do(method, path, token string, body any) *http.Response {
	e.t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		rdr = bytes.NewReader(raw)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rdr)
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(e.t, err)
	e.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// signup registers a user with the given role and returns a bearer token.
func (e *testEnv) signup(name string, role models.Role) string {
	e.t.Helper()
	email := strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com"
	resp := e.do(http.MethodPost, "/api/auth/register", "", registerReq{
		Name: name, Email: email, Password: "s3cret", Role: role, Address: "0x" + name, Organization: name + " Org",
	})
	require.Equal(e.t, http.StatusCreated, resp.StatusCode)

	resp = e.do(http.MethodPost, "/api/auth/login", "", loginReq{Email: email, Password: "s3cret"})
	require.Equal(e.t, http.StatusOK, resp.StatusCode)
	return decodeBody[tokenResp](e.t, resp).Token
}

func validCollection() collectionReq {
	return collectionReq{
		Species:      "Ashwagandha",
		Weight:       10,
		PricePerUnit: 12.345,
		Zone:         "Western Ghats",
		QualityGrade: "A",
		Location:     &models.Location{Latitude: 12.9716, Longitude: 77.5946},
	}
}

func TestAuthFlow(t *testing.T) {
	e := newTestEnv(t)
	tok := e.signup("Asha Devi", models.RoleCollector)

	resp := e.do(http.MethodPost, "/api/auth/register", "", registerReq{Name: "Dup", Email: "ASHA.DEVI@example.com", Password: "x", Role: 1})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = e.do(http.MethodPost, "/api/auth/register", "", registerReq{Name: "Bad", Email: "bad@example.com", Password: "x", Role: 9})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.do(http.MethodPost, "/api/auth/login", "", loginReq{Email: "asha.devi@example.com", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = e.do(http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = e.do(http.MethodGet, "/api/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = e.do(http.MethodGet, "/api/me", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "Asha Devi", me["name"])
	assert.EqualValues(t, 1, me["role"])
	assert.NotContains(t, me, "passwordHash")
}

func TestCreateCollection(t *testing.T) {
	e := newTestEnv(t)
	tok := e.signup("Asha Devi", models.RoleCollector)

	noLoc := validCollection()
	noLoc.Location = nil
	resp := e.do(http.MethodPost, "/api/collections", tok, noLoc)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, collection.ErrLocationRequired.Error(), decodeBody[errorResp](t, resp).Error)

	bad := validCollection()
	bad.Zone = "Atlantis"
	bad.Weight = 0
	resp = e.do(http.MethodPost, "/api/collections", tok, bad)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	fields := decodeBody[errorResp](t, resp).Fields
	assert.Contains(t, fields, "zone")
	assert.Contains(t, fields, "weight")

	resp = e.do(http.MethodPost, "/api/collections", tok, validCollection())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	res := decodeBody[collection.Result](t, resp)
	assert.Regexp(t, `^HERB-\d+-[0-9A-F]{6}$`, res.BatchID)
	assert.Equal(t, 123.45, res.TotalPrice)
	assert.NotEmpty(t, res.MetadataHash)
	require.NotNil(t, res.QR)
	assert.Equal(t, "https://herbs.example/track?q="+res.BatchID, res.QR.TrackingURL)

	b, err := e.app.ledger.GetBatchInfo(context.Background(), res.EventID)
	require.NoError(t, err)
	d, err := models.DecodeDetails(b.Events[0])
	require.NoError(t, err)
	cd := d.(models.CollectionDetails)
	assert.Equal(t, "Asha Devi Org", cd.CollectorGroup, "collector group defaults to the organization")
	require.NotNil(t, cd.Weather)
	assert.Equal(t, "Mainly clear", cd.Weather.Description)

	resp = e.do(http.MethodGet, "/api/batches?filter=accessible", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeBody[batchListResp](t, resp)
	assert.False(t, list.Loading)
	assert.Empty(t, list.Batches, "collectors have no stage of their own")

	resp = e.do(http.MethodGet, "/api/batches", tok, nil)
	list = decodeBody[batchListResp](t, resp)
	require.Len(t, list.Batches, 1)
	assert.Equal(t, res.BatchID, list.Batches[0].BatchID)

	consumer := e.signup("Meera", models.RoleConsumer)
	resp = e.do(http.MethodPost, "/api/collections", consumer, validCollection())
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAppendEventAndTrack(t *testing.T) {
	e := newTestEnv(t)
	collector := e.signup("Asha Devi", models.RoleCollector)
	lab := e.signup("AyurLab", models.RoleQualityTest)

	resp := e.do(http.MethodPost, "/api/collections", collector, validCollection())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	res := decodeBody[collection.Result](t, resp)

	resp = e.do(http.MethodPost, "/api/batches/"+res.BatchID+"/events", collector, appendEventReq{EventType: models.EventQualityTest})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "collectors cannot act on COLLECTED batches")

	resp = e.do(http.MethodPost, "/api/batches/"+res.BatchID+"/events", lab, appendEventReq{
		EventType: models.EventQualityTest,
		Data:      map[string]any{"purity": 97.2, "pesticideLevel": 0.02, "labName": "AyurLab"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	updated := decodeBody[models.Batch](t, resp)
	assert.Equal(t, models.StatusQualityTested, updated.CurrentStatus)
	assert.Regexp(t, `^QT-`, updated.Events[1].EventID)

	resp = e.do(http.MethodPost, "/api/batches/"+res.BatchID+"/events", lab, appendEventReq{EventType: models.EventProcessing})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = e.do(http.MethodPost, "/api/batches/HERB-404/events", lab, appendEventReq{EventType: models.EventQualityTest})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = e.do(http.MethodGet, "/api/track?q="+res.EventID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decodeBody[tracker.View](t, resp)
	assert.Equal(t, "Ready for Processing", view.Summary.NextStep)
	require.Len(t, view.Timeline, 2)
	require.NotNil(t, view.Timeline[0].Collection)
	assert.Equal(t, "Western Ghats", view.Timeline[0].Collection.Location)
	assert.Equal(t, "12.971600, 77.594600", view.Timeline[0].Collection.Coordinates)
	require.NotNil(t, view.Timeline[1].QualityTest)
	assert.True(t, view.Timeline[1].QualityTest.Passed)

	resp = e.do(http.MethodGet, "/api/track?q=HERB-404", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = e.do(http.MethodGet, "/api/track?q=+", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.do(http.MethodGet, "/api/batches/"+res.BatchID+"/qr", lab, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), res.BatchID+"-QUALITY_TESTED-QR.png")

	resp = e.do(http.MethodGet, "/api/track/qr?q="+res.BatchID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
}

func TestAppendEventFollowsStageOrder(t *testing.T) {
	e := newTestEnv(t)
	collector := e.signup("Asha Devi", models.RoleCollector)
	lab := e.signup("AyurLab", models.RoleQualityTest)
	processor := e.signup("Herbal Processing Co", models.RoleProcessor)
	maker := e.signup("Ayur Pharma", models.RoleManufacturer)
	admin := e.signup("Admin", models.RoleAdmin)

	resp := e.do(http.MethodPost, "/api/collections", collector, validCollection())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	res := decodeBody[collection.Result](t, resp)
	path := "/api/batches/" + res.BatchID + "/events"

	resp = e.do(http.MethodPost, path, lab, appendEventReq{EventType: models.EventManufacturing})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "stages cannot be skipped")

	for _, step := range []struct {
		token string
		typ   models.EventType
		want  models.BatchStatus
	}{
		{lab, models.EventQualityTest, models.StatusQualityTested},
		{processor, models.EventProcessing, models.StatusProcessed},
		{maker, models.EventManufacturing, models.StatusManufactured},
	} {
		resp = e.do(http.MethodPost, path, step.token, appendEventReq{EventType: step.typ})
		require.Equal(t, http.StatusCreated, resp.StatusCode, step.typ)
		assert.Equal(t, step.want, decodeBody[models.Batch](t, resp).CurrentStatus)
	}

	resp = e.do(http.MethodPost, path, collector, appendEventReq{EventType: models.EventQualityTest})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "status never moves backwards")
	resp = e.do(http.MethodPost, path, admin, appendEventReq{EventType: models.EventManufacturing})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "a finished batch takes no further events")

	resp = e.do(http.MethodGet, "/api/track?q="+res.BatchID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decodeBody[tracker.View](t, resp)
	assert.Equal(t, models.StatusManufactured, view.Summary.Status)
	assert.Len(t, view.Timeline, 4)
}

func TestTrackStream(t *testing.T) {
	e := newTestEnv(t)
	collector := e.signup("Asha Devi", models.RoleCollector)
	lab := e.signup("AyurLab", models.RoleQualityTest)

	resp := e.do(http.MethodPost, "/api/collections", collector, validCollection())
	res := decodeBody[collection.Result](t, resp)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.srv.URL+"/api/track/stream?q="+res.BatchID, nil)
	require.NoError(t, err)
	stream, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()
	require.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))

	events := make(chan tracker.View, 4)
	go func() {
		defer close(events)
		sc := bufio.NewScanner(stream.Body)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for sc.Scan() {
			line := sc.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var v tracker.View
			if json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &v) == nil {
				events <- v
			}
		}
	}()

	next := func() tracker.View {
		select {
		case v := <-events:
			return v
		case <-time.After(3 * time.Second):
			t.Fatal("no stream event")
			return tracker.View{}
		}
	}

	first := next()
	assert.Equal(t, models.StatusCollected, first.Summary.Status)

	require.Eventually(t, func() bool { return e.app.broker.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	resp = e.do(http.MethodPost, "/api/batches/"+res.BatchID+"/events", lab, appendEventReq{EventType: models.EventQualityTest})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	second := next()
	assert.Equal(t, models.StatusQualityTested, second.Summary.Status)
	assert.Len(t, second.Timeline, 2)

	cancel()
	require.Eventually(t, func() bool { return e.app.broker.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestRatings(t *testing.T) {
	e := newTestEnv(t)
	tok := e.signup("Meera", models.RoleConsumer)

	resp := e.do(http.MethodGet, "/api/ratings/stats", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0.0, decodeBody[ratingResp](t, resp).Stats.AverageRating)

	resp = e.do(http.MethodPost, "/api/ratings", tok, ratingReq{Rating: 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	for _, r := range []int{2, 5, 4} {
		resp = e.do(http.MethodPost, "/api/ratings", tok, ratingReq{Rating: r, Feedback: "ok"})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}
	out := decodeBody[ratingResp](t, resp)
	assert.Equal(t, "Very Good", out.Label)
	assert.Equal(t, 3, out.Stats.TotalReviews)
	assert.Equal(t, 3.67, out.Stats.AverageRating)
	assert.Equal(t, 66.67, out.Stats.SatisfactionRate)

	resp = e.do(http.MethodPost, "/api/ratings/reset", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, out.Stats, decodeBody[ratingResp](t, resp).Stats)
}

func TestCatalogueEndpoints(t *testing.T) {
	e := newTestEnv(t)

	resp := e.do(http.MethodGet, "/api/herbs?q=ash", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	herbs := decodeBody[[]models.Herb](t, resp)
	require.Len(t, herbs, 2)
	assert.Equal(t, "Indian Ginseng", herbs[1].Name)

	resp = e.do(http.MethodGet, "/api/herbs?q=zzz", "", nil)
	assert.Equal(t, "[]\n", readAll(t, resp))

	resp = e.do(http.MethodGet, "/api/zones", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readAll(t, resp), "Nilgiri Hills")

	tok := e.signup("Asha Devi", models.RoleCollector)
	resp = e.do(http.MethodGet, "/api/weather?lat=12.9&lon=77.5", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readAll(t, resp), "Mainly clear")

	resp = e.do(http.MethodGet, "/api/weather?lat=x", tok, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.do(http.MethodGet, "/api/openapi.yaml", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readAll(t, resp), "/api/track/stream")
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return buf.String()
}
