package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"CricketSync/internal/config"
	"CricketSync/internal/interfaces"
	"CricketSync/internal/logging"
	"CricketSync/internal/metrics"
	"CricketSync/internal/model"
	"CricketSync/internal/notifier"
	"CricketSync/internal/repository"
	"CricketSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeProvider struct {
	once    sync.Once
	entered chan struct{}
	block   chan struct{}
	all     []model.MatchSummary
	details map[string]*model.MatchDetail
}

func (p *fakeProvider) FetchAllMatches(ctx context.Context) ([]model.MatchSummary, error) {
	if p.block != nil {
		p.once.Do(func() { close(p.entered) })
		select {
		case <-p.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return p.all, nil
}

func (p *fakeProvider) FetchCurrentMatches(context.Context) ([]model.MatchSummary, error) {
	return nil, nil
}

func (p *fakeProvider) FetchMatchDetails(_ context.Context, id string) (*model.MatchDetail, error) {
	d, ok := p.details[id]
	if !ok {
		return nil, errors.New("no detail")
	}
	return d, nil
}

type brokenReader struct{}

func (brokenReader) ListMatches(context.Context) ([]*model.Match, error) {
	return nil, errors.New("db down")
}

func (brokenReader) ListCurrentMatches(context.Context) ([]*model.Match, error) {
	return nil, errors.New("db down")
}

func (brokenReader) GetMatch(context.Context, string) (*model.Match, error) {
	return nil, errors.New("db down")
}

func seededStore(t *testing.T) *repository.MemoryStore {
	t.Helper()
	store := repository.NewMemoryStore()
	ctx := context.Background()
	_, err := store.SaveMatch(ctx, &model.Match{ID: "m1", Name: "A vs B", Status: "Live", DateTimeGMT: "2024-03-02T10:00:00"},
		[]model.Score{{Team: "A", Inning: 1, Runs: 120, Wickets: 3, Overs: 15.2}}, true)
	require.NoError(t, err)
	_, err = store.SaveMatch(ctx, &model.Match{ID: "m2", Name: "C vs D", Status: model.StatusNotStarted, DateTimeGMT: "2024-03-05T10:00:00"},
		nil, true)
	require.NoError(t, err)
	return store
}

func newTestRouter(t *testing.T, provider *fakeProvider, store *repository.MemoryStore, hub *notifier.Hub) *gin.Engine {
	t.Helper()
	logger := logging.Discard()
	recorder := metrics.NewRecorder()
	reconciler := service.NewReconciler(provider, store, nil, logger)
	var publisher interfaces.MatchPublisher
	if hub != nil {
		publisher = hub
	}
	scheduler := service.NewSyncScheduler(provider, reconciler, publisher, config.SyncConfig{
		AllMatchesInterval:     time.Minute,
		CurrentMatchesInterval: time.Minute,
	}, logger, recorder)
	return NewRouter(RouterDeps{
		Reader:    store,
		Scheduler: scheduler,
		Hub:       hub,
		Logger:    logger,
		Recorder:  recorder,
	})
}

func doRequest(r http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListMatches(t *testing.T) {
	r := newTestRouter(t, &fakeProvider{}, seededStore(t), nil)

	w := doRequest(r, http.MethodGet, "/matches")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))

	var got []model.Match
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "m2", got[0].ID)
	assert.Equal(t, "m1", got[1].ID)
	require.Len(t, got[1].Scores, 1)
	assert.Equal(t, 120, got[1].Scores[0].Runs)
	assert.NotNil(t, got[0].Scores)
}

func TestListMatchesJSONShape(t *testing.T) {
	r := newTestRouter(t, &fakeProvider{}, seededStore(t), nil)

	w := doRequest(r, http.MethodGet, "/matches/m1")
	require.Equal(t, http.StatusOK, w.Code)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	for _, key := range []string{"id", "name", "matchType", "status", "venue", "date", "dateTimeGMT", "team1", "team2", "team1Img", "team2Img", "score"} {
		assert.Contains(t, raw, key)
	}
	scores, ok := raw["score"].([]any)
	require.True(t, ok)
	require.Len(t, scores, 1)
	score := scores[0].(map[string]any)
	for _, key := range []string{"id", "matchId", "team", "inning", "runs", "wickets", "overs"} {
		assert.Contains(t, score, key)
	}
}

func TestListCurrentMatchesExcludesNotStarted(t *testing.T) {
	r := newTestRouter(t, &fakeProvider{}, seededStore(t), nil)

	w := doRequest(r, http.MethodGet, "/current-matches")
	require.Equal(t, http.StatusOK, w.Code)

	var got []model.Match
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	for _, m := range got {
		assert.NotEqual(t, model.StatusNotStarted, m.Status)
	}
}

func TestListMatchesEmptyStoreReturnsArray(t *testing.T) {
	r := newTestRouter(t, &fakeProvider{}, repository.NewMemoryStore(), nil)

	w := doRequest(r, http.MethodGet, "/matches")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestGetMatchNotFound(t *testing.T) {
	r := newTestRouter(t, &fakeProvider{}, seededStore(t), nil)

	w := doRequest(r, http.MethodGet, "/matches/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStoreErrorsReturn500(t *testing.T) {
	r := NewRouter(RouterDeps{Reader: brokenReader{}, Logger: logging.Discard()})

	for _, path := range []string{"/matches", "/current-matches", "/matches/m1"} {
		w := doRequest(r, http.MethodGet, path)
		assert.Equal(t, http.StatusInternalServerError, w.Code, path)
		assert.JSONEq(t, `{"error":"db down"}`, w.Body.String(), path)
	}
}

func TestTriggerSync(t *testing.T) {
	provider := &fakeProvider{
		all: []model.MatchSummary{{ID: "m9"}},
		details: map[string]*model.MatchDetail{
			"m9": {Name: "E vs F", Status: "Live", Teams: []string{"E", "F"}},
		},
	}
	store := repository.NewMemoryStore()
	r := newTestRouter(t, provider, store, nil)

	w := doRequest(r, http.MethodPost, "/sync/"+service.CycleAllMatches)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"cycle":"all-matches","listed":1,"updated":1,"skipped":0,"failed":0,"aborted":false}`, w.Body.String())

	m, err := store.GetMatch(context.Background(), "m9")
	require.NoError(t, err)
	assert.Equal(t, "E", m.Team1)

	w = doRequest(r, http.MethodGet, "/sync/status")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"runs":1`)
}

func TestTriggerUnknownCycle(t *testing.T) {
	r := newTestRouter(t, &fakeProvider{}, repository.NewMemoryStore(), nil)

	w := doRequest(r, http.MethodPost, "/sync/weekly")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTriggerWhileRunningConflicts(t *testing.T) {
	provider := &fakeProvider{entered: make(chan struct{}), block: make(chan struct{})}
	r := newTestRouter(t, provider, repository.NewMemoryStore(), nil)

	done := make(chan int)
	go func() {
		done <- doRequest(r, http.MethodPost, "/sync/"+service.CycleAllMatches).Code
	}()
	<-provider.entered

	w := doRequest(r, http.MethodPost, "/sync/"+service.CycleAllMatches)
	assert.Equal(t, http.StatusConflict, w.Code)

	close(provider.block)
	assert.Equal(t, http.StatusOK, <-done)
}

func TestHealthz(t *testing.T) {
	hub := notifier.NewHub(logging.Discard(), nil)
	defer hub.Close()
	r := newTestRouter(t, &fakeProvider{}, repository.NewMemoryStore(), hub)

	w := doRequest(r, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","subscribers":0}`, w.Body.String())
}

func TestCORSHeaders(t *testing.T) {
	r := newTestRouter(t, &fakeProvider{}, repository.NewMemoryStore(), nil)

	req := httptest.NewRequest(http.MethodGet, "/matches", nil)
	req.Header.Set("Origin", "http://frontend.local")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDIsPropagated(t *testing.T) {
	r := newTestRouter(t, &fakeProvider{}, repository.NewMemoryStore(), nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))
}

func TestTriggerBroadcastsToWebSocket(t *testing.T) {
	provider := &fakeProvider{
		all:     []model.MatchSummary{{ID: "m1"}},
		details: map[string]*model.MatchDetail{"m1": {Name: "A vs B", Status: "Live"}},
	}
	hub := notifier.NewHub(logging.Discard(), nil)
	defer hub.Close()
	srv := httptest.NewServer(newTestRouter(t, provider, repository.NewMemoryStore(), hub))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	resp, err := http.Post(srv.URL+"/sync/"+service.CycleAllMatches, "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var event struct {
		Event string      `json:"event"`
		Data  model.Match `json:"data"`
	}
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, notifier.EventMatchUpdated, event.Event)
	assert.Equal(t, "m1", event.Data.ID)
	assert.Equal(t, "Live", event.Data.Status)
}
