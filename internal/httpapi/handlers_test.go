package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/ludo-sync/internal/events"
	"github.com/DoyleJ11/ludo-sync/internal/session"
	"github.com/DoyleJ11/ludo-sync/internal/transport"
	"github.com/DoyleJ11/ludo-sync/pkg/types"
)

type fakeController struct {
	view  session.View
	err   error // returned by every action
	calls []string
}

func (f *fakeController) record(call string) error {
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeController) Subscribe(int) (<-chan events.Event, func()) {
	ch := make(chan events.Event)
	close(ch)
	return ch, func() {}
}

func (f *fakeController) CreateGame() error           { return f.record("create") }
func (f *fakeController) JoinGame(id string) error    { return f.record("join " + id) }
func (f *fakeController) RollDice() error             { return f.record("roll") }
func (f *fakeController) Choose(n int) error          { return f.record("choose " + strconv.Itoa(n)) }
func (f *fakeController) RequestState() error         { return f.record("state") }
func (f *fakeController) LeaveGame() error            { return f.record("leave") }
func (f *fakeController) AnimationStarted() error     { return f.record("animation start") }
func (f *fakeController) AnimationCompleted() error   { return f.record("animation complete") }
func (f *fakeController) View() (session.View, error) { return f.view, nil }

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRoutes_Actions(t *testing.T) {
	tests := []struct {
		path string
		call string
	}{
		{"/games", "create"},
		{"/games/ABCD/join", "join ABCD"},
		{"/actions/roll", "roll"},
		{"/actions/choose/2", "choose 2"},
		{"/actions/state", "state"},
		{"/actions/leave", "leave"},
		{"/animation/start", "animation start"},
		{"/animation/complete", "animation complete"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			c := &fakeController{}
			rec := do(t, SetupRoutes(c, nil), http.MethodPost, tt.path)
			assert.Equal(t, http.StatusAccepted, rec.Code)
			assert.Equal(t, []string{tt.call}, c.calls)
		})
	}
}

func TestRoutes_RejectedActionIsConflict(t *testing.T) {
	c := &fakeController{err: session.ErrNoActiveGame}
	rec := do(t, SetupRoutes(c, nil), http.MethodPost, "/actions/roll")
	require.Equal(t, http.StatusConflict, rec.Code)

	var body errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, session.ErrNoActiveGame.Error(), body.Error)
}

func TestRoutes_ClosedSessionIsUnavailable(t *testing.T) {
	c := &fakeController{err: session.ErrClosed}
	rec := do(t, SetupRoutes(c, nil), http.MethodPost, "/games")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRoutes_BadChoiceAndPhase(t *testing.T) {
	c := &fakeController{}
	h := SetupRoutes(c, nil)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/actions/choose/x").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/actions/choose/0").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/animation/rewind").Code)
	assert.Empty(t, c.calls)
}

func TestRoutes_Status(t *testing.T) {
	c := &fakeController{view: session.View{
		Status:        transport.Connected,
		PlayerID:      "p1",
		GameID:        "ABCD",
		PendingAction: "roll",
		Version:       3,
		LastFrame:     time.Now().Add(-2 * time.Minute),
	}}
	rec := do(t, SetupRoutes(c, nil), http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body statusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "connected", body.Status)
	assert.Equal(t, "ABCD", body.GameID)
	assert.Equal(t, "roll", body.PendingAction)
	assert.Equal(t, 3, body.Version)
	assert.True(t, strings.HasSuffix(body.LastFrame, "ago"), body.LastFrame)
}

func TestRoutes_State(t *testing.T) {
	c := &fakeController{}
	h := SetupRoutes(c, nil)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/state").Code)

	c.view.Snapshot = &types.Snapshot{CurrentPlayerID: "p2", Dice: types.Dice{Die1: 4, Die2: 1}}
	rec := do(t, h, http.MethodGet, "/state")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap types.Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	assert.Equal(t, "p2", snap.CurrentPlayerID)
	assert.Equal(t, 4, snap.Dice.Die1)
}

func TestHealthz(t *testing.T) {
	rec := do(t, SetupRoutes(&fakeController{}, nil), http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}
