package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Rrrinav/Tanks/internal/engine"
	"github.com/Rrrinav/Tanks/internal/hub"
)

func newTestHub(t *testing.T) *hub.Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return hub.NewHub(ctx, hub.Options{
		Rules:      engine.DefaultRules(),
		MaxRoomAge: time.Hour,
		CodeLength: 6,
	}, zap.NewNop())
}

func TestCreateRoomHTTP(t *testing.T) {
	h := newTestHub(t)

	rec := httptest.NewRecorder()
	CreateRoom(h)(rec, httptest.NewRequest(http.MethodPost, "/rooms", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Code, 6)
}

func TestCreateRoomHTTPCustomID(t *testing.T) {
	h := newTestHub(t)

	rec := httptest.NewRecorder()
	CreateRoom(h)(rec, httptest.NewRequest(http.MethodPost, "/rooms?id=game01", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	// Same code again conflicts.
	rec = httptest.NewRecorder()
	CreateRoom(h)(rec, httptest.NewRequest(http.MethodPost, "/rooms?id=GAME01", nil))
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	CreateRoom(h)(rec, httptest.NewRequest(http.MethodPost, "/rooms?id=x", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListRoomsHTTP(t *testing.T) {
	h := newTestHub(t)

	rec := httptest.NewRecorder()
	CreateRoom(h)(rec, httptest.NewRequest(http.MethodPost, "/rooms?id=game01", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	ListRooms(h)(rec, httptest.NewRequest(http.MethodGet, "/rooms", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Rooms []struct {
			RoomID string `json:"roomId"`
		} `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Rooms, 1)
	require.Equal(t, "GAME01", body.Rooms[0].RoomID)
}
