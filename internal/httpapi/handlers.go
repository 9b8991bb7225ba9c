package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Rrrinav/Tanks/internal/hub"
	"github.com/Rrrinav/Tanks/internal/types"
)

// CreateRoom creates a room over plain HTTP so browse-first clients can get
// a code before opening the websocket. An optional ?id= requests a custom
// code.
func CreateRoom(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan hub.CreateReply, 1)
		h.Inbox() <- hub.CreateRoom{CustomID: r.URL.Query().Get("id"), Reply: reply}
		res := <-reply
		if res.Err != nil {
			status := http.StatusInternalServerError
			switch {
			case errors.Is(res.Err, hub.ErrInvalidRoomID):
				status = http.StatusBadRequest
			case errors.Is(res.Err, hub.ErrRoomExists):
				status = http.StatusConflict
			}
			http.Error(w, res.Err.Error(), status)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(struct {
			Code string `json:"code"`
		}{Code: res.Code})
	}
}

// ListRooms returns the same lobby listing the websocket roomsList intent
// does.
func ListRooms(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan []types.RoomSummary, 1)
		h.Inbox() <- hub.ListRooms{Reply: reply}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Rooms []types.RoomSummary `json:"rooms"`
		}{Rooms: <-reply})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
