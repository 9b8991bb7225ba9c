package types

import "github.com/Rrrinav/Tanks/internal/engine"

// ClientMessage is the single inbound envelope; Type selects which fields
// are meaningful. Unknown types are logged and ignored by the ws layer.
type ClientMessage struct {
	Type         string `json:"type"`
	RoomID       string `json:"roomId,omitempty"`
	CustomRoomID string `json:"customRoomId,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
	X            int    `json:"x,omitempty"`
	Y            int    `json:"y,omitempty"`
	FromX        int    `json:"fromX,omitempty"`
	FromY        int    `json:"fromY,omitempty"`
	ToX          int    `json:"toX,omitempty"`
	ToY          int    `json:"toY,omitempty"`
	Text         string `json:"text,omitempty"`
}

// Inbound intent types.
const (
	MsgJoin      = "join"
	MsgCreate    = "createRoom"
	MsgListRooms = "listRooms"
	MsgPlaceUnit = "placeUnit"
	MsgMoveUnit  = "moveUnit"
	MsgAttack    = "attack"
	MsgChat      = "chat"
	MsgLeave     = "leave"
	MsgGetState  = "getState"
)

type Joined struct {
	Type           string `json:"type"` // "joined"
	Success        bool   `json:"success"`
	RoomID         string `json:"roomId,omitempty"`
	SlotID         int    `json:"slotId"`
	DisplayName    string `json:"displayName,omitempty"`
	BoardSize      int    `json:"boardSize,omitempty"`
	UnitsPerPlayer int    `json:"unitsPerPlayer,omitempty"`
	Error          string `json:"error,omitempty"`
}

type RoomCreated struct {
	Type    string `json:"type"` // "roomCreated"
	Success bool   `json:"success"`
	RoomID  string `json:"roomId,omitempty"`
	Error   string `json:"error,omitempty"`
}

type RoomSummary struct {
	RoomID    string       `json:"roomId"`
	Players   int          `json:"players"`
	Ready     int          `json:"ready"`
	Phase     engine.Phase `json:"phase"`
	CreatedAt int64        `json:"createdAt"`
}

type RoomsList struct {
	Type  string        `json:"type"` // "roomsList"
	Rooms []RoomSummary `json:"rooms"`
}

type SessionState struct {
	Type string `json:"type"` // "sessionState"
	engine.View
}

type PlaceResult struct {
	Type    string `json:"type"` // "placeResult"
	Success bool   `json:"success"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Error   string `json:"error,omitempty"`
}

type MoveResult struct {
	Type    string `json:"type"` // "moveResult"
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type AttackResult struct {
	Type     string `json:"type"` // "attackResult"
	Result   string `json:"result"`
	GameOver bool   `json:"gameOver"`
}

type Chat struct {
	Type        string `json:"type"` // "chat"
	SlotID      int    `json:"slotId"`
	DisplayName string `json:"displayName"`
	Text        string `json:"text"`
	Timestamp   int64  `json:"timestamp"`
}

type PlayerDisconnected struct {
	Type        string `json:"type"` // "playerDisconnected"
	DisplayName string `json:"displayName"`
	SlotID      int    `json:"slotId"`
}

type LeftSession struct {
	Type    string `json:"type"` // "leftSession"
	Success bool   `json:"success"`
}

type RoomEvent struct {
	Type string      `json:"type"` // "roomCreatedBroadcast" | "roomUpdated" | "roomRemoved"
	Room RoomSummary `json:"room"`
}

type ErrorMsg struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

const (
	TypeJoined               = "joined"
	TypeRoomCreated          = "roomCreated"
	TypeRoomsList            = "roomsList"
	TypeSessionState         = "sessionState"
	TypePlaceResult          = "placeResult"
	TypeMoveResult           = "moveResult"
	TypeAttackResult         = "attackResult"
	TypeChat                 = "chat"
	TypePlayerDisconnected   = "playerDisconnected"
	TypeLeftSession          = "leftSession"
	TypeRoomCreatedBroadcast = "roomCreatedBroadcast"
	TypeRoomUpdated          = "roomUpdated"
	TypeRoomRemoved          = "roomRemoved"
	TypeError                = "error"
)
