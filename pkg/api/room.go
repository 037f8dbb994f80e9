package api

import "github.com/iudanet/sketchsync/internal/models"

// MessageType is the discriminant of a websocket message.
type MessageType string

// Типы сообщений websocket протокола комнаты
const (
	// client -> server
	MsgConnect MessageType = "connect" // первое сообщение соединения
	MsgPush    MessageType = "push"    // мутация для лога
	MsgQuery   MessageType = "query"   // read-only запрос

	// server -> client
	MsgConnected MessageType = "connected" // снимок комнаты после connect
	MsgResult    MessageType = "result"    // ответ на push или query
	MsgPoke      MessageType = "poke"      // подтвержденные изменения
	MsgRoster    MessageType = "roster"    // список подключенных клиентов
	MsgError     MessageType = "error"     // ошибка протокола
)

// Виды запросов query
const (
	QueryScan = "scan"
	QueryGet  = "get"
)

// Message is the single envelope of the room websocket protocol.
// Which fields are set depends on Type.
type Message struct {
	Mutation  *models.Mutation `json:"mutation,omitempty"`
	Query     *Query           `json:"query,omitempty"`
	Poke      *models.Poke     `json:"poke,omitempty"`
	Record    models.Record    `json:"record,omitempty"`
	Type      MessageType      `json:"type"`
	RequestID string           `json:"request_id,omitempty"`
	ClientID  string           `json:"client_id,omitempty"`
	Error     string           `json:"error,omitempty"`
	Records   []models.Record  `json:"records,omitempty"`
	Roster    []string         `json:"roster,omitempty"`
	Version   int64            `json:"version,omitempty"`
	Found     bool             `json:"found,omitempty"`
	// Partial отмечает push, примененный частично
	Partial bool `json:"partial,omitempty"`
}

// Query is a read-only request against the room.
type Query struct {
	Kind string `json:"kind"`
	Key  string `json:"key,omitempty"`
}

// SnapshotResponse представляет ответ GET /api/v1/rooms/{room}/records
type SnapshotResponse struct {
	RoomID  string          `json:"room_id"`
	Records []models.Record `json:"records"`
	Version int64           `json:"version"`
}
