package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/sketchsync/internal/server/room"
	"github.com/iudanet/sketchsync/internal/server/storage/memory"
	"github.com/iudanet/sketchsync/pkg/api"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testRoomID - короткий id комнаты, совпадающий со своей нормальной формой
const testRoomID = "7n42DGM5Tflk9n8mt7Fhc7"

type testServer struct {
	*httptest.Server
	rooms *room.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	rooms := room.NewManager(memory.New(), setupTestLogger())
	h := NewRoomHandler(setupTestLogger(), rooms)

	router := mux.NewRouter()
	router.HandleFunc("/api/v1/rooms/{room}/ws", h.Serve).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/rooms/{room}/records", h.Snapshot).Methods(http.MethodGet)

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		rooms.Close()
	})
	return &testServer{Server: srv, rooms: rooms}
}

func (s *testServer) room(t *testing.T) *room.Room {
	t.Helper()
	r, err := s.rooms.Room(context.Background(), testRoomID)
	require.NoError(t, err)
	return r
}

func (s *testServer) wsURL(roomID string) string {
	return "ws" + strings.TrimPrefix(s.URL, "http") + "/api/v1/rooms/" + roomID + "/ws"
}

// dial открывает соединение и проходит handshake
func (s *testServer) dial(t *testing.T, clientID string) (*websocket.Conn, api.Message) {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(s.wsURL(testRoomID), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.WriteJSON(api.Message{Type: api.MsgConnect, ClientID: clientID}))
	hello := readMessage(t, conn)
	require.Equal(t, api.MsgConnected, hello.Type, hello.Error)
	return conn, hello
}

func readMessage(t *testing.T, conn *websocket.Conn) api.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg api.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// readUntil пропускает сообщения других типов
func readUntil(t *testing.T, conn *websocket.Conn, typ api.MessageType) api.Message {
	t.Helper()
	for {
		msg := readMessage(t, conn)
		if msg.Type == typ {
			return msg
		}
	}
}
