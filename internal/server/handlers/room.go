package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/iudanet/sketchsync/internal/models"
	"github.com/iudanet/sketchsync/internal/mutators"
	"github.com/iudanet/sketchsync/internal/roomid"
	"github.com/iudanet/sketchsync/internal/server/room"
	"github.com/iudanet/sketchsync/internal/validation"
	"github.com/iudanet/sketchsync/pkg/api"
)

// Параметры websocket соединения
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 1 << 20
	// размер очереди ответов одного соединения
	sessionBuffer = 64
)

// RoomHandler обслуживает клиентов комнат: websocket протокол и снимки
type RoomHandler struct {
	logger   *slog.Logger
	rooms    *room.Manager
	upgrader websocket.Upgrader
}

// NewRoomHandler создает новый handler комнат
func NewRoomHandler(logger *slog.Logger, rooms *room.Manager) *RoomHandler {
	return &RoomHandler{
		logger: logger,
		rooms:  rooms,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// openRoom возвращает комнату из пути запроса; принимает короткий id или UUID
func (h *RoomHandler) openRoom(w http.ResponseWriter, r *http.Request) (*room.Room, bool) {
	id, err := roomid.Normalize(mux.Vars(r)["room"])
	if err != nil {
		sendError(h.logger, w, "invalid room id", http.StatusBadRequest)
		return nil, false
	}

	rm, err := h.rooms.Room(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to open room", slog.String("room_id", id), slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return nil, false
	}
	return rm, true
}

// Snapshot обрабатывает GET /api/v1/rooms/{room}/records
func (h *RoomHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	rm, ok := h.openRoom(w, r)
	if !ok {
		return
	}

	records, version, err := rm.Scan(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to scan room", slog.String("room_id", rm.ID()), slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []models.Record{}
	}

	sendJSON(h.logger, w, api.SnapshotResponse{
		RoomID:  rm.ID(),
		Records: records,
		Version: version,
	}, http.StatusOK)
}

// Serve обрабатывает GET /api/v1/rooms/{room}/ws
// Первое сообщение клиента - connect, ответ - снимок комнаты (connected)
func (h *RoomHandler) Serve(w http.ResponseWriter, r *http.Request) {
	rm, ok := h.openRoom(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	userID, _ := GetUserID(r.Context())
	s := &session{
		room:   rm,
		conn:   conn,
		logger: h.logger.With("room_id", rm.ID(), "user_id", userID),
		out:    make(chan api.Message, sessionBuffer),
	}
	s.run()
}

// session - одно websocket соединение с комнатой
type session struct {
	room     *room.Room
	conn     *websocket.Conn
	logger   *slog.Logger
	out      chan api.Message
	clientID string
}

func (s *session) run() {
	defer s.conn.Close()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	if err := s.handshake(); err != nil {
		s.logger.Warn("handshake failed", slog.Any("error", err))
		s.closeWith(websocket.ClosePolicyViolation, err.Error())
		return
	}
	s.logger = s.logger.With("client_id", s.clientID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.room.Connect(s.clientID); err != nil {
		s.closeWith(websocket.CloseTryAgainLater, err.Error())
		return
	}
	defer func() {
		if err := s.room.Disconnect(context.Background(), s.clientID); err != nil {
			s.logger.Error("failed to disconnect client", slog.Any("error", err))
		}
	}()

	sub, err := s.room.Subscribe(ctx, s.clientID)
	if err != nil {
		s.closeWith(websocket.CloseInternalServerErr, "subscribe failed")
		return
	}
	defer sub.Close()

	roster, stopRoster := s.room.WatchRoster()
	defer stopRoster()

	hello := api.Message{
		Type:     api.MsgConnected,
		ClientID: s.clientID,
		Records:  sub.Records,
		Version:  sub.Version,
		Roster:   <-roster,
	}
	if err := s.write(hello); err != nil {
		s.logger.Warn("failed to send snapshot", slog.Any("error", err))
		return
	}
	s.logger.Info("client joined", slog.Int64("version", sub.Version), slog.Int("records", len(sub.Records)))

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		s.writePump(ctx, sub, roster)
		// разрывает ожидающее чтение, если писатель завершился первым
		s.conn.Close()
	}()

	s.readPump(ctx)
	cancel()
	<-writerDone
	s.logger.Info("client left")
}

func (s *session) handshake() error {
	var msg api.Message
	if err := s.conn.ReadJSON(&msg); err != nil {
		return err
	}
	if msg.Type != api.MsgConnect {
		return errors.New("connect message expected")
	}
	if err := validation.ValidateClientID(msg.ClientID); err != nil {
		return err
	}
	s.clientID = msg.ClientID
	return nil
}

// readPump обрабатывает сообщения клиента по порядку до разрыва соединения
func (s *session) readPump(ctx context.Context) {
	for {
		var msg api.Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("connection closed unexpectedly", slog.Any("error", err))
			}
			return
		}

		reply := s.handle(ctx, msg)
		select {
		case s.out <- reply:
		case <-ctx.Done():
			return
		}
	}
}

func (s *session) handle(ctx context.Context, msg api.Message) api.Message {
	reply := api.Message{Type: api.MsgResult, RequestID: msg.RequestID}

	switch msg.Type {
	case api.MsgPush:
		if msg.Mutation == nil {
			reply.Error = "mutation is required"
			return reply
		}
		_, err := s.room.Push(ctx, s.clientID, *msg.Mutation)
		switch {
		case err == nil, errors.Is(err, room.ErrDuplicateMutation):
		case mutators.IsPartial(err):
			reply.Partial = true
			reply.Error = err.Error()
		default:
			reply.Error = err.Error()
		}

	case api.MsgQuery:
		if msg.Query == nil {
			reply.Error = "query is required"
			return reply
		}
		switch msg.Query.Kind {
		case api.QueryScan:
			records, version, err := s.room.Scan(ctx)
			if err != nil {
				reply.Error = err.Error()
				return reply
			}
			reply.Records, reply.Version = records, version
		case api.QueryGet:
			rec, found, err := s.room.Get(ctx, msg.Query.Key)
			if err != nil {
				reply.Error = err.Error()
				return reply
			}
			reply.Record, reply.Found = rec, found
		default:
			reply.Error = "unknown query " + msg.Query.Kind
		}

	default:
		return api.Message{Type: api.MsgError, RequestID: msg.RequestID, Error: "unexpected message " + string(msg.Type)}
	}
	return reply
}

// writePump - единственный писатель в соединение после handshake
func (s *session) writePump(ctx context.Context, sub *room.Subscription, roster <-chan []string) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		var msg api.Message
		select {
		case <-ctx.Done():
			s.closeWith(websocket.CloseNormalClosure, "")
			return

		case p, ok := <-sub.Pokes:
			if !ok {
				// клиент отстал: он переподключится и получит разницу
				s.logger.Warn("client fell behind, closing connection")
				s.closeWith(websocket.CloseTryAgainLater, "fell behind")
				return
			}
			msg = api.Message{Type: api.MsgPoke, Poke: &p}

		case ids, ok := <-roster:
			if !ok {
				s.closeWith(websocket.CloseGoingAway, "room closed")
				return
			}
			msg = api.Message{Type: api.MsgRoster, Roster: ids}

		case msg = <-s.out:

		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
			continue
		}

		if err := s.write(msg); err != nil {
			s.logger.Debug("write failed", slog.Any("error", err))
			return
		}
	}
}

func (s *session) write(msg api.Message) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(msg)
}

func (s *session) closeWith(code int, text string) {
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text),
		time.Now().Add(writeWait))
}
