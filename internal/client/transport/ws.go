package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gorilla/websocket"

	"github.com/iudanet/sketchsync/internal/client/signal"
	"github.com/iudanet/sketchsync/internal/models"
	"github.com/iudanet/sketchsync/pkg/api"
)

// Значения по умолчанию для переподключения
const (
	DefaultMinBackoff = 100 * time.Millisecond
	DefaultMaxBackoff = 5 * time.Second
)

// WSConfig configures a websocket connection.
type WSConfig struct {
	Dialer *websocket.Dialer
	// URL комнаты, например ws://localhost:8080/api/v1/rooms/{room}/ws
	URL        string
	Token      string
	ClientID   string
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// WS is a websocket connection to a room server.
//
// It reconnects with exponential backoff. Mutations submitted while offline
// are queued and replayed in order after reconnect; the server drops the ones
// it already applied. After a reconnect the room snapshot is compared with the
// last confirmed state and only the difference is delivered to watchers.
type WS struct {
	cfg    WSConfig
	logger *slog.Logger
	online *signal.Signal[bool]
	roster *signal.Signal[[]string]
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	writeMu  sync.Mutex
	conn     *websocket.Conn
	ready    chan struct{} // закрыт, пока соединение установлено
	pending  []models.Mutation
	requests map[string]chan api.Message
	watchers map[int]func(models.Poke)
	shadow   *shadow
	nextID   int

	requestSeq atomic.Uint64
}

var _ Conn = (*WS)(nil)

// DialWS starts connecting in the background and returns immediately.
// The connection is offline until the first handshake completes.
func DialWS(cfg WSConfig, logger *slog.Logger) (*WS, error) {
	if cfg.URL == "" || cfg.ClientID == "" {
		return nil, fmt.Errorf("url and client id are required")
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = DefaultMinBackoff
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = max(DefaultMaxBackoff, cfg.MinBackoff)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &WS{
		cfg:      cfg,
		logger:   logger.With("client_id", cfg.ClientID),
		online:   signal.New(false),
		roster:   signal.New([]string{}),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		ready:    make(chan struct{}),
		requests: make(map[string]chan api.Message),
		watchers: make(map[int]func(models.Poke)),
		shadow:   newShadow(),
	}

	go w.run()
	return w, nil
}

func (w *WS) ClientID() string {
	return w.cfg.ClientID
}

// run поддерживает соединение до вызова Close
func (w *WS) run() {
	defer close(w.done)

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = w.cfg.MinBackoff
	retry.MaxInterval = w.cfg.MaxBackoff
	// переподключаемся, пока соединение не закрыто
	retry.MaxElapsedTime = 0

	for {
		conn, err := w.dial()
		if err == nil {
			retry.Reset()
			err = w.serve(conn)
		}
		if w.ctx.Err() != nil {
			return
		}

		wait := retry.NextBackOff()
		w.logger.Warn("Connection lost, reconnecting", "error", err, "backoff", wait)

		select {
		case <-w.ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (w *WS) dial() (*websocket.Conn, error) {
	header := http.Header{}
	if w.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+w.cfg.Token)
	}

	conn, resp, err := w.cfg.Dialer.DialContext(w.ctx, w.cfg.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to dial %s: %w (status %d)", w.cfg.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to dial %s: %w", w.cfg.URL, err)
	}
	return conn, nil
}

// serve runs the handshake and the read loop of one connection.
func (w *WS) serve(conn *websocket.Conn) error {
	defer conn.Close()

	// Close закрывает соединение, чтобы прервать чтение
	stop := context.AfterFunc(w.ctx, func() { conn.Close() })
	defer stop()

	if err := conn.WriteJSON(api.Message{Type: api.MsgConnect, ClientID: w.cfg.ClientID}); err != nil {
		return fmt.Errorf("failed to send connect: %w", err)
	}

	var hello api.Message
	if err := conn.ReadJSON(&hello); err != nil {
		return fmt.Errorf("failed to read handshake: %w", err)
	}
	if hello.Type != api.MsgConnected {
		return fmt.Errorf("unexpected handshake message %q: %s", hello.Type, hello.Error)
	}

	// Очередь отправляется до того, как Mutate сможет писать в соединение напрямую,
	// поэтому сервер получает мутации в порядке их создания
	w.writeMu.Lock()
	w.mu.Lock()
	pending := append([]models.Mutation(nil), w.pending...)
	w.mu.Unlock()
	for i := range pending {
		if err := w.writeLocked(conn, api.Message{Type: api.MsgPush, RequestID: pending[i].ID, Mutation: &pending[i]}); err != nil {
			w.writeMu.Unlock()
			return err
		}
	}
	w.mu.Lock()
	w.conn = conn
	resume, hasResume := w.shadow.reset(hello.Records, hello.Version)
	close(w.ready)
	w.mu.Unlock()
	w.writeMu.Unlock()

	defer w.disconnected()

	w.logger.Info("Connected", "version", hello.Version, "records", len(hello.Records), "pending", len(pending))

	if hasResume {
		w.emit(resume)
	}
	w.roster.Set(rosterOf(hello.Roster))
	w.online.Set(true)

	for {
		var msg api.Message
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("failed to read message: %w", err)
		}
		w.handle(msg)
	}
}

func (w *WS) handle(msg api.Message) {
	switch msg.Type {
	case api.MsgPoke:
		if msg.Poke == nil {
			return
		}
		w.mu.Lock()
		w.shadow.apply(*msg.Poke)
		w.mu.Unlock()
		w.emit(*msg.Poke)

	case api.MsgRoster:
		w.roster.Set(rosterOf(msg.Roster))

	case api.MsgResult:
		w.mu.Lock()
		if ch, ok := w.requests[msg.RequestID]; ok {
			delete(w.requests, msg.RequestID)
			w.mu.Unlock()
			ch <- msg
			return
		}
		acked := w.ack(msg.RequestID)
		w.mu.Unlock()

		if acked && msg.Error != "" {
			w.logger.Warn("Mutation rejected by server",
				"mutation_id", msg.RequestID,
				"partial", msg.Partial,
				"error", msg.Error)
		}

	case api.MsgError:
		w.logger.Error("Server error", "error", msg.Error)

	default:
		w.logger.Warn("Unknown message type", "type", msg.Type)
	}
}

// ack removes a confirmed mutation from the queue. Must be called with w.mu held.
func (w *WS) ack(id string) bool {
	for i, m := range w.pending {
		if m.ID == id {
			w.pending = append(w.pending[:i], w.pending[i+1:]...)
			return true
		}
	}
	return false
}

// disconnected переводит соединение в offline и будит ожидающие запросы
func (w *WS) disconnected() {
	w.mu.Lock()
	w.conn = nil
	w.ready = make(chan struct{})
	for id, ch := range w.requests {
		close(ch)
		delete(w.requests, id)
	}
	w.mu.Unlock()

	w.online.Set(false)
}

// writeLocked must be called with w.writeMu held.
func (w *WS) writeLocked(conn *websocket.Conn, msg api.Message) error {
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write %s: %w", msg.Type, err)
	}
	return nil
}

func (w *WS) emit(p models.Poke) {
	w.mu.Lock()
	ids := make([]int, 0, len(w.watchers))
	for id := range w.watchers {
		ids = append(ids, id)
	}
	fns := make([]func(models.Poke), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, w.watchers[id])
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn(p)
	}
}

// Mutate queues the mutation and sends it if the connection is up.
func (w *WS) Mutate(ctx context.Context, m models.Mutation) error {
	// writeMu удерживается от постановки в очередь до записи: порядок записей
	// совпадает с порядком очереди
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	w.mu.Lock()
	if w.ctx.Err() != nil {
		w.mu.Unlock()
		return ErrClosed
	}
	w.pending = append(w.pending, m)
	conn := w.conn
	w.mu.Unlock()

	if conn == nil {
		w.logger.Debug("Offline, mutation queued", "mutation_id", m.ID)
		return nil
	}
	if err := w.writeLocked(conn, api.Message{Type: api.MsgPush, RequestID: m.ID, Mutation: &m}); err != nil {
		// Мутация останется в очереди и будет отправлена после переподключения
		w.logger.Debug("Push failed, mutation queued", "mutation_id", m.ID, "error", err)
	}
	return nil
}

// Pending returns the number of mutations not yet confirmed by the server.
func (w *WS) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// query sends a read-only request, waiting for the connection if needed.
func (w *WS) query(ctx context.Context, q api.Query) (api.Message, error) {
	for {
		w.mu.Lock()
		ready := w.ready
		w.mu.Unlock()

		select {
		case <-ctx.Done():
			return api.Message{}, ctx.Err()
		case <-w.done:
			return api.Message{}, ErrClosed
		case <-ready:
		}

		id := "q" + strconv.FormatUint(w.requestSeq.Add(1), 10)
		ch := make(chan api.Message, 1)

		w.mu.Lock()
		conn := w.conn
		if conn == nil {
			w.mu.Unlock()
			continue
		}
		w.requests[id] = ch
		w.mu.Unlock()

		w.writeMu.Lock()
		err := w.writeLocked(conn, api.Message{Type: api.MsgQuery, RequestID: id, Query: &q})
		w.writeMu.Unlock()
		if err != nil {
			w.mu.Lock()
			delete(w.requests, id)
			w.mu.Unlock()
			continue
		}

		select {
		case <-ctx.Done():
			w.mu.Lock()
			delete(w.requests, id)
			w.mu.Unlock()
			return api.Message{}, ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				// соединение разорвано до ответа, повторяем после переподключения
				continue
			}
			if msg.Error != "" {
				return api.Message{}, errors.New(msg.Error)
			}
			return msg, nil
		}
	}
}

func (w *WS) Scan(ctx context.Context) ([]models.Record, int64, error) {
	msg, err := w.query(ctx, api.Query{Kind: api.QueryScan})
	if err != nil {
		return nil, 0, fmt.Errorf("scan failed: %w", err)
	}
	return msg.Records, msg.Version, nil
}

func (w *WS) Get(ctx context.Context, key string) (models.Record, bool, error) {
	msg, err := w.query(ctx, api.Query{Kind: api.QueryGet, Key: key})
	if err != nil {
		return nil, false, fmt.Errorf("get %s failed: %w", key, err)
	}
	return msg.Record, msg.Found, nil
}

func (w *WS) Watch(fn func(models.Poke)) func() {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.watchers[id] = fn
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.watchers, id)
		w.mu.Unlock()
	}
}

func (w *WS) WatchRoster(fn func([]string)) func() {
	return w.roster.Observe(fn)
}

func (w *WS) OnOnlineChange(fn func(bool)) func() {
	return w.online.Observe(fn)
}

// Close stops reconnecting and closes the socket. Unconfirmed mutations are dropped.
func (w *WS) Close() error {
	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()

	if conn != nil {
		w.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		w.writeMu.Unlock()
	}

	w.cancel()
	<-w.done
	return nil
}

func rosterOf(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
