package transport

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/iudanet/sketchsync/internal/models"
	"github.com/iudanet/sketchsync/internal/server/room"
)

// Local is an in-process connection to a room. It is always online.
type Local struct {
	room     *room.Room
	logger   *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	clientID string
	wg       sync.WaitGroup
	once     sync.Once
}

var _ Conn = (*Local)(nil)

// NewLocal joins the room as clientID.
func NewLocal(r *room.Room, clientID string, logger *slog.Logger) (*Local, error) {
	if err := r.Connect(clientID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Local{
		room:     r,
		clientID: clientID,
		logger:   logger.With("client_id", clientID, "room_id", r.ID()),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

func (l *Local) ClientID() string {
	return l.clientID
}

func (l *Local) Scan(ctx context.Context) ([]models.Record, int64, error) {
	if l.ctx.Err() != nil {
		return nil, 0, ErrClosed
	}
	return l.room.Scan(ctx)
}

func (l *Local) Get(ctx context.Context, key string) (models.Record, bool, error) {
	if l.ctx.Err() != nil {
		return nil, false, ErrClosed
	}
	return l.room.Get(ctx, key)
}

// Mutate pushes the mutation synchronously. A replayed mutation is not an error.
func (l *Local) Mutate(ctx context.Context, m models.Mutation) error {
	if l.ctx.Err() != nil {
		return ErrClosed
	}
	_, err := l.room.Push(ctx, l.clientID, m)
	if errors.Is(err, room.ErrDuplicateMutation) {
		return nil
	}
	return err
}

// Watch subscribes to the room. If the room drops the subscription because it
// fell behind, Watch resubscribes and delivers the difference since the last poke.
func (l *Local) Watch(fn func(models.Poke)) func() {
	ctx, cancel := context.WithCancel(l.ctx)
	var stopped atomic.Bool
	deliver := func(p models.Poke) {
		if !stopped.Load() {
			fn(p)
		}
	}

	// Первая подписка создается синхронно: изменения после вызова Watch не теряются
	sub, err := l.room.Subscribe(ctx, l.clientID)
	if err != nil {
		l.logger.Error("Failed to subscribe", "error", err)
		cancel()
		return func() {}
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.watch(ctx, sub, deliver)
	}()

	return func() {
		stopped.Store(true)
		cancel()
	}
}

func (l *Local) watch(ctx context.Context, sub *room.Subscription, deliver func(models.Poke)) {
	sh := newShadow()
	sh.reset(sub.Records, sub.Version)

	for {
		if !l.drain(ctx, sub, sh, deliver) {
			sub.Close()
			return
		}

		l.logger.Warn("Subscription dropped, resubscribing")
		var err error
		sub, err = l.room.Subscribe(ctx, l.clientID)
		if err != nil {
			if ctx.Err() == nil {
				l.logger.Error("Failed to resubscribe", "error", err)
			}
			return
		}
		if resume, ok := sh.reset(sub.Records, sub.Version); ok {
			deliver(resume)
		}
	}
}

// drain delivers pokes until the subscription is dropped (true) or ctx ends (false).
func (l *Local) drain(ctx context.Context, sub *room.Subscription, sh *shadow, deliver func(models.Poke)) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case p, ok := <-sub.Pokes:
			if !ok {
				return ctx.Err() == nil
			}
			sh.apply(p)
			deliver(p)
		}
	}
}

func (l *Local) WatchRoster(fn func([]string)) func() {
	ch, stopRoster := l.room.WatchRoster()
	var stopped atomic.Bool

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for {
			select {
			case <-l.ctx.Done():
				stopRoster()
				return
			case roster, ok := <-ch:
				if !ok {
					return
				}
				if !stopped.Load() {
					fn(roster)
				}
			}
		}
	}()

	return func() {
		stopped.Store(true)
		stopRoster()
	}
}

// OnOnlineChange reports online once; an in-process room never goes offline.
func (l *Local) OnOnlineChange(fn func(bool)) func() {
	fn(true)
	return func() {}
}

// Close leaves the room and stops every subscription.
func (l *Local) Close() error {
	var err error
	l.once.Do(func() {
		l.cancel()
		l.wg.Wait()
		err = l.room.Disconnect(context.Background(), l.clientID)
	})
	return err
}
