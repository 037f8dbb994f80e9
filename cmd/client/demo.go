package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/iudanet/sketchsync/internal/client/store"
	"github.com/iudanet/sketchsync/internal/models"
)

// demoInterval - период перемещения демонстрационных фигур
const demoInterval = 500 * time.Millisecond

// runDemo создает фигуры одной транзакцией и двигает их по кругу.
// Каждое перемещение уходит на сервер как updateFromStore, который
// превращается в дельты updateShape.
func runDemo(ctx context.Context, s *store.Store, userID string, n int, logger *slog.Logger) {
	ids := make([]string, n)
	shapes := make([]models.Record, n)
	for i := range n {
		ids[i] = fmt.Sprintf("shape:%s-%d", userID, i)
		shapes[i] = models.NewShape(ids[i], models.Geometry{
			X:       float64(i * 120),
			Y:       100,
			W:       100,
			H:       100,
			Opacity: 1,
		}, map[string]any{"geo": "rectangle", "color": "blue"})
	}
	if err := s.Put(store.OriginUser, shapes...); err != nil {
		logger.Error("Failed to create demo shapes", "error", err)
		return
	}
	logger.Info("Demo shapes created", "count", n)

	ticker := time.NewTicker(demoInterval)
	defer ticker.Stop()

	for step := 0; ; step++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		angle := float64(step) * math.Pi / 8
		err := s.Transact(store.OriginUser, func(tx *store.Tx) error {
			for _, id := range ids {
				r, ok := tx.Get(id)
				if !ok {
					// фигуру удалил другой клиент
					continue
				}
				r[models.FieldX] = r.Geometry().X + 10*math.Cos(angle)
				r[models.FieldY] = r.Geometry().Y + 10*math.Sin(angle)
				if err := tx.Put(r); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			logger.Warn("Failed to move demo shapes", "error", err)
		}
	}
}
