package events

import (
	"context"
	"encoding/json"

	"deedshare-backend/internal/domain"
	"deedshare-backend/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Channel carries committed event ids so observers can replace polling with
// a changefeed subscription.
const Channel = "ledger:events"

// Append writes one event row inside the caller's transaction so the event
// commits or rolls back together with the mutation it describes.
func Append(tx *gorm.DB, evt *domain.LedgerEvent) error {
	if len(evt.EventData) == 0 {
		evt.EventData = datatypes.JSON([]byte("{}"))
	}
	if err := tx.Create(evt).Error; err != nil {
		return err
	}
	metrics.LedgerEvents.WithLabelValues(evt.EventType).Inc()
	return nil
}

// Data marshals an event payload; callers pass plain maps.
func Data(payload map[string]interface{}) datatypes.JSON {
	b, _ := json.Marshal(payload)
	return datatypes.JSON(b)
}

// Recorder publishes committed event ids on the redis changefeed. A nil
// recorder or nil client is a no-op so services work without redis (tests,
// local dev).
type Recorder struct {
	Rdb *redis.Client
}

// Publish pushes event ids after commit. Publish failures are logged and
// counted, never surfaced: the event row is already durable and observers
// can fall back to polling.
func (r *Recorder) Publish(ctx context.Context, evts ...*domain.LedgerEvent) {
	if r == nil || r.Rdb == nil {
		return
	}
	for _, evt := range evts {
		if evt == nil {
			continue
		}
		if err := r.Rdb.Publish(ctx, Channel, evt.EventID.String()).Err(); err != nil {
			metrics.ChangefeedPublishErrors.Inc()
			log.Warn().Err(err).Str("event_id", evt.EventID.String()).Msg("changefeed publish failed")
		}
	}
}

// Service serves event-log reads for transaction-history views.
type Service struct {
	DB *gorm.DB
}

// PropertyEvents returns a property's events in commit order.
func (s *Service) PropertyEvents(ctx context.Context, propertyID uint64) ([]domain.LedgerEvent, error) {
	var evts []domain.LedgerEvent
	err := s.DB.WithContext(ctx).Where("property_id = ?", propertyID).Order(`"createdAt" ASC`).Find(&evts).Error
	return evts, err
}

// ActorEvents returns the events a given address participated in.
func (s *Service) ActorEvents(ctx context.Context, actor string) ([]domain.LedgerEvent, error) {
	var evts []domain.LedgerEvent
	err := s.DB.WithContext(ctx).Where("actor = ?", actor).Order(`"createdAt" ASC`).Find(&evts).Error
	return evts, err
}

// Latest returns the newest events across the whole ledger, newest first.
func (s *Service) Latest(ctx context.Context, limit int) ([]domain.LedgerEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var evts []domain.LedgerEvent
	err := s.DB.WithContext(ctx).Order(`"createdAt" DESC`).Limit(limit).Find(&evts).Error
	return evts, err
}
