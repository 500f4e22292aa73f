package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"stationery-storefront/internal/model"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IdempotencyStore maps a client checkout token to the intent it produced.
//
// Reserve claims key for merchantOrderID. When the key is already taken it
// returns the existing record and false.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key, merchantOrderID string) (*model.IdempotencyRecord, bool, error)
	Complete(ctx context.Context, key, paymentURL, response string) error
	Release(ctx context.Context, key string) error
}

type gormIdempotencyStore struct {
	db          *gorm.DB
	inFlightTTL time.Duration
}

// NewIdempotencyStore keeps keys in the database. An IN_FLIGHT key older than
// inFlightTTL can be claimed again; a non-positive ttl keeps it forever.
func NewIdempotencyStore(db *gorm.DB, inFlightTTL time.Duration) IdempotencyStore {
	return &gormIdempotencyStore{db: db, inFlightTTL: inFlightTTL}
}

func (s *gormIdempotencyStore) Reserve(ctx context.Context, key, merchantOrderID string) (*model.IdempotencyRecord, bool, error) {
	rec := &model.IdempotencyRecord{
		Key:             key,
		MerchantOrderID: merchantOrderID,
		State:           model.IdempotencyInFlight,
	}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
	if result.Error != nil {
		return nil, false, fmt.Errorf("insert idempotency key: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		return rec, true, nil
	}

	if s.inFlightTTL > 0 {
		now := time.Now()
		result = s.db.WithContext(ctx).Model(&model.IdempotencyRecord{}).
			Where("`key` = ? AND state = ? AND created_at < ?", key, model.IdempotencyInFlight, now.Add(-s.inFlightTTL)).
			Updates(map[string]interface{}{
				"merchant_order_id": merchantOrderID,
				"created_at":        now,
				"updated_at":        now,
			})
		if result.Error != nil {
			return nil, false, fmt.Errorf("reclaim stale idempotency key: %w", result.Error)
		}
		if result.RowsAffected == 1 {
			rec.CreatedAt = now
			rec.UpdatedAt = now
			return rec, true, nil
		}
	}

	var existing model.IdempotencyRecord
	if err := s.db.WithContext(ctx).Where("`key` = ?", key).First(&existing).Error; err != nil {
		return nil, false, fmt.Errorf("load idempotency key: %w", err)
	}
	return &existing, false, nil
}

func (s *gormIdempotencyStore) Complete(ctx context.Context, key, paymentURL, response string) error {
	return s.db.WithContext(ctx).Model(&model.IdempotencyRecord{}).
		Where("`key` = ?", key).
		Updates(map[string]interface{}{
			"state":       model.IdempotencyCompleted,
			"payment_url": paymentURL,
			"response":    response,
			"updated_at":  time.Now(),
		}).Error
}

func (s *gormIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).
		Where("`key` = ? AND state = ?", key, model.IdempotencyInFlight).
		Delete(&model.IdempotencyRecord{}).Error
}

type redisIdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisIdempotencyStore shares keys across API instances. Keys expire after ttl.
func NewRedisIdempotencyStore(rdb *redis.Client, ttl time.Duration) IdempotencyStore {
	return &redisIdempotencyStore{rdb: rdb, ttl: ttl}
}

func idempotencyKey(key string) string {
	return fmt.Sprintf("storefront:idem:%s", key)
}

func (s *redisIdempotencyStore) Reserve(ctx context.Context, key, merchantOrderID string) (*model.IdempotencyRecord, bool, error) {
	rec := &model.IdempotencyRecord{
		Key:             key,
		MerchantOrderID: merchantOrderID,
		State:           model.IdempotencyInFlight,
		CreatedAt:       time.Now(),
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, false, fmt.Errorf("marshal idempotency record: %w", err)
	}

	ok, err := s.rdb.SetNX(ctx, idempotencyKey(key), b, s.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx: %w", err)
	}
	if ok {
		return rec, true, nil
	}

	existing, err := s.get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *redisIdempotencyStore) get(ctx context.Context, key string) (*model.IdempotencyRecord, error) {
	raw, err := s.rdb.Get(ctx, idempotencyKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gorm.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var rec model.IdempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	return &rec, nil
}

func (s *redisIdempotencyStore) Complete(ctx context.Context, key, paymentURL, response string) error {
	rec, err := s.get(ctx, key)
	if err != nil {
		return err
	}
	rec.State = model.IdempotencyCompleted
	rec.PaymentURL = paymentURL
	rec.Response = response
	rec.UpdatedAt = time.Now()

	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal idempotency record: %w", err)
	}
	return s.rdb.Set(ctx, idempotencyKey(key), b, s.ttl).Err()
}

func (s *redisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, idempotencyKey(key)).Err()
}
