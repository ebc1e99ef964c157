// Package storage is the key/value persistence used for preferences, history
// and the error mirror. Values are opaque strings, usually JSON.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/okian/mu3/internal/config"
	"github.com/okian/mu3/pkg/metrics"
)

// Well-known keys.
const (
	KeyUserPreferences = "mu3_user_preferences"
	KeyChatHistory     = "mu3_chat_history"
	KeyBattleHistory   = "mu3_battle_history"
	KeyImageHistory    = "mu3_image_history"
	KeyErrors          = "app_errors"
	KeyStorageProbe    = "mu3_storage_probe"
)

// Sentinel errors.
var (
	ErrNotFound      = errors.New("key not found")
	ErrUnknownDriver = errors.New("unknown storage driver")
)

// Store is a string key/value store.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open returns the store selected by cfg.StorageDriver, instrumented with metrics.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	const op = "storage.open"
	var (
		s   Store
		err error
	)
	switch cfg.StorageDriver {
	case config.StorageMemory:
		s = NewMemory()
	case config.StorageSQLite:
		s, err = OpenSQLite(ctx, cfg.SQLitePath)
	case config.StorageRedis:
		s, err = OpenRedis(ctx, RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.StoragePrefix,
		})
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.StorageDriver)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return Instrument(cfg.StorageDriver, s), nil
}

// GetJSON decodes the value at key into v.
func GetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes v and stores it at key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(raw))
}

type instrumented struct {
	driver string
	next   Store
}

// Instrument wraps s so every operation is timed and counted.
func Instrument(driver string, s Store) Store {
	return &instrumented{driver: driver, next: s}
}

func (i *instrumented) observe(op string, start time.Time, err error) {
	failed := err != nil && !errors.Is(err, ErrNotFound)
	metrics.RecordStorageOperation(i.driver, op, float64(time.Since(start).Microseconds())/1000, failed)
}

func (i *instrumented) Get(ctx context.Context, key string) (string, error) {
	start := time.Now()
	v, err := i.next.Get(ctx, key)
	i.observe("get", start, err)
	return v, err
}

func (i *instrumented) Set(ctx context.Context, key, value string) error {
	start := time.Now()
	err := i.next.Set(ctx, key, value)
	i.observe("set", start, err)
	return err
}

func (i *instrumented) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := i.next.Delete(ctx, key)
	i.observe("delete", start, err)
	return err
}

func (i *instrumented) Close() error { return i.next.Close() }
