// Package cache stores finished extraction results keyed by document content.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/regatta-tracker/internal/common"
	"github.com/joseph-ayodele/regatta-tracker/internal/regatta"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Cache is a byte-valued TTL store.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// RegattaKey identifies a regatta result by PDF content hash and sail number.
// Non-empty enrichment values are folded into a short suffix since they can
// change the result.
func RegattaKey(contentHash, sailNumber string, enrichment ...string) string {
	key := fmt.Sprintf("regatta:%s:%s", contentHash, regatta.NormalizeSailNumber(sailNumber))
	joined := strings.Join(enrichment, "\x00")
	if strings.Trim(joined, "\x00") == "" {
		return key
	}
	sum := sha256.Sum256([]byte(joined))
	return key + ":" + hex.EncodeToString(sum[:4])
}

// InvoiceKey identifies an invoice result by PDF content hash.
func InvoiceKey(contentHash string) string {
	return "invoice:" + contentHash
}

// New builds the cache selected by cfg.Driver.
func New(ctx context.Context, cfg common.CacheConfig, logger *slog.Logger) (Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch strings.ToLower(cfg.Driver) {
	case "", "none":
		return Nop{}, nil
	case "memory":
		return NewMemory(), nil
	case "redis":
		return NewRedis(ctx, RedisConfig{Addr: cfg.RedisAddr, DB: cfg.RedisDB, Password: cfg.Password}, logger)
	default:
		return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unsupported cache driver %q", cfg.Driver), common.ErrInvalidInput)
	}
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, error)              { return nil, ErrCacheMiss }
func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Nop) Close() error                                             { return nil }
