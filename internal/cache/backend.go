// Package cache stores rendered analysis results keyed by content hash.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/config"
)

// Backend is implemented by the memory, redis and no-op caches.
type Backend interface {
	// Get returns (value, found, error).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Key hashes the parts that determine a result into a stable cache key.
func Key(kind string, parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%d:", len(p))
		h.Write(p)
	}
	return kind + ":" + hex.EncodeToString(h.Sum(nil))
}

// New builds the backend named by cfg.Backend.
func New(cfg config.CacheConfig) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "memory":
		return NewMemory(cfg.MaxItems), nil
	case "redis":
		r, err := NewRedis(cfg.RedisAddr, cfg.RedisDB, "antislop:")
		if err != nil {
			return nil, err
		}
		return r, nil
	case "none":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (Nop) Delete(context.Context, string) error { return nil }

func (Nop) Close() error { return nil }
