package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/config"
)

func TestMemoryTTL(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(4)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	_ = m.Set(ctx, "a", []byte("1"), time.Minute)
	_ = m.Set(ctx, "b", []byte("2"), 0)

	if v, ok, _ := m.Get(ctx, "a"); !ok || string(v) != "1" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}
	now = now.Add(2 * time.Minute)
	if _, ok, _ := m.Get(ctx, "a"); ok {
		t.Fatalf("expired entry returned")
	}
	if _, ok, _ := m.Get(ctx, "b"); !ok {
		t.Fatalf("entry without ttl expired")
	}
	_ = m.Delete(ctx, "b")
	if m.Len() != 0 {
		t.Fatalf("len = %d", m.Len())
	}
}

func TestMemoryEviction(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	_ = m.Set(ctx, "short", []byte("x"), time.Second)
	_ = m.Set(ctx, "forever", []byte("y"), 0)
	_ = m.Set(ctx, "long", []byte("z"), time.Hour)

	if m.Len() != 2 {
		t.Fatalf("len = %d, want 2", m.Len())
	}
	if _, ok, _ := m.Get(ctx, "short"); ok {
		t.Fatalf("entry closest to expiry should be evicted first")
	}
}

func TestMemoryCopiesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(1)
	buf := []byte("abc")
	_ = m.Set(ctx, "k", buf, 0)
	buf[0] = 'X'
	v, _, _ := m.Get(ctx, "k")
	if string(v) != "abc" {
		t.Fatalf("stored value aliased caller buffer: %q", v)
	}
}

func TestKey(t *testing.T) {
	a := Key("analyze", []byte("ab"), []byte("c"))
	b := Key("analyze", []byte("a"), []byte("bc"))
	if a == b {
		t.Fatalf("length prefix missing: %s", a)
	}
	if !strings.HasPrefix(a, "analyze:") || a != Key("analyze", []byte("ab"), []byte("c")) {
		t.Fatalf("key not stable: %s", a)
	}
}

func TestNew(t *testing.T) {
	cases := []struct {
		backend string
		wantErr bool
	}{
		{"memory", false},
		{"", false},
		{"none", false},
		{"redis", true},
		{"memcached", true},
	}
	for _, tc := range cases {
		t.Run(tc.backend, func(t *testing.T) {
			b, err := New(config.CacheConfig{Backend: tc.backend, MaxItems: 8})
			if (err != nil) != tc.wantErr {
				t.Fatalf("New(%q) err = %v", tc.backend, err)
			}
			if err != nil {
				if b != nil {
					t.Fatalf("New(%q) returned backend %T alongside error", tc.backend, b)
				}
				return
			}
			if err := b.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}
		})
	}
}
