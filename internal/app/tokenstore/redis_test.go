package tokenstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeRedisKV struct {
	values  map[string]string
	lastTTL time.Duration
	failErr error
}

func newFakeRedisKV() *fakeRedisKV {
	return &fakeRedisKV{values: make(map[string]string)}
}

func (f *fakeRedisKV) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if f.failErr != nil {
		cmd.SetErr(f.failErr)
		return cmd
	}
	v, ok := f.values[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (f *fakeRedisKV) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if f.failErr != nil {
		cmd.SetErr(f.failErr)
		return cmd
	}
	f.values[key] = value.(string)
	f.lastTTL = expiration
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeRedisKV) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if f.failErr != nil {
		cmd.SetErr(f.failErr)
		return cmd
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			delete(f.values, k)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func TestRedisStore(t *testing.T) {
	exerciseStore(t, NewRedisStore(newFakeRedisKV(), ""))
}

func TestRedisStore_PrefixAndNoExpiry(t *testing.T) {
	kv := newFakeRedisKV()
	s := NewRedisStore(kv, "custom:")

	if err := s.Set(context.Background(), TokenKey, "T"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if kv.values["custom:token"] != "T" {
		t.Fatalf("expected prefixed key, got %v", kv.values)
	}
	if kv.lastTTL != 0 {
		t.Fatalf("expected no expiry, got %v", kv.lastTTL)
	}
}

func TestRedisStore_PropagatesErrors(t *testing.T) {
	kv := newFakeRedisKV()
	kv.failErr = errors.New("connection reset")
	s := NewRedisStore(kv, "")

	if _, _, err := s.Get(context.Background(), TokenKey); err == nil {
		t.Fatalf("expected Get error")
	}
	if err := s.Set(context.Background(), TokenKey, "x"); err == nil {
		t.Fatalf("expected Set error")
	}
	if err := s.Remove(context.Background(), TokenKey); err == nil {
		t.Fatalf("expected Remove error")
	}
}
