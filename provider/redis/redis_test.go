package redis

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func TestNewRequiresClient(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrNilClient) {
		t.Fatalf("expected ErrNilClient, got %v", err)
	}
}

func TestDialRejectsBadURL(t *testing.T) {
	_, err := Dial(context.Background(), DialConfig{URL: "http://not-redis"})
	if err == nil || !strings.Contains(err.Error(), "parse redis URL") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func newMiniredisProvider(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	p, err := New(Config{Client: rdb, CloseClient: true})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p, mr
}

func TestRedisGetSetDel(t *testing.T) {
	ctx := context.Background()
	p, mr := newMiniredisProvider(t)

	if v, ok, err := p.Get(ctx, "doc:c:1"); err != nil || ok || v != nil {
		t.Fatalf("miss: v=%q ok=%v err=%v", v, ok, err)
	}

	val := []byte{0x00, 'C', 'C', 0xff}
	if ok, err := p.Set(ctx, "doc:c:1", val, 1, 0); err != nil || !ok {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}
	got, ok, err := p.Get(ctx, "doc:c:1")
	if err != nil || !ok || !bytes.Equal(got, val) {
		t.Fatalf("Get: got=%q ok=%v err=%v", got, ok, err)
	}
	if mr.TTL("doc:c:1") != 0 {
		t.Fatalf("ttl 0 must not expire")
	}

	if err := p.Del(ctx, "doc:c:1"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := p.Get(ctx, "doc:c:1"); ok {
		t.Fatalf("expected miss after Del")
	}
}

func TestRedisSetTTL(t *testing.T) {
	ctx := context.Background()
	p, mr := newMiniredisProvider(t)

	if _, err := p.Set(ctx, "doc:c:1", []byte("v"), 1, time.Hour); err != nil {
		t.Fatal(err)
	}
	if ttl := mr.TTL("doc:c:1"); ttl != time.Hour {
		t.Fatalf("ttl = %v, want 1h", ttl)
	}
	mr.FastForward(2 * time.Hour)
	if _, ok, _ := p.Get(ctx, "doc:c:1"); ok {
		t.Fatalf("expected expired record to miss")
	}
}

func TestRedisGetServerError(t *testing.T) {
	p, mr := newMiniredisProvider(t)
	mr.SetError("LOADING")
	if _, ok, err := p.Get(context.Background(), "doc:c:1"); err == nil || ok {
		t.Fatalf("expected server error, ok=%v err=%v", ok, err)
	}
}

func TestDialPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := Dial(context.Background(), DialConfig{URL: "redis://" + mr.Addr() + "/0", PoolSize: 4})
	if err != nil {
		t.Fatal(err)
	}
	defer rdb.Close()
	if rdb.Options().PoolSize != 4 {
		t.Fatalf("pool size = %d", rdb.Options().PoolSize)
	}
}
