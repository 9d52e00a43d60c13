package cache

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// envelope header: 8 bytes big-endian unix-nano deadline, 0 = none
const natsHeaderLen = 8

// NATS stores entries in a JetStream key/value bucket so every instance of the
// server shares one cache. The bucket TTL caps every entry.
type NATS struct {
	kv     jetstream.KeyValue
	maxTTL time.Duration
	now    func() time.Time
}

// NewNATS binds to (creating if needed) the bucket on the given connection.
func NewNATS(ctx context.Context, nc *nats.Conn, bucket string, maxTTL time.Duration) (*NATS, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "pkm read-through cache",
		TTL:         maxTTL,
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("key value bucket %s: %w", bucket, err)
	}

	return &NATS{kv: kv, maxTTL: maxTTL, now: time.Now}, nil
}

// natsKey maps an arbitrary key onto the KV key alphabet.
func natsKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

func (n *NATS) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := n.kv.Get(ctx, natsKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("kv get: %w", err)
	}

	raw := entry.Value()
	if len(raw) < natsHeaderLen {
		// not written by us; treat as a miss
		return nil, false, nil
	}
	if deadline := int64(binary.BigEndian.Uint64(raw[:natsHeaderLen])); deadline != 0 && n.now().UnixNano() >= deadline {
		return nil, false, nil
	}

	out := make([]byte, len(raw)-natsHeaderLen)
	copy(out, raw[natsHeaderLen:])
	return out, true, nil
}

func (n *NATS) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	buf := make([]byte, natsHeaderLen+len(value))
	if ttl > 0 && (n.maxTTL <= 0 || ttl < n.maxTTL) {
		binary.BigEndian.PutUint64(buf[:natsHeaderLen], uint64(n.now().Add(ttl).UnixNano()))
	}
	copy(buf[natsHeaderLen:], value)

	if _, err := n.kv.Put(ctx, natsKey(key), buf); err != nil {
		return fmt.Errorf("kv put: %w", err)
	}
	return nil
}

func (n *NATS) Delete(ctx context.Context, key string) error {
	if err := n.kv.Delete(ctx, natsKey(key)); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("kv delete: %w", err)
	}
	return nil
}
