package cache

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// invalidateChannel is the pub/sub channel sibling engines publish L1
// install/evict notifications on (spec.md §4.8 addition).
const invalidateChannel = "ordo:cache:invalidate"

// Op identifies what happened to a key, for the benefit of subscribers.
type Op int

const (
	OpInstalled Op = iota
	OpEvicted
)

// invalidateMessage is the wire shape of one RedisBus notification.
type invalidateMessage struct {
	Op                Op     `json:"op"`
	StructuralHash    uint64 `json:"structural_hash"`
	SchemaFingerprint uint64 `json:"schema_fingerprint"`
	EngineVersion     string `json:"engine_version"`
}

// RedisBus publishes and receives cache-invalidation notifications across
// engine processes sharing one l2_dir. It is optional and nil by default
// (spec.md §4.8) — disabled unless the embedder supplies a *redis.Client.
// Grounded on the teacher's pkg/redis.Redis interface (Publish/Subscribe,
// a Message{Channel,Payload} pub/sub shape), narrowed to the one channel
// this concern needs rather than the teacher's full Redis-as-a-cache-
// backend surface (strings/hashes/lists/sets — none of which this package
// uses; cache artifacts live in L1/L2, never in Redis itself).
type RedisBus struct {
	client *goredis.Client
}

// NewRedisBus wraps an already-connected *redis.Client. Passing a nil
// client is valid and yields a RedisBus whose Publish/Subscribe are no-ops,
// so callers can unconditionally construct one and let configuration
// (redis_addr absent) decide whether it does anything.
func NewRedisBus(client *goredis.Client) *RedisBus {
	return &RedisBus{client: client}
}

// PublishInstall notifies sibling engines that key's artifact was freshly
// compiled and installed, so they can evict any stale entry of their own
// rather than keep serving a pre-recompile artifact.
func (b *RedisBus) PublishInstall(ctx context.Context, key Key) error {
	return b.publish(ctx, invalidateMessage{Op: OpInstalled, StructuralHash: key.StructuralHash, SchemaFingerprint: key.SchemaFingerprint, EngineVersion: key.EngineVersion})
}

// PublishEvict notifies sibling engines that key was evicted from this
// process's L1.
func (b *RedisBus) PublishEvict(ctx context.Context, key Key) error {
	return b.publish(ctx, invalidateMessage{Op: OpEvicted, StructuralHash: key.StructuralHash, SchemaFingerprint: key.SchemaFingerprint, EngineVersion: key.EngineVersion})
}

func (b *RedisBus) publish(ctx context.Context, msg invalidateMessage) error {
	if b == nil || b.client == nil {
		return nil
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("cache: marshal invalidate message: %w", err)
	}
	return b.client.Publish(ctx, invalidateChannel, payload).Err()
}

// Subscribe starts listening for invalidation notifications, invoking fn
// for every message received until ctx is cancelled. It returns
// immediately with a nil error if the bus has no client configured.
func (b *RedisBus) Subscribe(ctx context.Context, fn func(Key, Op)) error {
	if b == nil || b.client == nil {
		return nil
	}
	sub := b.client.Subscribe(ctx, invalidateChannel)
	ch := sub.Channel()
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				var msg invalidateMessage
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					continue
				}
				fn(Key{StructuralHash: msg.StructuralHash, SchemaFingerprint: msg.SchemaFingerprint, EngineVersion: msg.EngineVersion}, msg.Op)
			}
		}
	}()
	return nil
}
