package cache

import "testing"

// A RedisBus with no client configured must behave as a pure no-op so
// embedders can always construct one regardless of whether redis_addr was
// configured (spec.md §4.8 addition: disabled unless an embedder supplies
// a *redis.Client).
func TestRedisBusNilClientIsNoOp(t *testing.T) {
	bus := NewRedisBus(nil)
	if err := bus.PublishInstall(nil, Key{StructuralHash: 1}); err != nil {
		t.Fatalf("expected nil-client publish to be a no-op, got %v", err)
	}
	if err := bus.PublishEvict(nil, Key{StructuralHash: 1}); err != nil {
		t.Fatalf("expected nil-client publish to be a no-op, got %v", err)
	}
	if err := bus.Subscribe(nil, func(Key, Op) {}); err != nil {
		t.Fatalf("expected nil-client subscribe to be a no-op, got %v", err)
	}
}

func TestRedisBusNilReceiverIsSafe(t *testing.T) {
	var bus *RedisBus
	if err := bus.PublishInstall(nil, Key{}); err != nil {
		t.Fatalf("expected nil-receiver publish to be safe, got %v", err)
	}
}
