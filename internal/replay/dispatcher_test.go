package replay

import (
	"context"
	"testing"

	"github.com/fsaintjacques/membench/internal/profile"
)

func TestDispatcherSpawnsOncePerConnection(t *testing.T) {
	spawned := make(map[uint16]int)
	d := newDispatcher(func(id uint16, inbox <-chan profile.Event) {
		spawned[id]++
		go func() {
			for range inbox {
			}
		}()
	})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := d.route(ctx, profile.Event{ConnectionID: 1}); err != nil {
			t.Fatalf("route: %v", err)
		}
	}
	if err := d.route(ctx, profile.Event{ConnectionID: 2}); err != nil {
		t.Fatalf("route: %v", err)
	}
	d.closeAll()

	if spawned[1] != 1 {
		t.Fatalf("connection 1 spawned %d times, want 1", spawned[1])
	}
	if spawned[2] != 1 {
		t.Fatalf("connection 2 spawned %d times, want 1", spawned[2])
	}
}

// TestDispatcherPreservesPerConnectionOrder checks that the sub-sequence of
// events observed on one connection's inbox equals, in order, the
// sub-sequence of routed events restricted to that connection id
// (the ordering guarantee of spec.md §7).
func TestDispatcherPreservesPerConnectionOrder(t *testing.T) {
	var gotConn1 []uint64
	done := make(chan struct{})
	d := newDispatcher(func(id uint16, inbox <-chan profile.Event) {
		if id != 1 {
			go func() {
				for range inbox {
				}
			}()
			return
		}
		go func() {
			defer close(done)
			for ev := range inbox {
				gotConn1 = append(gotConn1, ev.KeyHash)
			}
		}()
	})

	ctx := context.Background()
	sequence := []struct {
		conn uint16
		key  uint64
	}{
		{1, 10}, {2, 99}, {1, 20}, {1, 30}, {2, 88}, {1, 40},
	}
	for _, s := range sequence {
		if err := d.route(ctx, profile.Event{ConnectionID: s.conn, KeyHash: s.key}); err != nil {
			t.Fatalf("route: %v", err)
		}
	}
	d.closeAll()
	<-done

	want := []uint64{10, 20, 30, 40}
	if len(gotConn1) != len(want) {
		t.Fatalf("got %v, want %v", gotConn1, want)
	}
	for i := range want {
		if gotConn1[i] != want[i] {
			t.Fatalf("got %v, want %v", gotConn1, want)
		}
	}
}
