package bot

import (
	"context"
	"reflect"
	"testing"
)

func noop(ctx context.Context, inv *Invocation) error { return nil }

func TestRegistryLookupIsCaseInsensitive(t *testing.T) {
	r := NewRegistry()
	r.Register(NewCommand("Ping", "", "ping", noop))

	for _, name := range []string{"ping", "PING", "Ping"} {
		if _, ok := r.Lookup(name); !ok {
			t.Fatalf("Lookup(%q) failed", name)
		}
	}
	if _, ok := r.Lookup("pong"); ok {
		t.Fatal("Lookup of unregistered name succeeded")
	}
}

func TestRegistryLastRegistrationWins(t *testing.T) {
	r := NewRegistry()
	r.Register(NewCommand("ping", "first", "ping", noop))
	r.Register(NewCommand("ping", "second", "ping", noop))

	cmd, ok := r.Lookup("ping")
	if !ok {
		t.Fatal("Lookup failed")
	}
	if cmd.Description() != "second" {
		t.Fatalf("Description = %q, want the later registration", cmd.Description())
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d", r.Len())
	}
}

func TestRegistrySkipsInvalidEntries(t *testing.T) {
	r := NewRegistry()
	r.Register(nil, NewCommand("", "empty", "", noop), NewCommand("ok", "", "ok", noop))

	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(
		NewCommand("zeta", "", "", noop),
		NewCommand("alpha", "", "", noop),
		NewCommand("mid", "", "", noop),
	)

	want := []string{"alpha", "mid", "zeta"}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Names = %v, want %v", got, want)
	}
}
