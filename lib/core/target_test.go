package core

import "testing"

func TestTargetSet_Slice(t *testing.T) {
	a := Target{Network: "tcp", Address: "127.0.0.1:1"}
	b := Target{Network: "tcp", Address: "127.0.0.1:2"}
	set := NewTargetSet(a, b)

	slice := set.Slice()
	if len(slice) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(slice))
	}

	seen := map[Target]bool{}
	for _, t := range slice {
		seen[t] = true
	}
	if !seen[a] || !seen[b] {
		t.Fatalf("expected both targets present, got %v", slice)
	}
}

func TestTarget_String(t *testing.T) {
	tg := Target{Network: "tcp", Address: "example.com:80"}
	if got, want := tg.String(), "tcp://example.com:80"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestEmptyTargetSet(t *testing.T) {
	set := EmptyTargetSet()
	if len(set) != 0 {
		t.Fatalf("expected empty set, got %d entries", len(set))
	}
}
