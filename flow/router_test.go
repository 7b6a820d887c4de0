package flow

import "testing"

func testRegistry(t *testing.T, roles ...Role) *Registry {
	t.Helper()
	configs := make([]RoleConfig, 0, len(roles))
	for _, r := range roles {
		configs = append(configs, RoleConfig{Role: r, Analyzers: []AnalyzerID{AnalyzerGeneral}})
	}
	reg, err := NewRegistry(configs)
	if err != nil {
		t.Fatalf("registry build failed: %v", err)
	}
	return reg
}

func TestLinearRouter(t *testing.T) {
	t.Run("walks the chain in order", func(t *testing.T) {
		r, err := NewLinearRouter("a", "b", "c")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if next := r.Next("a", State{}); next != "b" {
			t.Errorf("expected b after a, got %q", next)
		}
		if next := r.Next("b", State{}); next != "c" {
			t.Errorf("expected c after b, got %q", next)
		}
	})

	t.Run("last role transitions to End", func(t *testing.T) {
		r, _ := NewLinearRouter("a", "b")
		if next := r.Next("b", State{}); next != End {
			t.Errorf("expected End after last role, got %q", next)
		}
	})

	t.Run("unknown role maps to End", func(t *testing.T) {
		r, _ := NewLinearRouter("a", "b")
		if next := r.Next("zzz", State{}); next != End {
			t.Errorf("expected End for unknown role, got %q", next)
		}
	})

	t.Run("entry is the first role", func(t *testing.T) {
		r, _ := NewLinearRouter("a", "b")
		if r.Entry() != "a" {
			t.Errorf("expected entry a, got %q", r.Entry())
		}
	})

	t.Run("rejects empty chain", func(t *testing.T) {
		_, err := NewLinearRouter()
		if code := configErrCode(t, err); code != "EMPTY_CHAIN" {
			t.Errorf("expected EMPTY_CHAIN, got %s", code)
		}
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		_, err := NewLinearRouter("a", "b", "a")
		if code := configErrCode(t, err); code != "DUPLICATE_ROLE" {
			t.Errorf("expected DUPLICATE_ROLE, got %s", code)
		}
	})

	t.Run("rejects the terminal sentinel", func(t *testing.T) {
		_, err := NewLinearRouter("a", End)
		if code := configErrCode(t, err); code != "RESERVED_ROLE" {
			t.Errorf("expected RESERVED_ROLE, got %s", code)
		}
	})

	t.Run("validate catches unregistered roles", func(t *testing.T) {
		reg := testRegistry(t, "a", "b")
		r, _ := NewLinearRouter("a", "b", "c")
		err := r.Validate(reg)
		if code := configErrCode(t, err); code != "UNKNOWN_ROLE" {
			t.Errorf("expected UNKNOWN_ROLE, got %s", code)
		}
	})

	t.Run("closure over all inputs", func(t *testing.T) {
		reg := testRegistry(t, "a", "b", "c")
		r, _ := NewLinearRouter("a", "b", "c")
		if err := r.Validate(reg); err != nil {
			t.Fatalf("validate failed: %v", err)
		}

		for _, current := range []Role{"a", "b", "c", "zzz", End, ""} {
			next := r.Next(current, State{Stage: "garbage"})
			if next != End && !reg.Has(next) {
				t.Errorf("Next(%q) returned unregistered role %q", current, next)
			}
		}
	})
}

func TestHubRouter(t *testing.T) {
	t.Run("spokes return to the hub", func(t *testing.T) {
		r, err := NewHubRouter("CENTRAL", "A", "B")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if next := r.Next("A", State{}); next != "CENTRAL" {
			t.Errorf("expected spoke to return to hub, got %q", next)
		}
	})

	t.Run("hub follows the dispatch value", func(t *testing.T) {
		r, _ := NewHubRouter("CENTRAL", "A", "B")

		if next := r.Next("CENTRAL", State{Stage: "B"}); next != "B" {
			t.Errorf("expected dispatch to B, got %q", next)
		}
	})

	t.Run("unrecognized dispatch terminates", func(t *testing.T) {
		r, _ := NewHubRouter("CENTRAL", "A", "B")

		for _, stage := range []Role{"", End, "CENTRAL", "unknown"} {
			if next := r.Next("CENTRAL", State{Stage: stage}); next != End {
				t.Errorf("dispatch %q: expected End, got %q", stage, next)
			}
		}
	})

	t.Run("unknown current role terminates", func(t *testing.T) {
		r, _ := NewHubRouter("CENTRAL", "A")
		if next := r.Next("stranger", State{}); next != End {
			t.Errorf("expected End for unknown current, got %q", next)
		}
	})

	t.Run("entry is the hub", func(t *testing.T) {
		r, _ := NewHubRouter("CENTRAL", "A")
		if r.Entry() != "CENTRAL" {
			t.Errorf("expected CENTRAL entry, got %q", r.Entry())
		}
	})

	t.Run("rejects hub as its own spoke", func(t *testing.T) {
		_, err := NewHubRouter("CENTRAL", "A", "CENTRAL")
		if code := configErrCode(t, err); code != "SELF_LOOP" {
			t.Errorf("expected SELF_LOOP, got %s", code)
		}
	})

	t.Run("rejects empty spoke set", func(t *testing.T) {
		_, err := NewHubRouter("CENTRAL")
		if code := configErrCode(t, err); code != "EMPTY_SPOKES" {
			t.Errorf("expected EMPTY_SPOKES, got %s", code)
		}
	})

	t.Run("validate catches unregistered spokes", func(t *testing.T) {
		reg := testRegistry(t, "CENTRAL", "A")
		r, _ := NewHubRouter("CENTRAL", "A", "B")
		err := r.Validate(reg)
		if code := configErrCode(t, err); code != "UNKNOWN_ROLE" {
			t.Errorf("expected UNKNOWN_ROLE, got %s", code)
		}
	})

	t.Run("closure over all inputs", func(t *testing.T) {
		reg := testRegistry(t, "CENTRAL", "A", "B")
		r, _ := NewHubRouter("CENTRAL", "A", "B")
		if err := r.Validate(reg); err != nil {
			t.Fatalf("validate failed: %v", err)
		}

		for _, current := range []Role{"CENTRAL", "A", "B", "zzz", End} {
			for _, stage := range []Role{"A", "B", "CENTRAL", "zzz", "", End} {
				next := r.Next(current, State{Stage: stage})
				if next != End && !reg.Has(next) {
					t.Errorf("Next(%q, stage=%q) returned unregistered role %q", current, stage, next)
				}
			}
		}
	})
}
