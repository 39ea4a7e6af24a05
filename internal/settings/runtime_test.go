package settings

import "testing"

func TestRuntimeDefaults(t *testing.T) {
	r := NewRuntime(nil, nil)

	if got := r.Int("max_results", 7); got != 7 {
		t.Errorf("Int fallback = %d, want 7", got)
	}
	if got := r.Bool("re_rank", true); got != true {
		t.Errorf("Bool fallback = %v, want true", got)
	}
	if got := r.String("default_language", "de"); got != "de" {
		t.Errorf("String fallback = %q, want de", got)
	}
}

func TestRuntimeSetAndGet(t *testing.T) {
	r := NewRuntime(testStore(t), nil)

	if err := r.Set("max_results", "3"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := r.Set("optimize_query", "true"); err != nil {
		t.Fatalf("set: %v", err)
	}

	if got := r.Int("max_results", 7); got != 3 {
		t.Errorf("max_results = %d, want 3", got)
	}
	if got := r.Bool("optimize_query", false); got != true {
		t.Errorf("optimize_query = %v, want true", got)
	}
}

func TestRuntimeRejectsUnknownKey(t *testing.T) {
	r := NewRuntime(nil, nil)

	if err := r.Set("brave_api_key", "sneaky"); err == nil {
		t.Error("expected error for unknown setting key")
	}
}

func TestRuntimeSurvivesRestart(t *testing.T) {
	store := testStore(t)

	r := NewRuntime(store, nil)
	if err := r.Set("fetch_full_content", "true"); err != nil {
		t.Fatalf("set: %v", err)
	}

	r2 := NewRuntime(store, nil)
	if got := r2.Bool("fetch_full_content", false); got != true {
		t.Errorf("override lost across restart")
	}
}

func TestRuntimeUnparseableValueFallsBack(t *testing.T) {
	r := NewRuntime(testStore(t), nil)

	if err := r.Set("max_results", "lots"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := r.Int("max_results", 7); got != 7 {
		t.Errorf("unparseable int should fall back, got %d", got)
	}
}

func TestRuntimeStrings(t *testing.T) {
	r := NewRuntime(testStore(t), nil)

	fallback := []string{"https://searx.be"}
	if got := r.Strings("instances", fallback); len(got) != 1 || got[0] != fallback[0] {
		t.Errorf("Strings fallback = %v", got)
	}

	if err := r.Set("instances", `["https://a.example", "https://b.example"]`); err != nil {
		t.Fatalf("set: %v", err)
	}
	got := r.Strings("instances", fallback)
	if len(got) != 2 || got[0] != "https://a.example" {
		t.Errorf("Strings = %v", got)
	}

	// Malformed JSON falls back.
	if err := r.Set("instances", "not json"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := r.Strings("instances", fallback); len(got) != 1 {
		t.Errorf("malformed value should fall back, got %v", got)
	}
}

func TestRuntimeAll(t *testing.T) {
	r := NewRuntime(testStore(t), nil)

	if err := r.Set("multi_query", "true"); err != nil {
		t.Fatalf("set: %v", err)
	}
	all := r.All()
	if all["multi_query"] != "true" {
		t.Errorf("All() missing override: %v", all)
	}

	// The returned map is a copy.
	all["multi_query"] = "false"
	if got := r.Bool("multi_query", false); got != true {
		t.Error("mutating All() result leaked into the runtime view")
	}
}
