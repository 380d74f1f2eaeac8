package emotion

import "testing"

func TestLookupRejectsUnknownCategory(t *testing.T) {
	if _, err := Lookup("furious"); err == nil {
		t.Fatal("expected error for unknown category")
	}
	if IsValid("furious") {
		t.Fatal("expected unknown category to be invalid")
	}
}

func TestLookupKnownCategories(t *testing.T) {
	for _, id := range []string{"anxious", "lonely", "burnt-out", "just-talk"} {
		cfg, err := Lookup(id)
		if err != nil {
			t.Fatalf("Lookup(%q) returned error: %v", id, err)
		}
		if string(cfg.ID) != id {
			t.Fatalf("expected id %q, got %q", id, cfg.ID)
		}
		if cfg.SessionColor == "" {
			t.Fatalf("category %q has no session color", id)
		}
	}
}

func TestMaxParticipantsAppliesDefault(t *testing.T) {
	capacity, err := MaxParticipants("lonely")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if capacity != DefaultMaxParticipants {
		t.Fatalf("expected default capacity %d, got %d", DefaultMaxParticipants, capacity)
	}

	if _, err := MaxParticipants("unknown"); err == nil {
		t.Fatal("expected error for unknown category")
	}
}

func TestAllReturnsSelectionOrder(t *testing.T) {
	configs := All()
	if len(configs) != 4 {
		t.Fatalf("expected 4 categories, got %d", len(configs))
	}
	expected := []Category{Anxious, Lonely, BurntOut, JustTalk}
	for i, cfg := range configs {
		if cfg.ID != expected[i] {
			t.Fatalf("position %d: expected %q, got %q", i, expected[i], cfg.ID)
		}
	}
}
