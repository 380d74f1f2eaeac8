// Package emotion defines the closed set of emotional categories a room can
// be opened under, together with the per-category configuration the rest of
// the service reads (capacity, labels, session color).
//
// Category ids arrive from clients as strings; Lookup rejects unknown ids at
// the boundary rather than silently falling back to a default, so a client
// sending a bad id fails fast instead of being routed into the wrong room.
package emotion

import "fmt"

// DefaultMaxParticipants applies when a category does not override capacity.
const DefaultMaxParticipants = 10

// Category identifies one emotional state users can select.
type Category string

const (
	Anxious  Category = "anxious"
	Lonely   Category = "lonely"
	BurntOut Category = "burnt-out"
	JustTalk Category = "just-talk"
)

// Config carries the operational configuration for one category.
type Config struct {
	ID              Category
	SelectionLabel  string
	Description     string
	SanctuaryLabel  string
	SessionColor    string
	MaxParticipants int
}

var configs = map[Category]Config{
	Anxious: {
		ID:              Anxious,
		SelectionLabel:  "ANXIOUS",
		Description:     "Racing thoughts, worry, unease",
		SanctuaryLabel:  "Anxiety Sanctuary",
		SessionColor:    "#a855f7",
		MaxParticipants: 10,
	},
	Lonely: {
		ID:             Lonely,
		SelectionLabel: "LONELY",
		Description:    "Isolated, disconnected, longing",
		SanctuaryLabel: "Loneliness Sanctuary",
		SessionColor:   "#3b82f6",
	},
	BurntOut: {
		ID:             BurntOut,
		SelectionLabel: "BURNT OUT",
		Description:    "Exhausted, depleted, overwhelmed",
		SanctuaryLabel: "Burnout Sanctuary",
		SessionColor:   "#f97316",
	},
	JustTalk: {
		ID:             JustTalk,
		SelectionLabel: "JUST WANT TO TALK",
		Description:    "Need to be heard, share, connect",
		SanctuaryLabel: "Connection Sanctuary",
		SessionColor:   "#10b981",
	},
}

// ordered keeps listing output stable for the selection page.
var ordered = []Category{Anxious, Lonely, BurntOut, JustTalk}

// IsValid reports whether value names a configured category.
func IsValid(value string) bool {
	_, ok := configs[Category(value)]
	return ok
}

// Lookup resolves a category id to its configuration. Unknown ids are an
// error, never a default.
func Lookup(value string) (Config, error) {
	cfg, ok := configs[Category(value)]
	if !ok {
		return Config{}, fmt.Errorf("emotion: unknown category %q", value)
	}
	return cfg, nil
}

// MaxParticipants returns the capacity cap for a category, applying the
// default when the category does not override it. Unknown ids error.
func MaxParticipants(value string) (int, error) {
	cfg, err := Lookup(value)
	if err != nil {
		return 0, err
	}
	if cfg.MaxParticipants <= 0 {
		return DefaultMaxParticipants, nil
	}
	return cfg.MaxParticipants, nil
}

// All returns every category configuration in selection order.
func All() []Config {
	out := make([]Config, 0, len(ordered))
	for _, id := range ordered {
		out = append(out, configs[id])
	}
	return out
}
