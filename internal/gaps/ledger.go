// Package gaps provides the authoritative bookkeeping of unmet job requirements
// surfaced by the analysis capability and resolved over the Q&A conversation.
package gaps

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Category classifies how blocking an unmet requirement is.
type Category string

// Requirement categories. A gap's category never changes after creation.
const (
	CategoryMustHave   Category = "must_have"
	CategoryNiceToHave Category = "nice_to_have"
)

// Priority is the analyzer's urgency rating for a gap.
type Priority string

// Gap priorities as reported by the analysis capability.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Status tracks whether a gap is still outstanding.
type Status string

// Gap statuses.
const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
)

// Gap is a single unmet or partially met job requirement.
type Gap struct {
	ID             string   `json:"id"`
	Requirement    string   `json:"requirement"`
	Category       Category `json:"category"`
	Priority       Priority `json:"priority"`
	Status         Status   `json:"status"`
	ResolutionNote string   `json:"resolution_note,omitempty"`
}

// Record is the gap shape produced by the analysis capability, before it is
// admitted into a ledger.
type Record struct {
	Requirement string   `json:"requirement"`
	Category    Category `json:"category"`
	Priority    Priority `json:"priority"`
	Reason      string   `json:"reason,omitempty"`
}

var idSanitizer = regexp.MustCompile(`[^a-z0-9]+`)

// DeriveID produces a stable identifier from requirement text. The same
// requirement always maps to the same ID, so repeated analyses of the same
// posting reference gaps consistently.
func DeriveID(requirement string) string {
	id := strings.ToLower(strings.TrimSpace(requirement))
	id = idSanitizer.ReplaceAllString(id, "-")
	id = strings.Trim(id, "-")
	if len(id) > 64 {
		id = id[:64]
		id = strings.Trim(id, "-")
	}
	return id
}

// Ledger is the ordered set of gaps for one job analysis. All mutation goes
// through Seed and ApplyResolution; the remaining-gap views are always
// recomputed from gap status and can never drift from the underlying set.
type Ledger struct {
	gaps []Gap
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Seed populates the ledger from analyzer output. It fails if the ledger
// already holds gaps; a ledger is seeded exactly once per job analysis.
// Records whose requirement text collapses to a duplicate ID are dropped,
// keeping IDs unique within the ledger.
func (l *Ledger) Seed(records []Record) error {
	if len(l.gaps) > 0 {
		return fmt.Errorf("ledger already seeded with %d gaps", len(l.gaps))
	}

	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		id := DeriveID(rec.Requirement)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		category := rec.Category
		if category != CategoryMustHave && category != CategoryNiceToHave {
			category = CategoryMustHave // conservative default, matching the analyzer contract
		}
		priority := rec.Priority
		if priority != PriorityHigh && priority != PriorityMedium && priority != PriorityLow {
			priority = PriorityMedium
		}

		l.gaps = append(l.gaps, Gap{
			ID:          id,
			Requirement: strings.TrimSpace(rec.Requirement),
			Category:    category,
			Priority:    priority,
			Status:      StatusOpen,
		})
	}
	return nil
}

// ApplyResolution marks the identified gap resolved with the given note.
// Unknown or already-resolved IDs are a no-op and report false: validation
// verdicts are advisory and may reference gaps closed by an earlier turn.
func (l *Ledger) ApplyResolution(gapID, note string) bool {
	for i := range l.gaps {
		if l.gaps[i].ID != gapID {
			continue
		}
		if l.gaps[i].Status == StatusResolved {
			return false
		}
		l.gaps[i].Status = StatusResolved
		l.gaps[i].ResolutionNote = note
		return true
	}
	return false
}

// RemainingMustHave returns the open must-have gaps, recomputed on every call.
func (l *Ledger) RemainingMustHave() []Gap {
	return l.remaining(CategoryMustHave)
}

// RemainingNiceToHave returns the open nice-to-have gaps.
func (l *Ledger) RemainingNiceToHave() []Gap {
	return l.remaining(CategoryNiceToHave)
}

func (l *Ledger) remaining(category Category) []Gap {
	var out []Gap
	for _, g := range l.gaps {
		if g.Category == category && g.Status == StatusOpen {
			out = append(out, g)
		}
	}
	return out
}

// Remaining returns every open gap regardless of category, in seed order.
func (l *Ledger) Remaining() []Gap {
	var out []Gap
	for _, g := range l.gaps {
		if g.Status == StatusOpen {
			out = append(out, g)
		}
	}
	return out
}

// AllResolved reports whether no must-have gap remains open. Open nice-to-have
// gaps do not block the Q&A exit condition.
func (l *Ledger) AllResolved() bool {
	return len(l.RemainingMustHave()) == 0
}

// Len returns the total number of gaps, open and resolved.
func (l *Ledger) Len() int {
	return len(l.gaps)
}

// Lookup returns the gap with the given ID, if present.
func (l *Ledger) Lookup(gapID string) (Gap, bool) {
	for _, g := range l.gaps {
		if g.ID == gapID {
			return g, true
		}
	}
	return Gap{}, false
}

// Snapshot returns a copy of every gap in seed order. Callers may not mutate
// ledger state through the returned slice.
func (l *Ledger) Snapshot() []Gap {
	out := make([]Gap, len(l.gaps))
	copy(out, l.gaps)
	return out
}

// Restore rebuilds a ledger from a snapshot, preserving status and notes.
// Used by session stores when loading a persisted session.
func Restore(snapshot []Gap) *Ledger {
	l := &Ledger{gaps: make([]Gap, len(snapshot))}
	copy(l.gaps, snapshot)
	return l
}

// MarshalJSON serializes the ledger as its ordered gap list.
func (l *Ledger) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.gaps)
}

// UnmarshalJSON rebuilds the ledger from an ordered gap list.
func (l *Ledger) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &l.gaps)
}
