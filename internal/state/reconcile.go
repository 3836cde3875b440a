package state

import (
	"encoding/json"
	"log"
	"strings"

	"github.com/hamza/chilltutor/internal/plan"
)

// Update is one (field, value) pair offered to or produced by Reconcile.
type Update struct {
	Field string
	Value any
}

// Reconcile merges an ordered batch of field updates against a state
// snapshot and returns the merged values for the caller to apply. The
// snapshot is never mutated and the output never aliases it.
//
// Every update is resolved against the original snapshot: when the same
// field appears twice in one batch, the later merge does not see the
// earlier result and the earlier one is overwritten on apply. Callers that
// need cumulative semantics must issue separate batches.
//
// Reconcile never fails. A malformed update (non-list flashcard_states) is
// skipped with a diagnostic; the rest of the batch proceeds.
func Reconcile(snapshot map[string]any, updates []Update) []Update {
	merged := make([]Update, 0, len(updates))
	for _, u := range updates {
		switch {
		case strings.Contains(u.Field, "."):
			merged = append(merged, mergeNested(snapshot, u))
		case isMap(u.Value):
			merged = append(merged, mergeMap(snapshot, u))
		case u.Field == plan.FieldFlashcardStates:
			out, ok := mergeFlashcards(snapshot, u)
			if !ok {
				continue
			}
			merged = append(merged, out)
		default:
			merged = append(merged, Update{Field: u.Field, Value: clone(u.Value)})
		}
	}
	return merged
}

// mergeNested handles dotted "parent.child" updates. The parent's current
// value seeds the merge, defaulting to an empty map when absent or not a
// map. A map-valued update merges shallowly into the existing child map
// (incoming keys win); anything else replaces the child wholly. The emitted
// update targets the parent field with the full merged map.
func mergeNested(snapshot map[string]any, u Update) Update {
	parent, child, _ := strings.Cut(u.Field, ".")

	out := make(map[string]any)
	if existing, ok := snapshot[parent].(map[string]any); ok {
		for k, v := range existing {
			out[k] = clone(v)
		}
	}

	incoming, incomingIsMap := u.Value.(map[string]any)
	existingChild, childIsMap := out[child].(map[string]any)
	if incomingIsMap && childIsMap {
		for k, v := range incoming {
			existingChild[k] = clone(v)
		}
	} else {
		out[child] = clone(u.Value)
	}
	return Update{Field: parent, Value: out}
}

// mergeMap shallow-merges a map-valued update over the field's current map
// (incoming keys win, unrelated siblings survive). A non-map current value
// is discarded and the merge starts empty.
func mergeMap(snapshot map[string]any, u Update) Update {
	out := make(map[string]any)
	if existing, ok := snapshot[u.Field].(map[string]any); ok {
		for k, v := range existing {
			out[k] = clone(v)
		}
	}
	for k, v := range u.Value.(map[string]any) {
		out[k] = clone(v)
	}
	return Update{Field: u.Field, Value: out}
}

// mergeFlashcards upserts incoming records into the current flashcard list
// by id: a matching record is shallow-merged in place, preserving its
// position; the rest append in incoming order. A non-list value skips the
// whole update.
func mergeFlashcards(snapshot map[string]any, u Update) (Update, bool) {
	incoming, ok := u.Value.([]any)
	if !ok {
		log.Printf("state: expected a list for %s, got %T; update skipped", plan.FieldFlashcardStates, u.Value)
		return Update{}, false
	}

	current, _ := snapshot[plan.FieldFlashcardStates].([]any)
	out := make([]any, 0, len(current)+len(incoming))
	for _, c := range current {
		out = append(out, clone(c))
	}

	for _, item := range incoming {
		record, ok := item.(map[string]any)
		if !ok {
			log.Printf("state: dropping malformed flashcard record: %v", item)
			continue
		}
		if idx := indexByID(out, record["id"]); idx >= 0 {
			existing := out[idx].(map[string]any)
			for k, v := range record {
				existing[k] = clone(v)
			}
		} else {
			out = append(out, clone(item))
		}
	}
	return Update{Field: plan.FieldFlashcardStates, Value: out}, true
}

func indexByID(records []any, id any) int {
	for i, r := range records {
		record, ok := r.(map[string]any)
		if !ok {
			continue
		}
		if sameID(record["id"], id) {
			return i
		}
	}
	return -1
}

// sameID compares record identities across JSON decodings, where the same
// id may surface as float64, int64, int or json.Number.
func sameID(a, b any) bool {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		return ok && as == bs
	}
	return a == nil && b == nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func isMap(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}

// clone deep-copies a JSON-like value so merged output never aliases the
// snapshot or the incoming update.
func clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = clone(e)
		}
		return out
	default:
		return v
	}
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = clone(v)
	}
	return out
}
