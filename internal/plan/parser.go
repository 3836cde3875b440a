package plan

import (
	"encoding/json"
	"log"
	"strings"
)

// Plan text grammar, produced by a non-deterministic generator and parsed
// defensively: sections separated by "\nPlan: ", steps by "\n#E", each step
// "<n> = tool[key=value; key=value; ...]".
const (
	sectionDelim  = "\nPlan: "
	sectionPrefix = "Plan: "
	stepDelim     = "\n#E"
)

// Parse splits a raw planner response into executable steps across all plan
// sections, preserving source order. Parsing is fail-soft: every malformed
// fragment (missing '=', missing or unbalanced brackets) is dropped with a
// diagnostic and the rest of the response still parses. Parse never returns
// an error.
func Parse(response string) []Step {
	var steps []Step
	for _, section := range strings.Split(response, sectionDelim) {
		if strings.TrimSpace(section) == "" {
			continue
		}
		steps = append(steps, parseSection(section)...)
	}
	return steps
}

func parseSection(section string) []Step {
	parts := strings.Split(section, stepDelim)

	// The leading section keeps its own "Plan: " prefix because it sits
	// before the first delimiter.
	desc := strings.TrimSpace(parts[0])
	desc = strings.TrimSpace(strings.TrimPrefix(desc, sectionPrefix))

	var steps []Step
	for _, frag := range parts[1:] {
		step, ok := parseStep(desc, frag)
		if !ok {
			continue
		}
		steps = append(steps, step)
	}
	return steps
}

// parseStep parses a single "<n> = tool[args]" fragment. Recovery is
// skip-to-next-fragment: a malformed fragment is dropped whole and never
// aborts the surrounding section.
func parseStep(desc, frag string) (Step, bool) {
	num, rest, found := strings.Cut(frag, "=")
	if !found {
		log.Printf("plan: step fragment missing '=': %q", truncate(frag, 60))
		return Step{}, false
	}
	id := "E" + strings.TrimSpace(num)
	rest = strings.TrimSpace(rest)

	open := strings.Index(rest, "[")
	if open == -1 {
		log.Printf("plan: step %s has no bracketed tool input, skipping", id)
		return Step{}, false
	}
	tool := strings.TrimSpace(rest[:open])

	body, ok := bracketBody(rest[open:])
	if !ok {
		log.Printf("plan: unbalanced brackets in step %s, skipping", id)
		return Step{}, false
	}

	return Step{
		Description: desc,
		ID:          id,
		Tool:        tool,
		Input:       ParseToolInput(body),
	}, true
}

// bracketBody returns the content strictly between the outer matched
// brackets of s, which starts with '['. Nested brackets inside JSON array
// values are balanced by depth counting.
func bracketBody(s string) (string, bool) {
	depth := 0
	for i, r := range s {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[1:i]), true
			}
		}
	}
	return "", false
}

// ParseToolInput parses a ';'-separated "key=value" argument body into
// ordered pairs. Each item splits on its first '='; items without one are
// dropped with a diagnostic. Duplicate keys are preserved in order --
// last-wins resolution belongs to state reconciliation, not parsing.
func ParseToolInput(body string) []Pair {
	var pairs []Pair
	for _, item := range strings.Split(body, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key, raw, found := strings.Cut(item, "=")
		if !found {
			log.Printf("plan: tool argument missing '=': %q", truncate(item, 60))
			continue
		}
		value, ok := decodeValue(strings.TrimSpace(key), strings.TrimSpace(raw))
		if !ok {
			continue
		}
		pairs = append(pairs, Pair{Key: strings.TrimSpace(key), Value: value})
	}
	return pairs
}

// decodeValue decodes raw as a JSON literal, falling back to the raw text
// on decode failure. flashcard_states is the exception: it must decode to a
// list of object records, and malformed entries are dropped rather than
// kept as text.
func decodeValue(key, raw string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		if key == FieldFlashcardStates {
			log.Printf("plan: undecodable %s value dropped: %v", key, err)
			return nil, false
		}
		return raw, true
	}
	if key == FieldFlashcardStates {
		list, ok := v.([]any)
		if !ok {
			log.Printf("plan: %s must be a list, got %T", key, v)
			return nil, false
		}
		records := make([]any, 0, len(list))
		for _, item := range list {
			if _, ok := item.(map[string]any); !ok {
				log.Printf("plan: dropping non-record flashcard entry: %v", item)
				continue
			}
			records = append(records, item)
		}
		return records, true
	}
	return v, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
