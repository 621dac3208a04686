package links

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/fork"
	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/version"
)

// Slot identifies one of the three reserved link identities
type Slot int

const (
	SlotPrimary Slot = iota
	SlotFallback
	SlotFallback2
)

// AllSlots lists the slots in rank order, newest first
var AllSlots = [3]Slot{SlotPrimary, SlotFallback, SlotFallback2}

func (s Slot) String() string {
	switch s {
	case SlotPrimary:
		return "primary"
	case SlotFallback:
		return "fallback"
	case SlotFallback2:
		return "fallback2"
	}
	return "unknown"
}

// LinkName returns the reserved link name this slot binds for a family
func (s Slot) LinkName(f fork.Fork) string {
	return f.LinkNames()[s]
}

// Plan maps a slot to the directory it should point at. Slots missing from
// the map should end up unbound.
type Plan map[Slot]string

// BuildPlan ranks candidates descending by version key and assigns the top
// three to the slots. Fewer than three candidates yields a partial plan;
// zero candidates a valid empty one.
func BuildPlan(candidates []Candidate) Plan {
	ranked := dedupe(candidates)
	sort.Slice(ranked, func(i, j int) bool {
		return version.Compare(ranked[i].Key, ranked[j].Key) > 0
	})

	plan := make(Plan, len(AllSlots))
	for i, slot := range AllSlots {
		if i >= len(ranked) {
			break
		}
		plan[slot] = ranked[i].Dir
	}
	return plan
}

// dedupe collapses candidates that parse to the same key, preferring the
// canonical directory: unprefixed over proton-prefixed, then shorter, then
// lexicographically first names.
func dedupe(candidates []Candidate) []Candidate {
	byKey := make(map[version.Key]Candidate, len(candidates))
	order := make([]version.Key, 0, len(candidates))

	for _, c := range candidates {
		current, seen := byKey[c.Key]
		if !seen {
			byKey[c.Key] = c
			order = append(order, c.Key)
			continue
		}
		if preferDir(c.Dir, current.Dir) {
			byKey[c.Key] = c
		}
	}

	unique := make([]Candidate, 0, len(order))
	for _, key := range order {
		unique = append(unique, byKey[key])
	}
	return unique
}

func preferDir(a, b string) bool {
	an, bn := filepath.Base(a), filepath.Base(b)
	ap, bp := strings.HasPrefix(an, "proton-"), strings.HasPrefix(bn, "proton-")
	if ap != bp {
		return !ap
	}
	if len(an) != len(bn) {
		return len(an) < len(bn)
	}
	return an < bn
}
