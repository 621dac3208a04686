// Package version turns release directory names into orderable keys.
//
// A key is a (prefix, major, minor, patch) tuple. Names matching the
// fork's tag grammar get the fork's key prefix and their numeric fields;
// any other name becomes a degenerate key carrying the whole name as its
// prefix with zero numeric fields. Parsing is total so that every
// directory can participate in ranking.
package version

import (
	"strconv"
	"strings"

	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/fork"
)

// Key orders releases. Degenerate keys (unmatched names) compare by
// their prefix string alone.
type Key struct {
	Prefix string
	Major  int
	Minor  int
	Patch  int
}

// Parse derives the version key for a release directory or tag name.
// GE-Proton tags have no minor field; it stays zero.
func Parse(name string, f fork.Fork) Key {
	m := f.Grammar().FindStringSubmatch(name)
	if m == nil {
		return Key{Prefix: name}
	}

	switch len(m) {
	case 3: // GE-Proton<major>-<patch>
		return Key{
			Prefix: f.KeyPrefix(),
			Major:  atoi(m[1]),
			Patch:  atoi(m[2]),
		}
	case 4: // EM-<major>.<minor>-<patch>
		return Key{
			Prefix: f.KeyPrefix(),
			Major:  atoi(m[1]),
			Minor:  atoi(m[2]),
			Patch:  atoi(m[3]),
		}
	default:
		return Key{Prefix: name}
	}
}

// Compare orders keys field by field: prefix lexicographically, then
// major, minor and patch numerically. It returns -1, 0 or 1.
func Compare(a, b Key) int {
	if c := strings.Compare(a.Prefix, b.Prefix); c != 0 {
		return c
	}
	if c := compareInt(a.Major, b.Major); c != 0 {
		return c
	}
	if c := compareInt(a.Minor, b.Minor); c != 0 {
		return c
	}
	return compareInt(a.Patch, b.Patch)
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// atoi is safe here: the grammar only matches digit runs
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
