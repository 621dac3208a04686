// Package fork defines the supported Proton release families and the
// per-family conventions: tag grammar, reserved symlink names, on-disk
// directory naming, upstream repository and archive format.
package fork

import (
	"regexp"

	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/errors"
)

// Fork identifies a Proton release family
type Fork string

const (
	GEProton Fork = "GE-Proton"
	ProtonEM Fork = "Proton-EM"
)

// DefaultFork is used when the caller does not specify one
const DefaultFork = GEProton

// All returns every known fork
func All() []Fork {
	return []Fork{GEProton, ProtonEM}
}

// Parse converts a user-supplied string into a Fork
func Parse(s string) (Fork, error) {
	switch Fork(s) {
	case GEProton:
		return GEProton, nil
	case ProtonEM:
		return ProtonEM, nil
	default:
		return "", errors.Newf(errors.ErrInvalidInput, "unknown fork %q", s)
	}
}

// descriptor carries the static per-family conventions
type descriptor struct {
	repo       string
	archiveExt string
	// tag grammar; submatches are the numeric version fields
	grammar *regexp.Regexp
	// key prefix used when the grammar matches
	keyPrefix string
	// literal prefix some on-disk directories carry in front of the tag
	dirPrefix string
	// the three reserved link names, newest first
	linkNames [3]string
}

var descriptors = map[Fork]descriptor{
	GEProton: {
		repo:       "GloriousEggroll/proton-ge-custom",
		archiveExt: ".tar.gz",
		grammar:    regexp.MustCompile(`^GE-Proton(\d+)-(\d+)$`),
		keyPrefix:  "GE-Proton",
		dirPrefix:  "",
		linkNames:  [3]string{"GE-Proton", "GE-Proton-Fallback", "GE-Proton-Fallback2"},
	},
	ProtonEM: {
		repo:       "Etaash-mathamsetty/Proton",
		archiveExt: ".tar.xz",
		grammar:    regexp.MustCompile(`^EM-(\d+)\.(\d+)-(\d+)$`),
		keyPrefix:  "EM",
		dirPrefix:  "proton-",
		linkNames:  [3]string{"Proton-EM", "Proton-EM-Fallback", "Proton-EM-Fallback2"},
	},
}

// Repo returns the upstream GitHub repository in owner/name form
func (f Fork) Repo() string {
	return descriptors[f].repo
}

// ArchiveExt returns the expected release archive extension
func (f Fork) ArchiveExt() string {
	return descriptors[f].archiveExt
}

// Grammar returns the tag grammar for this family
func (f Fork) Grammar() *regexp.Regexp {
	return descriptors[f].grammar
}

// KeyPrefix is the prefix component of well-formed version keys
func (f Fork) KeyPrefix() string {
	return descriptors[f].keyPrefix
}

// DirPrefix is the literal prefix alternate-convention directories carry
// in front of the tag, or "" when the family has no such convention.
func (f Fork) DirPrefix() string {
	return descriptors[f].dirPrefix
}

// LinkNames returns the three reserved link names, newest slot first
func (f Fork) LinkNames() [3]string {
	return descriptors[f].linkNames
}

// AssetName returns the conventional release asset name for a tag
func (f Fork) AssetName(tag string) string {
	if f == ProtonEM {
		return "proton-" + tag + f.ArchiveExt()
	}
	return tag + f.ArchiveExt()
}
