package links

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/errors"
	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/fork"
	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/types"
	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/version"
)

// Candidate is a real, non-symlink directory paired with its parsed key
type Candidate struct {
	Key version.Key
	Dir string
}

// ScanCandidates lists the immediate children of root and returns every
// installed release candidate for the family. Only real directories count;
// symlinks (including the reserved link names themselves) never do. A
// directory whose name doesn't match the family grammar still becomes a
// candidate with a degenerate key.
//
// When manualTag is non-empty, its directory is resolved by trying the
// family's naming conventions and added unless a scanned candidate already
// covers the same path. Failure to resolve a manual tag is a hard error:
// the caller explicitly asked for a release that isn't on disk.
func ScanCandidates(fsys types.FS, root string, f fork.Fork, manualTag string) ([]Candidate, error) {
	entries, err := fsys.ReadDir(root)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to list %s", root)
	}

	var candidates []Candidate
	for _, entry := range entries {
		if entry.Type()&fs.ModeSymlink != 0 || !entry.IsDir() {
			continue
		}

		tagName := dirTag(entry.Name(), f)
		if belongsToOtherFork(entry.Name(), tagName, f) {
			continue
		}

		candidates = append(candidates, Candidate{
			Key: version.Parse(tagName, f),
			Dir: filepath.Join(root, entry.Name()),
		})
	}

	if manualTag != "" {
		dir, err := resolveManualDir(fsys, root, manualTag, f)
		if err != nil {
			return nil, err
		}
		if !containsDir(candidates, dir) {
			candidates = append(candidates, Candidate{
				Key: version.Parse(manualTag, f),
				Dir: dir,
			})
		}
	}

	return candidates, nil
}

// dirTag derives the tag to parse from a directory name, stripping the
// family's literal directory prefix when present (Proton-EM archives unpack
// to proton-EM-x.y-z).
func dirTag(name string, f fork.Fork) string {
	if prefix := f.DirPrefix(); prefix != "" && strings.HasPrefix(name, prefix) {
		return name[len(prefix):]
	}
	return name
}

// belongsToOtherFork reports whether a directory plainly carries the other
// family's naming and should not compete in this family's ranking.
func belongsToOtherFork(name, tagName string, f fork.Fork) bool {
	switch f {
	case fork.ProtonEM:
		return strings.HasPrefix(tagName, "GE-Proton")
	case fork.GEProton:
		return strings.HasPrefix(tagName, "EM-") ||
			(strings.HasPrefix(name, "proton-") && strings.Contains(name, "EM-"))
	}
	return false
}

// resolveManualDir finds the directory for an explicitly requested tag.
// Families with a prefixed directory convention are probed under the
// prefixed name first, then the literal tag.
func resolveManualDir(fsys types.FS, root, tag string, f fork.Fork) (string, error) {
	tried := make([]string, 0, 2)

	if prefix := f.DirPrefix(); prefix != "" {
		prefixed := filepath.Join(root, prefix+tag)
		if isRealDir(fsys, prefixed) {
			return prefixed, nil
		}
		tried = append(tried, prefixed)
	}

	literal := filepath.Join(root, tag)
	if isRealDir(fsys, literal) {
		return literal, nil
	}
	tried = append(tried, literal)

	return "", errors.Newf(errors.ErrDiscovery,
		"manual release directory not found: %s", strings.Join(tried, " or "))
}

func isRealDir(fsys types.FS, path string) bool {
	fi, err := fsys.Stat(path)
	return err == nil && fi.IsDir()
}

func containsDir(candidates []Candidate, dir string) bool {
	for _, c := range candidates {
		if c.Dir == dir {
			return true
		}
	}
	return false
}
