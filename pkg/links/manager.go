package links

import (
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/errors"
	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/fork"
	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/logging"
	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/types"
)

// Manager is the façade the rest of the system calls: it orchestrates
// scan -> plan -> reconcile for one release-family root directory.
// It holds no state between invocations.
type Manager struct {
	fs  types.FS
	log zerolog.Logger
}

// NewManager creates a link manager operating through the given filesystem
func NewManager(fsys types.FS) *Manager {
	return &Manager{
		fs:  fsys,
		log: logging.GetLogger("links.manager"),
	}
}

// ManageLinks converges the family's three reserved links onto the newest
// installed releases under root. manualTag, when non-empty, names an
// explicitly requested release whose directory must exist (possibly under
// the family's alternate naming convention); a manual tag that cannot be
// resolved is a hard error. Zero installed releases is a valid no-op.
// Per-slot failures are reported in the outcomes, never as an error.
func (m *Manager) ManageLinks(root string, f fork.Fork, manualTag string) (Outcomes, error) {
	candidates, err := ScanCandidates(m.fs, root, f, manualTag)
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		m.log.Warn().Str("root", root).Str("fork", string(f)).
			Msg("No extracted Proton directories found - not touching links")
		return Outcomes{}, nil
	}

	plan := BuildPlan(candidates)
	outcomes := Reconcile(m.fs, root, f, plan)

	for _, out := range outcomes.Failed() {
		m.log.Error().Err(out.Err).Str("link", out.LinkName).Msg("Slot reconciliation failed")
	}
	return outcomes, nil
}

// ListLinks reports, per reserved link name, the directory it currently
// resolves to. Absent and broken links map to the empty string.
func (m *Manager) ListLinks(root string, f fork.Fork) map[string]string {
	info := make(map[string]string, len(AllSlots))
	for _, slot := range AllSlots {
		name := slot.LinkName(f)
		b := probe(m.fs, filepath.Join(root, name))
		if b.state == bindingSymlink {
			info[name] = b.target
		} else {
			info[name] = ""
		}
	}
	return info
}

// Relink recreates the family's links purely from the installed release
// directories. Unlike ManageLinks it requires at least one installed
// release to act on.
func (m *Manager) Relink(root string, f fork.Fork) (Outcomes, error) {
	candidates, err := ScanCandidates(m.fs, root, f, "")
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, errors.Newf(errors.ErrNoCandidates,
			"no valid %s versions found in %s to relink", f, root)
	}

	m.log.Info().Str("fork", string(f)).Msg("Relinking symlinks")
	return Reconcile(m.fs, root, f, BuildPlan(candidates)), nil
}

// UpToDate reports whether every slot already matches what ManageLinks
// would produce, letting callers skip reconciliation entirely.
func (m *Manager) UpToDate(root string, f fork.Fork, manualTag string) bool {
	candidates, err := ScanCandidates(m.fs, root, f, manualTag)
	if err != nil || len(candidates) == 0 {
		return false
	}

	plan := BuildPlan(candidates)
	for _, slot := range AllSlots {
		b := probe(m.fs, filepath.Join(root, slot.LinkName(f)))
		target, wanted := plan[slot]
		if wanted {
			if b.state != bindingSymlink || !sameDir(b.target, target) {
				return false
			}
		} else if b.state != bindingAbsent {
			return false
		}
	}
	return true
}

// RemoveRelease deletes one installed release directory (resolved under
// either naming convention), drops any reserved links that point at it,
// and re-runs the full ManageLinks flow so the slots stay consistent.
func (m *Manager) RemoveRelease(root, tag string, f fork.Fork) (Outcomes, error) {
	releasePath := filepath.Join(root, tag)
	if !isRealDir(m.fs, releasePath) {
		if prefix := f.DirPrefix(); prefix != "" {
			prefixed := filepath.Join(root, prefix+tag)
			if isRealDir(m.fs, prefixed) {
				releasePath = prefixed
			}
		}
	}
	if !isRealDir(m.fs, releasePath) {
		return nil, errors.Newf(errors.ErrNotFound, "release directory does not exist: %s", releasePath)
	}

	// Links resolving to the release are dropped along with it; broken
	// links are swept too since the following ManageLinks would anyway.
	var stale []string
	for _, slot := range AllSlots {
		link := filepath.Join(root, slot.LinkName(f))
		switch b := probe(m.fs, link); b.state {
		case bindingSymlink:
			if sameDir(b.target, releasePath) {
				stale = append(stale, link)
			}
		case bindingBroken:
			stale = append(stale, link)
		}
	}

	if err := m.fs.RemoveAll(releasePath); err != nil {
		return nil, errors.Wrapf(err, errors.ErrDirRemove, "failed to remove release directory %s", releasePath)
	}
	m.log.Info().Str("release", releasePath).Msg("Removed release directory")

	for _, link := range stale {
		if err := m.fs.Remove(link); err != nil {
			m.log.Error().Err(err).Str("link", link).Msg("Failed to remove symbolic link")
			continue
		}
		m.log.Info().Str("link", link).Msg("Removed symbolic link")
	}

	return m.ManageLinks(root, f, "")
}
