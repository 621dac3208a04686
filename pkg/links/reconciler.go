package links

import (
	"io/fs"
	"path/filepath"

	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/errors"
	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/fork"
	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/logging"
	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/types"
)

// Status classifies the result of reconciling one slot
type Status string

const (
	// StatusOK means the slot ended up bound to its desired target (or was
	// already correctly unbound)
	StatusOK Status = "ok"

	// StatusRemoved means a stale binding was removed and the slot is unbound
	StatusRemoved Status = "removed"

	// StatusFailed means a filesystem mutation for this slot failed; other
	// slots are unaffected
	StatusFailed Status = "failed"
)

// Outcome records what happened to one slot during reconciliation
type Outcome struct {
	Slot     Slot
	LinkName string
	Target   string
	Status   Status
	Err      error
}

// Outcomes aggregates per-slot results; a reconcile call never fails as a
// whole because one slot did
type Outcomes map[Slot]Outcome

// Failed returns the outcomes that recorded an error
func (o Outcomes) Failed() []Outcome {
	var failed []Outcome
	for _, slot := range AllSlots {
		if out, ok := o[slot]; ok && out.Status == StatusFailed {
			failed = append(failed, out)
		}
	}
	return failed
}

// bindingState is the observed condition of a reserved link name
type bindingState int

const (
	bindingAbsent bindingState = iota
	bindingSymlink
	bindingBroken
	bindingCollision // occupied by a real directory or file
)

type binding struct {
	state bindingState
	// resolved absolute target; only meaningful for bindingSymlink
	target string
}

// Reconcile converges the family's three reserved link names onto the plan.
// Slots absent from the plan are unbound; slots in the plan are bound to
// their target via a directory symlink. Each slot is handled independently:
// a failure is recorded in its outcome and never aborts the remaining slots.
// Desired target directories are never deleted.
func Reconcile(fsys types.FS, root string, f fork.Fork, plan Plan) Outcomes {
	logger := logging.GetLogger("links.reconciler")
	outcomes := make(Outcomes, len(AllSlots))

	// A directory that is itself a planned target may occupy a link name
	// (degenerate candidates can carry reserved names). It must survive.
	desired := make(map[string]bool, len(plan))
	for _, target := range plan {
		desired[filepath.Clean(target)] = true
	}

	// Unassign pass first so every desired name is free before use.
	for _, slot := range AllSlots {
		if _, wanted := plan[slot]; wanted {
			continue
		}
		link := filepath.Join(root, slot.LinkName(f))
		out := Outcome{Slot: slot, LinkName: slot.LinkName(f)}

		switch b := probe(fsys, link); b.state {
		case bindingAbsent:
			out.Status = StatusOK
		case bindingSymlink, bindingBroken:
			if err := fsys.Remove(link); err != nil {
				out.Status = StatusFailed
				out.Err = errors.Wrapf(err, errors.ErrFileAccess, "failed to remove stale link %s", slot.LinkName(f))
			} else {
				out.Status = StatusRemoved
				logger.Info().Str("link", slot.LinkName(f)).Msg("Removed stale symlink")
			}
		case bindingCollision:
			if desired[filepath.Clean(link)] {
				out.Status = StatusOK
				break
			}
			if err := fsys.RemoveAll(link); err != nil {
				out.Status = StatusFailed
				out.Err = errors.Wrapf(err, errors.ErrDirRemove, "failed to remove directory occupying %s", slot.LinkName(f))
			} else {
				out.Status = StatusRemoved
				logger.Info().Str("link", slot.LinkName(f)).Msg("Removed directory occupying link name")
			}
		}
		outcomes[slot] = out
	}

	// Assign pass.
	for _, slot := range AllSlots {
		target, wanted := plan[slot]
		if !wanted {
			continue
		}
		link := filepath.Join(root, slot.LinkName(f))
		out := Outcome{Slot: slot, LinkName: slot.LinkName(f), Target: target}

		b := probe(fsys, link)
		if b.state == bindingSymlink && sameDir(b.target, target) {
			out.Status = StatusOK
			outcomes[slot] = out
			continue
		}

		if b.state == bindingCollision && desired[filepath.Clean(link)] {
			out.Status = StatusFailed
			out.Err = errors.Newf(errors.ErrSymlinkCreate,
				"link name %s is occupied by a planned release directory", slot.LinkName(f))
			outcomes[slot] = out
			logger.Error().Str("link", slot.LinkName(f)).Msg("Link name occupied by a planned release directory")
			continue
		}

		if err := clearSlot(fsys, link, b); err != nil {
			out.Status = StatusFailed
			out.Err = err
			outcomes[slot] = out
			logger.Error().Err(err).Str("link", slot.LinkName(f)).Msg("Failed to clear link name")
			continue
		}

		if err := fsys.Symlink(linkTarget(link, target), link); err != nil {
			out.Status = StatusFailed
			out.Err = errors.Wrapf(err, errors.ErrSymlinkCreate,
				"failed to create symlink %s -> %s", slot.LinkName(f), filepath.Base(target))
			logger.Error().Err(err).
				Str("link", slot.LinkName(f)).
				Str("target", filepath.Base(target)).
				Msg("Failed to create symlink")
		} else {
			out.Status = StatusOK
			logger.Info().
				Str("link", slot.LinkName(f)).
				Str("target", filepath.Base(target)).
				Msg("Created symlink")
		}
		outcomes[slot] = out
	}

	return outcomes
}

// probe reads the current state of a link name with explicit checks rather
// than error-driven control flow. A dangling symlink is broken, not an error.
func probe(fsys types.FS, link string) binding {
	fi, err := fsys.Lstat(link)
	if err != nil {
		return binding{state: bindingAbsent}
	}

	if fi.Mode()&fs.ModeSymlink == 0 {
		return binding{state: bindingCollision}
	}

	dest, err := fsys.Readlink(link)
	if err != nil {
		return binding{state: bindingBroken}
	}
	if !filepath.IsAbs(dest) {
		dest = filepath.Join(filepath.Dir(link), dest)
	}
	if _, err := fsys.Stat(dest); err != nil {
		return binding{state: bindingBroken}
	}
	return binding{state: bindingSymlink, target: dest}
}

// clearSlot removes whatever currently occupies a link name
func clearSlot(fsys types.FS, link string, b binding) error {
	switch b.state {
	case bindingAbsent:
		return nil
	case bindingSymlink, bindingBroken:
		if err := fsys.Remove(link); err != nil {
			return errors.Wrapf(err, errors.ErrFileAccess, "failed to remove symlink %s", link)
		}
	case bindingCollision:
		if err := fsys.RemoveAll(link); err != nil {
			return errors.Wrapf(err, errors.ErrDirRemove, "failed to remove %s", link)
		}
	}
	return nil
}

// linkTarget prefers a relative symlink when the target lives next to the
// link, which keeps the root directory relocatable
func linkTarget(link, target string) string {
	if filepath.Dir(link) == filepath.Dir(target) {
		return filepath.Base(target)
	}
	return target
}

func sameDir(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}
