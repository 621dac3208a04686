// Package links maintains the fixed set of stable-named symlinks that point
// at the newest installed Proton releases for one family.
//
// All state is re-derived from the filesystem on every call: a directory
// listing becomes ranked candidates, the ranking becomes a desired
// slot-to-directory plan, and the reconciler converges the on-disk links to
// that plan. The whole operation is idempotent given a stable filesystem.
// Release directories are never deleted by reconciliation; only the three
// reserved link names are ever mutated.
package links
