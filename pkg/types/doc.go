// Package types defines the core interfaces shared across protonfetcher.
// Currently this is the FS filesystem abstraction that lets the link
// reconciler and archive extractor run against injectable filesystems.
package types
