// Package filesystem provides filesystem implementations for protonfetcher.
//
// This package contains implementations of the types.FS interface,
// currently just the standard OS filesystem.
package filesystem
