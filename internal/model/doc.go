// Package model defines the domain types and wire shapes for the coredeck CLI.
//
// This package contains pure data structures with no external dependencies.
// The backend owns all persistent state; the types here (Status, TreeListing,
// ContainersMap, AppDescriptor, etc.) are transient representations decoded
// from its HTTP responses.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
