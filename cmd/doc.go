// Package cmd implements the command-line interface for dCol. It provides a
// hierarchical command structure for working with remote collections from the
// shell.
//
// The package is organized into several subpackages:
//
//   - dict: Commands for mapping operations (set, get, del, keys, etc.)
//   - list: Commands for sequence operations (append, insert, slice, sort, etc.)
//   - lock: Commands for the cooperative collection lock (acquire, release, status)
//   - bench: Benchmarks against a store
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every command reads its connection settings from flags, from DCOL_* environment
// variables and from .env / .env.local files in the working directory.
//
// See dcol -help for a list of all commands.
package cmd
