// Package promptvault is the composition root of a local prompt library.
//
// It wires the core domain (prompts, notes, the Library handle and its
// Service) to a storage collaborator: a directory of JSON files, a SQLite
// database, or memory.
//
// Features:
//
//   - **Explicit state**: the library moves between memory and storage only
//     through Load and Persist; a failed write reverts the in-memory change.
//   - **Versioned snapshots**: exports carry a version, a timestamp and
//     derived statistics; imports are validated before they touch anything.
//   - **Safe merge**: new prompts are appended, every duplicate ID is decided
//     by a Decider, notes are unioned, and a failed write is rolled back to
//     the exact stored bytes.
//   - **Two-key atomicity**: stores that support transactions write prompts
//     and notes as one unit.
//
// Usage:
//
//	svc, err := promptvault.New(ctx, ".promptvault", promptvault.WithLogger(logger))
//	p, err := svc.AddPrompt(ctx, "Summarize", "Summarize the text below.", "gpt-4")
//
//	data, err := promptvault.Export(svc)
//	res, err := promptvault.Import(ctx, other, data, reconcile.KeepAll)
package promptvault
