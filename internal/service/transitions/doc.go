// Package transitions implements the pipeline state machine executor.
//
// Every status mutation in the system flows through Service: it checks
// the caller's expected version first (stale callers get a conflict, not
// a stale guard verdict), then the guard (edge, role, preconditions),
// then applies the status change, version bump, and one transition
// record atomically.
//
// Concurrency is handled without locks: concurrent attempts against the
// same expected version race on the repository's compare-and-swap, and
// exactly one wins. Losers receive Conflict and must re-read and retry.
//
// Auditing:
//   - Successful transitions append exactly one trail record, in the
//     same unit of work as the status write.
//   - Denied or conflicted attempts mutate nothing and append nothing.
package transitions
