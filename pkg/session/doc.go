// Package session holds per-session agent state: the retry budget, the
// append-only step memory and its JSONL persistence, plus the cross-session
// log of successful answers.
//
// Invariants:
// - Session ids are validated and path-safe.
// - Writes for the same session are serialized.
// - Memory and persisted records are append-only; nothing rewrites a step.
//
// Usage:
//
//	store, _ := session.NewStore("/tmp/cortex/sessions")
//	_ = store.Append(ctx, "s1", session.StepRecord{Index: 1, Query: "hello", Verdict: session.VerdictFinal})
//	records, _ := store.Load(ctx, "s1")
//	_ = records
package session
