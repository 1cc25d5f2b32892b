// Package gate composes heuristic rules into immutable pipelines, one per
// class of untrusted content, and validates strings against them.
//
// Invariants:
// - A Gate is a pure function of its pipelines: it never logs, retries or
//   mutates state, and is safe for concurrent use.
// - The first block failure halts the pipeline with an empty value.
// - Sanitizers only ever see text that passed every earlier rule.
package gate
