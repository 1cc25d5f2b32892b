// Package dispatch owns the provider connections, merges their tools into a
// single name-unique registry and routes calls to the owning connection.
//
// Invariants:
// - Tool names are unique across providers; a duplicate fails Open.
// - Unknown names never reach a provider.
// - A transport failure moves the owning connection to broken, and broken
//   connections are never reconnected or called again.
// - Calls to sessions that do not multiplex are serialized per connection.
package dispatch
