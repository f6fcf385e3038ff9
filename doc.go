// Package cacheme implements a transparent read-through cache for relational
// data access. Query results are stored in a pluggable byte store keyed by
// entity type, cache tier and a fingerprint of the normalized statement;
// mutation events delete the affected entries again.
//
// Components:
//   - Backend: byte store with TTL (e.g. Redis, BigCache, Ristretto). Redis
//     additionally supports pattern deletion of fingerprinted keys.
//   - Codec[V]: (de)serializes row sets []V <-> []byte.
//   - Registry: per-entity caching options, populated once at startup.
//   - Proxy[V]: read-through wrapper around a query executor.
//   - Dispatcher: consumes mutation events and deletes affected keys.
//   - Invalidator: runs the dispatcher inline or defers it to a task queue,
//     gated on transaction commit, falling back to inline when the queue is
//     unreachable.
//
// Keys:
//
//	<ns>:table:<entity>                    - whole-table scans
//	<ns>:queryset:<entity>:<fingerprint>   - filtered queries
//	<ns>:permanent_table:<entity>          - as above, exempt from
//	<ns>:permanent_queryset:<entity>:<fp>    automatic invalidation
//
// Permanent tiers expire only via TTL or an explicit invalidate-all request.
package cacheme
