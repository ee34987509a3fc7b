// Package store provides SQLite-backed persistence for form definitions
// and completed submissions.
//
// Forms are addressed by id and stored as one JSON document each. The
// traversal engine never reads the store directly; callers load a form,
// start a session over it, and hand the finished answer set back through
// WriteSubmission.
//
// # Ordering
//
//   - Forms list in id order.
//   - Submissions list in seq order, a logical clock assigned on insert.
//     Wall-clock submitted_at is recorded but never used for ordering.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Deleting a form deletes its submissions
package store
