// Package events defines the progress notifications emitted while a run
// advances.
//
// Checkpoints, in the order a day reaches them:
//   - groups_formed: batched groups exist for the day
//   - batched_assigned: batched blocks are placed
//   - individual_assigned: per-candidate placement finished
//   - day_done: the day result is final
//
// The iterative scheduler additionally emits phase_done after each phase.
package events
