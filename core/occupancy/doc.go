// Package occupancy tracks room and candidate usage for one scheduling run.
//
// A Table is owned by a single day run and is not safe for concurrent use.
// Every mutation is recorded on an undo trail so searches can roll back to a
// Mark without copying state.
package occupancy
