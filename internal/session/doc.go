// Package session implements the stage/abort/finalize lifecycle for file
// transformations.
//
// Staging relocates a source file and its recipe's declared requirement files
// into an isolated working directory next to the source, leaving behind two
// plain-text records: the requires manifest (which auxiliary files moved, so
// abort can move them back) and the origin sidecar (where the input came
// from, so nothing ever has to be recovered by parsing directory names).
// Abort restores the pre-stage layout and deletes the working directory;
// finalize promotes the recipe's declared outputs first and then aborts.
//
// A session's working directory name doubles as a mutual-exclusion key: a
// flock under the state directory prevents two simultaneous stagings of the
// same source. The registry keeps plain-text pointers to active working
// directories so they can be listed and pruned later.
package session
