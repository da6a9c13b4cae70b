// Package state persists per-user tracker state as JSON documents.
//
// Each user has one file under <data_dir>/users/<id>.json. Writes go to a
// temporary file that is renamed into place, so a crash never leaves a
// half-written document behind.
package state
