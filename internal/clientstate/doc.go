// Package clientstate persists per-reader playback state in SQLite: the
// global mute flag and the last page reached in each volume.
//
// The database lives at <state_dir>/panelreel.db. Open migrates older
// databases forward (settings first, reading progress second). A database
// written by a newer build is reported as ErrSchemaMismatch.
package clientstate
