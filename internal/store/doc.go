// Package store persists the award pipeline in a single SQLite file.
//
// A Store is opened once per run and guarded by a lock file so two runs never
// write the same database. Stages read a Snapshot of every table, stage their
// changes in a Batch, and hand it to Commit, which applies the whole batch in
// one transaction or nothing at all. Typed settings are resolved through the
// Settings map; a key without a value reports ErrSettingNotSet naming it.
package store
