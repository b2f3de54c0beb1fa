package duckdb

import (
	"os"
)

type DuckDBStorageOption interface {
	apply(*DuckDBStorage) error
}

// snapshotPathOption is an option to set the path to store snapshots.
// when enabled, the storage exports the database under this path on
// shutdown.
type snapshotPathOption string

func (s snapshotPathOption) apply(d *DuckDBStorage) error {
	d.snapshotPath = string(s)
	return nil
}

func WithSnapshotPath(path string) DuckDBStorageOption {
	return snapshotPathOption(path)
}

// restoreOption is an option to restore the database from the most recent
// snapshot on startup.
type restoreOption string

func (r restoreOption) apply(d *DuckDBStorage) error {
	d.snapshotPath = string(r)
	return d.restore(d.snapshotPath)
}

func WithRestore(path string) DuckDBStorageOption {
	return restoreOption(path)
}

// createSnapshotDirOption is an option to create the snapshot directory if it doesn't exist.
type createSnapshotDirOption bool

func (c createSnapshotDirOption) apply(d *DuckDBStorage) error {
	if bool(c) && d.snapshotPath != "" {
		return os.MkdirAll(d.snapshotPath, 0755)
	}
	return nil
}

func WithCreateSnapshotDir(create bool) DuckDBStorageOption {
	return createSnapshotDirOption(create)
}
