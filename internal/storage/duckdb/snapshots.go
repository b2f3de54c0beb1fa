package duckdb

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// snapshotLayout names each snapshot directory; lexical order is time order.
const snapshotLayout = "2006-01-02T15-04-05"

// SnapshotParquet writes the database as Parquet files into a new directory
// under path and returns that directory.
func (d *DuckDBStorage) SnapshotParquet(ctx context.Context, path string) (string, error) {
	dir := filepath.Join(path, time.Now().Format(snapshotLayout))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating snapshot directory: %w", err)
	}

	// Only the SQL literal is quoted; the filesystem keeps the real name.
	literal := strings.ReplaceAll(dir, "'", "''")
	if _, err := d.db.ExecContext(ctx, fmt.Sprintf(`EXPORT DATABASE '%s' (FORMAT PARQUET)`, literal)); err != nil {
		return "", fmt.Errorf("exporting snapshot to %s: %w", dir, err)
	}
	log.Info().Str("dir", dir).Msg("Snapshot written")
	return dir, nil
}

// RestoreParquet replays schema.sql and load.sql from a snapshot directory.
func (d *DuckDBStorage) RestoreParquet(dir string) error {
	for _, name := range []string{"schema.sql", "load.sql"} {
		if err := d.executeSQLFile(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("restoring %s from %s: %w", name, dir, err)
		}
	}
	log.Info().Str("dir", dir).Msg("Snapshot restored")
	return nil
}

// executeSQLFile runs the statements of an exported .sql file one by one.
// EXPORT DATABASE ends every statement with a semicolon at end of line.
func (d *DuckDBStorage) executeSQLFile(name string) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	var stmt strings.Builder
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		stmt.WriteString(line)
		stmt.WriteByte('\n')
		if !strings.HasSuffix(strings.TrimSpace(line), ";") {
			continue
		}
		if _, err := d.db.Exec(stmt.String()); err != nil {
			return fmt.Errorf("%s: %w", firstLine(stmt.String()), err)
		}
		stmt.Reset()
	}
	return scanner.Err()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

// restore loads the newest snapshot under path.
func (d *DuckDBStorage) restore(path string) error {
	dir, err := findMostRecentSnapshotDir(path)
	if err != nil {
		return err
	}
	return d.RestoreParquet(dir)
}

// findMostRecentSnapshotDir returns the newest snapshot directory under
// path, relying on snapshotLayout sorting by time.
func findMostRecentSnapshotDir(path string) (string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return "", err
	}

	newest := ""
	for _, entry := range entries {
		if entry.IsDir() && entry.Name() > newest {
			newest = entry.Name()
		}
	}
	if newest == "" {
		return "", fmt.Errorf("no snapshot directories found in %s", path)
	}
	return filepath.Join(path, newest), nil
}
