// Package index maintains a disposable SQLite view over the changelog
// artifacts of past runs. The JSON artifacts remain the source of
// truth; the index is rebuilt whenever an artifact is newer than the
// database file.
package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/jensroland/rebasebot/internal/changelog"
	"github.com/jensroland/rebasebot/internal/project"
)

// MergeRow mirrors a row from the merges table.
type MergeRow struct {
	ID           int
	RunID        string
	TargetFile   string
	RejFile      string
	PatchName    string
	Ts           string
	Status       string
	ConflictType string
	Explanation  string
	Score        int
}

// AppliedRow mirrors a row from the applied table.
type AppliedRow struct {
	ID        int
	RunID     string
	File      string
	PatchType string
	Step      string
	Ts        string
}

// IsStale returns true if the index needs rebuilding.
func IsStale(paths project.Paths) bool {
	info, err := os.Stat(paths.IndexDB)
	if err != nil {
		return true
	}
	indexMtime := info.ModTime()

	entries, err := os.ReadDir(paths.ArtifactDir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !isChangelogArtifact(e.Name()) {
			continue
		}
		fInfo, err := e.Info()
		if err != nil {
			continue
		}
		if fInfo.ModTime().After(indexMtime) {
			return true
		}
	}
	return false
}

func isChangelogArtifact(name string) bool {
	return strings.HasPrefix(name, "changelog_") && strings.HasSuffix(name, ".json")
}

// Rebuild drops and recreates the SQLite index from changelog artifacts.
func Rebuild(paths project.Paths, quiet bool) (*sql.DB, error) {
	_ = os.MkdirAll(paths.CacheDir, 0o755)
	_ = os.Remove(paths.IndexDB)

	db, err := sql.Open("sqlite", paths.IndexDB)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE merges (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			target_file TEXT NOT NULL,
			rej_file TEXT,
			patch_name TEXT,
			ts TEXT,
			status TEXT NOT NULL,
			conflict_type TEXT,
			explanation TEXT,
			score INTEGER
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create merges table: %w", err)
	}
	_, err = db.Exec(`
		CREATE TABLE applied (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			file TEXT NOT NULL,
			patch_type TEXT,
			step TEXT,
			ts TEXT
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create applied table: %w", err)
	}

	for _, idx := range []string{
		"CREATE INDEX idx_merges_file ON merges(target_file)",
		"CREATE INDEX idx_merges_run ON merges(run_id)",
		"CREATE INDEX idx_applied_file ON applied(file)",
		"CREATE INDEX idx_applied_run ON applied(run_id)",
	} {
		if _, err := db.Exec(idx); err != nil {
			db.Close()
			return nil, fmt.Errorf("create index: %w", err)
		}
	}

	recordCount := 0
	fileCount := 0

	if _, err := os.Stat(paths.ArtifactDir); err == nil {
		entries, _ := os.ReadDir(paths.ArtifactDir)
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Name() < entries[j].Name()
		})

		tx, err := db.Begin()
		if err != nil {
			db.Close()
			return nil, err
		}

		mergeStmt, err := tx.Prepare(`
			INSERT INTO merges
			(run_id, target_file, rej_file, patch_name, ts, status, conflict_type, explanation, score)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			tx.Rollback()
			db.Close()
			return nil, err
		}
		defer mergeStmt.Close()

		appliedStmt, err := tx.Prepare(`
			INSERT INTO applied (run_id, file, patch_type, step, ts)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			tx.Rollback()
			db.Close()
			return nil, err
		}
		defer appliedStmt.Close()

		for _, e := range entries {
			if !isChangelogArtifact(e.Name()) {
				continue
			}
			data, err := os.ReadFile(filepath.Join(paths.ArtifactDir, e.Name()))
			if err != nil {
				continue
			}
			var log changelog.Changelog
			if err := json.Unmarshal(data, &log); err != nil {
				continue
			}
			fileCount++

			for _, m := range log.ThreeWayMerges {
				mergeStmt.Exec(log.RunID, m.TargetFile, m.RejFile, m.PatchName,
					m.Timestamp, m.Status, m.ConflictType, m.Explanation, m.Score)
				recordCount++
			}
			for _, a := range log.PatchesApplied {
				appliedStmt.Exec(log.RunID, a.File, a.PatchType, a.Step, a.Timestamp)
				recordCount++
			}
		}

		if err := tx.Commit(); err != nil {
			db.Close()
			return nil, err
		}
	}

	if !quiet {
		fmt.Fprintf(os.Stderr, "\033[2mIndex rebuilt: %d records from %d changelogs\033[0m\n\n", recordCount, fileCount)
	}

	return db, nil
}

// Open returns a database connection, rebuilding the index if stale.
func Open(paths project.Paths, forceRebuild bool) (*sql.DB, error) {
	if forceRebuild || IsStale(paths) {
		return Rebuild(paths, false)
	}
	db, err := sql.Open("sqlite", paths.IndexDB)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// MergesForFile returns every recorded merge attempt for a file, most
// recent first. An empty file matches all rows.
func MergesForFile(db *sql.DB, file string) ([]MergeRow, error) {
	query := `SELECT id, run_id, target_file, rej_file, patch_name, ts,
		status, conflict_type, explanation, score FROM merges`
	var args []any
	if file != "" {
		query += " WHERE target_file LIKE ?"
		args = append(args, "%"+file+"%")
	}
	query += " ORDER BY ts DESC, id DESC"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MergeRow
	for rows.Next() {
		var r MergeRow
		if err := rows.Scan(&r.ID, &r.RunID, &r.TargetFile, &r.RejFile, &r.PatchName,
			&r.Ts, &r.Status, &r.ConflictType, &r.Explanation, &r.Score); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AppliedForFile returns every recorded application for a file, most
// recent first. An empty file matches all rows.
func AppliedForFile(db *sql.DB, file string) ([]AppliedRow, error) {
	query := `SELECT id, run_id, file, patch_type, step, ts FROM applied`
	var args []any
	if file != "" {
		query += " WHERE file LIKE ?"
		args = append(args, "%"+file+"%")
	}
	query += " ORDER BY ts DESC, id DESC"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AppliedRow
	for rows.Next() {
		var r AppliedRow
		if err := rows.Scan(&r.ID, &r.RunID, &r.File, &r.PatchType, &r.Step, &r.Ts); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
