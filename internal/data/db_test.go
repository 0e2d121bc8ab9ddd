// Package data provides tests for the SQLite data access layer.
package data

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestOpen verifies database initialization with various scenarios.
func TestOpen(t *testing.T) {
	t.Run("creates database in valid directory", func(t *testing.T) {
		tmpDir := t.TempDir()

		store, err := Open(tmpDir)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		defer store.Close()

		dbPath := filepath.Join(tmpDir, "skilltrace.db")
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("database file not created")
		}

		if err := store.Health(); err != nil {
			t.Errorf("health check failed: %v", err)
		}
	})

	t.Run("creates nested directory structure", func(t *testing.T) {
		tmpDir := t.TempDir()
		nestedDir := filepath.Join(tmpDir, "deep", "nested", "skilltrace")

		store, err := Open(nestedDir)
		if err != nil {
			t.Fatalf("Open with nested dir failed: %v", err)
		}
		defer store.Close()

		if _, err := os.Stat(nestedDir); os.IsNotExist(err) {
			t.Error("nested directory not created")
		}
	})

	t.Run("idempotent migrations", func(t *testing.T) {
		tmpDir := t.TempDir()

		store1, err := Open(tmpDir)
		if err != nil {
			t.Fatalf("first Open failed: %v", err)
		}
		store1.Close()

		store2, err := Open(tmpDir)
		if err != nil {
			t.Fatalf("second Open failed: %v", err)
		}
		defer store2.Close()

		if err := store2.Migrate(); err != nil {
			t.Errorf("re-running migrations failed: %v", err)
		}
	})
}

// TestSplitSQL verifies statement splitting against the embedded
// schemas, whose header comments contain semicolons mid-sentence.
func TestSplitSQL(t *testing.T) {
	t.Run("semicolons inside comments do not split statements", func(t *testing.T) {
		schema := "-- first line; second clause\n" +
			"CREATE TABLE a (id INTEGER);\n" +
			"-- another comment; with a semicolon\n" +
			"CREATE TABLE b (id INTEGER);\n"

		var stmts []string
		for _, stmt := range splitSQL(schema) {
			if s := strings.TrimSpace(stmt); s != "" {
				stmts = append(stmts, s)
			}
		}

		if len(stmts) != 2 {
			t.Fatalf("expected 2 statements, got %d: %q", len(stmts), stmts)
		}
		for _, stmt := range stmts {
			if !strings.HasPrefix(stmt, "CREATE TABLE") {
				t.Errorf("unexpected statement fragment: %q", stmt)
			}
		}
	})

	t.Run("embedded schemas yield only executable statements", func(t *testing.T) {
		for _, schema := range []string{initialSchema, activeSessionsSchema} {
			for _, stmt := range splitSQL(schema) {
				stmt = strings.TrimSpace(stmt)
				if stmt == "" {
					continue
				}
				if !strings.HasPrefix(stmt, "CREATE ") {
					t.Errorf("non-statement fragment survived splitting: %q", stmt)
				}
			}
		}
	})
}

func TestClose(t *testing.T) {
	t.Run("close is safe to call", func(t *testing.T) {
		store, err := Open(t.TempDir())
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}

		if err := store.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
}
