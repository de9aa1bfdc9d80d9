package db

import (
	"testing"
	"testing/fstest"
)

func TestMigratorLoadSortsAndSkips(t *testing.T) {
	files := fstest.MapFS{
		"010_late.sql":  {Data: []byte("SELECT 10;")},
		"001_init.sql":  {Data: []byte("CREATE TABLE t (id TEXT);")},
		"002_index.sql": {Data: []byte("SELECT 2;")},
		"README.md":     {Data: []byte("docs")},
		"notes.sql":     {Data: []byte("SELECT 0;")},
	}

	migrations, err := NewMigrator(nil, files).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[1].Version != 2 || migrations[2].Version != 10 {
		t.Fatalf("unexpected order: %+v", migrations)
	}
	if migrations[0].SQL != "CREATE TABLE t (id TEXT);" {
		t.Fatalf("unexpected sql: %q", migrations[0].SQL)
	}
}

func TestMigratorLoadRejectsDuplicateVersions(t *testing.T) {
	files := fstest.MapFS{
		"001_a.sql": {Data: []byte("SELECT 1;")},
		"001_b.sql": {Data: []byte("SELECT 1;")},
	}
	if _, err := NewMigrator(nil, files).Load(); err == nil {
		t.Fatalf("expected duplicate version error")
	}
}
