package instcache

import (
	"path/filepath"
	"testing"
)

func TestIsURLDetectsRemoteDSNs(t *testing.T) {
	cases := map[string]bool{
		"cache.db":                  false,
		"./build/cache.sqlite":      false,
		"libsql://example.turso.io": true,
		"https://example.turso.io":  true,
		"http://localhost:8080":     true,
	}
	for dsn, want := range cases {
		if got := isURL(dsn); got != want {
			t.Errorf("isURL(%q) = %v, want %v", dsn, got, want)
		}
	}
}

func TestConnectSQLiteCreatesFileAndMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.sqlite")

	db, err := ConnectSQLite(path, false)
	if err != nil {
		t.Fatalf("ConnectSQLite failed: %v", err)
	}
	defer cleanupTestDB(db)

	c := New(db)
	if err := c.Record("Box", "T:4#0", KindClass, "Box$a1b2c3d4"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	row, found, err := c.Lookup("Box", "T:4#0")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if !found {
		t.Fatalf("expected to find the recorded instantiation")
	}
	if row.MangledName != "Box$a1b2c3d4" {
		t.Errorf("expected mangled name Box$a1b2c3d4, got %q", row.MangledName)
	}
}
