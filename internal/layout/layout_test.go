package layout

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	d := New("/tmp/tashodb-test")
	if d.Root() != "/tmp/tashodb-test" {
		t.Errorf("expected root /tmp/tashodb-test, got %s", d.Root())
	}
}

func TestPropertiesPath(t *testing.T) {
	d := New("/data")
	if got := d.PropertiesPath("properties"); got != "/data/properties" {
		t.Errorf("got %s", got)
	}
}

func TestTableIndexPath(t *testing.T) {
	d := New("/data")
	if got := d.TableIndexPath("tables"); got != "/data/tables" {
		t.Errorf("got %s", got)
	}
}

func TestChunkPath(t *testing.T) {
	d := New("/data")
	got, err := d.ChunkPath("users-deadbeef")
	if err != nil {
		t.Fatalf("ChunkPath: %v", err)
	}
	if got != "/data/users-deadbeef" {
		t.Errorf("got %s", got)
	}
}

func TestChunkPathRejectsSeparators(t *testing.T) {
	d := New("/data")
	for _, bad := range []string{"../escape", "a/b", "a\\b", "", "."} {
		if _, err := d.ChunkPath(bad); err == nil {
			t.Errorf("ChunkPath(%q): expected error, got nil", bad)
		}
	}
}

func TestFieldIndexPath(t *testing.T) {
	d := New("/data")
	got, err := d.FieldIndexPath("users", "email")
	if err != nil {
		t.Fatalf("FieldIndexPath: %v", err)
	}
	if got != "/data/users-email.index" {
		t.Errorf("got %s", got)
	}
}

func TestFieldIndexPathRejectsSeparators(t *testing.T) {
	d := New("/data")
	if _, err := d.FieldIndexPath("../users", "email"); err == nil {
		t.Error("expected error for table name with path separator")
	}
	if _, err := d.FieldIndexPath("users", "../email"); err == nil {
		t.Error("expected error for field name with path separator")
	}
}

func TestEnsureExists(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "db")
	d := New(root)
	if err := d.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists: %v", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected directory")
	}

	// Calling again should be idempotent.
	if err := d.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists (idempotent): %v", err)
	}
}
