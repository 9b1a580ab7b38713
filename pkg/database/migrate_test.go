package database

import (
	"reflect"
	"testing"
	"testing/fstest"
)

func TestMigrationNames(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/002_exports.sql": {Data: []byte("SELECT 1")},
		"migrations/001_schema.sql":  {Data: []byte("SELECT 1")},
		"migrations/README.md":       {Data: []byte("notes")},
	}
	got, err := migrationNames(fsys)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"001_schema.sql", "002_exports.sql"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPending(t *testing.T) {
	got := pending([]string{"001.sql", "002.sql", "003.sql"}, []string{"002.sql"})
	want := []string{"001.sql", "003.sql"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if len(pending([]string{"001.sql"}, []string{"001.sql"})) != 0 {
		t.Error("applied migrations must be skipped")
	}
}

func TestEmbeddedSchema(t *testing.T) {
	names, err := migrationNames(migrationsFS)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) == 0 || names[0] != "001_schema.sql" {
		t.Errorf("unexpected embedded migrations %v", names)
	}
}
