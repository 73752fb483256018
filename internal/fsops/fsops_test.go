package fsops_test

import (
	"reflect"
	"testing"

	"github.com/temirov/llm-prompter/internal/failure"
	"github.com/temirov/llm-prompter/internal/fsops"
)

func TestListAndOps_InMemory(t *testing.T) {
	store := fsops.NewMem()

	// Seed directories/files in memory
	if err := store.Fs.MkdirAll("/payload/.git", 0o755); err != nil {
		t.Fatalf("mkdir .git: %v", err)
	}
	for name, content := range map[string]string{
		"/payload/b.sql":         "select 2",
		"/payload/a.sql":         "select 1",
		"/payload/nested/c.sql":  "select 3",
		"/payload/.hidden":       "ignored",
		"/payload/.git/HEAD":     "ignored",
		"/elsewhere/outside.sql": "ignored",
	} {
		if err := store.WriteText(name, content); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	files, err := store.ListFiles("/payload")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	expected := []string{"a.sql", "b.sql", "nested/c.sql"}
	if !reflect.DeepEqual(files, expected) {
		t.Fatalf("expected %v, got %v", expected, files)
	}

	text, err := store.ReadText("/payload/nested/c.sql")
	if err != nil || text != "select 3" {
		t.Fatalf("read nested: %q %v", text, err)
	}

	if err := store.Delete("/payload/a.sql"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if store.FileExists("/payload/a.sql") {
		t.Fatalf("file should not exist after delete")
	}
	if err := store.Delete("/payload/a.sql"); err != nil {
		t.Fatalf("deleting a missing file must succeed: %v", err)
	}
	if !store.DirExists("/payload/nested") {
		t.Fatalf("nested dir should exist")
	}
}

func TestReadErrorsAreIO(t *testing.T) {
	store := fsops.NewMem()

	if _, err := store.ReadText("/missing.txt"); !failure.Is(err, failure.ErrIO) {
		t.Fatalf("expected io error, got %v", err)
	}
	if _, err := store.ListFiles("/missing"); !failure.Is(err, failure.ErrIO) {
		t.Fatalf("expected io error for missing dir, got %v", err)
	}

	text, ok, err := store.ReadTextIfExists("/missing.txt")
	if err != nil || ok || text != "" {
		t.Fatalf("missing file must be reported as absent: %q %v %v", text, ok, err)
	}
}
