package cache

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

func openTemp(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "nested", "artifacts.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCache_PutGet(t *testing.T) {
	c := openTemp(t)
	ctx := context.Background()

	if _, ok, err := c.Get(ctx, KindSource, "k"); err != nil || ok {
		t.Fatalf("Get on empty cache = %v, %v; want miss", ok, err)
	}
	if err := c.Put(ctx, KindSource, "k", Artifact{Data: []byte("package main"), Meta: []byte("filename: m.go")}); err != nil {
		t.Fatal(err)
	}
	a, ok, err := c.Get(ctx, KindSource, "k")
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v; want hit", ok, err)
	}
	if string(a.Data) != "package main" {
		t.Errorf("Data = %q, want %q", a.Data, "package main")
	}
	if string(a.Meta) != "filename: m.go" {
		t.Errorf("Meta = %q, want %q", a.Meta, "filename: m.go")
	}

	// Kinds are separate namespaces.
	if _, ok, _ := c.Get(ctx, KindObject, "k"); ok {
		t.Error("object lookup hit a source artifact")
	}

	if err := c.Put(ctx, KindSource, "k", Artifact{Data: []byte("v2")}); err != nil {
		t.Fatal(err)
	}
	a, _, _ = c.Get(ctx, KindSource, "k")
	if string(a.Data) != "v2" || a.Meta != nil {
		t.Errorf("after overwrite = %q, %q; want %q and no metadata", a.Data, a.Meta, "v2")
	}
}

func TestCache_Clean(t *testing.T) {
	c := openTemp(t)
	ctx := context.Background()
	for _, k := range []string{"a", "b"} {
		if err := c.Put(ctx, KindObject, k, Artifact{Data: []byte(k)}); err != nil {
			t.Fatal(err)
		}
	}
	n, err := c.Clean(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Clean removed %d, want 2", n)
	}
	if _, ok, _ := c.Get(ctx, KindObject, "a"); ok {
		t.Error("artifact survived Clean")
	}
}

func TestCache_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifacts.db")
	ctx := context.Background()
	c, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Put(ctx, KindSource, "k", Artifact{Data: []byte("x")}); err != nil {
		t.Fatal(err)
	}
	c.Close()

	c, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if _, ok, _ := c.Get(ctx, KindSource, "k"); !ok {
		t.Error("artifact lost across reopen")
	}
}

func TestOpen_RebuildsOldLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifacts.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	for _, stmt := range []string{
		`CREATE TABLE artifacts (kind TEXT, key TEXT, data BLOB, created INTEGER, PRIMARY KEY (kind, key))`,
		`INSERT INTO artifacts VALUES ('source', 'k', x'00', 0)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatal(err)
		}
	}
	db.Close()

	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()
	ctx := context.Background()
	if _, ok, err := c.Get(ctx, KindSource, "k"); err != nil || ok {
		t.Errorf("Get after rebuild = %v, %v; want a clean miss", ok, err)
	}
	if err := c.Put(ctx, KindSource, "k", Artifact{Data: []byte("x"), Meta: []byte("m")}); err != nil {
		t.Errorf("Put after rebuild: %v", err)
	}
}

func TestKey(t *testing.T) {
	t.Parallel()
	base := Key([]byte("module: m"), "ssa", "program")

	if got := Key([]byte("module: m"), "ssa", "program"); got != base {
		t.Errorf("Key is not deterministic: %s vs %s", got, base)
	}
	if len(base) != 32 {
		t.Errorf("len(Key) = %d, want 32", len(base))
	}

	differs := []struct {
		name string
		key  string
	}{
		{"input", Key([]byte("module: n"), "ssa", "program")},
		{"option", Key([]byte("module: m"), "structural", "program")},
		{"boundary", Key([]byte("module: m"), "ssaprogram")},
	}
	for _, tt := range differs {
		if tt.key == base {
			t.Errorf("changing %s did not change the key", tt.name)
		}
	}
}
