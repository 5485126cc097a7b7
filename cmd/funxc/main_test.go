package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const addModule = `
module: %s
defs:
  - name: add
    type: {kind: func, params: [Int, Int], result: Int}
    expr:
      kind: lambda
      params: [a, b]
      body: {kind: binary, op: "+", left: {kind: local, name: a}, right: {kind: local, name: b}}
  - name: main
    expr: {kind: text, value: "hi"}
`

func writeModule(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name+".kernel.yaml")
	if err := os.WriteFile(path, []byte(strings.Replace(addModule, "%s", name, 1)), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCmdEmit_SeveralFiles(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "gen")
	a := writeModule(t, dir, "alpha")
	b := writeModule(t, dir, "beta")

	if code := cmdEmit([]string{"-no-cache", "-o", out, a, b}); code != 0 {
		t.Fatalf("cmdEmit = %d, want 0", code)
	}
	for _, name := range []string{"alpha.go", "beta.go"} {
		data, err := os.ReadFile(filepath.Join(out, name))
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "func g_add_typed(") {
			t.Errorf("%s has no typed sibling", name)
		}
	}
}

func TestCmdEmit_LibraryFlags(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "lib.go")
	src := writeModule(t, dir, "lib")
	if code := cmdEmit([]string{"-no-cache", "-kind", "library", "-package", "mathlib", "-backend", "structural", "-o", out, src}); code != 0 {
		t.Fatalf("cmdEmit = %d, want 0", code)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"package mathlib", "func Add_typed("} {
		if !strings.Contains(string(data), want) {
			t.Errorf("output lacks %q:\n%s", want, data)
		}
	}
}

func TestCmdEmit_Errors(t *testing.T) {
	dir := t.TempDir()
	src := writeModule(t, dir, "m")
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no files", []string{}, 2},
		{"bad flag", []string{"-nope", src}, 2},
		{"bad backend", []string{"-no-cache", "-backend", "llvm", src}, 1},
		{"missing file", []string{"-no-cache", filepath.Join(dir, "missing.kernel.yaml")}, 1},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := cmdEmit(tt.args); got != tt.want {
				t.Errorf("cmdEmit(%v) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}

func TestCmdJit(t *testing.T) {
	src := writeModule(t, t.TempDir(), "m")
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"ok", []string{"-def", "add", "-args", "3,4", src}, 0},
		{"arity", []string{"-def", "add", "-args", "3", src}, 1},
		{"bad int", []string{"-def", "add", "-args", "3,x", src}, 1},
		{"unknown def", []string{"-def", "sub", src}, 1},
		{"no def", []string{src}, 2},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := cmdJit(tt.args); got != tt.want {
				t.Errorf("cmdJit(%v) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}

func TestCmdObject_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := writeModule(t, dir, "m")
	obj := filepath.Join(dir, "m.fxo")
	if code := cmdObject([]string{"-no-cache", "-o", obj, src}); code != 0 {
		t.Fatalf("cmdObject = %d, want 0", code)
	}
	if code := cmdObject([]string{"-dump", obj}); code != 0 {
		t.Errorf("cmdObject -dump = %d, want 0", code)
	}
	if code := cmdObject([]string{"-dump", src}); code != 1 {
		t.Errorf("cmdObject -dump on a kernel file = %d, want 1", code)
	}
}
