package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRun(t *testing.T) {
	dir := t.TempDir()
	stl := filepath.Join(dir, "diamond.stl")
	dxf := filepath.Join(dir, "diamond.dxf")
	var stdout, stderr bytes.Buffer
	err := run([]string{"-project", "testdata/diamond.toml", "-stl", stl, "-dxf", dxf, "-v"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("%v\n%s", err, stderr.String())
	}
	for _, want := range []string{"diamond", "Volume", "Wetted surface"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("output lacks %q:\n%s", want, stdout.String())
		}
	}
	if !strings.Contains(stderr.String(), "surface built") {
		t.Errorf("missing log:\n%s", stderr.String())
	}
	for _, path := range []string{stl, dxf} {
		if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
			t.Errorf("%s: %v", path, err)
		}
	}
	b, err := os.ReadFile(dxf)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Station", "stations", "LWPOLYLINE"} {
		if !strings.Contains(string(b), want) {
			t.Errorf("dxf lacks %q", want)
		}
	}
}

func TestRunErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run([]string{"-project", filepath.Join(t.TempDir(), "missing.toml")}, &stdout, &stderr); err == nil {
		t.Fatal("expected error for missing project")
	}
	bad := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(bad, []byte("[hull]\nunknown = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := run([]string{"-project", bad}, &stdout, &stderr); err == nil {
		t.Fatal("expected error for unknown key")
	}
}
