package logs

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWriter_Prefixes(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf)

	l.Info.Print("a")
	l.Warn.Print("b")
	l.Error.Print("c")
	l.Critical.Print("d")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{"INFO: ", "WARN: ", "ERROR: ", "CRIT: "}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d: %q", len(want), len(lines), buf.String())
	}
	for i, prefix := range want {
		if !strings.HasPrefix(lines[i], prefix) {
			t.Errorf("line %d: expected prefix %q, got %q", i, prefix, lines[i])
		}
	}
}

func TestNew_AppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heatloop.log")

	for i := 0; i < 2; i++ {
		l, err := New(path)
		if err != nil {
			t.Fatal(err)
		}
		l.Info.Print("hello")
		if err := l.Close(); err != nil {
			t.Fatal(err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "hello"); n != 2 {
		t.Errorf("expected 2 entries, got %d", n)
	}
}

func TestNew_BadPath(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing", "x.log")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestClose_Writer(t *testing.T) {
	if err := Discard().Close(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	l, err := New("")
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("closing stderr loggers: %v", err)
	}
}

func TestClose_File(t *testing.T) {
	l, err := New(filepath.Join(t.TempDir(), "heatloop.log"))
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err == nil {
		t.Error("expected error closing the file twice")
	}
}
