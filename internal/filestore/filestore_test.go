package filestore

import (
	"bytes"
	"errors"
	"testing"
)

func TestDiskWriteOnceReadBack(t *testing.T) {
	d, err := NewDisk(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := d.Save("abc_1f2e.pdf", []byte("%PDF-1.4")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !d.Exists("abc_1f2e.pdf") {
		t.Fatalf("blob should exist after save")
	}
	data, err := d.Read("abc_1f2e.pdf")
	if err != nil || !bytes.Equal(data, []byte("%PDF-1.4")) {
		t.Fatalf("read back mismatch: %q %v", data, err)
	}

	if err := d.Save("abc_1f2e.pdf", []byte("other")); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists on second save, got %v", err)
	}
}

func TestDiskMissingBlob(t *testing.T) {
	d, err := NewDisk(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if d.Exists("nope") {
		t.Fatalf("unexpected blob")
	}
	if _, err := d.Read("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDiskStripsPathComponents(t *testing.T) {
	d, err := NewDisk(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Save("../../etc/passwd", []byte("x")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !d.Exists("passwd") {
		t.Fatalf("name was not flattened to its base")
	}
}

func TestMemoryMirrorsDiskSemantics(t *testing.T) {
	m := NewMemory()
	if err := m.Save("a", []byte("1")); err != nil {
		t.Fatal(err)
	}
	if err := m.Save("a", []byte("2")); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	data, err := m.Read("a")
	if err != nil || string(data) != "1" {
		t.Fatalf("read back mismatch: %q %v", data, err)
	}
	if _, err := m.Read("b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
