// Package testutil provides testing utilities for Intcode tests.
package testutil

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// TempProgram writes program text to a temporary file and returns its path.
// The file is automatically cleaned up when the test finishes.
func TempProgram(t *testing.T, content string) string {
	t.Helper()
	return TempFile(t, content, ".txt")
}

// TempFile creates a temporary file with the given content and extension.
func TempFile(t *testing.T, content, ext string) string {
	t.Helper()
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test"+ext)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

// GravityAssist returns a small program in the shape of the day 2 input:
// cell 0 ends up as noun*verb + 3 for nouns and verbs below 20. Larger
// values fault on an out-of-bounds read.
func GravityAssist() string {
	return `1,0,0,3,
2,1,2,19,
1,19,15,0,
99,0,0,3,0,0,0,0`
}

// SimpleProgram returns the canonical short example program.
func SimpleProgram() []int64 {
	return []int64{1, 9, 10, 3, 2, 3, 11, 0, 99, 30, 40, 50}
}

// AssertMemory checks that two memory images are identical.
func AssertMemory(t *testing.T, expected, actual []int64) {
	t.Helper()
	if !reflect.DeepEqual(expected, actual) {
		t.Errorf("expected memory %v, got %v", expected, actual)
	}
}

// AssertInt64Equal checks if two int64 values are equal.
func AssertInt64Equal(t *testing.T, expected, actual int64) {
	t.Helper()
	if expected != actual {
		t.Errorf("expected %d, got %d", expected, actual)
	}
}
