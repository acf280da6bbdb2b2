// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteTree creates each file in files (relative path to contents)
// under root, creating parent directories as needed.
//
//	testutil.WriteTree(t, base, map[string][]byte{
//	    "content/room.pack": packed,
//	})
func WriteTree(t testing.TB, root string, files map[string][]byte) {
	t.Helper()
	for name, data := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("creating directory for %s: %v", name, err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
}

// ReadFile reads root/name, failing the test if it cannot.
func ReadFile(t testing.TB, root, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(name)))
	if err != nil {
		t.Fatalf("reading %s: %v", name, err)
	}
	return data
}

// RequireNoFile fails the test if root/name exists.
func RequireNoFile(t testing.TB, root, name string) {
	t.Helper()
	_, err := os.Stat(filepath.Join(root, filepath.FromSlash(name)))
	if err == nil {
		t.Fatalf("%s exists, want absent", name)
	}
	if !os.IsNotExist(err) {
		t.Fatalf("stat %s: %v", name, err)
	}
}
