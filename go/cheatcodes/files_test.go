// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package cheatcodes

import (
	"os"
	"path/filepath"
	"testing"
)

func TestProjectFiles_RelativePathsAreResolvedAgainstRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "bin"), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "bin", "Counter.bin"), []byte("6080"), 0o600); err != nil {
		t.Fatal(err)
	}

	files, err := NewProjectFiles(FilesConfig{Root: root})
	if err != nil {
		t.Fatalf("failed to create project files: %v", err)
	}
	if want, got := root, files.ProjectRoot(); want != got {
		t.Errorf("unexpected project root, wanted %s, got %s", want, got)
	}

	for _, path := range []string{"bin/Counter.bin", "./bin/../bin/Counter.bin", filepath.Join(root, "bin", "Counter.bin")} {
		data, err := files.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read %s: %v", path, err)
		}
		if string(data) != "6080" {
			t.Errorf("unexpected content of %s: %q", path, data)
		}
	}
}

func TestProjectFiles_MissingFilesProduceErrors(t *testing.T) {
	files, err := NewProjectFiles(FilesConfig{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to create project files: %v", err)
	}
	if _, err := files.ReadFile("does/not/exist"); err == nil {
		t.Errorf("expected reading a missing file to fail")
	}
}

func TestProjectFiles_CachedContentIsServedWithoutFileAccess(t *testing.T) {
	tests := map[string]struct {
		cacheSize int
		cached    bool
	}{
		"default":  {0, true},
		"small":    {1, true},
		"no cache": {-1, false},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			root := t.TempDir()
			path := filepath.Join(root, "data")
			if err := os.WriteFile(path, []byte("first"), 0o600); err != nil {
				t.Fatal(err)
			}
			files, err := NewProjectFiles(FilesConfig{Root: root, CacheSize: test.cacheSize})
			if err != nil {
				t.Fatalf("failed to create project files: %v", err)
			}
			if _, err := files.ReadFile("data"); err != nil {
				t.Fatalf("failed to read file: %v", err)
			}
			if err := os.WriteFile(path, []byte("second"), 0o600); err != nil {
				t.Fatal(err)
			}

			data, err := files.ReadFile("data")
			if err != nil {
				t.Fatalf("failed to read file: %v", err)
			}
			want := "second"
			if test.cached {
				want = "first"
			}
			if string(data) != want {
				t.Errorf("unexpected content, wanted %q, got %q", want, data)
			}
		})
	}
}

func TestProjectFiles_ResultsCanBeModifiedSafely(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "data"), []byte("abc"), 0o600); err != nil {
		t.Fatal(err)
	}
	files, err := NewProjectFiles(FilesConfig{Root: root})
	if err != nil {
		t.Fatalf("failed to create project files: %v", err)
	}
	data, _ := files.ReadFile("data")
	data[0] = 'x'
	if data, _ := files.ReadFile("data"); string(data) != "abc" {
		t.Errorf("cached content was modified: %q", data)
	}
}
