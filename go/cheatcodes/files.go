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
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
)

//go:generate mockgen -source files.go -destination files_mock.go -package cheatcodes

// Files is the file system collaborator used by the projectRoot, readFile and
// readFileBinary cheatcodes.
type Files interface {
	// ProjectRoot returns the absolute path of the project under test.
	ProjectRoot() string
	// ReadFile returns the content of the file at the given path. Relative
	// paths are resolved against the project root.
	ReadFile(path string) ([]byte, error)
}

// FilesConfig contains the configuration options of ProjectFiles.
type FilesConfig struct {
	// Root is the project root. If empty, the working directory is used.
	Root string
	// CacheSize is the maximum number of files kept in memory. If set to 0, a
	// default size is used. If negative, no cache is used.
	CacheSize int
}

const defaultFileCacheSize = 256

// ProjectFiles reads files from the OS file system. File contents are cached
// and shared by all users of the same instance; it is safe for concurrent use.
type ProjectFiles struct {
	root  string
	cache *lru.Cache[string, []byte]
}

func NewProjectFiles(config FilesConfig) (*ProjectFiles, error) {
	root := config.Root
	if root == "" {
		root = "."
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}
	if config.CacheSize == 0 {
		config.CacheSize = defaultFileCacheSize
	}

	var cache *lru.Cache[string, []byte]
	if config.CacheSize > 0 {
		cache, err = lru.New[string, []byte](config.CacheSize)
		if err != nil {
			return nil, err
		}
	}
	return &ProjectFiles{
		root:  root,
		cache: cache,
	}, nil
}

func (f *ProjectFiles) ProjectRoot() string {
	return f.root
}

func (f *ProjectFiles) ReadFile(path string) ([]byte, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(f.root, path)
	}
	path = filepath.Clean(path)

	if f.cache != nil {
		if data, found := f.cache.Get(path); found {
			return bytes.Clone(data), nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if f.cache != nil {
		f.cache.Add(path, data)
	}
	return bytes.Clone(data), nil
}
