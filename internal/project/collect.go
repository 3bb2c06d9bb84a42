package project

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/shinji-kodama/coredeck/internal/api"
)

// File is one regular file found by Collect.
type File struct {
	// Name is the upload name: the folder's base name followed by the
	// slash-separated path inside the folder.
	Name string

	// Path is the absolute path on the local filesystem.
	Path string

	// Size is the file size in bytes at collection time.
	Size int64
}

// Open opens the local file for reading.
func (f File) Open() (io.ReadCloser, error) {
	return os.Open(f.Path)
}

// options holds the Collect settings.
type options struct {
	rootName string
	skipDirs map[string]bool
}

// Option customizes Collect.
type Option func(*options)

// WithRootName replaces the folder's base name as the first path segment.
// It is used for clones, whose temporary directory name is meaningless.
func WithRootName(name string) Option {
	return func(o *options) {
		o.rootName = name
	}
}

// WithSkipDirs excludes directories with any of the given base names
// (e.g. ".git", "node_modules") together with everything below them.
func WithSkipDirs(names ...string) Option {
	return func(o *options) {
		for _, n := range names {
			o.skipDirs[n] = true
		}
	}
}

// Collect walks dir and returns every regular file in lexical order.
// Symlinks and other special files are skipped.
func Collect(dir string, opts ...Option) ([]File, error) {
	o := &options{skipDirs: map[string]bool{}}
	for _, opt := range opts {
		opt(o)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", dir, err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%q is not a directory", dir)
	}

	root := o.rootName
	if root == "" {
		root = filepath.Base(absDir)
	}

	var files []File
	err = filepath.WalkDir(absDir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if p != absDir && o.skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(absDir, p)
		if err != nil {
			return err
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, File{
			Name: path.Join(root, filepath.ToSlash(rel)),
			Path: p,
			Size: fi.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %q: %w", dir, err)
	}
	return files, nil
}

// TotalSize returns the summed size of files.
func TotalSize(files []File) int64 {
	var n int64
	for _, f := range files {
		n += f.Size
	}
	return n
}

// UploadFiles converts collected files to upload parts, keeping order.
func UploadFiles(files []File) []api.UploadFile {
	out := make([]api.UploadFile, len(files))
	for i, f := range files {
		out[i] = api.UploadFile{Name: f.Name, Open: f.Open}
	}
	return out
}
