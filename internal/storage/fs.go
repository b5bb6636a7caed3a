package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/recruitflow/internal/checksum"
)

const tempPrefix = ".recruitflow-tmp-"

// ErrOutsideRoot is returned for paths that are absolute or climb above the
// document root.
var ErrOutsideRoot = errors.New("storage: path outside document root")

// FS stores documents under a single directory on the local disk.
type FS struct {
	root string
}

var _ Provider = (*FS)(nil)

// NewFS creates a provider rooted at root, creating the directory if needed.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	if info, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("storage: %s is not a directory", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute root directory.
func (f *FS) Root() string { return f.root }

// Abs resolves rel to an absolute path inside the root.
func (f *FS) Abs(rel string) (string, error) { return f.resolve(rel) }

func (f *FS) resolve(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
	}
	abs := filepath.Join(f.root, filepath.FromSlash(rel))
	inside, err := filepath.Rel(f.root, abs)
	if err != nil || inside == ".." || strings.HasPrefix(inside, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
	}
	return abs, nil
}

// List walks dir and describes every regular file ending in ext. Temp files
// are skipped and a missing directory yields nothing.
func (f *FS) List(dir, ext string) ([]Document, error) {
	base, err := f.resolve(dir)
	if err != nil {
		return nil, err
	}
	var docs []Document
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		switch {
		case err != nil && p == base && errors.Is(err, fs.ErrNotExist):
			return fs.SkipAll
		case err != nil:
			return err
		case !d.Type().IsRegular(), isTemp(d.Name()), !strings.HasSuffix(d.Name(), ext):
			return nil
		}
		rel, err := filepath.Rel(f.root, p)
		if err != nil {
			return err
		}
		doc, err := describe(p, filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", dir, err)
	}
	return docs, nil
}

// Stat describes one file.
func (f *FS) Stat(rel string) (Document, error) {
	abs, err := f.resolve(rel)
	if err != nil {
		return Document{}, err
	}
	doc, err := describe(abs, rel)
	if err != nil {
		return Document{}, fmt.Errorf("storage: stat %s: %w", rel, err)
	}
	return doc, nil
}

// describe stats the file and streams it through the digest.
func describe(abs, rel string) (Document, error) {
	file, err := os.Open(abs)
	if err != nil {
		return Document{}, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Document{}, err
	}
	if info.IsDir() {
		return Document{}, fmt.Errorf("%s is a directory", rel)
	}
	sum, err := checksum.SumReader(file)
	if err != nil {
		return Document{}, err
	}
	return Document{
		Path:        rel,
		Size:        info.Size(),
		Checksum:    sum,
		ContentType: contentType(rel),
		UpdatedAt:   info.ModTime(),
	}, nil
}

func contentType(rel string) string {
	if ct := mime.TypeByExtension(path.Ext(rel)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// Read returns the raw bytes of a file.
func (f *FS) Read(rel string) ([]byte, error) {
	abs, err := f.resolve(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", rel, err)
	}
	return data, nil
}

// Write replaces the file at rel. Readers see either the old or the new
// content, never a partial write.
func (f *FS) Write(rel string, content []byte) error {
	abs, err := f.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("storage: write %s: %w", rel, err)
	}
	if err := replaceFile(abs, content); err != nil {
		return fmt.Errorf("storage: write %s: %w", rel, err)
	}
	return nil
}

func replaceFile(abs string, content []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(abs), tempPrefix+"*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(content); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), abs)
}

// Delete removes a file, then any directories it leaves empty below the
// root (cv/<candidate> once its CV is gone).
func (f *FS) Delete(rel string) error {
	abs, err := f.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", rel, err)
	}
	f.pruneEmpty(filepath.Dir(abs))
	return nil
}

func (f *FS) pruneEmpty(dir string) {
	for dir != f.root && strings.HasPrefix(dir, f.root) {
		// os.Remove refuses non-empty directories.
		if os.Remove(dir) != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// Move renames a file, creating the destination directory.
func (f *FS) Move(from, to string) error {
	src, err := f.resolve(from)
	if err != nil {
		return err
	}
	dst, err := f.resolve(to)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("storage: move %s: %w", from, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("storage: move %s: %w", from, err)
	}
	return nil
}

func isTemp(name string) bool { return strings.HasPrefix(name, tempPrefix) }
