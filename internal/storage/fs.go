package storage

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/StevenGann/ObsidianDB/internal/apperr"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the vault directory
	ext  string // note file extension, e.g. ".md"
}

// NewFS creates a new FS provider rooted at the given directory, listing
// only files with the given extension. The directory must already exist.
func NewFS(root, ext string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	if ext == "" {
		ext = ".md"
	}
	return &FS{root: abs, ext: ext}, nil
}

// Root returns the absolute vault root.
func (f *FS) Root() string { return f.root }

// Abs resolves a relative path against the vault root and rejects any
// result that escapes it (directory traversal).
func (f *FS) Abs(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s: %w", rel, apperr.ErrOutsideVault)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !f.contains(abs) {
		return "", fmt.Errorf("storage: %s: %w", rel, apperr.ErrOutsideVault)
	}
	return abs, nil
}

// Rel converts an absolute path inside the vault to a root-relative one.
func (f *FS) Rel(abs string) (string, error) {
	if !f.contains(abs) {
		return "", fmt.Errorf("storage: %s: %w", abs, apperr.ErrOutsideVault)
	}
	rel, err := filepath.Rel(f.root, abs)
	if err != nil {
		return "", fmt.Errorf("storage: relativize: %w", err)
	}
	return rel, nil
}

func (f *FS) contains(abs string) bool {
	return abs == f.root || strings.HasPrefix(abs, f.root+string(os.PathSeparator))
}

// List walks dir (relative to root) and returns metadata for every note file.
func (f *FS) List(dir string) ([]FileInfo, error) {
	base, err := f.Abs(dir)
	if err != nil {
		return nil, err
	}
	var out []FileInfo
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), f.ext) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(f.root, p)
		out = append(out, FileInfo{Path: rel, ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	return out, nil
}

// Read returns the raw bytes of a vault file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.Abs(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// ReadLines returns the file content split into lines. A trailing newline
// does not produce a final empty element.
func (f *FS) ReadLines(path string) ([]string, error) {
	data, err := f.Read(path)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return []string{}, nil
	}
	return strings.Split(text, "\n"), nil
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.Abs(path)
	if err != nil {
		return err
	}
	return writeAtomic(abs, content)
}

func writeAtomic(abs string, content []byte) error {
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".obsidiandb-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// WriteBackup copies the current file to a .bak sibling, writes the new
// content atomically, and removes the backup. If the write fails the backup
// is renamed back over the original.
func (f *FS) WriteBackup(path string, content []byte) error {
	abs, err := f.Abs(path)
	if err != nil {
		return err
	}

	bak := abs + ".bak"
	hadOriginal := false
	if _, statErr := os.Stat(abs); statErr == nil {
		if err := copyFile(abs, bak); err != nil {
			return fmt.Errorf("storage: backup %s: %w", path, err)
		}
		hadOriginal = true
	}

	if err := writeAtomic(abs, content); err != nil {
		if hadOriginal {
			_ = os.Rename(bak, abs)
		}
		return err
	}

	if hadOriginal {
		_ = os.Remove(bak)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Delete removes a file from the vault.
func (f *FS) Delete(path string) error {
	abs, err := f.Abs(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	return nil
}

// Move renames a file within the vault.
func (f *FS) Move(oldPath, newPath string) error {
	absOld, err := f.Abs(oldPath)
	if err != nil {
		return err
	}
	absNew, err := f.Abs(newPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(absNew), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir for move: %w", err)
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return fmt.Errorf("storage: move: %w", err)
	}
	return nil
}
