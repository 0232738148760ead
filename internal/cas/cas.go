// Package cas is a content-addressed store for rendered Markdown.
// Entries are zstd-compressed and sharded by the first two hex digits of
// their SHA-256 key.
package cas

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
)

type Store struct {
	fs  afero.Fs
	dir string
}

// New returns a store rooted at dir. The directory is created lazily.
func New(fs afero.Fs, dir string) *Store {
	return &Store{fs: fs, dir: dir}
}

func (s *Store) Dir() string { return s.dir }

// Key hashes parts into a cache key. Parts are length-prefixed so that
// ("ab", "c") and ("a", "bc") never collide.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%d:%s", len(p), p)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// path returns the sharded file path for a key: <dir>/<first2>/<rest>.md.zst
func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key[:2], key[2:]+".md.zst")
}

// Put stores content under key. An existing entry is left alone.
func (s *Store) Put(key, content string) error {
	if len(key) < 3 {
		return fmt.Errorf("invalid CAS key %q", key)
	}

	p := s.path(key)
	if _, err := s.fs.Stat(p); err == nil {
		return nil
	}

	if err := s.fs.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("creating CAS directory: %w", err)
	}

	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	if err != nil {
		return fmt.Errorf("creating zstd writer: %w", err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		w.Close()
		return fmt.Errorf("compressing CAS content: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing zstd writer: %w", err)
	}

	if err := afero.WriteFile(s.fs, p, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing CAS file: %w", err)
	}
	return nil
}

// Get returns the content stored under key. A missing entry is reported
// with ok == false and no error.
func (s *Store) Get(key string) (content string, ok bool, err error) {
	if len(key) < 3 {
		return "", false, nil
	}
	content, err = s.read(key)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return content, true, nil
}

func (s *Store) read(key string) (string, error) {
	f, err := s.fs.Open(s.path(key))
	if err != nil {
		return "", fmt.Errorf("reading CAS file %s: %w", key, err)
	}
	defer f.Close()

	r, err := zstd.NewReader(f)
	if err != nil {
		return "", fmt.Errorf("creating zstd reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("decompressing CAS file %s: %w", key, err)
	}
	return string(data), nil
}

// Clear removes every entry and returns how many were deleted.
func (s *Store) Clear() (int, error) {
	n := 0
	err := afero.Walk(s.fs, s.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".md.zst") {
			n++
		}
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("scanning CAS directory: %w", err)
	}
	if err := s.fs.RemoveAll(s.dir); err != nil {
		return 0, fmt.Errorf("removing CAS directory: %w", err)
	}
	return n, nil
}
