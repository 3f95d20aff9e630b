package format

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Writer persists one generated file at a slash-separated path relative to
// its output root.
type Writer interface {
	Write(ctx context.Context, rel string, content []byte) error
}

// Committer lands a whole file set: either every file is written or none
// is left behind.
type Committer interface {
	Commit(ctx context.Context, files map[string][]byte) error
}

// OSWriter writes under Dir. Every file lands through a temp file and a
// rename, so a reader never sees a half-written file.
type OSWriter struct {
	Dir string
}

func (w OSWriter) Write(ctx context.Context, rel string, content []byte) error {
	return w.Commit(ctx, map[string][]byte{rel: content})
}

type stagedFile struct {
	rel   string
	tmp   string
	final string
}

// Commit stages every file as a temp file next to its target and renames
// them into place only once all of them staged. A staging failure removes
// the temp files and leaves existing output untouched.
func (w OSWriter) Commit(ctx context.Context, files map[string][]byte) error {
	rels := make([]string, 0, len(files))
	for rel := range files {
		rels = append(rels, rel)
	}
	sort.Strings(rels)

	staged := make([]stagedFile, 0, len(rels))
	discard := func(from int) {
		for _, f := range staged[from:] {
			_ = os.Remove(f.tmp)
		}
	}
	for _, rel := range rels {
		if err := ctx.Err(); err != nil {
			discard(0)
			return err
		}
		f, err := w.stage(rel, files[rel])
		if err != nil {
			discard(0)
			return err
		}
		staged = append(staged, f)
	}
	for i, f := range staged {
		if err := os.Rename(f.tmp, f.final); err != nil {
			discard(i)
			return fmt.Errorf("rename %s: %w", f.rel, err)
		}
	}
	return nil
}

func (w OSWriter) stage(rel string, content []byte) (stagedFile, error) {
	native := filepath.FromSlash(rel)
	if !filepath.IsLocal(native) {
		return stagedFile{}, fmt.Errorf("write %s: path escapes the output directory", rel)
	}
	final := filepath.Join(w.Dir, native)
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return stagedFile{}, fmt.Errorf("mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(final), filepath.Base(final)+".tmp-*")
	if err != nil {
		return stagedFile{}, fmt.Errorf("write temp %s: %w", rel, err)
	}
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return stagedFile{}, fmt.Errorf("write temp %s: %w", rel, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return stagedFile{}, fmt.Errorf("write temp %s: %w", rel, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return stagedFile{}, fmt.Errorf("write temp %s: %w", rel, err)
	}
	return stagedFile{rel: rel, tmp: tmp.Name(), final: final}, nil
}

// CheckOutputDir refuses a non-empty existing directory unless force is
// set. It runs once per output directory before any task writes, since
// several targets share one directory.
func CheckOutputDir(dir string, force bool) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve out dir: %w", err)
	}
	if force {
		return nil
	}
	st, err := os.Stat(abs)
	if err != nil || !st.IsDir() {
		return nil
	}
	entries, err := os.ReadDir(abs)
	if err == nil && len(entries) > 0 {
		return fmt.Errorf("output directory %q is not empty (use --force to overwrite)", abs)
	}
	return nil
}

// MemWriter keeps files in memory; dry runs and tests use it.
type MemWriter struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (w *MemWriter) Write(ctx context.Context, rel string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.files == nil {
		w.files = map[string][]byte{}
	}
	w.files[rel] = append([]byte(nil), content...)
	return nil
}

// Commit stores the whole set under one lock.
func (w *MemWriter) Commit(ctx context.Context, files map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.files == nil {
		w.files = map[string][]byte{}
	}
	for rel, content := range files {
		w.files[rel] = append([]byte(nil), content...)
	}
	return nil
}

// Files returns a copy of everything written.
func (w *MemWriter) Files() map[string][]byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string][]byte, len(w.files))
	for k, v := range w.files {
		out[k] = v
	}
	return out
}

// Paths returns the written paths sorted.
func (w *MemWriter) Paths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.files))
	for k := range w.files {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
