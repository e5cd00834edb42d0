package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sql-lineage/internal/scanner"
	"sql-lineage/internal/testutil"
)

func setupTree(t *testing.T) (root, mapping string) {
	t.Helper()
	base := t.TempDir()
	root = filepath.Join(base, "queries")
	for _, dir := range []string{"nested", "vendor", "vendors", ".hidden"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
	}
	mapping = filepath.Join(base, "mappings.csv")
	require.NoError(t, os.WriteFile(mapping, []byte("a,b\n"), 0o644))
	return root, mapping
}

func TestWatcher_Relevant(t *testing.T) {
	root, mapping := setupTree(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("scratch/\n"), 0o644))
	walker := scanner.NewFileWalker([]string{"sql"}, []string{"vendor"})
	walker.UseGitignore = true
	w := New(root, walker, []string{mapping, ""}, nil)

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"query write", fsnotify.Event{Name: filepath.Join(root, "load.sql"), Op: fsnotify.Write}, true},
		{"nested query removed", fsnotify.Event{Name: filepath.Join(root, "nested", "x.SQL"), Op: fsnotify.Remove}, true},
		{"vendor named query", fsnotify.Event{Name: filepath.Join(root, "vendor_invoices.sql"), Op: fsnotify.Write}, true},
		{"excluded dir", fsnotify.Event{Name: filepath.Join(root, "vendor", "x.sql"), Op: fsnotify.Write}, false},
		{"hidden dir", fsnotify.Event{Name: filepath.Join(root, ".hidden", "x.sql"), Op: fsnotify.Create}, false},
		{"gitignored dir", fsnotify.Event{Name: filepath.Join(root, "scratch", "x.sql"), Op: fsnotify.Write}, false},
		{"other extension", fsnotify.Event{Name: filepath.Join(root, "notes.txt"), Op: fsnotify.Write}, false},
		{"chmod only", fsnotify.Event{Name: filepath.Join(root, "load.sql"), Op: fsnotify.Chmod}, false},
		{"resource file", fsnotify.Event{Name: mapping, Op: fsnotify.Write}, true},
		{"sibling of resource", fsnotify.Event{Name: filepath.Join(filepath.Dir(mapping), "other.sql"), Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.Relevant(tt.event))
		})
	}
}

func TestWatcher_WatchedDirs(t *testing.T) {
	root, mapping := setupTree(t)
	w := New(root, scanner.NewFileWalker([]string{"sql"}, []string{"vendor"}), []string{mapping}, nil)

	dirs, err := w.watchedDirs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{root, filepath.Join(root, "nested"), filepath.Join(root, "vendors"), filepath.Dir(mapping)}, dirs)

	w.Root = filepath.Join(root, "missing")
	_, err = w.watchedDirs()
	assert.Error(t, err)
}

func TestWatcher_RunRerunsOnChange(t *testing.T) {
	root, mapping := setupTree(t)
	w := New(root, scanner.NewFileWalker([]string{"sql"}, nil), []string{mapping}, testutil.NewTestLogger(t))
	w.Debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(context.Context) error {
			runs.Add(1)
			return nil
		})
	}()

	require.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "load.sql"), []byte("DELETE FROM t;"), 0o644))
	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}
