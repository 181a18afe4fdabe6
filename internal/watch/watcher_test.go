package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
	seen  chan string
}

func newRecorder() *recorder {
	return &recorder{seen: make(chan string, 16)}
}

func (r *recorder) handle(_ context.Context, path string) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
	r.seen <- path
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func TestIsDocument(t *testing.T) {
	assert.True(t, IsDocument("a.yaml"))
	assert.True(t, IsDocument("dir/B.YML"))
	assert.False(t, IsDocument("a.yaml.swp"))
	assert.False(t, IsDocument("notes.md"))
}

func TestDebounceCollapsesBursts(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")
	require.NoError(t, os.WriteFile(a, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("x"), 0644))

	rec := newRecorder()
	w, err := New(dir, rec.handle, WithDebounce(time.Second))
	require.NoError(t, err)
	defer w.Stop()

	clock := time.Unix(1000, 0)
	w.now = func() time.Time { return clock }

	w.handleEvent(fsnotify.Event{Name: b, Op: fsnotify.Create})
	w.handleEvent(fsnotify.Event{Name: a, Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: a, Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: filepath.Join(dir, "a.txt"), Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: a, Op: fsnotify.Chmod})

	w.processSettled(context.Background())
	assert.Empty(t, rec.got())

	clock = clock.Add(time.Second)
	w.processSettled(context.Background())
	assert.Equal(t, []string{a, b}, rec.got())

	w.processSettled(context.Background())
	assert.Len(t, rec.got(), 2)

	stats := w.Stats()
	assert.Equal(t, 1, stats.FilesCreated)
	assert.Equal(t, 2, stats.FilesModified)
	assert.Equal(t, 2, stats.Verifications)
	assert.Equal(t, a, stats.LastEventPath)
}

func TestRemovedFilesAreSkipped(t *testing.T) {
	dir := t.TempDir()
	rec := newRecorder()
	w, err := New(dir, rec.handle, WithDebounce(time.Millisecond))
	require.NoError(t, err)
	defer w.Stop()

	gone := filepath.Join(dir, "gone.yaml")
	w.handleEvent(fsnotify.Event{Name: gone, Op: fsnotify.Remove})
	time.Sleep(2 * time.Millisecond)
	w.processSettled(context.Background())

	assert.Empty(t, rec.got())
	assert.Equal(t, 1, w.Stats().FilesDeleted)
	assert.Equal(t, 0, w.Stats().Verifications)
}

func TestWatcherSeesWrites(t *testing.T) {
	dir := t.TempDir()
	rec := newRecorder()
	w, err := New(dir, rec.handle, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	path := filepath.Join(dir, "doc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("document: {}\n"), 0644))

	select {
	case got := <-rec.seen:
		assert.Equal(t, path, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change observed")
	}
}

func TestStartMissingDirectory(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "missing"), newRecorder().handle)
	require.NoError(t, err)
	defer w.Stop()
	assert.Error(t, w.Start(context.Background()))
}
