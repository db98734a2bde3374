package propath

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLocator_PropathOrder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "first", "util.p"), "first")
	writeFile(t, filepath.Join(root, "second", "util.p"), "second")
	writeFile(t, filepath.Join(root, "second", "only.i"), "")

	l := New([]string{"first", "second"}, root, []string{".p", ".i"})

	path, ok := l.FindFile("util", nil)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "first", "util.p"), path)

	path, ok = l.FindFile("only", nil)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "second", "only.i"), path)

	path, ok = l.FindFile("util.p", []string{".w"})
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "first", "util.p"), path)

	assert.Equal(t, []string{
		filepath.Join(root, "first", "util.p"),
		filepath.Join(root, "second", "util.p"),
	}, l.FindFiles("util", []string{".p"}))
}

func TestLocator_GlobEntries(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "a", "deep", "x.p"), "")
	writeFile(t, filepath.Join(root, "src", "b", "y.i"), "")

	l := New([]string{"src/**"}, root, []string{".p", ".i"})

	dirs := l.Directories()
	assert.Contains(t, dirs, filepath.Join(root, "src", "a", "deep"))
	assert.Contains(t, dirs, filepath.Join(root, "src", "b"))

	path, ok := l.FindFile("y", nil)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "src", "b", "y.i"), path)
}

func TestLocator_FallbackWalk(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "modules", "sales", "Order.P"), "")
	writeFile(t, filepath.Join(root, ".git", "order.p"), "")

	l := New([]string{"nowhere"}, root, []string{".p"})

	path, ok := l.FindFile("sales/order", nil)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "modules", "sales", "Order.P"), path)
}

func TestLocator_Miss(t *testing.T) {
	l := New([]string{"."}, t.TempDir(), nil)

	path, ok := l.FindFile("absent", []string{".p"})
	assert.False(t, ok)
	assert.Empty(t, path)

	_, ok = l.FindFile("  ", nil)
	assert.False(t, ok)
}

func TestLocator_CacheAndInvalidate(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "lib", "cached.p")
	writeFile(t, target, "")

	l := New([]string{"lib"}, root, []string{".p"})
	path, ok := l.FindFile("cached", nil)
	require.True(t, ok)
	assert.Equal(t, target, path)

	require.NoError(t, os.Remove(target))
	path, ok = l.FindFile("cached", nil)
	assert.True(t, ok, "hit is served from cache")
	assert.Equal(t, target, path)

	l.Invalidate()
	_, ok = l.FindFile("cached", nil)
	assert.False(t, ok)
}

func TestLocator_ConcurrentLookups(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "inc", "shared.i"), "")
	l := New([]string{"inc"}, root, []string{".i"})

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = l.FindFile("shared", nil)
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		assert.Equal(t, filepath.Join(root, "inc", "shared.i"), r)
	}
}

func TestLocator_InvalidateOnChange(t *testing.T) {
	lib := filepath.Join(t.TempDir(), "lib")
	target := filepath.Join(lib, "late.p")
	writeFile(t, target, "")

	l := New([]string{lib}, "", []string{".p"})
	_, ok := l.FindFile("late", nil)
	require.True(t, ok)

	stop, err := l.InvalidateOnChange(context.Background())
	require.NoError(t, err)
	defer stop()

	require.NoError(t, os.Remove(target))
	assert.Eventually(t, func() bool {
		_, ok := l.FindFile("late", nil)
		return !ok
	}, 2*time.Second, 20*time.Millisecond)
}
