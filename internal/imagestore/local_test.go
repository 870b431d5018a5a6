package imagestore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir(), "/images", zaptest.NewLogger(t))
	require.NoError(t, err)
	return store
}

func TestLocalStoreSaveAndDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	stored, err := store.Save(ctx, strings.NewReader("fake jpeg bytes"), "image/jpeg")
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(stored.ID, ".jpg"))
	assert.Equal(t, "/images/"+stored.ID, stored.URL)
	assert.Len(t, stored.Hash, 64)
	assert.Equal(t, int64(len("fake jpeg bytes")), stored.Size)

	_, err = os.Stat(filepath.Join(store.dir, stored.ID))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, stored.ID))
	_, err = os.Stat(filepath.Join(store.dir, stored.ID))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStoreSameContentSameHash(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Save(ctx, strings.NewReader("identical"), "image/png")
	require.NoError(t, err)
	second, err := store.Save(ctx, strings.NewReader("identical"), "image/png")
	require.NoError(t, err)

	assert.Equal(t, first.Hash, second.Hash)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestLocalStoreRejectsUnknownContentType(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Save(context.Background(), strings.NewReader("x"), "application/pdf")
	assert.ErrorIs(t, err, ErrUnsupportedContentType)
}

func TestLocalStoreDeleteMissingIsNoop(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Delete(context.Background(), "gone.jpg"))
}

func TestLocalStoreDeleteRejectsTraversal(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.Delete(context.Background(), "../escape.jpg"))
}

func TestHashReader(t *testing.T) {
	hash, err := HashReader(strings.NewReader("content"))
	require.NoError(t, err)
	assert.Len(t, hash, 64)

	same, err := HashReader(strings.NewReader("content"))
	require.NoError(t, err)
	assert.Equal(t, hash, same)
}
