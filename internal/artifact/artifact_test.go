package artifact

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockupdesk/listing-server-go/internal/model"
)

func TestTextBuilderBuild(t *testing.T) {
	b := NewTextBuilder()
	b.Now = func() time.Time { return time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC) }

	assets := []model.PreparedAsset{
		{ID: "a", Name: "poster.jpg", ShareLink: "https://drive.example.com/a"},
		{ID: "b", Name: "frame.jpg", ShareLink: "https://drive.example.com/b"},
	}

	doc, err := b.Build(assets, "Poster Mockup Bundle")
	require.NoError(t, err)

	text := string(doc)
	assert.Contains(t, text, "File 1: poster.jpg")
	assert.Contains(t, text, "File 2: frame.jpg")
	assert.Contains(t, text, "https://drive.example.com/a")
	assert.Contains(t, text, "Product: Poster Mockup Bundle")
	assert.Contains(t, text, "Generated on 2025-06-15 09:30")
	assert.Less(t, strings.Index(text, "poster.jpg"), strings.Index(text, "frame.jpg"))
}

func TestTextBuilderRequiresAssets(t *testing.T) {
	_, err := NewTextBuilder().Build(nil, "title")
	assert.Error(t, err)
}

func TestDirStoreRoundTrip(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	require.NoError(t, err)

	path, err := store.Save("links.txt", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "links.txt", path)

	data, err := store.Open(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestDirStoreRejectsTraversal(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open("../outside.txt")
	assert.Error(t, err)

	_, err = store.Open("/etc/passwd")
	assert.Error(t, err)
}

func TestDirStoreSaveStripsDirectories(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	require.NoError(t, err)

	path, err := store.Save("../../escape.txt", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "escape.txt", path)
}
