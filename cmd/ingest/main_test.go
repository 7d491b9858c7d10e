package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDocuments(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "hue"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "hanoi.txt"), []byte("Hồ Gươm nằm ở trung tâm Hà Nội."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "hue", "dainoi.md"), []byte(strings.Repeat("Đại Nội Huế. ", 20)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "image.png"), []byte{0x89, 'P', 'N', 'G'}, 0o644))

	docs, err := loadDocuments(root, 100, 10)
	require.NoError(t, err)
	require.Greater(t, len(docs), 2)

	sources := map[string]bool{}
	ids := map[string]bool{}
	for _, d := range docs {
		sources[d.Source] = true
		assert.False(t, ids[d.ID], "duplicate id %s", d.ID)
		ids[d.ID] = true
		assert.NotEmpty(t, d.Text)
	}
	assert.Equal(t, map[string]bool{"hanoi.txt": true, "hue/dainoi.md": true}, sources)

	// 重复导入得到相同的 ID
	again, err := loadDocuments(root, 100, 10)
	require.NoError(t, err)
	require.Len(t, again, len(docs))
	for i := range docs {
		assert.Equal(t, docs[i].ID, again[i].ID)
	}
}

func TestLoadDocuments_MissingDir(t *testing.T) {
	_, err := loadDocuments(filepath.Join(t.TempDir(), "missing"), 100, 10)
	assert.Error(t, err)
}
