package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager_CreatesNestedFolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "downloaded_images")

	m, err := NewManager(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, m.Dir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// 既存フォルダに対しても成功する
	_, err = NewManager(dir)
	assert.NoError(t, err)
}

func TestNewManager_Errors(t *testing.T) {
	_, err := NewManager("")
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = NewManager(filepath.Join(file, "sub"))
	assert.Error(t, err, "ファイルの下にフォルダは作れない")
}

func TestSave(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	path, n, err := m.Save(bytes.NewReader([]byte("first")), "steam_image_abc.jpg")
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, filepath.Join(m.Dir(), "steam_image_abc.jpg"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(content))

	// 同名ファイルは上書きされる
	_, _, err = m.Save(bytes.NewReader([]byte("second")), "steam_image_abc.jpg")
	require.NoError(t, err)
	content, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))

	entries, err := os.ReadDir(m.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "一時ファイルが残っていない")
}

func TestSave_RejectsPathNames(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "../escape.jpg", "sub/dir.jpg"} {
		_, _, err := m.Save(bytes.NewReader(nil), name)
		assert.Error(t, err, name)
	}
}
