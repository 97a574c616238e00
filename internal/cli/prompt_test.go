package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gemini-image/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiteralPrompt(t *testing.T) {
	text, err := LiteralPrompt("  a red fox \n").Resolve()
	require.NoError(t, err)
	assert.Equal(t, "a red fox", text)

	_, err = LiteralPrompt("   ").Resolve()
	var vErr *common.ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestFilePrompt(t *testing.T) {
	t.Run("reads then deletes", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prompt.txt")
		require.NoError(t, os.WriteFile(path, []byte("a red fox\n"), 0600))

		text, err := FilePrompt{Path: path}.Resolve()
		require.NoError(t, err)
		assert.Equal(t, "a red fox", text)
		assert.NoFileExists(t, path)
	})

	t.Run("empty file is deleted and rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.txt")
		require.NoError(t, os.WriteFile(path, []byte(" \n\t"), 0600))

		_, err := FilePrompt{Path: path}.Resolve()
		var vErr *common.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.NoFileExists(t, path)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := FilePrompt{Path: filepath.Join(t.TempDir(), "missing.txt")}.Resolve()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "file not found")
	})
}
