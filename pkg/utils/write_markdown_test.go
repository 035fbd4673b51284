package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteMarkdown(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results", "AAPL", "2025-01-02")

	path, err := WriteMarkdown(dir, "stock_analysis.md", "# AAPL\n")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "stock_analysis.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# AAPL\n", string(data))

	_, err = WriteMarkdown(dir, " ", "x")
	assert.Error(t, err)
}

func TestReportDir(t *testing.T) {
	assert.Equal(t, filepath.Join("results", "BRK.B", "2025-01-02"), ReportDir("results", "BRK.B", "2025-01-02"))
	assert.Equal(t, filepath.Join("results", "a_b", "d"), ReportDir("results", " a/b ", "d"))
}
