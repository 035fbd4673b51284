// Package utils holds small filesystem helpers shared by the commands.
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteMarkdown writes content to dir/fileName, creating dir when needed,
// and returns the written path.
func WriteMarkdown(dir, fileName, content string) (string, error) {
	if strings.TrimSpace(fileName) == "" {
		return "", fmt.Errorf("file name is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, fileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return path, nil
}

// ReportDir is the directory a report about subject on day is written to.
func ReportDir(resultsDir, subject, day string) string {
	subject = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, strings.TrimSpace(subject))
	return filepath.Join(resultsDir, subject, day)
}
