// Package prompts holds the reasoning prompts as embedded markdown templates.
package prompts

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed prompts
var promptFiles embed.FS

const (
	StockAnalysis = "stock_analysis"
	Chat          = "chat"
)

// Load loads a prompt from the embedded markdown files
func Load(name string) (string, error) {
	content, err := promptFiles.ReadFile(fmt.Sprintf("prompts/%s.md", name))
	if err != nil {
		return "", fmt.Errorf("failed to load prompt %s: %w", name, err)
	}
	return string(content), nil
}

// Render loads a prompt and replaces variables written as {{.Name}}
func Render(name string, vars map[string]string) (string, error) {
	content, err := Load(name)
	if err != nil {
		return "", err
	}

	pairs := make([]string, 0, 2*len(vars))
	for key, value := range vars {
		pairs = append(pairs, "{{."+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(content), nil
}
