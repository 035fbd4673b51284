package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderStockAnalysis(t *testing.T) {
	out, err := Render(StockAnalysis, map[string]string{
		"Symbol":      "AAPL",
		"CompanyName": "Apple Inc.",
		"Context":     "News Article: x",
		"Profile":     "User Profile:",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "analyzing the stock Apple Inc. (AAPL)")
	assert.Contains(t, out, "News Article: x")
	assert.NotContains(t, out, "{{.")
}

func TestRenderChatLeavesBracesInValuesAlone(t *testing.T) {
	out, err := Render(Chat, map[string]string{
		"Context": "ctx",
		"History": "",
		"Message": "what about {{.Context}}?",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "User's current message: what about {{.Context}}?")
}

func TestLoadUnknown(t *testing.T) {
	_, err := Load("missing")
	assert.Error(t, err)
}
