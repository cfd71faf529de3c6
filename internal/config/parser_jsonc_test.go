package config

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeJSONCRemovesCommentsAndTrailingCommas(t *testing.T) {
	input := `
{
  // line comment
  "items": [
    "one", /* block comment */
    "two",
  ],
  "nested": {
    "enabled": true,
  },
}
`

	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.NotContains(t, normalized, "//")
	require.NotContains(t, normalized, "/*")
	require.NotContains(t, normalized, ",]")
	require.NotContains(t, normalized, ",}")
}

func TestNormalizeJSONCRetainsCommentLikeTextInsideStrings(t *testing.T) {
	input := `{"value":"contains // and /* comment-like */ text",}`
	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.Contains(t, normalized, "// and /* comment-like */")
}

func TestNormalizeJSONCUnterminatedBlockCommentFails(t *testing.T) {
	_, err := normalizeJSONC("{ /* unterminated ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unterminated block comment")
}

func TestEnsureSingleJSONValueRejectsExtraPayload(t *testing.T) {
	decoder := json.NewDecoder(strings.NewReader(`{"one":1}{"two":2}`))
	var payload map[string]any
	require.NoError(t, decoder.Decode(&payload))

	err := ensureSingleJSONValue(decoder)
	require.Error(t, err)
	require.Contains(t, err.Error(), "multiple JSON values")
}

func TestOffsetToLineCol(t *testing.T) {
	content := "line1\nline2\nline3"
	line, col := offsetToLineCol(content, 1)
	require.Equal(t, 1, line)
	require.Equal(t, 1, col)

	line, col = offsetToLineCol(content, 8) // line2, col2
	require.Equal(t, 2, line)
	require.Equal(t, 2, col)

	line, col = offsetToLineCol(content, 999)
	require.Equal(t, 3, line)
	require.Equal(t, 5, col)
}

func TestParseJSONCRejectsInvalidCommandArgv(t *testing.T) {
	_, _, err := Parse(`{"host":{"tts_cmd":"unterminated ' quote"}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid host.tts_cmd")

	_, _, err = Parse(`{"video":{"ffmpeg_cmd":"unterminated ' quote"}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid video.ffmpeg_cmd")
}

func TestParseJSONCTrimsStringFields(t *testing.T) {
	cfg, _, err := Parse(`{
  "api": {"base_url": "  https://training.example.com  "},
  "session": {"language": " English "},
  "host": {"app_name": "  viva-host  "}
}`, Default())
	require.NoError(t, err)
	require.Equal(t, "https://training.example.com", cfg.API.BaseURL)
	require.Equal(t, "English", cfg.Session.Language)
	require.Equal(t, "viva-host", cfg.Host.AppName)
}

func TestParseJSONCRejectsUnknownField(t *testing.T) {
	_, _, err := Parse(`{"session":{"questions":5}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown field")
}

func TestParseJSONCRejectsMultipleTopLevelValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "second object", content: `{"report":{"open":false}}{"report":{"open":true}}`},
		{name: "trailing array", content: `{"report":{"open":false}} [1, 2]`},
		{name: "trailing scalar", content: `{"api":{"timeout_ms":100}} 7`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseJSONC(tc.content)
			require.Error(t, err)
			require.Contains(t, err.Error(), "multiple JSON values")
			require.NotContains(t, err.Error(), "unknown field")
		})
	}
}

func TestParseJSONCTypeErrorIncludesLocation(t *testing.T) {
	_, err := parseJSONC(`{
  "api": {"timeout_ms": "soon"}
}`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 2")
	require.Contains(t, err.Error(), "column")
}
