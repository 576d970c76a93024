package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBalanced(t *testing.T) {
	tests := []struct {
		name  string
		input string
		open  byte
		close byte
		want  string
		ok    bool
	}{
		{"bare object", `{"a":1}`, '{', '}', `{"a":1}`, true},
		{"prose around", "Here you go: {\"a\":{\"b\":2}} done", '{', '}', `{"a":{"b":2}}`, true},
		{"code fence", "```json\n[1,2,3]\n```", '[', ']', `[1,2,3]`, true},
		{"bracket in string", `["a]b", "c"]`, '[', ']', `["a]b", "c"]`, true},
		{"escaped quote", `{"t":"say \"}\" now"}`, '{', '}', `{"t":"say \"}\" now"}`, true},
		{"unbalanced", `{"a":1`, '{', '}', "", false},
		{"none", "no json here", '[', ']', "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractBalanced(tt.input, tt.open, tt.close)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeArrayStrings(t *testing.T) {
	d := DecodeArray[[]any]("Summaries:\n[\"one\", \"two\", 3]")
	require.True(t, d.OK())
	require.Len(t, d.Value, 3)
	assert.Equal(t, "one", d.Value[0])
}

func TestDecodeObjectTrailingComma(t *testing.T) {
	type obj struct {
		Title string `json:"title"`
	}
	d := DecodeObject[obj](`{"title": "Intro",}`)
	require.True(t, d.OK(), "err: %v", d.Err)
	assert.Equal(t, "Intro", d.Value.Title)
}

func TestDecodeMalformed(t *testing.T) {
	d := DecodeObject[map[string]any]("sorry, I cannot help")
	assert.True(t, d.Malformed)
	assert.Error(t, d.Err)

	d2 := DecodeArray[[]string](`[1, 2]`)
	assert.True(t, d2.Malformed)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("x"))
	assert.Equal(t, 13, EstimateTokens("a b c d e f g h i j"))
}
