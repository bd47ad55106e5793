package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCodeBlocks(t *testing.T) {
	in := "Look:\n```go\nfunc main() {}\n```\nand\n```\nplain\n```"
	blocks := ExtractCodeBlocks(in)
	assert.Equal(t, []CodeBlock{
		{Language: "go", Code: "func main() {}"},
		{Language: "text", Code: "plain"},
	}, blocks)
}

func TestParseList(t *testing.T) {
	in := "# Steps\n1. first\n2) second\n- third\n* fourth\n\nfifth"
	assert.Equal(t, []string{"first", "second", "third", "fourth", "fifth"}, ParseList(in))
}

func TestParseSections(t *testing.T) {
	in := "intro\n## Key Points\n- a\n## Next Steps\n- b"
	got := ParseSections(in)
	assert.Equal(t, "intro", got["main"])
	assert.Equal(t, "- a", got["key_points"])
	assert.Equal(t, "- b", got["next_steps"])
}

func TestCleanResponse(t *testing.T) {
	in := "<think>internal plan</think>\nAssistant: Hello\n\n\n\nWorld"
	assert.Equal(t, "Hello\n\nWorld", CleanResponse(in))
}
