package parsers

import (
	"regexp"
	"strings"
)

// CodeBlock is a fenced block found in model output.
type CodeBlock struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

var (
	codeBlockRe   = regexp.MustCompile("(?s)```(\\w+)?\\n(.*?)```")
	numberedRe    = regexp.MustCompile(`^\d+[.)]\s+`)
	bulletRe      = regexp.MustCompile(`^[-*•]\s+`)
	thinkRe       = regexp.MustCompile(`(?is)<think>.*?</think>`)
	speakerRe     = regexp.MustCompile(`(?im)^(system|assistant|ai):\s*`)
	blankRunRe    = regexp.MustCompile(`\n{3,}`)
	headingRe     = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	sectionNameRe = regexp.MustCompile(`\s+`)
)

// ExtractCodeBlocks returns every fenced block. Blocks without a tag are "text".
func ExtractCodeBlocks(s string) []CodeBlock {
	matches := codeBlockRe.FindAllStringSubmatch(s, -1)
	blocks := make([]CodeBlock, 0, len(matches))
	for _, m := range matches {
		lang := m[1]
		if lang == "" {
			lang = "text"
		}
		blocks = append(blocks, CodeBlock{Language: lang, Code: strings.TrimSpace(m[2])})
	}
	return blocks
}

// ParseList extracts items from numbered, bulleted or plain lines. Headings are skipped.
func ParseList(s string) []string {
	var items []string
	for _, line := range strings.Split(s, "\n") {
		t := strings.TrimSpace(line)
		switch {
		case t == "", strings.HasPrefix(t, "#"):
			continue
		case numberedRe.MatchString(t):
			items = append(items, numberedRe.ReplaceAllString(t, ""))
		case bulletRe.MatchString(t):
			items = append(items, bulletRe.ReplaceAllString(t, ""))
		default:
			items = append(items, t)
		}
	}
	return items
}

// ParseSections splits markdown by headings. Text before the first heading is "main".
func ParseSections(s string) map[string]string {
	sections := map[string]string{}
	current := "main"
	var buf []string
	flush := func() {
		if len(buf) > 0 {
			sections[current] = strings.TrimSpace(strings.Join(buf, "\n"))
		}
	}
	for _, line := range strings.Split(s, "\n") {
		if m := headingRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			flush()
			current = sectionNameRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(m[2])), "_")
			buf = nil
			continue
		}
		buf = append(buf, line)
	}
	flush()
	return sections
}

// CleanResponse strips reasoning tags and speaker prefixes and collapses blank runs.
func CleanResponse(s string) string {
	s = strings.TrimSpace(s)
	s = thinkRe.ReplaceAllString(s, "")
	s = speakerRe.ReplaceAllString(s, "")
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
