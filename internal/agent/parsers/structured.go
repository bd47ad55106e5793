package parsers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	errx "github.com/zenai/agentcore/internal/core/error"
	logx "github.com/zenai/agentcore/pkg/logger"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 256 * 1024 // 256KB
	maxErrSnippet = 200        // limit error snippet size
)

// FieldType is the JSON type a required field must hold.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeNumber FieldType = "number"
	TypeBool   FieldType = "bool"
	TypeArray  FieldType = "array"
	TypeObject FieldType = "object"
	TypeAny    FieldType = "any"
)

// Field is one required top-level key.
type Field struct {
	Name string
	Type FieldType
}

// Shape lists the fields a parsed object must carry. Extra fields are allowed.
type Shape struct {
	Required []Field
}

// NewShape builds a shape from name/type pairs.
func NewShape(fields ...Field) *Shape {
	return &Shape{Required: fields}
}

// Validate checks v against the shape and names the first offending field.
func (s *Shape) Validate(v any) (field string, err error) {
	if s == nil {
		return "", nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return "", fmt.Errorf("expected a JSON object, got %s", jsonType(v))
	}
	for _, f := range s.Required {
		val, present := obj[f.Name]
		if !present {
			return f.Name, fmt.Errorf("missing required field %q", f.Name)
		}
		if !matches(f.Type, val) {
			return f.Name, fmt.Errorf("field %q: expected %s, got %s", f.Name, f.Type, jsonType(val))
		}
	}
	return "", nil
}

func matches(t FieldType, v any) bool {
	switch t {
	case TypeAny, "":
		return true
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeNumber:
		_, ok := v.(float64)
		return ok
	case TypeBool:
		_, ok := v.(bool)
		return ok
	case TypeArray:
		_, ok := v.([]any)
		return ok
	case TypeObject:
		_, ok := v.(map[string]any)
		return ok
	}
	return false
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "bool"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

// ParseStructured recovers a JSON object from model text and validates it against shape.
// It tries, in order: the text with one surrounding code fence removed, then the first
// balanced {...} span. The raw text is kept on every returned error.
func ParseStructured(raw string, shape *Shape) (out any, err error) {
	defer recoverParse(raw, &err)

	v, err := extract(raw, '{', '}')
	if err != nil {
		return nil, err
	}
	if field, verr := shape.Validate(v); verr != nil {
		return nil, errx.SchemaViolation(raw, field, verr)
	}
	return v, nil
}

// ParseInto runs ParseStructured and decodes the result into dst.
func ParseInto(raw string, shape *Shape, dst any) error {
	v, err := ParseStructured(raw, shape)
	if err != nil {
		return err
	}
	return decode(raw, v, dst)
}

// ParseArray recovers a JSON array from model text. Each element is validated against
// item when item is not nil; the offending field is reported as "[i].name".
func ParseArray(raw string, item *Shape) (out []any, err error) {
	defer recoverParse(raw, &err)

	v, err := extract(raw, '[', ']')
	if err != nil {
		return nil, err
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, errx.SchemaViolation(raw, "", fmt.Errorf("expected a JSON array, got %s", jsonType(v)))
	}
	for i, el := range arr {
		if field, verr := item.Validate(el); verr != nil {
			return nil, errx.SchemaViolation(raw, fmt.Sprintf("[%d].%s", i, field), verr)
		}
	}
	return arr, nil
}

// ParseArrayInto runs ParseArray and decodes the result into dst.
func ParseArrayInto(raw string, item *Shape, dst any) error {
	v, err := ParseArray(raw, item)
	if err != nil {
		return err
	}
	return decode(raw, v, dst)
}

func decode(raw string, v any, dst any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errx.Unparsable(raw, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return errx.SchemaViolation(raw, typeErr.Field, err)
		}
		return errx.SchemaViolation(raw, "", err)
	}
	return nil
}

// extract tries the fence-stripped text first and falls back to the first balanced span.
func extract(raw string, open, close byte) (any, error) {
	if len(raw) > maxContentLen {
		logx.Warn().
			Str("component", "response_parser").
			Int("max_len", maxContentLen).
			Int("orig_len", len(raw)).
			Msg("response exceeds size limit")
		return nil, errx.Unparsable(raw, fmt.Errorf("response larger than %d bytes", maxContentLen))
	}

	cleaned := StripFence(raw)
	if cleaned == "" {
		return nil, errx.Unparsable(raw, fmt.Errorf("empty response"))
	}

	var v any
	direct := json.Unmarshal([]byte(cleaned), &v)
	if direct == nil {
		return v, nil
	}

	span, ok := BalancedSpan(cleaned, open, close)
	if !ok {
		return nil, errx.Unparsable(raw, fmt.Errorf("no JSON %c...%c found: %s", open, close, safeSnippet(cleaned)))
	}
	if err := json.Unmarshal([]byte(span), &v); err != nil {
		return nil, errx.Unparsable(raw, fmt.Errorf("invalid JSON span: %w", err))
	}
	return v, nil
}

// StripFence removes a single leading ``` line (with or without a language tag) and
// a single trailing ``` marker. Text without a leading fence is only trimmed.
func StripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// BalancedSpan returns the first balanced open...close span in s. Delimiters inside
// JSON strings, including escaped quotes, are ignored.
func BalancedSpan(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func recoverParse(raw string, err *error) {
	if r := recover(); r != nil {
		logx.Error().Str("component", "response_parser").Msgf("panic recovered: %v", r)
		e := errx.New(fmt.Errorf("response parser panic: %v", r), http.StatusInternalServerError, errx.SystemErrorMessage)
		e.Kind = errx.KindUnparsableResponse
		e.Raw = raw
		*err = e
	}
}

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet]
}
