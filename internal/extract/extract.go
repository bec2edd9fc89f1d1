package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	fenceMarker = "```"
	jsonTag     = "json"
	// maxSnippet bounds how much of the offending text a ParseError carries.
	maxSnippet = 200
)

// ErrEmpty is returned when there is nothing left to parse.
var ErrEmpty = errors.New("empty response")

// ParseError reports model output that could not be read as JSON.
type ParseError struct {
	// Input is the candidate text, truncated for diagnostics.
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid JSON in model response: %v (input: %q)", e.Err, e.Input)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsParseError reports whether err wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// Block is one fenced region found in a text.
type Block struct {
	Tag  string
	Body string
	// Closed is false when the text ended before a closing fence.
	Closed bool
}

// Blocks returns the fenced blocks of text in order of appearance.
func Blocks(text string) []Block {
	var blocks []Block
	rest := text
	for {
		i := strings.Index(rest, fenceMarker)
		if i < 0 {
			return blocks
		}
		rest = rest[i+len(fenceMarker):]
		tag := leadingTag(rest)
		rest = rest[len(tag):]

		j := strings.Index(rest, fenceMarker)
		if j < 0 {
			return append(blocks, Block{Tag: tag, Body: rest})
		}
		blocks = append(blocks, Block{Tag: tag, Body: rest[:j], Closed: true})
		rest = rest[j+len(fenceMarker):]
	}
}

// leadingTag returns the info string right after an opening fence. It is only
// treated as a tag when followed by whitespace, the start of a JSON container,
// or the end of the text, so "```true```" keeps "true" as content.
func leadingTag(s string) string {
	end := 0
	for end < len(s) {
		r, size := utf8.DecodeRuneInString(s[end:])
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '+') {
			break
		}
		end += size
	}
	if end == 0 {
		return ""
	}
	if end == len(s) {
		return s
	}
	next, _ := utf8.DecodeRuneInString(s[end:])
	if unicode.IsSpace(next) || next == '{' || next == '[' {
		return s[:end]
	}
	return ""
}

// Candidate selects the text that should hold the JSON document: the first
// json-tagged fence, else the first fence of any kind, else the whole text.
func Candidate(text string) string {
	blocks := Blocks(text)
	for _, b := range blocks {
		if strings.EqualFold(b.Tag, jsonTag) {
			return strings.TrimSpace(b.Body)
		}
	}
	if len(blocks) > 0 {
		return strings.TrimSpace(blocks[0].Body)
	}
	return strings.TrimSpace(text)
}

// JSON extracts and validates the JSON document in text.
func JSON(text string) (json.RawMessage, error) {
	candidate := Candidate(text)
	if candidate == "" {
		return nil, &ParseError{Input: truncate(text), Err: ErrEmpty}
	}
	var raw json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		return nil, &ParseError{Input: truncate(candidate), Err: err}
	}
	return raw, nil
}

// Object is like JSON but also requires the document to be a JSON object.
func Object(text string) (json.RawMessage, error) {
	raw, err := JSON(text)
	if err != nil {
		return nil, err
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, &ParseError{
			Input: truncate(string(raw)),
			Err:   errors.New("expected a JSON object"),
		}
	}
	return raw, nil
}

func truncate(s string) string {
	if len(s) <= maxSnippet {
		return s
	}
	return strings.ToValidUTF8(s[:maxSnippet], "") + "..."
}
