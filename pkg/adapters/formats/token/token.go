// Package token splits LEF/DEF style text into whitespace-separated tokens.
package token

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Token is one lexical item and the line it started on
type Token struct {
	Text string
	Line int
}

// ParseError is a syntax or semantic error tied to a source line
type ParseError struct {
	File string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Msg)
}

// Tokenize reads r to the end. '#' starts a comment, double quotes group a
// single token, and ';' '(' ')' are always tokens of their own.
func Tokenize(r io.Reader) ([]Token, error) {
	var toks []Token
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		for i := 0; i < len(text); {
			c := text[i]
			switch {
			case c == ' ' || c == '\t' || c == '\r':
				i++
			case c == '#':
				i = len(text)
			case c == ';' || c == '(' || c == ')':
				toks = append(toks, Token{Text: string(c), Line: line})
				i++
			case c == '"':
				end := strings.IndexByte(text[i+1:], '"')
				if end < 0 {
					return nil, &ParseError{Line: line, Msg: "unterminated string"}
				}
				toks = append(toks, Token{Text: text[i+1 : i+1+end], Line: line})
				i += end + 2
			default:
				start := i
				for i < len(text) && !isDelim(text[i]) {
					i++
				}
				toks = append(toks, Token{Text: text[start:i], Line: line})
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	return toks, nil
}

func isDelim(c byte) bool {
	switch c {
	case ' ', '\t', '\r', ';', '(', ')', '"', '#':
		return true
	}
	return false
}

// Stream is a cursor over a token slice
type Stream struct {
	file string
	toks []Token
	pos  int
}

// NewStream tokenizes r into a Stream
func NewStream(r io.Reader, file string) (*Stream, error) {
	toks, err := Tokenize(r)
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			pe.File = file
			return nil, pe
		}
		return nil, err
	}
	return &Stream{file: file, toks: toks}, nil
}

// FromTokens wraps an already tokenized source
func FromTokens(toks []Token, file string) *Stream {
	return &Stream{file: file, toks: toks}
}

// File returns the source name used in errors
func (s *Stream) File() string {
	return s.file
}

// EOF reports whether all tokens were consumed
func (s *Stream) EOF() bool {
	return s.pos >= len(s.toks)
}

// Line returns the line of the next token, or of the last one at EOF
func (s *Stream) Line() int {
	if len(s.toks) == 0 {
		return 0
	}
	if s.pos >= len(s.toks) {
		return s.toks[len(s.toks)-1].Line
	}
	return s.toks[s.pos].Line
}

// Peek returns the next token text without consuming it, "" at EOF
func (s *Stream) Peek() string {
	if s.EOF() {
		return ""
	}
	return s.toks[s.pos].Text
}

// Next consumes and returns the next token text
func (s *Stream) Next() (string, error) {
	if s.EOF() {
		return "", s.Errorf("unexpected end of file")
	}
	t := s.toks[s.pos]
	s.pos++
	return t.Text, nil
}

// Expect consumes the next token and checks it equals want
func (s *Stream) Expect(want string) error {
	line := s.Line()
	got, err := s.Next()
	if err != nil {
		return err
	}
	if got != want {
		return &ParseError{File: s.file, Line: line, Msg: fmt.Sprintf("expected %q, got %q", want, got)}
	}
	return nil
}

// Int consumes an integer token
func (s *Stream) Int() (int, error) {
	line := s.Line()
	t, err := s.Next()
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(t)
	if err != nil {
		return 0, &ParseError{File: s.file, Line: line, Msg: fmt.Sprintf("expected integer, got %q", t)}
	}
	return v, nil
}

// Float consumes a numeric token
func (s *Stream) Float() (float64, error) {
	line := s.Line()
	t, err := s.Next()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, &ParseError{File: s.file, Line: line, Msg: fmt.Sprintf("expected number, got %q", t)}
	}
	return v, nil
}

// SkipStatement consumes tokens up to and including the next ';'
func (s *Stream) SkipStatement() error {
	for {
		t, err := s.Next()
		if err != nil {
			return err
		}
		if t == ";" {
			return nil
		}
	}
}

// SkipBlock consumes tokens up to and including "END name"
func (s *Stream) SkipBlock(name string) error {
	for {
		t, err := s.Next()
		if err != nil {
			return err
		}
		if t == "END" && s.Peek() == name {
			s.pos++
			return nil
		}
	}
}

// Errorf builds a ParseError at the current line
func (s *Stream) Errorf(format string, args ...interface{}) *ParseError {
	return &ParseError{File: s.file, Line: s.Line(), Msg: fmt.Sprintf(format, args...)}
}

// Statement consumes tokens up to and including the next ';' and returns
// them, without the terminator, as a stream of their own. Errors inside a
// statement therefore never desynchronize the outer stream.
func (s *Stream) Statement() (*Stream, error) {
	start := s.pos
	for {
		t, err := s.Next()
		if err != nil {
			return nil, err
		}
		if t == ";" {
			return &Stream{file: s.file, toks: s.toks[start : s.pos-1]}, nil
		}
	}
}
