package verilog

import (
	"bufio"
	"io"
	"strings"

	"github.com/aescanero/ordo/pkg/adapters/formats/token"
)

// lex splits structural Verilog into tokens. Escaped identifiers keep their
// leading backslash stripped; sized literals such as 4'b1010 are one token.
func lex(r io.Reader, file string) ([]token.Token, error) {
	data, err := io.ReadAll(bufio.NewReader(r))
	if err != nil {
		return nil, err
	}
	src := string(data)

	var toks []token.Token
	line := 1
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '\n':
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case strings.HasPrefix(src[i:], "//"):
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return nil, &token.ParseError{File: file, Line: line, Msg: "unterminated comment"}
			}
			line += strings.Count(src[i:i+2+end], "\n")
			i += end + 4
		case c == '`':
			return nil, &token.ParseError{File: file, Line: line, Msg: "compiler directives are not supported"}
		case c == '\\':
			start := i + 1
			for i < len(src) && !isSpace(src[i]) {
				i++
			}
			if i == start {
				return nil, &token.ParseError{File: file, Line: line, Msg: "empty escaped identifier"}
			}
			toks = append(toks, token.Token{Text: src[start:i], Line: line})
		case isIdentStart(c):
			start := i
			for i < len(src) && isIdentChar(src[i]) {
				i++
			}
			toks = append(toks, token.Token{Text: src[start:i], Line: line})
		case c >= '0' && c <= '9' || c == '\'':
			start := i
			for i < len(src) && (src[i] >= '0' && src[i] <= '9' || src[i] == '_') {
				i++
			}
			if i < len(src) && src[i] == '\'' {
				i++
				if i < len(src) && (src[i] == 's' || src[i] == 'S') {
					i++
				}
				for i < len(src) && isLiteralChar(src[i]) {
					i++
				}
			}
			toks = append(toks, token.Token{Text: src[start:i], Line: line})
		case strings.IndexByte("()[]{}:;,.#=", c) >= 0:
			toks = append(toks, token.Token{Text: string(c), Line: line})
			i++
		default:
			return nil, &token.ParseError{File: file, Line: line, Msg: "unexpected character " + string(c)}
		}
	}

	return toks, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9' || c == '$'
}

func isLiteralChar(c byte) bool {
	return isIdentChar(c) || c == '?'
}
