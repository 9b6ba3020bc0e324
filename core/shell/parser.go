// Package shell turns input lines into tokens and pipelines.
//
// The grammar is deliberately small: words are split on whitespace (with the
// quoting rules go-shlex provides), an unquoted word starting with # begins a
// comment, and the unquoted words |, >, >>, < and a trailing & are operators.
package shell

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/anmitsu/go-shlex"
)

// Structural operators.
const (
	OpPipe        = "|"
	OpRedirectOut = ">"
	OpAppendOut   = ">>"
	OpRedirectIn  = "<"
	OpBackground  = "&"
)

// ErrSyntax is returned for lines that can't be split into words.
var ErrSyntax = errors.New("syntax error")

// Token is a single word of a line.
type Token struct {
	Text string
	// Quoted is set if any part of the word was quoted or escaped, such
	// words are never operators.
	Quoted bool
}

// Plain creates unquoted tokens for words.
func Plain(words ...string) []Token {
	out := make([]Token, len(words))
	for i, word := range words {
		out[i] = Token{Text: word}
	}
	return out
}

// Texts returns the text of each token.
func Texts(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Text
	}
	return out
}

// Tokenize splits line into words and drops any trailing comment.
func Tokenize(line string) ([]Token, error) {
	var out []Token
	for _, raw := range splitRaw(line) {
		words, err := shlex.Split(raw.text, true)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		for _, word := range words {
			out = append(out, Token{Text: word, Quoted: raw.quoted})
		}
	}
	return out, nil
}

type rawWord struct {
	text   string
	quoted bool
}

// splitRaw finds word boundaries the way shlex does without removing the
// quotes, so callers can tell "|" apart from '|'. Scanning stops at an
// unquoted # that starts a word.
func splitRaw(line string) []rawWord {
	var (
		out     []rawWord
		current strings.Builder
		started bool
		quoted  bool
		quote   rune
		escaped bool
	)

	flush := func() {
		if started {
			out = append(out, rawWord{text: current.String(), quoted: quoted})
		}
		current.Reset()
		started, quoted = false, false
	}

	for _, r := range line {
		switch {
		case escaped:
			escaped = false
		case quote != 0:
			switch {
			case r == quote:
				quote = 0
			case r == '\\' && quote == '"':
				escaped = true
			}
		case unicode.IsSpace(r):
			flush()
			continue
		case r == '#' && !started:
			return out
		case r == '\\':
			escaped, quoted = true, true
		case r == '\'' || r == '"':
			quote, quoted = r, true
		}

		started = true
		current.WriteRune(r)
	}

	flush()
	return out
}

// IsOperator reports whether tok is a pipe or redirection operator.
func IsOperator(tok Token) bool {
	if tok.Quoted {
		return false
	}
	switch tok.Text {
	case OpPipe, OpRedirectOut, OpAppendOut, OpRedirectIn:
		return true
	default:
		return false
	}
}

// HasOperator reports whether any token needs the pipeline builder.
func HasOperator(tokens []Token) bool {
	for _, tok := range tokens {
		if IsOperator(tok) {
			return true
		}
	}
	return false
}

// SplitBackground removes a trailing unquoted & and reports whether it was
// present.
func SplitBackground(tokens []Token) ([]Token, bool) {
	if n := len(tokens); n > 0 && !tokens[n-1].Quoted && tokens[n-1].Text == OpBackground {
		return tokens[:n-1], true
	}
	return tokens, false
}
