package shell

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedPipeline is returned when tokens don't describe a runnable
// pipeline.
var ErrMalformedPipeline = errors.New("malformed pipeline")

// Redirect is a file attached to a segment's stdin or stdout.
type Redirect struct {
	Path string
	// Append is only meaningful for output redirects (>>).
	Append bool
}

// Segment is one command of a pipeline.
type Segment struct {
	Argv []string
	// Stdin is nil unless the segment reads from a file.
	Stdin *Redirect
	// Stdout is nil unless the segment writes to a file.
	Stdout *Redirect
}

// String reconstructs the command text of the segment.
func (s Segment) String() string {
	words := append([]string{}, s.Argv...)
	if s.Stdin != nil {
		words = append(words, OpRedirectIn, s.Stdin.Path)
	}
	if s.Stdout != nil {
		op := OpRedirectOut
		if s.Stdout.Append {
			op = OpAppendOut
		}
		words = append(words, op, s.Stdout.Path)
	}
	return strings.Join(words, " ")
}

// Pipeline is a chain of segments, each one's stdout feeding the next one's
// stdin.
type Pipeline []Segment

// Single wraps a plain argument vector as a one-segment pipeline.
func Single(argv []string) Pipeline {
	return Pipeline{{Argv: argv}}
}

func (p Pipeline) String() string {
	parts := make([]string, len(p))
	for i, seg := range p {
		parts[i] = seg.String()
	}
	return strings.Join(parts, " | ")
}

func malformed(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedPipeline, fmt.Sprintf(format, a...))
}

// Build partitions tokens into pipeline segments.
//
// Redirections attach to the segment being built when they are seen. Input
// may only be redirected on the first segment and output only on the last;
// anything else is reported as malformed rather than silently rewired.
// Quoted tokens are always arguments.
func Build(tokens []Token) (Pipeline, error) {
	if len(tokens) == 0 {
		return nil, malformed("empty command")
	}

	var (
		p       Pipeline
		current Segment
	)

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if !IsOperator(tok) {
			current.Argv = append(current.Argv, tok.Text)
			continue
		}

		switch tok.Text {
		case OpPipe:
			if len(current.Argv) == 0 {
				return nil, malformed("empty command before %s", OpPipe)
			}
			p = append(p, current)
			current = Segment{}

		case OpRedirectOut, OpAppendOut, OpRedirectIn:
			if i+1 >= len(tokens) || IsOperator(tokens[i+1]) {
				return nil, malformed("%s requires a file path", tok.Text)
			}
			i++
			target := &Redirect{Path: tokens[i].Text, Append: tok.Text == OpAppendOut}

			if tok.Text == OpRedirectIn {
				if current.Stdin != nil {
					return nil, malformed("multiple %s redirects", OpRedirectIn)
				}
				current.Stdin = target
			} else {
				if current.Stdout != nil {
					return nil, malformed("multiple output redirects")
				}
				current.Stdout = target
			}
		}
	}

	if len(current.Argv) == 0 {
		if len(p) > 0 {
			return nil, malformed("empty command after %s", OpPipe)
		}
		return nil, malformed("missing command")
	}
	p = append(p, current)

	for i, seg := range p {
		if seg.Stdin != nil && i != 0 {
			return nil, malformed("segment %d (%s): input redirect is only allowed on the first command", i, seg.Argv[0])
		}
		if seg.Stdout != nil && i != len(p)-1 {
			return nil, malformed("segment %d (%s): output redirect is only allowed on the last command", i, seg.Argv[0])
		}
	}

	return p, nil
}
