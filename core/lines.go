package core

import (
	"bufio"
	"io"
	"strings"
	"sync"

	"github.com/abiosoft/readline"
	"github.com/josephlewis42/cowsh/core/history"
)

// LineSource supplies the lines the shell runs. Readline returns io.EOF
// once the input is exhausted and readline.ErrInterrupt if the line being
// edited was abandoned.
type LineSource interface {
	Readline() (string, error)
	SetPrompt(prompt string)
	Close() error
}

var _ LineSource = (*readline.Instance)(nil)
var _ LineSource = (*ScriptSource)(nil)

// ScriptSource reads newline separated commands from a non-interactive
// input, such as a script piped to the shell. The prompt is never shown and
// lines may be of any length.
type ScriptSource struct {
	reader *bufio.Reader
	closer io.Closer
}

// NewScriptSource creates a line source for r. If r is an io.Closer it's
// closed with the source.
func NewScriptSource(r io.Reader) *ScriptSource {
	closer, _ := r.(io.Closer)
	return &ScriptSource{
		reader: bufio.NewReader(r),
		closer: closer,
	}
}

func (s *ScriptSource) Readline() (string, error) {
	line, err := s.reader.ReadString('\n')
	if err == io.EOF && line != "" {
		// The last line had no newline.
		err = nil
	}
	if err != nil {
		return "", err
	}

	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}

func (s *ScriptSource) SetPrompt(string) {}

func (s *ScriptSource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// recallListener turns the line editor's previous/next keys into history
// recall. The editor calls it from its own goroutine.
//
// readline rings the bell when its own history, which the shell leaves
// empty, has nothing to show. FilterInputRune swaps the keys for CharBell,
// a no-op outside readline's menus, and remembers which one was pressed.
type recallListener struct {
	mu      sync.Mutex
	nav     *history.Navigator
	pending rune
	// inMenu reports whether the completion menu, which uses the same keys,
	// is open.
	inMenu func() bool
}

func (l *recallListener) FilterInputRune(r rune) (rune, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pending = 0
	if r != readline.CharPrev && r != readline.CharNext {
		return r, true
	}
	if l.inMenu != nil && l.inMenu() {
		return r, true
	}

	l.pending = r
	return readline.CharBell, true
}

func (l *recallListener) OnChange(line []rune, pos int, key rune) ([]rune, int, bool) {
	var text string

	l.mu.Lock()
	if key == readline.CharBell && l.pending != 0 {
		key = l.pending
	}
	l.pending = 0

	switch key {
	case readline.CharPrev:
		text = l.nav.Previous(string(line))
	case readline.CharNext:
		text = l.nav.Next(string(line))
	default:
		l.mu.Unlock()
		return nil, 0, false
	}
	l.mu.Unlock()

	out := []rune(text)
	return out, len(out), true
}

func (l *recallListener) setMenu(inMenu func() bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inMenu = inMenu
}

func (l *recallListener) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nav.Reset()
}

// ReadlineConfig holds the streams of an interactive line source.
type ReadlineConfig struct {
	Stdin      io.ReadCloser
	Stdout     io.Writer
	Stderr     io.Writer
	IsTerminal func() bool
}

// NewReadlineSource creates an interactive line editor for s. Up/down (and
// Ctrl-P/Ctrl-N) recall from the shell's history and Tab completes command
// names.
func (s *Shell) NewReadlineSource(rc ReadlineConfig) (*readline.Instance, error) {
	cfg := &readline.Config{
		Stdout:                 rc.Stdout,
		Stderr:                 rc.Stderr,
		FuncIsTerminal:         rc.IsTerminal,
		Listener:               s.recall,
		FuncFilterInputRune:    s.recall.FilterInputRune,
		AutoComplete:           &Completer{Searcher: s.searcher},
		DisableAutoSaveHistory: true,
	}
	if rc.Stdin != nil {
		cfg.Stdin = readline.NewCancelableStdin(rc.Stdin)
	}

	if err := cfg.Init(); err != nil {
		return nil, err
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, err
	}
	s.recall.setMenu(rl.Operation.IsInCompleteMode)
	return rl, nil
}
