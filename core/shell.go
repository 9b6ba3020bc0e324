package core

import (
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"

	"github.com/abiosoft/readline"
	"github.com/josephlewis42/cowsh/core/config"
	"github.com/josephlewis42/cowsh/core/history"
	"github.com/josephlewis42/cowsh/core/jobs"
	"github.com/josephlewis42/cowsh/core/launcher"
	"github.com/josephlewis42/cowsh/core/logger"
	"github.com/josephlewis42/cowsh/core/shell"
	"github.com/spf13/afero"
)

const (
	EnvHome = "HOME"
	EnvPWD  = "PWD"
	EnvPath = "PATH"
	EnvUser = "USER"

	// ShellName prefixes diagnostics.
	ShellName = "cowsh"

	// StatusUsage is the status of lines that couldn't be parsed.
	StatusUsage = 2
)

// IO holds the standard streams of a shell.
type IO struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Options configures a Shell. Only Config is required.
type Options struct {
	Config *config.Configuration
	IO     IO

	// AppLog receives diagnostics, discarded if nil.
	AppLog *log.Logger
	// Events receives the structured event log, discarded if nil.
	Events *logger.SessionLogger

	// Fs is searched for executables, the OS filesystem if nil.
	Fs afero.Fs
	// Getenv reads the environment, os.Getenv if nil.
	Getenv func(string) string
	// PromptEnv describes the user and directory for the prompt,
	// CurrentPromptEnv if nil.
	PromptEnv func() PromptEnv
	// IsTerminal is true when the shell is attached to a terminal.
	IsTerminal bool
}

// Shell reads lines, keeps their history and runs them.
type Shell struct {
	History *history.Store
	Jobs    *jobs.Tracker

	recall   *recallListener
	reaper   *jobs.Reaper
	launcher *launcher.Launcher
	searcher *PathSearcher
	prompt   *Prompt

	log       *log.Logger
	events    *logger.SessionLogger
	getenv    func(string) string
	promptEnv func() PromptEnv
	stdout    io.Writer
	stderr    io.Writer

	status     int
	exited     bool
	exitStatus int
	closeOnce  sync.Once
}

// NewShell creates a shell and starts its job reaper. Close must be called
// to stop it.
func NewShell(opts Options) (*Shell, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	store, err := history.NewStore(cfg.HistorySize)
	if err != nil {
		return nil, fmt.Errorf("creating history: %w", err)
	}

	s := &Shell{
		History:   store,
		Jobs:      jobs.NewTracker(cfg.MaxJobs),
		recall:    &recallListener{nav: history.NewNavigator(store)},
		prompt:    NewPrompt(cfg, opts.IsTerminal),
		log:       opts.AppLog,
		events:    opts.Events,
		getenv:    opts.Getenv,
		promptEnv: opts.PromptEnv,
		stdout:    opts.IO.Stdout,
		stderr:    opts.IO.Stderr,
	}
	if s.log == nil {
		s.log = log.New(ioutil.Discard, "", 0)
	}
	if s.events == nil {
		s.events = logger.Discard().NewSession()
	}
	if s.getenv == nil {
		s.getenv = os.Getenv
	}
	if s.promptEnv == nil {
		s.promptEnv = CurrentPromptEnv
	}
	if s.stdout == nil {
		s.stdout = os.Stdout
	}
	if s.stderr == nil {
		s.stderr = os.Stderr
	}
	stdin := opts.IO.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	s.searcher = NewPathSearcher(fs, s.getenv)
	s.reaper = jobs.NewReaper(s.Jobs, jobs.OnReap(func(job jobs.Job) {
		s.log.Printf("reaped background job %d: %s", job.PID, job.Command)
		s.events.Job(logger.EventJobReaped, job.PID, job.Command)
	}))
	s.launcher = launcher.New(
		launcher.WithStdio(stdin, s.stdout, s.stderr),
		launcher.WithNotifier(s.reaper),
		launcher.WithLogger(s.log),
		launcher.WithLookPath(s.searcher.LookPath),
	)

	s.events.Record(logger.EventSessionStart, logger.Fields{
		"history_size": cfg.HistorySize,
		"max_jobs":     cfg.MaxJobs,
	})
	return s, nil
}

// Stdout is the stream builtins print to.
func (s *Shell) Stdout() io.Writer {
	return s.stdout
}

// Stderr is the stream diagnostics are printed to.
func (s *Shell) Stderr() io.Writer {
	return s.stderr
}

// Getenv reads the shell's environment.
func (s *Shell) Getenv(key string) string {
	return s.getenv(key)
}

// Status returns the exit status of the last command.
func (s *Shell) Status() int {
	return s.status
}

// Exit asks the read loop to stop after the current line.
func (s *Shell) Exit(status int) {
	s.exited = true
	s.exitStatus = status
}

// Exited reports whether the shell was asked to stop.
func (s *Shell) Exited() bool {
	return s.exited
}

// ExitStatus is the status the shell was asked to stop with.
func (s *Shell) ExitStatus() int {
	return s.exitStatus
}

// Prompt renders the prompt shown before the next line.
func (s *Shell) Prompt() string {
	return s.prompt.Render(s.status, s.History.LastSequence(), s.promptEnv())
}

// Run reads and executes lines until the input ends or exit is called and
// returns the shell's exit status.
func (s *Shell) Run(lines LineSource) int {
	stop := s.catchInterrupts()
	defer stop()

	for !s.exited {
		lines.SetPrompt(s.Prompt())
		line, err := lines.Readline()

		switch {
		case err == io.EOF:
			s.Exit(s.status)

		case err == readline.ErrInterrupt:
			// The line being edited is dropped.
			s.recall.Reset()
			s.log.Printf("interrupt at prompt")
			s.events.Record(logger.EventInterrupt, logger.Fields{"at_prompt": true})

		case err != nil:
			s.log.Printf("Error readline: %v", err)
			fmt.Fprintf(s.stderr, "%s: %v\n", ShellName, err)
			s.Exit(launcher.StatusFailure)

		default:
			s.Execute(line)
		}
	}

	return s.exitStatus
}

// catchInterrupts keeps SIGINT from killing the shell while it waits on a
// foreground pipeline. Children still get the default disposition.
func (s *Shell) catchInterrupts() (stop func()) {
	sigs := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigs, os.Interrupt)

	go func() {
		for {
			select {
			case <-sigs:
				s.log.Printf("interrupt")
				s.events.Record(logger.EventInterrupt, logger.Fields{"at_prompt": false})
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

// Execute runs a single line and returns its exit status.
func (s *Shell) Execute(line string) int {
	s.recall.Reset()
	s.run(line, true)
	return s.status
}

func (s *Shell) run(line string, expandBang bool) {
	text := strings.TrimSpace(line)

	tokens, err := shell.Tokenize(text)
	if err != nil {
		s.History.Append(text)
		s.fail(StatusUsage, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	if expandBang && isBang(tokens[0]) {
		resolved, ok := s.expandBang(shell.Texts(tokens))
		if !ok {
			fmt.Fprintf(s.stderr, "%s: %s: event not found\n", ShellName, tokens[0].Text)
			s.status = launcher.StatusFailure
			return
		}

		fmt.Fprintln(s.stdout, resolved)
		s.run(resolved, false)
		return
	}

	s.History.Append(text)
	s.dispatch(text, tokens)
	s.events.Command(text, s.status)
}

func isBang(tok shell.Token) bool {
	return !tok.Quoted && len(tok.Text) > 1 && tok.Text[0] == '!'
}

// expandBang resolves !!, !n and !prefix against the history. Words after
// the bang are appended to the recalled command.
func (s *Shell) expandBang(tokens []string) (string, bool) {
	word := tokens[0][1:]

	var entry history.Entry
	var ok bool
	if word == "!" {
		entry, ok = s.History.LookupSequence(s.History.LastSequence())
	} else if n, err := strconv.ParseUint(word, 10, 64); err == nil {
		entry, ok = s.History.LookupSequence(n)
	} else {
		entry, ok = s.History.LookupPrefix(word)
	}
	if !ok {
		return "", false
	}

	return strings.Join(append([]string{entry.Text}, tokens[1:]...), " "), true
}

func (s *Shell) dispatch(text string, tokens []shell.Token) {
	argv, background := shell.SplitBackground(tokens)
	if len(argv) == 0 {
		s.fail(StatusUsage, fmt.Errorf("%w: nothing to run before %s", shell.ErrMalformedPipeline, shell.OpBackground))
		return
	}

	if builtin, ok := AllBuiltins[argv[0].Text]; ok {
		if background || shell.HasOperator(argv) {
			s.fail(launcher.StatusFailure, fmt.Errorf("%s: builtins can't be piped, redirected or run in the background", argv[0].Text))
			return
		}
		s.status = builtin.Main(s, shell.Texts(argv))
		return
	}

	p, err := shell.Build(argv)
	if err != nil {
		s.fail(StatusUsage, err)
		return
	}

	if background {
		s.runBackground(p)
		return
	}

	status, err := s.launcher.RunPipeline(p)
	if err != nil {
		s.reportLaunchError(text, err)
	}
	s.status = status
}

func (s *Shell) runBackground(p shell.Pipeline) {
	command := p.String()
	pid, err := s.launcher.RunBackground(p, func(pid int) {
		if s.Jobs.Add(pid, command) {
			s.events.Job(logger.EventJobStarted, pid, command)
			return
		}
		s.log.Printf("job list full, %d runs untracked: %s", pid, command)
		s.events.Job(logger.EventJobDropped, pid, command)
	})
	if err != nil {
		s.reportLaunchError(command, err)
		s.status = launcher.FailureStatus(err)
		return
	}

	fmt.Fprintf(s.stdout, "[%d]\n", pid)
	s.status = 0
}

func (s *Shell) reportLaunchError(text string, err error) {
	fmt.Fprintf(s.stderr, "%s: %v\n", ShellName, err)
	s.log.Printf("couldn't run %q: %v", text, err)
	s.events.SpawnFailure(text, err)
}

func (s *Shell) fail(status int, err error) {
	fmt.Fprintf(s.stderr, "%s: %v\n", ShellName, err)
	s.log.Printf("rejected line: %v", err)
	s.status = status
}

// Close forgets the background jobs, which keep running, and stops the
// reaper.
func (s *Shell) Close() error {
	var err error
	s.closeOnce.Do(func() {
		for _, job := range s.Jobs.DrainAll() {
			s.log.Printf("leaving background job %d running: %s", job.PID, job.Command)
		}
		err = s.reaper.Close()
		s.events.Record(logger.EventSessionEnd, logger.Fields{
			"status":   s.exitStatus,
			"commands": int64(s.History.LastSequence()),
		})
	})
	return err
}
