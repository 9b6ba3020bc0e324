// Package launcher runs pipelines as operating system processes.
package launcher

import (
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"os/exec"
	"syscall"

	"github.com/josephlewis42/cowsh/core/shell"
)

var (
	// ErrSpawn is returned when a program can't be found or started.
	ErrSpawn = errors.New("couldn't start process")
	// ErrPipe is returned when the pipe between two segments can't be made.
	ErrPipe = errors.New("couldn't create pipe")
	// ErrRedirect is returned when a redirection target can't be opened.
	ErrRedirect = errors.New("couldn't open redirect")
)

// Exit statuses for commands that never ran, following shell convention.
const (
	StatusFailure       = 1
	StatusNotExecutable = 126
	StatusNotFound      = 127
)

// Error describes a pipeline that couldn't be started.
type Error struct {
	// Kind is ErrSpawn, ErrPipe or ErrRedirect.
	Kind error
	// Name is the program that failed to start, if any.
	Name string
	Err  error
}

func (e *Error) Error() string {
	cause := e.Err
	var execErr *exec.Error
	if errors.As(cause, &execErr) {
		cause = execErr.Err
	}

	switch {
	case errors.Is(cause, exec.ErrNotFound):
		return e.Name + ": command not found"
	case e.Name == "":
		return cause.Error()
	default:
		return e.Name + ": " + cause.Error()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes errors.Is match the kind of failure as well as its cause.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// Notifier is told the pid of every background pipeline that finished.
type Notifier interface {
	Notify(pid int)
}

// Launcher starts pipelines with a fixed set of standard streams.
type Launcher struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	env      []string
	notifier Notifier
	logger   *log.Logger
	lookPath func(string) (string, error)
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithStdio sets the streams foreground pipelines are connected to.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(l *Launcher) {
		l.stdin = stdin
		l.stdout = stdout
		l.stderr = stderr
	}
}

// WithNotifier sets who hears about finished background pipelines.
func WithNotifier(n Notifier) Option {
	return func(l *Launcher) {
		l.notifier = n
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *log.Logger) Option {
	return func(l *Launcher) {
		l.logger = logger
	}
}

// WithEnv sets the environment of started processes. A nil env inherits the
// interpreter's environment.
func WithEnv(env []string) Option {
	return func(l *Launcher) {
		l.env = env
	}
}

// WithLookPath replaces the executable search, exec.LookPath by default.
func WithLookPath(lookPath func(string) (string, error)) Option {
	return func(l *Launcher) {
		l.lookPath = lookPath
	}
}

// New creates a launcher connected to the process's own stdio.
func New(opts ...Option) *Launcher {
	l := &Launcher{
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		logger:   log.New(ioutil.Discard, "", 0),
		lookPath: exec.LookPath,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RunForeground runs a single command and waits for it.
func (l *Launcher) RunForeground(argv []string) (int, error) {
	return l.RunPipeline(shell.Single(argv))
}

// RunPipeline starts every segment of p and waits for the last one, whose
// exit status is returned. Earlier segments are reaped in the background and
// their statuses are not reported.
func (l *Launcher) RunPipeline(p shell.Pipeline) (int, error) {
	cmds, err := l.start(p, false)
	if err != nil {
		return FailureStatus(err), err
	}

	last := len(cmds) - 1
	for _, cmd := range cmds[:last] {
		go waitQuietly(cmd)
	}

	_ = cmds[last].Wait()
	status := exitStatus(cmds[last])
	l.logger.Printf("pid %d (%s) exited with status %d", cmds[last].Process.Pid, p, status)
	return status, nil
}

// RunBackground starts p without waiting for it and returns the pid of its
// last process. started, if set, is called with that pid before the exit can
// be reported. Once every segment exited the pid is handed to the notifier.
func (l *Launcher) RunBackground(p shell.Pipeline, started func(pid int)) (int, error) {
	cmds, err := l.start(p, true)
	if err != nil {
		return 0, err
	}

	pid := cmds[len(cmds)-1].Process.Pid
	l.logger.Printf("started background pid %d: %s", pid, p)
	if started != nil {
		started(pid)
	}

	go func() {
		for _, cmd := range cmds {
			waitQuietly(cmd)
		}
		l.logger.Printf("background pid %d exited", pid)
		if l.notifier != nil {
			l.notifier.Notify(pid)
		}
	}()

	return pid, nil
}

// start wires up and starts every segment of p. On failure nothing is left
// running and every descriptor it opened is closed.
func (l *Launcher) start(p shell.Pipeline, background bool) (cmds []*exec.Cmd, err error) {
	if len(p) == 0 {
		return nil, &Error{Kind: ErrSpawn, Err: errors.New("empty pipeline")}
	}

	// Descriptors the children inherit; the parent's copies are closed once
	// the children hold their own.
	var inherited []*os.File
	closeInherited := func() {
		for _, f := range inherited {
			f.Close()
		}
		inherited = nil
	}

	defer func() {
		closeInherited()
		if err != nil {
			for _, cmd := range cmds {
				cmd.Process.Kill()
				cmd.Wait()
			}
			cmds = nil
		}
	}()

	var upstream *os.File
	for i, seg := range p {
		if len(seg.Argv) == 0 {
			return cmds, &Error{Kind: ErrSpawn, Err: fmt.Errorf("segment %d is empty", i)}
		}

		path, lookErr := l.lookPath(seg.Argv[0])
		if lookErr != nil {
			return cmds, &Error{Kind: ErrSpawn, Name: seg.Argv[0], Err: lookErr}
		}

		cmd := &exec.Cmd{
			Path:   path,
			Args:   seg.Argv,
			Env:    l.env,
			Stderr: l.stderr,
		}

		switch {
		case seg.Stdin != nil:
			fd, openErr := os.Open(seg.Stdin.Path)
			if openErr != nil {
				return cmds, &Error{Kind: ErrRedirect, Err: openErr}
			}
			inherited = append(inherited, fd)
			cmd.Stdin = fd
		case i > 0:
			if upstream != nil {
				cmd.Stdin = upstream
			}
		case !background:
			cmd.Stdin = l.stdin
		}

		upstream = nil
		switch {
		case seg.Stdout != nil:
			fd, openErr := openOutput(seg.Stdout)
			if openErr != nil {
				return cmds, &Error{Kind: ErrRedirect, Err: openErr}
			}
			inherited = append(inherited, fd)
			cmd.Stdout = fd
		case i < len(p)-1:
			r, w, pipeErr := os.Pipe()
			if pipeErr != nil {
				return cmds, &Error{Kind: ErrPipe, Err: pipeErr}
			}
			inherited = append(inherited, r, w)
			cmd.Stdout = w
			upstream = r
		default:
			cmd.Stdout = l.stdout
		}

		if background {
			// Keep terminal interrupts away from background jobs.
			attr := &syscall.SysProcAttr{Setpgid: true}
			if len(cmds) > 0 {
				attr.Pgid = cmds[0].Process.Pid
			}
			cmd.SysProcAttr = attr
		}

		if startErr := cmd.Start(); startErr != nil {
			return cmds, &Error{Kind: ErrSpawn, Name: seg.Argv[0], Err: startErr}
		}
		cmds = append(cmds, cmd)
	}

	return cmds, nil
}

func openOutput(r *shell.Redirect) (*os.File, error) {
	flag := os.O_WRONLY | os.O_CREATE
	if r.Append {
		flag |= os.O_APPEND
	} else {
		flag |= os.O_TRUNC
	}
	return os.OpenFile(r.Path, flag, 0666)
}

func waitQuietly(cmd *exec.Cmd) {
	_ = cmd.Wait()
}

// exitStatus converts the state of a waited command into a shell exit
// status.
func exitStatus(cmd *exec.Cmd) int {
	state := cmd.ProcessState
	if state == nil {
		return StatusFailure
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	if code := state.ExitCode(); code >= 0 {
		return code
	}
	return StatusFailure
}

// FailureStatus picks the status reported for a pipeline that never ran.
func FailureStatus(err error) int {
	var launchErr *Error
	if !errors.As(err, &launchErr) || launchErr.Kind != ErrSpawn {
		return StatusFailure
	}

	switch {
	case errors.Is(launchErr.Err, exec.ErrNotFound), errors.Is(launchErr.Err, os.ErrNotExist):
		return StatusNotFound
	case errors.Is(launchErr.Err, os.ErrPermission):
		return StatusNotExecutable
	default:
		return StatusFailure
	}
}
