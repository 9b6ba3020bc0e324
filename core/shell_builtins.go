package core

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/pborman/getopt/v2"
)

// AllBuiltins holds a list of all registered shell builtins
var AllBuiltins = make(map[string]ShellBuiltin)

type ShellBuiltin interface {
	Main(s *Shell, args []string) int
}

type ShellBuiltinFunc func(s *Shell, args []string) int

func (f ShellBuiltinFunc) Main(s *Shell, args []string) int {
	return f(s, args)
}

var _ ShellBuiltin = (ShellBuiltinFunc)(nil)

// BuiltinNames lists the registered builtins alphabetically.
func BuiltinNames() []string {
	var names []string
	for name := range AllBuiltins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cd is the cd shell builtin
func Cd(s *Shell, args []string) int {
	switch len(args) {
	case 1:
		args = append(args, s.Getenv(EnvHome))
		fallthrough
	case 2:
		if args[1] == "" {
			fmt.Fprintf(s.Stderr(), "%s: HOME not set\n", args[0])
			return 1
		}
		if err := os.Chdir(args[1]); err != nil {
			fmt.Fprintf(s.Stderr(), "%s: %v\n", args[0], err)
			return 1
		}
		if wd, err := os.Getwd(); err == nil {
			os.Setenv(EnvPWD, wd)
		}
	default:
		fmt.Fprintf(s.Stderr(), "%s: too many arguments\n", args[0])
		return 1
	}
	return 0
}

// Exit quits the shell, with the status of the last command unless one is
// given.
func Exit(s *Shell, args []string) int {
	switch len(args) {
	case 1:
		s.Exit(s.Status())
	case 2:
		status, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(s.Stderr(), "%s: %s: numeric argument required\n", args[0], args[1])
			s.Exit(StatusUsage)
			return StatusUsage
		}
		s.Exit(status & 0xff)
	default:
		fmt.Fprintf(s.Stderr(), "%s: too many arguments\n", args[0])
		return 1
	}
	return s.ExitStatus()
}

// History lists the live history entries with their numbers, or clears them.
func History(s *Shell, args []string) int {
	opts := getopt.New()
	clear := opts.Bool('c', "clear the history by deleting all entries")
	helpOpt := opts.BoolLong("help", 'h', "show help and exit")

	if err := opts.Getopt(args, nil); err != nil || *helpOpt || opts.NArgs() > 0 {
		w := s.Stderr()
		if err != nil {
			fmt.Fprintln(w, err)
		}
		fmt.Fprintln(w, "usage: history [-c]")
		fmt.Fprintln(w, "Display the history list with line numbers.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Options:")
		opts.PrintOptions(w)
		return 1
	}

	if *clear {
		s.History.Clear()
		return 0
	}

	for _, entry := range s.History.Entries() {
		fmt.Fprintf(s.Stdout(), "%5d  %s\n", entry.Sequence, entry.Text)
	}
	return 0
}

// Jobs lists the tracked background jobs.
func Jobs(s *Shell, args []string) int {
	opts := getopt.New()
	long := opts.Bool('l', "list process IDs in addition to the commands")
	helpOpt := opts.BoolLong("help", 'h', "show help and exit")

	if err := opts.Getopt(args, nil); err != nil || *helpOpt || opts.NArgs() > 0 {
		w := s.Stderr()
		if err != nil {
			fmt.Fprintln(w, err)
		}
		fmt.Fprintln(w, "usage: jobs [-l]")
		fmt.Fprintln(w, "Display the background jobs that are still running.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Options:")
		opts.PrintOptions(w)
		return 1
	}

	for _, job := range s.Jobs.List() {
		if *long {
			fmt.Fprintf(s.Stdout(), "%d %s\n", job.PID, job.Command)
		} else {
			fmt.Fprintln(s.Stdout(), job.Command)
		}
	}
	return 0
}

// Help prints the builtins and recall forms.
func Help(s *Shell, args []string) int {
	w := s.Stdout()
	fmt.Fprintln(w, "cowsh, a small interactive shell")
	fmt.Fprintln(w, "These shell commands are defined internally.  Type `help' to see this list.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Builtins:")
	fmt.Fprintln(w)
	for _, name := range BuiltinNames() {
		fmt.Fprintln(w, name)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Recall:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "!!        run the last command again")
	fmt.Fprintln(w, "!n        run command number n")
	fmt.Fprintln(w, "!prefix   run the newest command starting with prefix")

	return 0
}

func init() {
	AllBuiltins["cd"] = ShellBuiltinFunc(Cd)
	AllBuiltins["exit"] = ShellBuiltinFunc(Exit)
	AllBuiltins["history"] = ShellBuiltinFunc(History)
	AllBuiltins["jobs"] = ShellBuiltinFunc(Jobs)
	AllBuiltins["help"] = ShellBuiltinFunc(Help)
}
