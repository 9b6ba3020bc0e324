package core

import (
	"io/fs"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// ErrNotFound is the error resulting if a path search failed to find an executable file.
var ErrNotFound = exec.ErrNotFound

// PathSearcher finds executables on the search path.
type PathSearcher struct {
	fs     afero.Fs
	getenv func(string) string
}

// NewPathSearcher creates a searcher reading directories from fs and the
// search path from getenv.
func NewPathSearcher(fs afero.Fs, getenv func(string) string) *PathSearcher {
	return &PathSearcher{fs: fs, getenv: getenv}
}

func (p *PathSearcher) findExecutable(file string) error {
	d, err := p.fs.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0111 != 0 {
		return nil
	}
	return fs.ErrPermission
}

func (p *PathSearcher) dirs() []string {
	var out []string
	for _, dir := range filepath.SplitList(p.getenv(EnvPath)) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		out = append(out, dir)
	}
	return out
}

// LookPath searches for an executable named file in the directories named by
// the PATH environment variable. If file contains a slash, it is tried directly
// and the PATH is not consulted. The result may be an absolute path or a path
// relative to the current directory.
func (p *PathSearcher) LookPath(file string) (string, error) {
	if strings.Contains(file, "/") {
		err := p.findExecutable(file)
		if err == nil {
			return file, nil
		}
		return "", &exec.Error{Name: file, Err: err}
	}
	for _, dir := range p.dirs() {
		path := filepath.Join(dir, file)
		if !strings.Contains(path, "/") {
			path = "." + string(filepath.Separator) + path
		}
		if err := p.findExecutable(path); err == nil {
			return path, nil
		}
	}
	return "", &exec.Error{Name: file, Err: ErrNotFound}
}

// Executables lists the names of executables on the search path starting
// with prefix, sorted and without duplicates. Unreadable directories are
// skipped.
func (p *PathSearcher) Executables(prefix string) []string {
	seen := make(map[string]bool)
	var out []string

	for _, dir := range p.dirs() {
		infos, err := afero.ReadDir(p.fs, dir)
		if err != nil {
			continue
		}
		for _, info := range infos {
			name := info.Name()
			if seen[name] || !strings.HasPrefix(name, prefix) {
				continue
			}
			if err := p.findExecutable(filepath.Join(dir, name)); err != nil {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}

	sort.Strings(out)
	return out
}

// Completer completes the first word of a line with builtins and
// executables on the search path.
type Completer struct {
	Searcher *PathSearcher
}

// Do implements readline.AutoCompleter.
func (c *Completer) Do(line []rune, pos int) ([][]rune, int) {
	word := string(line[:pos])
	if strings.ContainsAny(word, " \t") {
		return nil, 0
	}

	var candidates []string
	for name := range AllBuiltins {
		if strings.HasPrefix(name, word) {
			candidates = append(candidates, name)
		}
	}
	if c.Searcher != nil && word != "" {
		candidates = append(candidates, c.Searcher.Executables(word)...)
	}
	sort.Strings(candidates)

	var out [][]rune
	prefixLen := len(line[:pos])
	for i, name := range candidates {
		if i > 0 && candidates[i-1] == name {
			continue
		}
		out = append(out, []rune(strings.TrimPrefix(name, word)+" "))
	}
	return out, prefixLen
}
