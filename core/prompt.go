package core

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/josephlewis42/cowsh/core/config"
)

// DefaultPrompt is used when the configuration has no prompt template.
const DefaultPrompt = `\u@\h:\w\$ `

var (
	ColorBoldGreen = color.New(color.FgGreen, color.Bold)
	ColorBoldRed   = color.New(color.FgRed, color.Bold)
)

func init() {
	// Whether to color is decided per prompt, not by the terminal check
	// fatih/color runs on stdout.
	ColorBoldGreen.EnableColor()
	ColorBoldRed.EnableColor()
}

// PromptEnv is the part of the environment shown in the prompt.
type PromptEnv struct {
	User string
	Host string
	Dir  string
	Home string
	Root bool
}

// CurrentPromptEnv reads the prompt environment of the running process.
func CurrentPromptEnv() PromptEnv {
	var env PromptEnv

	if u, err := user.Current(); err == nil {
		env.User = u.Username
		env.Home = u.HomeDir
	} else {
		env.User = os.Getenv(EnvUser)
	}
	if home := os.Getenv(EnvHome); home != "" {
		env.Home = home
	}

	host, _ := os.Hostname()
	env.Host = strings.SplitN(host, ".", 2)[0]
	env.Dir, _ = os.Getwd()
	env.Root = os.Getuid() == 0
	return env
}

// Prompt renders the prompt template before each line is read.
type Prompt struct {
	Template   string
	StatusOK   string
	StatusFail string
	Color      bool
}

// NewPrompt creates a prompt from the configuration; isTerminal decides
// whether "auto" colors.
func NewPrompt(cfg *config.Configuration, isTerminal bool) *Prompt {
	p := &Prompt{
		Template:   cfg.Prompt,
		StatusOK:   cfg.StatusOK,
		StatusFail: cfg.StatusFail,
	}

	switch cfg.Color {
	case config.ColorAlways:
		p.Color = true
	case config.ColorNever:
		p.Color = false
	default:
		p.Color = isTerminal
	}
	return p
}

func (p *Prompt) status(status int) string {
	glyph, c := p.StatusOK, ColorBoldGreen
	if status != 0 {
		glyph, c = p.StatusFail, ColorBoldRed
	}
	if glyph == "" {
		glyph = fmt.Sprintf("%d", status)
	}

	if p.Color {
		return c.Sprint(glyph)
	}
	return glyph
}

// Render expands the template for the given exit status and last command
// number.
func (p *Prompt) Render(status int, lastSequence uint64, env PromptEnv) string {
	template := p.Template
	if template == "" {
		template = DefaultPrompt
	}

	var sb strings.Builder
	escaped := false
	for _, r := range template {
		if !escaped {
			if r == '\\' {
				escaped = true
			} else {
				sb.WriteRune(r)
			}
			continue
		}

		escaped = false
		switch r {
		case 's':
			sb.WriteString(p.status(status))
		case '#':
			fmt.Fprintf(&sb, "%d", lastSequence)
		case 'u':
			sb.WriteString(env.User)
		case 'h':
			sb.WriteString(env.Host)
		case 'w':
			sb.WriteString(shortenHome(env.Dir, env.Home))
		case '$':
			if env.Root {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('$')
			}
		case '\\':
			sb.WriteByte('\\')
		default:
			sb.WriteByte('\\')
			sb.WriteRune(r)
		}
	}
	if escaped {
		sb.WriteByte('\\')
	}

	return sb.String()
}

func shortenHome(dir, home string) string {
	if home == "" || home == "/" {
		return dir
	}
	home = filepath.Clean(home)
	switch {
	case dir == home:
		return "~"
	case strings.HasPrefix(dir, home+string(filepath.Separator)):
		return "~" + strings.TrimPrefix(dir, home)
	default:
		return dir
	}
}
