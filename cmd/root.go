package cmd

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/josephlewis42/cowsh/core"
	"github.com/josephlewis42/cowsh/core/config"
	"github.com/josephlewis42/cowsh/core/logger"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	cfgPath    string
	command    string
	exitStatus int
)

// configDir is the directory holding config.yaml and the logs.
func configDir() string {
	if cfgPath != "" {
		return cfgPath
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "cowsh")
	}
	return "."
}

func loadConfig() (*config.Configuration, error) {
	configuration, err := config.Load(configDir())

	if errors.Is(err, fs.ErrNotExist) {
		if cfgPath != "" {
			log.Println("Couldn't load config: did you run init?")
			return nil, err
		}
		return config.Default(), nil
	}

	return configuration, err
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cowsh",
	Short: "A small interactive shell",
	Long: `A small interactive shell with pipelines, redirection, background jobs
and a searchable history.

Lines are read from the terminal with arrow key recall and tab completion,
or from standard input when it isn't a terminal.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		appLogFd, err := cfg.OpenAppLog()
		if err != nil {
			return err
		}
		defer appLogFd.Close()

		eventLogFd, err := cfg.OpenEventLog()
		if err != nil {
			return err
		}
		defer eventLogFd.Close()

		sh, err := core.NewShell(core.Options{
			Config: cfg,
			IO: core.IO{
				Stdin:  cmd.InOrStdin(),
				Stdout: cmd.OutOrStdout(),
				Stderr: cmd.ErrOrStderr(),
			},
			AppLog:     log.New(appLogFd, "", log.LstdFlags),
			Events:     logger.NewJsonLinesLogRecorder(eventLogFd).NewSession(),
			IsTerminal: isTerminal(os.Stdout),
		})
		if err != nil {
			return err
		}
		defer sh.Close()

		switch {
		case command != "":
			exitStatus = sh.Execute(command)
			if sh.Exited() {
				exitStatus = sh.ExitStatus()
			}

		case isTerminal(os.Stdin):
			lines, err := sh.NewReadlineSource(core.ReadlineConfig{
				Stdout: cmd.OutOrStdout(),
				Stderr: cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			defer lines.Close()
			exitStatus = sh.Run(lines)

		default:
			lines := core.NewScriptSource(cmd.InOrStdin())
			exitStatus = sh.Run(lines)
		}

		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
	if exitStatus != 0 {
		os.Exit(exitStatus)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config directory (default is $XDG_CONFIG_HOME/cowsh)")
	rootCmd.Flags().StringVarP(&command, "command", "c", "", "run a single command and exit")
}
