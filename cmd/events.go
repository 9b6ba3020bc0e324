package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/josephlewis42/cowsh/core/logger"
	"github.com/spf13/cobra"
	"google.golang.org/protobuf/types/known/structpb"
	"sigs.k8s.io/yaml"
)

var eventsCmd = &cobra.Command{
	Use:     "events",
	Aliases: []string{"logs"},
	Short:   "Explore the shell event log.",
}

// openEventLog opens the log named on the command line, or the configured
// one.
func openEventLog(args []string) (io.ReadCloser, error) {
	if len(args) > 0 {
		return os.Open(args[0])
	}

	config, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return config.ReadEventLog()
}

func printEventReport(cmd *cobra.Command, args []string, update func(*structpb.Struct), report interface{}) error {
	cmd.SilenceUsage = true

	fd, err := openEventLog(args)
	if err != nil {
		return err
	}
	defer fd.Close()

	if err := logger.ReadJSONLinesLog(fd, update); err != nil {
		return err
	}

	out, err := yaml.Marshal(report)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

var reportCommand = &cobra.Command{
	Use:   "report [EVENT_LOG]",
	Short: "Show a report of events.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var report logger.Report
		return printEventReport(cmd, args, report.Update, &report)
	},
}

var sessionsCommand = &cobra.Command{
	Use:   "sessions [EVENT_LOG]",
	Short: "Show the commands run in each session.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var report logger.SessionReport
		return printEventReport(cmd, args, report.Update, &report)
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(reportCommand)
	eventsCmd.AddCommand(sessionsCommand)
}
