package main

import (
	"fmt"
	"os"

	runcmd "brewz/cmd/brewz/run"
	"brewz/cmd/brewz/ui"
	validatecmd "brewz/cmd/brewz/validate"
	"brewz/internal/logging"

	"github.com/spf13/cobra"
)

func main() {
	var (
		debug         bool
		logFormat     string
		noInteraction bool
	)
	if err := logging.Configure(logging.LevelInfo); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:   "brewz",
		Short: "Multi-outlet beverage machine simulator",
		Long: `Multi-outlet beverage machine simulator.

brewz loads an instruction file, feeds its ingredients and beverages to a
machine with a fixed number of outlets, and brews them concurrently.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logging.LevelInfo
			if debug {
				level = logging.LevelDebug
			}
			if err := logging.ConfigureWriter(os.Stderr, level, logFormat); err != nil {
				return err
			}
			ui.ConfigureInteraction(noInteraction)
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatText, "Log format: text or json")
	root.PersistentFlags().BoolVar(&noInteraction, "no-interaction", false, "Disable colours in output")

	root.AddCommand(runcmd.Cmd())
	root.AddCommand(validatecmd.Cmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
