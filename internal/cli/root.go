// Package cli implements the replay command line.
package cli

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/park285/cheese-replay/internal/msgcat"
	"github.com/park285/cheese-replay/internal/obslog"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const version = "v0.1.0"

// app carries what the subcommands share; it is filled in by the root pre-run.
type app struct {
	logger *zap.Logger
	cat    *msgcat.Catalog
}

func Root() *cobra.Command {
	a := &app{logger: zap.NewNop(), cat: msgcat.Default()}

	root := &cobra.Command{
		Use:   "replay",
		Short: "Step through recorded chess games",
		Long: heredoc.Doc(`replay loads a finished game record in PGN move text and
			lets you walk through it one ply at a time, render any position
			as an image, or drive a session on a replay server.`),
		Args: cobra.NoArgs,

		SilenceErrors: true,
		SilenceUsage:  true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := zapcore.WarnLevel
			if trace, _ := cmd.Flags().GetBool("trace"); trace {
				level = zapcore.DebugLevel
			}
			logger, err := obslog.Build(obslog.Options{Level: level, Console: true, Format: "console", Stderr: true})
			if err != nil {
				return err
			}
			a.logger = logger

			if dir, _ := cmd.Flags().GetString("messages"); dir != "" {
				cat, err := msgcat.New(dir)
				if err != nil {
					return err
				}
				a.cat = cat
			}
			return nil
		},
	}

	root.PersistentFlags().BoolP("trace", "t", false, "Show trace logging on stderr")
	root.PersistentFlags().String("messages", "", "Directory with YAML message overrides")
	root.Version = version
	root.SetVersionTemplate(version + "\n")

	root.AddCommand(playCmd(a))
	root.AddCommand(renderCmd(a))
	root.AddCommand(classifyCmd(a))
	root.AddCommand(outcomeCmd(a))
	root.AddCommand(remoteCmd(a))
	root.AddCommand(watchCmd(a))
	return root
}
