package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
)

var (
	// Version is injected at build time with -ldflags.
	Version = "dev"
	// Commit is injected at build time with -ldflags.
	Commit = ""
)

const (
	appName = "filevault"

	appShort = "filevault stores files in a Telegram channel and hands out share links"
	appLong  = `
		filevault is a Telegram bot that keeps files in a private database
		channel and publishes deep links for them. Links can be gated behind
		a force-subscribe channel and a rotating access token.

		Configuration is read from the YAML file given with --config, then
		from a .env file and the process environment, which wins.`

	configFlagName   = "config"
	logLevelFlagName = "log-level"
	devFlagName      = "dev"
)

// rootFlags holds the persistent flags shared across the command tree.
type rootFlags struct {
	configPath string
	logLevel   string
	dev        bool
}

func (f *rootFlags) addFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&f.configPath, configFlagName, "config.yaml", "path to the YAML config file")
	flags.StringVarP(&f.logLevel, logLevelFlagName, "v", "", "override the configured log level (trace, debug, info, warn, error)")
	flags.BoolVar(&f.dev, devFlagName, false, "enable developer mode (console logs, no sampling)")
}

func main() {
	err := rootCmd().Execute()
	if errors.Is(err, errRestart) {
		err = reexec()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: heredoc.Doc(appShort),
		Long:  heredoc.Doc(appLong),

		SilenceErrors: true,
		SilenceUsage:  true,

		ValidArgsFunction: cobra.NoFileCompletions,
	}

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		c.PrintErrln(err)
		_ = c.Usage()
		return err
	})

	flags.addFlags(cmd)
	cmd.AddCommand(
		runCmd(flags),
		healthcheckCmd(flags),
		tokenCmd(flags),
		versionCmd(),
	)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display the " + appName + " version",

		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString(Version, Commit, runtime.Version()))
		},
	}
}

func versionString(version, commit, runtimeVersion string) string {
	out := version
	if commit != "" {
		out += " (" + commit + ")"
	}
	return out + ", Go Version: " + runtimeVersion
}
