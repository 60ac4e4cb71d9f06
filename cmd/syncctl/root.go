package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/Ezyrone/TP-Final-2/pkg/client"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// settings are resolved from flags, SYNCBOARD_* env vars, then defaults.
type settings struct {
	Server      string
	Monitor     string
	SessionFile string
	Timeout     time.Duration
	Verbose     bool
}

func loadSettings(v *viper.Viper) (settings, error) {
	s := settings{
		Server:      strings.TrimRight(v.GetString("server"), "/"),
		Monitor:     strings.TrimRight(v.GetString("monitor"), "/"),
		SessionFile: v.GetString("session-file"),
		Timeout:     v.GetDuration("timeout"),
		Verbose:     v.GetBool("verbose"),
	}
	if s.Server == "" {
		return settings{}, fmt.Errorf("server URL is required")
	}
	if s.SessionFile == "" {
		path, err := client.DefaultSessionPath()
		if err != nil {
			return settings{}, fmt.Errorf("resolve session file: %w", err)
		}
		s.SessionFile = path
	}
	return s, nil
}

func (s settings) logger() *zap.Logger {
	if !s.Verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func (s settings) sessions() *client.FileSessionStore {
	return client.NewFileSessionStore(s.SessionFile)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("SYNCBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func newRootCmd() *cobra.Command {
	v := newViper()

	rootCmd := &cobra.Command{
		Use:           "syncctl",
		Short:         "syncctl: shared list client for the sync hub",
		Long:          "syncctl logs in to a sync hub, watches the shared list live and adds, edits or removes items from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("server", "http://localhost:3000", "base URL of the sync hub")
	flags.String("monitor", "http://localhost:4001", "base URL of the monitoring service (empty to disable)")
	flags.String("session-file", "", "session file (default: user config dir)")
	flags.Duration("timeout", 10*time.Second, "time to wait for the hub to confirm a command")
	flags.Bool("verbose", false, "log connection details")
	v.BindPFlags(flags)

	load := func() (settings, error) { return loadSettings(v) }

	rootCmd.AddCommand(
		newLoginCmd(load),
		newLogoutCmd(load),
		newWatchCmd(load),
		newAddCmd(load),
		newEditCmd(load),
		newRemoveCmd(load),
	)
	return rootCmd
}
