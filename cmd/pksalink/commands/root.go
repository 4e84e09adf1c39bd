package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"pksalink/internal/app"
)

var (
	cfgFile    string
	home       string
	passphrase string
	relayURL   string
	debug      bool

	wire *app.Wire
)

func Execute() error {
	root := &cobra.Command{
		Use:           "pksalink",
		Short:         "Authenticate and sign through a remote signer app",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := &app.Config{}
			if cfgFile != "" {
				var err error
				if cfg, err = app.LoadFile(cfgFile); err != nil {
					return err
				}
			}
			if home != "" {
				cfg.Home = home
			}
			if relayURL != "" {
				cfg.RelayURL = relayURL
			}
			if debug {
				cfg.Debug = true
			}
			if err := cfg.FixupAndValidate(); err != nil {
				return err
			}

			w, err := app.NewWire(cfg)
			if err != nil {
				return err
			}
			wire = w
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if wire != nil {
				return wire.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "TOML config file")
	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.pksalink)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting stored sessions")
	root.PersistentFlags().StringVar(&relayURL, "relay", "", "relay WebSocket URL (e.g. wss://hive-auth.arcange.eu)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "trace relay frames")

	root.AddCommand(loginCmd(), signCmd(), challengeCmd(), logoutCmd(), statusCmd())
	return root.Execute()
}

func requirePassphrase() error {
	if passphrase == "" {
		return errors.New("passphrase required (-p)")
	}
	return nil
}

// interruptible returns a context cancelled by Ctrl-C, which cancels the
// running exchange.
func interruptible(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt)
}
