package app

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"pksalink/internal/domain"
	"pksalink/internal/inbox"
	"pksalink/internal/protocol/workflow"
	"pksalink/internal/relay"
	"pksalink/internal/services/pksa"
	"pksalink/internal/store"
)

// Wire bundles the relay connection, stores and services for the CLI.
type Wire struct {
	Config *Config
	Inbox  *inbox.Inbox
	Relay  *relay.Manager
	Engine *workflow.Engine
	Store  *store.SessionFileStore
	Signer domain.SignerService
}

// NewWire constructs the dependency graph from cfg. opts are passed to the
// relay manager.
func NewWire(cfg *Config, opts ...relay.Option) (*Wire, error) {
	if cfg.Home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		cfg.Home = filepath.Join(dir, ".pksalink")
	}
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, err
	}
	ConfigureLogging(cfg.Logging)

	in := inbox.New()
	rm := relay.NewManager(cfg.RelayConfig(), in, opts...)

	engineOpts := []workflow.Option{
		workflow.WithPollInterval(rm.PollInterval()),
		workflow.WithRelayHost(cfg.RelayHost()),
	}
	if cfg.SharedSecret != "" {
		engineOpts = append(engineOpts, workflow.WithSharedSecret(cfg.SharedSecret))
	}
	engine := workflow.NewEngine(rm, in, engineOpts...)

	sessions := store.NewSessionFileStore(cfg.Home)
	return &Wire{
		Config: cfg,
		Inbox:  in,
		Relay:  rm,
		Engine: engine,
		Store:  sessions,
		Signer: pksa.New(engine, sessions, *cfg.App),
	}, nil
}

// Close releases the relay connection.
func (w *Wire) Close() error { return w.Relay.Close() }

// ConfigureLogging applies the logging section to the standard logrus logger.
func ConfigureLogging(l *Logging) {
	lvl := logrus.InfoLevel
	if l != nil {
		switch l.Level {
		case "ERROR":
			lvl = logrus.ErrorLevel
		case "WARNING":
			lvl = logrus.WarnLevel
		case "DEBUG":
			lvl = logrus.DebugLevel
		}
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
