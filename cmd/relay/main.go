package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pksalink/internal/devsigner"
	"pksalink/internal/domain"
	"pksalink/internal/relay"
	"pksalink/internal/relayserver"
)

var log = logrus.WithField("prefix", "relay")

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		listen       string
		timeout      int
		tlsCert      string
		tlsKey       string
		devAccounts  []string
		sharedSecret string
		reject       bool
		debug        bool
	)
	cmd := &cobra.Command{
		Use:          "relay",
		Short:        "Development relay hub for pksalink",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				logrus.SetLevel(logrus.DebugLevel)
			}
			if (tlsCert == "") != (tlsKey == "") {
				return errors.New("--tls-cert and --tls-key must be given together")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			hub := relayserver.New(relayserver.Config{RequestTimeout: time.Duration(timeout) * time.Second})
			mux := http.NewServeMux()
			mux.Handle("/ws", hub)
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

			ln, err := net.Listen("tcp", listen)
			if err != nil {
				return err
			}
			scheme := "ws"
			if tlsCert != "" {
				scheme = "wss"
			}
			url := fmt.Sprintf("%s://%s/ws", scheme, ln.Addr())
			log.WithField("url", url).Info("Relay listening")

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				var err error
				if tlsCert != "" {
					err = srv.ServeTLS(ln, tlsCert, tlsKey)
				} else {
					err = srv.Serve(ln)
				}
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			})
			g.Go(func() error { return hub.Run(ctx) })
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})

			if len(devAccounts) > 0 {
				accounts := make([]domain.Account, 0, len(devAccounts))
				for _, a := range devAccounts {
					accounts = append(accounts, domain.Account(strings.TrimSpace(a)))
				}
				// The in-process signer dials its own listener, so it skips
				// certificate verification.
				dialer := relay.WebsocketDialer{Dialer: &websocket.Dialer{
					TLSClientConfig:  &tls.Config{InsecureSkipVerify: true}, // #nosec G402
					HandshakeTimeout: 10 * time.Second,
				}}
				signer, err := devsigner.New(devsigner.Config{
					URL:          url,
					Accounts:     accounts,
					SharedSecret: sharedSecret,
					Reject:       reject,
				}, devsigner.WithDialer(dialer))
				if err != nil {
					return err
				}
				log.WithField("pubkey", signer.PublicKey()).Info("Dev signer enabled")
				g.Go(func() error { return signer.Run(ctx) })
			}

			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "127.0.0.1:8090", "listen address")
	cmd.Flags().IntVar(&timeout, "timeout", 60, "request expiry in seconds, advertised to clients")
	cmd.Flags().StringVar(&tlsCert, "tls-cert", "", "TLS certificate file")
	cmd.Flags().StringVar(&tlsKey, "tls-key", "", "TLS key file")
	cmd.Flags().StringSliceVar(&devAccounts, "dev-signer", nil, "run an in-process signer for these accounts")
	cmd.Flags().StringVar(&sharedSecret, "shared-secret", "", "shared secret the dev signer uses to open escrowed keys")
	cmd.Flags().BoolVar(&reject, "reject", false, "make the dev signer reject every request")
	cmd.Flags().BoolVar(&debug, "debug", false, "trace frames")
	return cmd
}
