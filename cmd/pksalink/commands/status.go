package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pksalink/internal/crypto"
	"pksalink/internal/domain"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <account>",
		Short: "Show the stored session of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			st, ok, err := wire.Signer.Status(passphrase, domain.Account(args[0]))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Printf("%s: not logged in\n", args[0])
				return nil
			}
			if st.Token == "" {
				fmt.Printf("%s: logged out\n", args[0])
				return nil
			}
			state := "active"
			if !time.Now().Before(st.ExpiresAt) {
				state = "expired"
			}
			fmt.Printf("Account:  %s\n", st.Account)
			fmt.Printf("App:      %s\n", st.App.Name)
			fmt.Printf("Session:  %s (key %s)\n", state, crypto.Fingerprint(st.SessionKey))
			fmt.Printf("Expires:  %s\n", st.ExpiresAt.Local().Format(time.RFC1123))
			return nil
		},
	}
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).Local().Format(time.RFC1123)
}
