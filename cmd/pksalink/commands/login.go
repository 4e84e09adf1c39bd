package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"pksalink/internal/domain"
)

// login <account>: authenticate with the account's signer and store the session.
func loginCmd() *cobra.Command {
	var (
		challenge string
		keyType   string
	)
	cmd := &cobra.Command{
		Use:   "login <account>",
		Short: "Authenticate an account with its signer app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			ctx, stop := interruptible(cmd)
			defer stop()

			var ch *domain.ChallengePayload
			if challenge != "" {
				ch = &domain.ChallengePayload{KeyType: domain.KeyType(keyType), Challenge: challenge}
			}
			ack, err := wire.Signer.Login(ctx, passphrase, domain.Account(args[0]), ch, showPending)
			if err != nil {
				return err
			}
			fmt.Printf("Logged in as %s, token valid until %s\n", args[0], formatMillis(ack.Expire))
			if ack.Challenge != nil {
				fmt.Printf("Challenge signature: %s\nPublic key: %s\n", ack.Challenge.Challenge, ack.Challenge.PubKey)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&challenge, "challenge", "", "text the signer must sign during login")
	cmd.Flags().StringVar(&keyType, "key-type", string(domain.KeyTypePosting), "key that signs the challenge (posting, active, memo)")
	return cmd
}
