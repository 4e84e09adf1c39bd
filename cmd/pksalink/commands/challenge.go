package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"pksalink/internal/domain"
)

func challengeCmd() *cobra.Command {
	var keyType string
	cmd := &cobra.Command{
		Use:   "challenge <account> <text>",
		Short: "Have the signer app sign a challenge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			ctx, stop := interruptible(cmd)
			defer stop()

			ack, err := wire.Signer.Challenge(ctx, passphrase, domain.Account(args[0]), domain.KeyType(keyType), args[1], showPending)
			if err != nil {
				return err
			}
			fmt.Printf("Signature: %s\nPublic key: %s\n", ack.Challenge, ack.PubKey)
			return nil
		},
	}
	cmd.Flags().StringVar(&keyType, "key-type", string(domain.KeyTypePosting), "signing key (posting, active, memo)")
	return cmd
}
