package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"pksalink/internal/domain"
)

// sign <account> --op <json>...: have the signer sign and broadcast operations.
func signCmd() *cobra.Command {
	var (
		rawOps      []string
		keyType     string
		noBroadcast bool
	)
	cmd := &cobra.Command{
		Use:   "sign <account>",
		Short: "Sign operations with the account's signer app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			ops := make([]json.RawMessage, 0, len(rawOps))
			for _, op := range rawOps {
				if !json.Valid([]byte(op)) {
					return fmt.Errorf("operation is not valid JSON: %s", op)
				}
				ops = append(ops, json.RawMessage(op))
			}

			ctx, stop := interruptible(cmd)
			defer stop()
			ack, err := wire.Signer.Sign(ctx, passphrase, domain.Account(args[0]), domain.KeyType(keyType), ops, !noBroadcast, showPending)
			if err != nil {
				return err
			}
			if ack.Broadcast {
				fmt.Printf("Broadcast: %s\n", ack.Result)
			} else {
				fmt.Printf("Signed transaction: %s\n", ack.Result)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&rawOps, "op", nil, `operation as JSON, e.g. '["vote",{...}]' (repeatable)`)
	cmd.Flags().StringVar(&keyType, "key-type", string(domain.KeyTypeActive), "signing key (posting, active, memo)")
	cmd.Flags().BoolVar(&noBroadcast, "no-broadcast", false, "return the signed transaction instead of broadcasting it")
	_ = cmd.MarkFlagRequired("op")
	return cmd
}
