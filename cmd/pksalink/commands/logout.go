package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"pksalink/internal/domain"
)

func logoutCmd() *cobra.Command {
	var forget bool
	cmd := &cobra.Command{
		Use:   "logout <account>",
		Short: "End the stored session of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			account := domain.Account(args[0])
			if forget {
				if err := wire.Signer.Forget(passphrase, account); err != nil {
					return err
				}
				fmt.Println("logged out and forgotten")
				return nil
			}
			if err := wire.Signer.Logout(passphrase, account); err != nil {
				return err
			}
			fmt.Println("logged out")
			return nil
		},
	}
	cmd.Flags().BoolVar(&forget, "forget", false, "also remove the account from the session file")
	return cmd
}
