package ledgerctl

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dancecoin-ledger/internal/coin_ledger/service"
	"github.com/spf13/cobra"
)

func newAdjustCmd(a *app) *cobra.Command {
	var note, key string

	cmd := &cobra.Command{
		Use:   "adjust ACCOUNT_ID DELTA",
		Short: "Credit or debit a wallet as an admin correction",
		Long: `Apply a signed admin correction. A positive DELTA is recorded as adminGrant,
a negative one as adminRemove. --key makes retries safe. Separate a negative
DELTA from the flags with --, e.g. ledgerctl adjust --note "refund" --key k1 -- alice -10`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			delta, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid delta %q: %w", args[1], err)
			}
			deps, err := a.services(cmd.Context())
			if err != nil {
				return err
			}

			result, err := deps.Ledger.AdminAdjust(cmd.Context(), service.AdjustRequest{
				AccountID:      args[0],
				Delta:          delta,
				Note:           note,
				ActorID:        a.operator,
				IdempotencyKey: key,
			})
			if err != nil {
				return fmt.Errorf("failed to adjust wallet: %w", err)
			}

			return a.print(cmd.OutOrStdout(), result, func(w io.Writer) {
				if result.Replayed {
					fmt.Fprintln(w, "Already applied with this key")
				}
				fmt.Fprintf(w, "Wallet %s balance %d\n", result.Wallet.AccountID, result.Wallet.Balance)
			})
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "reason for the correction")
	cmd.Flags().StringVar(&key, "key", "", "idempotency key")
	_ = cmd.MarkFlagRequired("note")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}
