package ledgerctl

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dancecoin-ledger/internal/coin_ledger/service"
	"github.com/dancecoin-ledger/internal/domain/redemption"
	"github.com/spf13/cobra"
)

func newKeysCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage redemption keys",
	}
	cmd.AddCommand(newKeysCreateCmd(a))
	cmd.AddCommand(newKeysListCmd(a))
	return cmd
}

func newKeysCreateCmd(a *app) *cobra.Command {
	var (
		code      string
		coins     int64
		maxUses   int
		expiresIn time.Duration
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Issue a redemption key",
		Long: `Issue a redemption key worth --coins per use. Without --code a code of the
form DANCE-XXXX-XXXX is generated. Without --expires-in the key never expires.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := a.services(cmd.Context())
			if err != nil {
				return err
			}

			req := service.CreateKeyRequest{
				Code:       code,
				CoinAmount: coins,
				MaxUses:    maxUses,
				CreatedBy:  a.operator,
			}
			if cmd.Flags().Changed("expires-in") {
				req.ExpiresIn = &expiresIn
			}

			key, err := deps.Ledger.CreateKey(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("failed to create key: %w", err)
			}
			return a.print(cmd.OutOrStdout(), key, func(w io.Writer) {
				printKeys(w, []*redemption.Key{key})
			})
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "key code (generated when empty)")
	cmd.Flags().Int64Var(&coins, "coins", 0, "coins credited per redemption")
	cmd.Flags().IntVar(&maxUses, "max-uses", 1, "number of accounts that may redeem the key")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "lifetime of the key, e.g. 720h")
	_ = cmd.MarkFlagRequired("coins")
	return cmd
}

func newKeysListCmd(a *app) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List redemption keys, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := a.services(cmd.Context())
			if err != nil {
				return err
			}
			keys, err := deps.Ledger.ListKeys(cmd.Context(), limit, offset)
			if err != nil {
				return fmt.Errorf("failed to list keys: %w", err)
			}
			return a.print(cmd.OutOrStdout(), keys, func(w io.Writer) {
				printKeys(w, keys)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum keys to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "keys to skip")
	return cmd
}

func printKeys(w io.Writer, keys []*redemption.Key) {
	tw := newTable(w, "CODE", "COINS", "USES", "EXPIRES", "CREATED BY")
	for _, k := range keys {
		expires := "never"
		if k.ExpiresAt != nil {
			expires = k.ExpiresAt.UTC().Format(time.RFC3339)
		}
		tw.row(k.Code, strconv.FormatInt(k.CoinAmount, 10),
			fmt.Sprintf("%d/%d", k.CurrentUses, k.MaxUses), expires, k.CreatedBy)
	}
	tw.flush()
}
