package ledgerctl

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/dancecoin-ledger/internal/coin_ledger/service"
	"github.com/dancecoin-ledger/internal/domain/shared"
	"github.com/spf13/cobra"
)

// ErrFaultsFound is returned when a wallet disagrees with its ledger
var ErrFaultsFound = errors.New("wallets do not match their ledger")

func newReconcileCmd(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "reconcile [ACCOUNT_ID]",
		Short: "Check wallets against the replay of their ledger entries",
		Long: `Recompute one wallet, or every wallet with --all, from its ledger entries.
Mismatches are reported and never corrected. The command fails when any wallet
does not match.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return fmt.Errorf("pass an account id or --all, not both")
			}
			if !all && len(args) != 1 {
				return fmt.Errorf("an account id is required unless --all is set")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := a.services(cmd.Context())
			if err != nil {
				return err
			}
			if all {
				return a.reconcileAll(cmd, deps)
			}
			return a.reconcileOne(cmd, deps, args[0])
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "reconcile every wallet")
	return cmd
}

func (a *app) reconcileOne(cmd *cobra.Command, deps *Deps, accountID string) error {
	recon, err := deps.Ledger.Recompute(cmd.Context(), accountID)
	if err != nil && !(recon != nil && errors.Is(err, shared.ErrInvariantViolation{})) {
		return err
	}

	if printErr := a.print(cmd.OutOrStdout(), recon, func(w io.Writer) {
		tw := newTable(w, "ACCOUNT", "BALANCE", "LEDGER SUM", "ENTRIES", "STATUS")
		tw.row(recon.AccountID, strconv.FormatInt(recon.Wallet.Balance, 10),
			strconv.FormatInt(recon.Totals.Sum, 10), strconv.FormatInt(recon.Totals.Count, 10), status(recon.Consistent))
		tw.flush()
	}); printErr != nil {
		return printErr
	}

	if !recon.Consistent {
		return fmt.Errorf("%w: %s", ErrFaultsFound, accountID)
	}
	return nil
}

func (a *app) reconcileAll(cmd *cobra.Command, deps *Deps) error {
	if deps.Reconciler == nil {
		return fmt.Errorf("reconciliation sweep is not available")
	}
	report, err := deps.Reconciler.ReconcileAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to reconcile wallets: %w", err)
	}

	if err := a.print(cmd.OutOrStdout(), report, func(w io.Writer) {
		fmt.Fprintf(w, "Checked %d wallets, %d faults\n", report.Checked, len(report.Faults))
		if len(report.Faults) == 0 {
			return
		}
		tw := newTable(w, "ACCOUNT", "ERROR")
		for _, f := range report.Faults {
			tw.row(f.AccountID, f.Error)
		}
		tw.flush()
	}); err != nil {
		return err
	}

	if len(report.Faults) > 0 {
		return fmt.Errorf("%w: %d of %d", ErrFaultsFound, len(report.Faults), report.Checked)
	}
	return nil
}

func status(consistent bool) string {
	if consistent {
		return "ok"
	}
	return "MISMATCH"
}

var _ Reconciler = (*service.Reconciler)(nil)
