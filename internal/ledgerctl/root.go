// Package ledgerctl implements the operator CLI for the coin ledger:
// wallet reconciliation, redemption keys, commissions and admin adjustments.
package ledgerctl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dancecoin-ledger/internal/coin_ledger/service"
	"github.com/dancecoin-ledger/internal/domain/commission"
	"github.com/dancecoin-ledger/internal/domain/redemption"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Ledger is the part of the coin ledger driven by the CLI
type Ledger interface {
	Recompute(ctx context.Context, accountID string) (*service.Reconciliation, error)
	AdminAdjust(ctx context.Context, req service.AdjustRequest) (*service.Result, error)
	CreateKey(ctx context.Context, req service.CreateKeyRequest) (*redemption.Key, error)
	ListKeys(ctx context.Context, limit, offset int) ([]*redemption.Key, error)
	SetCommission(ctx context.Context, req service.SetCommissionRequest) (*service.CommissionResult, error)
	SetCommissionActive(ctx context.Context, id uuid.UUID, isActive bool, adminID string) (*service.CommissionResult, error)
	ListCommissions(ctx context.Context, courseID string) ([]*commission.CourseCommission, error)
}

// Reconciler sweeps every wallet against its ledger
type Reconciler interface {
	ReconcileAll(ctx context.Context) (*service.ReconcileReport, error)
}

// Deps are the services a command runs against
type Deps struct {
	Ledger     Ledger
	Reconciler Reconciler
}

// Opener connects the store on first use. The returned func releases it.
type Opener func(ctx context.Context) (*Deps, func(), error)

type app struct {
	open     Opener
	deps     *Deps
	release  func()
	output   string
	operator string
}

// Run executes ledgerctl with args and releases the store when done
func Run(ctx context.Context, open Opener, args []string, stdout io.Writer) error {
	a := &app{open: open}
	defer a.close()

	rootCmd := newRootCmd(a)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stdout)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operate the DanceCoin ledger",
		Long:          "ledgerctl reconciles wallets, issues redemption keys, manages trainer commissions and applies admin adjustments.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&a.output, "output", "o", "text", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&a.operator, "operator", "ledgerctl", "admin id recorded on writes")

	rootCmd.AddCommand(newReconcileCmd(a))
	rootCmd.AddCommand(newAdjustCmd(a))
	rootCmd.AddCommand(newKeysCmd(a))
	rootCmd.AddCommand(newCommissionsCmd(a))

	return rootCmd
}

func (a *app) close() {
	if a.release != nil {
		a.release()
	}
}

// services opens the store once per invocation
func (a *app) services(ctx context.Context) (*Deps, error) {
	if a.deps != nil {
		return a.deps, nil
	}
	deps, release, err := a.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger store: %w", err)
	}
	a.deps, a.release = deps, release
	return deps, nil
}

// print writes v as indented JSON, or calls text for the text format
func (a *app) print(w io.Writer, v interface{}, text func(w io.Writer)) error {
	switch a.output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "text", "":
		text(w)
		return nil
	default:
		return fmt.Errorf("unknown output format %q: must be json or text", a.output)
	}
}
