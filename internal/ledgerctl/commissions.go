package ledgerctl

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dancecoin-ledger/internal/coin_ledger/service"
	"github.com/dancecoin-ledger/internal/domain/commission"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newCommissionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "commissions",
		Aliases: []string{"commission"},
		Short:   "Manage trainer commissions per course",
	}
	cmd.AddCommand(newCommissionsSetCmd(a))
	cmd.AddCommand(newCommissionsListCmd(a))
	cmd.AddCommand(newCommissionsToggleCmd(a, "activate", true))
	cmd.AddCommand(newCommissionsToggleCmd(a, "deactivate", false))
	return cmd
}

func newCommissionsSetCmd(a *app) *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "set COURSE_ID TRAINER_ID PERCENT",
		Short: "Create or update a trainer's share of a course",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			percent, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid percent %q: %w", args[2], err)
			}
			deps, err := a.services(cmd.Context())
			if err != nil {
				return err
			}

			result, err := deps.Ledger.SetCommission(cmd.Context(), service.SetCommissionRequest{
				CourseID:  args[0],
				TrainerID: args[1],
				Percent:   percent,
				AdminID:   a.operator,
				Notes:     notes,
			})
			if err != nil {
				return fmt.Errorf("failed to set commission: %w", err)
			}
			return a.printCommissionResult(cmd, result)
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", "free form note stored with the commission")
	return cmd
}

func newCommissionsToggleCmd(a *app, verb string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " COMMISSION_ID",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " a commission without deleting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid commission id %q: %w", args[0], err)
			}
			deps, err := a.services(cmd.Context())
			if err != nil {
				return err
			}
			result, err := deps.Ledger.SetCommissionActive(cmd.Context(), id, active, a.operator)
			if err != nil {
				return fmt.Errorf("failed to %s commission: %w", verb, err)
			}
			return a.printCommissionResult(cmd, result)
		},
	}
}

func newCommissionsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list COURSE_ID",
		Short: "List the commissions of a course",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := a.services(cmd.Context())
			if err != nil {
				return err
			}
			commissions, err := deps.Ledger.ListCommissions(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to list commissions: %w", err)
			}
			return a.print(cmd.OutOrStdout(), commissions, func(w io.Writer) {
				printCommissions(w, commissions)
			})
		},
	}
}

func (a *app) printCommissionResult(cmd *cobra.Command, result *service.CommissionResult) error {
	return a.print(cmd.OutOrStdout(), result, func(w io.Writer) {
		printCommissions(w, []*commission.CourseCommission{result.Commission})
		if result.Warning != "" {
			fmt.Fprintf(w, "Warning: %s\n", result.Warning)
		}
	})
}

func printCommissions(w io.Writer, commissions []*commission.CourseCommission) {
	tw := newTable(w, "ID", "COURSE", "TRAINER", "PERCENT", "ACTIVE")
	for _, c := range commissions {
		tw.row(c.ID.String(), c.CourseID, c.TrainerID, strconv.Itoa(c.CommissionPercent)+"%", strconv.FormatBool(c.IsActive))
	}
	tw.flush()
}
