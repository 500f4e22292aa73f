package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"stationery-storefront/internal/dto"
	"stationery-storefront/internal/storefront"
	"time"

	"github.com/spf13/cobra"
)

func statusCmd(opts *globalOptions) *cobra.Command {
	var (
		watch  bool
		policy = opts.pollPolicy()
	)

	cmd := &cobra.Command{
		Use:   "status <merchantOrderId>",
		Short: "Show the payment status of an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api := opts.client()
			if watch {
				return watchStatus(cmd, api, args[0], policy, opts.logger())
			}

			resp, err := api.CheckStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if resp.Result == nil {
				return fmt.Errorf("order %s: empty status result", args[0])
			}
			printResult(cmd.OutOrStdout(), resp.Result)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Poll until a verdict is known")
	cmd.Flags().DurationVar(&policy.Interval, "interval", policy.Interval, "Delay between checks when watching")
	cmd.Flags().IntVar(&policy.MaxAttempts, "max-attempts", policy.MaxAttempts, "Give up after this many checks")
	cmd.Flags().DurationVar(&policy.MaxElapsed, "max-elapsed", policy.MaxElapsed, "Give up after this long")

	return cmd
}

var errPaymentNotSuccessful = errors.New("payment did not succeed")

// watchStatus prints every poll attempt and fails the command unless the last
// verdict is SUCCESS.
func watchStatus(cmd *cobra.Command, api storefront.StatusAPI, merchantOrderID string, policy storefront.PollPolicy, logger *slog.Logger) error {
	out := cmd.OutOrStdout()
	poller := storefront.NewPoller(api, policy, logger)

	var last *dto.StatusResult
	for at := range poller.Watch(cmd.Context(), merchantOrderID) {
		switch {
		case at.Err != nil:
			fmt.Fprintf(out, "[%d] check failed: %v\n", at.N, at.Err)
		case at.Result != nil:
			fmt.Fprintf(out, "[%d] %s %s\n", at.N, time.Now().Format(time.TimeOnly), at.Result.Outcome)
			last = at.Result
		}
		if at.Final {
			break
		}
	}

	if err := cmd.Context().Err(); err != nil {
		return err
	}
	if last == nil {
		return fmt.Errorf("order %s: no status received", merchantOrderID)
	}
	printResult(out, last)
	if last.Outcome != "SUCCESS" {
		return errPaymentNotSuccessful
	}
	return nil
}

func printResult(w io.Writer, r *dto.StatusResult) {
	fmt.Fprintf(w, "order:    %s\n", r.MerchantOrderID)
	fmt.Fprintf(w, "outcome:  %s\n", r.Outcome)
	fmt.Fprintf(w, "status:   %s\n", r.Status)
	if r.AmountPaid != nil {
		fmt.Fprintf(w, "paid:     Rs %s\n", r.AmountPaid.StringFixed(2))
	}
	if r.TransactionID != "" {
		fmt.Fprintf(w, "txn:      %s\n", r.TransactionID)
	}
	if r.Message != "" {
		fmt.Fprintf(w, "message:  %s\n", r.Message)
	}
}
