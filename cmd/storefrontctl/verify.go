package main

import (
	"fmt"
	"stationery-storefront/internal/dto"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func verifyPayPalCmd(opts *globalOptions) *cobra.Command {
	var (
		req    dto.VerifyPayPalRequest
		amount string
	)

	cmd := &cobra.Command{
		Use:   "verify-paypal",
		Short: "Ask the server to verify a captured PayPal order",
		RunE: func(cmd *cobra.Command, args []string) error {
			if amount != "" {
				d, err := decimal.NewFromString(amount)
				if err != nil {
					return fmt.Errorf("amount %q: %w", amount, err)
				}
				req.Amount = &d
			}

			resp, err := opts.client().VerifyPayPal(cmd.Context(), &req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "verified: %t\n", resp.Verified)
			fmt.Fprintf(out, "status:   %s\n", resp.PaymentStatus)
			if resp.MerchantOrderID != "" {
				fmt.Fprintf(out, "order:    %s\n", resp.MerchantOrderID)
			}
			if !resp.Verified {
				return errPaymentNotSuccessful
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&req.OrderID, "order-id", "", "PayPal order id")
	cmd.Flags().StringVar(&amount, "amount", "", "Expected captured amount, e.g. 12.30")
	cmd.Flags().StringVar(&req.Currency, "currency", "USD", "Expected currency")
	cmd.Flags().StringVar(&req.MerchantOrderID, "merchant-order-id", "", "Storefront order id, when known")

	return cmd
}
