package main

import (
	"fmt"
	"stationery-storefront/internal/model"
	"stationery-storefront/internal/pricing"
	"stationery-storefront/internal/storefront"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func productsCmd(opts *globalOptions) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "products",
		Short: "List the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			products, err := opts.client().ListProducts(cmd.Context(), category)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tPRICE\tDISCOUNT\tMOQ")
			for _, p := range products {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s%%\t%d\n", p.ID, p.Name, p.Category, p.Price.StringFixed(2), p.Discount.String(), p.MOQ)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Only list products in this category")
	return cmd
}

func checkoutCmd(opts *globalOptions) *cobra.Command {
	var (
		items       []string
		buyer       storefront.Buyer
		snapshotDir string
		minimum     float64
		watch       bool
	)

	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Price a cart and start a PhonePe payment for it",
		Example: `  storefrontctl checkout --item nb-a5-ruled=10 --item gel-pen-blue="S:5, M:5" \
    --name "Asha Rao" --email asha@example.com --phone 9876543210 --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api := opts.client()
			log := opts.logger()

			products, err := api.ListProducts(ctx, "")
			if err != nil {
				return err
			}
			cart, err := buildCart(products, items)
			if err != nil {
				return err
			}

			var snapshots storefront.SnapshotStore
			if snapshotDir != "" {
				snapshots = storefront.NewFileSnapshotStore(snapshotDir)
			}

			initiator := storefront.NewInitiator(api, snapshots, decimal.NewFromFloat(minimum), log)
			checkout, err := initiator.InitiateCheckout(ctx, cart, buyer)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "order:   %s\n", checkout.MerchantOrderID)
			fmt.Fprintf(out, "total:   Rs %s\n", checkout.Total.StringFixed(2))
			fmt.Fprintf(out, "pay at:  %s\n", checkout.PaymentURL)

			if !watch {
				return nil
			}
			return watchStatus(cmd, api, checkout.MerchantOrderID, opts.pollPolicy(), log)
		},
	}

	cmd.Flags().StringArrayVarP(&items, "item", "i", nil, "Cart line as <productId>=<size>, repeatable")
	cmd.Flags().StringVar(&buyer.UserID, "user-id", "", "Buyer id (ignored when a token is sent)")
	cmd.Flags().StringVar(&buyer.Name, "name", "", "Buyer name")
	cmd.Flags().StringVar(&buyer.Email, "email", "", "Buyer email")
	cmd.Flags().StringVar(&buyer.Phone, "phone", "", "Buyer 10-digit phone number")
	cmd.Flags().StringVar(&snapshotDir, "snapshot-dir", "", "Keep a local order snapshot in this directory")
	cmd.Flags().Float64Var(&minimum, "minimum", opts.checkout.MinimumPurchase, "Minimum purchase amount")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Poll the payment status until a verdict is known")

	return cmd
}

// buildCart prices each <productId>=<size> entry against the catalog. A later
// entry for the same product replaces the earlier one.
func buildCart(products []*model.Product, entries []string) (*pricing.Cart, error) {
	byID := make(map[string]*model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	cart := pricing.NewCart()
	for _, entry := range entries {
		id, size, ok := strings.Cut(entry, "=")
		if !ok || strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("item %q: want <productId>=<size>", entry)
		}
		p, found := byID[strings.TrimSpace(id)]
		if !found {
			return nil, fmt.Errorf("item %q: unknown product", entry)
		}

		pp := pricing.Product{
			ID:            p.ID,
			Name:          p.Name,
			Price:         p.Price,
			Discount:      p.Discount,
			MRP:           p.MRP,
			MOQ:           p.MOQ,
			ShippingPrice: p.ShippingPrice,
		}
		if !cart.SetSize(pp, size) {
			return nil, fmt.Errorf("item %q: size has no quantity", entry)
		}
	}
	return cart, nil
}
