package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

// lotArgs are the positional arguments naming a lot by display names:
// <branch> <brand> <model> <spec> <lot>.
const lotArgs = "<branch> <brand> <model> <spec> <lot>"

// findVariant resolves <branch> <brand> <model> <spec> to an existing variant.
func findVariant(ctx context.Context, st *store.Store, args []string) (model.VariantKey, error) {
	branch, brand, mdl, spec := args[0], args[1], args[2], args[3]
	ids := st.Resolver().ResolveCanonicalIDs(ctx, branch, brand, mdl)
	v, err := st.FindVariant(ctx, branch, ids.BrandID, ids.ModelID, spec)
	if err != nil {
		return model.VariantKey{}, err
	}
	return model.VariantKey{BranchID: branch, BrandID: ids.BrandID, ModelID: ids.ModelID, VariantID: v.ID}, nil
}

// findLot resolves lotArgs to the key of a lot under an existing variant.
func findLot(ctx context.Context, st *store.Store, args []string) (model.LotKey, error) {
	vk, err := findVariant(ctx, st, args)
	if err != nil {
		return model.LotKey{}, err
	}
	return vk.Lot(args[4]), nil
}

// ensureVariant creates the brand, model and variant nodes named by args.
func ensureVariant(ctx context.Context, st *store.Store, args []string, listPrice string) (model.VariantKey, error) {
	branch := args[0]
	price, err := parsePrice("price", listPrice)
	if err != nil {
		return model.VariantKey{}, err
	}
	b, err := st.EnsureBrand(ctx, branch, args[1])
	if err != nil {
		return model.VariantKey{}, err
	}
	m, err := st.EnsureModel(ctx, branch, b.ID, args[2])
	if err != nil {
		return model.VariantKey{}, err
	}
	v, err := st.EnsureVariant(ctx, branch, b.ID, m.ID, store.VariantInput{Spec: args[3], ListPrice: price})
	if err != nil {
		return model.VariantKey{}, err
	}
	return model.VariantKey{BranchID: branch, BrandID: b.ID, ModelID: m.ID, VariantID: v.ID}, nil
}

func parseQuantity(v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &model.ValidationError{Field: "quantity", Reason: "not a whole number: " + v}
	}
	return n, nil
}

func (c *cli) stockCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "stock", Short: "Manage a branch's inventory"}
	cmd.AddCommand(
		c.stockAddCmd(),
		c.stockSetCmd(),
		c.stockAdjustCmd(),
		c.stockPromoCmd(),
		c.stockPriceCmd(),
		c.stockDeleteCmd(),
		c.stockLotsCmd(),
		c.stockListCmd(),
	)
	return cmd
}

func (c *cli) stockAddCmd() *cobra.Command {
	var listPrice, promo string
	cmd := &cobra.Command{
		Use:   "add " + lotArgs + " <quantity>",
		Short: "Add a new lot, creating brand, model and variant as needed",
		Args:  cobra.ExactArgs(6),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			qty, err := parseQuantity(args[5])
			if err != nil {
				return err
			}
			promoPrice, err := parsePrice("promo", promo)
			if err != nil {
				return err
			}
			vk, err := ensureVariant(cmd.Context(), a.store, args, listPrice)
			if err != nil {
				return err
			}
			lot, err := a.store.AddLot(cmd.Context(), vk.Lot(args[4]), qty, promoPrice)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Lot %s of %s %s %s added with %d units.\n", lot.Code, vk.BrandID, vk.ModelID, vk.VariantID, lot.Quantity)
			return nil
		},
	}
	cmd.Flags().StringVar(&listPrice, "price", "", "variant list price")
	cmd.Flags().StringVar(&promo, "promo", "", "lot promo price")
	return cmd
}

func (c *cli) stockSetCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "set " + lotArgs + " <quantity>",
		Short: "Set a lot's quantity, creating the lot if needed",
		Args:  cobra.ExactArgs(6),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			qty, err := parseQuantity(args[5])
			if err != nil {
				return err
			}
			vk, err := ensureVariant(cmd.Context(), a.store, args, "")
			if err != nil {
				return err
			}
			lot, err := a.store.EnsureLot(cmd.Context(), vk.Lot(args[4]), store.LotInput{Quantity: &qty, Reason: reason})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Lot %s now holds %d units.\n", lot.Code, lot.Quantity)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "ledger reason")
	return cmd
}

func (c *cli) stockAdjustCmd() *cobra.Command {
	var (
		delta  int
		reason string
	)
	cmd := &cobra.Command{
		Use:   "adjust " + lotArgs + " --by <delta>",
		Short: "Add or remove units from a lot",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			key, err := findLot(cmd.Context(), a.store, args)
			if err != nil {
				return err
			}
			lot, err := a.store.AdjustQuantity(cmd.Context(), key, delta, reason)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Lot %s now holds %d units.\n", lot.Code, lot.Quantity)
			return nil
		},
	}
	cmd.Flags().IntVar(&delta, "by", 0, "units to add (negative to remove)")
	cmd.Flags().StringVar(&reason, "reason", "", "ledger reason")
	cmd.MarkFlagRequired("by")
	return cmd
}

func (c *cli) stockPromoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promo " + lotArgs + " <price|none>",
		Short: "Set or clear a lot's promo price",
		Args:  cobra.ExactArgs(6),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			p, err := parsePrice("promo", args[5])
			if err != nil {
				return err
			}
			key, err := findLot(cmd.Context(), a.store, args)
			if err != nil {
				return err
			}
			if err := a.store.SetPromoPrice(cmd.Context(), key, p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Promo price of lot %s set to %s.\n", key.LotCode, price(p))
			return nil
		},
	}
}

func (c *cli) stockPriceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "price <branch> <brand> <model> <spec> <price|none>",
		Short: "Set or clear a variant's list price",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			p, err := parsePrice("price", args[4])
			if err != nil {
				return err
			}
			vk, err := findVariant(cmd.Context(), a.store, args)
			if err != nil {
				return err
			}
			if err := a.store.SetListPrice(cmd.Context(), vk, p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "List price of %s set to %s.\n", vk.VariantID, price(p))
			return nil
		},
	}
}

func (c *cli) stockDeleteCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "delete " + lotArgs,
		Short: "Remove a lot, writing off its remaining units",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			key, err := findLot(cmd.Context(), a.store, args)
			if err != nil {
				return err
			}
			if err := a.store.DeleteLot(cmd.Context(), key, reason); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Lot %s deleted.\n", key.LotCode)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "ledger reason")
	return cmd
}

func (c *cli) stockLotsCmd() *cobra.Command {
	var spec string
	cmd := &cobra.Command{
		Use:   "lots <branch> <brand> <model>",
		Short: "List a model's lots with their ledger balance",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			ids := a.store.Resolver().ResolveCanonicalIDs(ctx, args[0], args[1], args[2])

			variantID := ""
			if spec != "" {
				v, err := a.store.FindVariant(ctx, args[0], ids.BrandID, ids.ModelID, spec)
				if err != nil {
					return err
				}
				variantID = v.ID
			}

			lots, err := a.store.ListLots(ctx, args[0], ids.BrandID, ids.ModelID, variantID)
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout(), "SPEC", "LOT", "QTY", "LEDGER", "PRICE", "PROMO")
			for _, l := range lots {
				balance, err := a.store.Ledger().LotBalance(ctx, l.LotKey)
				if err != nil {
					return err
				}
				ledger := strconv.Itoa(balance)
				if balance != l.Quantity {
					ledger += " (mismatch)"
				}
				row(tw, l.Spec, l.LotCode, l.Quantity, ledger, price(l.ListPrice), price(l.PromoPrice))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&spec, "spec", "", "only this variant")
	return cmd
}

func (c *cli) stockListCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list <branch>...",
		Short: "Show inventory grouped by product across branches",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			rows, err := a.store.FetchInventoryForBranches(cmd.Context(), args, store.FetchOptions{IncludeEmpty: all})
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout(), "PRODUCT", "BRANCH", "SPEC", "LOT", "QTY")
			for _, r := range rows {
				product := r.BrandName + " " + r.ModelName
				for _, b := range r.Branches {
					for _, v := range b.Variants {
						for _, l := range v.Lots {
							row(tw, product, b.BranchName, v.Spec, l.Code, l.Quantity)
						}
					}
				}
				row(tw, product, "total", "", "", r.TotalQuantity())
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include empty lots")
	return cmd
}
