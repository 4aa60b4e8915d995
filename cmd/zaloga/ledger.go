package main

import (
	"github.com/spf13/cobra"

	"github.com/erazemk/zaloga/internal/ledger"
	"github.com/erazemk/zaloga/internal/model"
)

func (c *cli) ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "ledger", Short: "Inspect the stock ledger and order events"}

	var (
		branch, order, kind, from, to string
		limit                         int
	)
	movements := &cobra.Command{
		Use:   "movements",
		Short: "List stock movements, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			f := ledger.MovementFilter{BranchID: branch, OrderID: order, Kind: model.MovementKind(kind), Limit: limit}
			if f.From, err = parseTime("from", from); err != nil {
				return err
			}
			if f.To, err = parseTime("to", to); err != nil {
				return err
			}
			ms, err := a.store.Ledger().Movements(cmd.Context(), f)
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout(), "TIME", "BRANCH", "EVENT", "DELTA", "BRAND", "MODEL", "VARIANT", "LOT", "ORDER", "REASON")
			for _, m := range ms {
				row(tw, stamp(&m.CreatedAt), m.BranchID, m.Event, m.Delta, m.BrandID, m.ModelID, m.VariantID, m.LotCode, m.OrderID, m.Reason)
			}
			return tw.Flush()
		},
	}
	movements.Flags().StringVar(&branch, "branch", "", "only this branch")
	movements.Flags().StringVar(&order, "order", "", "only this order")
	movements.Flags().StringVar(&kind, "kind", "", "only this kind (inbound, outbound, adjustment, transfer_in, transfer_out)")
	movements.Flags().StringVar(&from, "from", "", "from this time")
	movements.Flags().StringVar(&to, "to", "", "until this time")
	movements.Flags().IntVar(&limit, "limit", 0, "at most this many rows")

	var evFrom, evTo, evOrder string
	events := &cobra.Command{
		Use:   "events [branch]",
		Short: "List order events for a branch or a single order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			var evs []model.OrderEvent
			switch {
			case evOrder != "":
				evs, err = a.store.Ledger().EventsForOrder(cmd.Context(), evOrder)
			case len(args) == 1:
				start, terr := parseTime("from", evFrom)
				if terr != nil {
					return terr
				}
				end, terr := parseTime("to", evTo)
				if terr != nil {
					return terr
				}
				evs, err = a.store.Ledger().EventsForBranch(cmd.Context(), args[0], start, end)
			default:
				return &model.ValidationError{Field: "branch", Reason: "branch or --order required"}
			}
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout(), "TIME", "ORDER", "EVENT", "BUYER", "SELLER", "BY", "REASON")
			for _, ev := range evs {
				row(tw, stamp(&ev.CreatedAt), ev.OrderNumber, ev.Event, ev.BuyerBranchID, ev.SellerBranchID, ev.ActorBranchID, ev.Reason)
			}
			return tw.Flush()
		},
	}
	events.Flags().StringVar(&evFrom, "from", "", "from this time")
	events.Flags().StringVar(&evTo, "to", "", "until this time")
	events.Flags().StringVar(&evOrder, "order", "", "only this order")

	cmd.AddCommand(movements, events)
	return cmd
}
