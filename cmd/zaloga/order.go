package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/transfer"
)

// parseItem parses "brand|model|spec|lot|qty[|price]".
func parseItem(v string) (transfer.ItemInput, error) {
	parts := strings.Split(v, "|")
	if len(parts) != 5 && len(parts) != 6 {
		return transfer.ItemInput{}, &model.ValidationError{Field: "item", Reason: "expected brand|model|spec|lot|qty[|price], got " + v}
	}
	qty, err := parseQuantity(strings.TrimSpace(parts[4]))
	if err != nil {
		return transfer.ItemInput{}, err
	}
	it := transfer.ItemInput{
		Brand:         strings.TrimSpace(parts[0]),
		Model:         strings.TrimSpace(parts[1]),
		Specification: strings.TrimSpace(parts[2]),
		LotCode:       strings.TrimSpace(parts[3]),
		Quantity:      qty,
	}
	if len(parts) == 6 {
		if it.UnitPrice, err = parsePrice("price", parts[5]); err != nil {
			return transfer.ItemInput{}, err
		}
	}
	return it, nil
}

func (c *cli) orderCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "order", Short: "Manage transfer orders between branches"}
	cmd.AddCommand(
		c.orderCreateCmd(),
		c.orderStepCmd("approve", "Approve a requested order (seller)", nil),
		c.orderStepCmd("ship", "Ship an approved order, taking stock from the seller", nil),
		c.orderStepCmd("deliver", "Alias of ship", nil),
		c.orderStepCmd("receive", "Receive a shipped order into the buyer's stock", nil),
		c.orderStepCmd("reject", "Reject a requested order (seller)", new(string)),
		c.orderStepCmd("cancel", "Cancel a requested order (buyer)", new(string)),
		c.orderShowCmd(),
		c.orderListCmd(),
	)
	return cmd
}

func (c *cli) orderCreateCmd() *cobra.Command {
	var (
		buyer, seller, note string
		items               []string
	)
	cmd := &cobra.Command{
		Use:   "create --buyer <branch> --seller <branch> --item brand|model|spec|lot|qty[|price]...",
		Short: "Request stock from another branch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			in := transfer.CreateInput{BuyerBranchID: buyer, SellerBranchID: seller, Note: note}
			for _, v := range items {
				it, err := parseItem(v)
				if err != nil {
					return err
				}
				in.Items = append(in.Items, it)
			}
			o, err := a.transfers.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			printOrder(cmd.OutOrStdout(), o)
			return nil
		},
	}
	cmd.Flags().StringVar(&buyer, "buyer", "", "requesting branch")
	cmd.Flags().StringVar(&seller, "seller", "", "supplying branch")
	cmd.Flags().StringVar(&note, "note", "", "free-form note")
	cmd.Flags().StringArrayVar(&items, "item", nil, "order line (repeatable)")
	cmd.MarkFlagRequired("buyer")
	cmd.MarkFlagRequired("seller")
	cmd.MarkFlagRequired("item")
	return cmd
}

// orderStepCmd builds a command that moves an order one step. A non-nil
// reason adds a --reason flag.
func (c *cli) orderStepCmd(verb, short string, reason *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   verb + " <order-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			o, err := c.step(cmd.Context(), a.transfers, verb, args[0], reason)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Order %s is %s.\n", o.Number, o.Status)
			return nil
		},
	}
	if reason != nil {
		cmd.Flags().StringVar(reason, "reason", "", "reason shown to the other branch")
	}
	return cmd
}

func (c *cli) step(ctx context.Context, svc *transfer.Service, verb, id string, reason *string) (*model.Order, error) {
	switch verb {
	case "approve":
		return svc.Approve(ctx, id)
	case "reject":
		return svc.Reject(ctx, id, *reason)
	case "cancel":
		return svc.Cancel(ctx, id, *reason)
	case "ship":
		return svc.Ship(ctx, id)
	case "deliver":
		return svc.Deliver(ctx, id)
	case "receive":
		return svc.Receive(ctx, id)
	}
	return nil, fmt.Errorf("unknown order action %q", verb)
}

func (c *cli) orderShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <order-id>",
		Short: "Show an order and its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			o, err := a.transfers.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			events, err := a.transfers.Events(cmd.Context(), o.ID)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printOrder(w, o)
			fmt.Fprintln(w)
			tw := newTable(w, "TIME", "EVENT", "FROM", "TO", "BY", "REASON")
			for _, ev := range events {
				row(tw, stamp(&ev.CreatedAt), ev.Event, ev.From, ev.To, ev.ActorBranchID, ev.Reason)
			}
			return tw.Flush()
		},
	}
}

func (c *cli) orderListCmd() *cobra.Command {
	var (
		role     string
		statuses []string
	)
	cmd := &cobra.Command{
		Use:   "list <branch>",
		Short: "List a branch's orders, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			r, err := transfer.ParseRole(role)
			if err != nil {
				return err
			}
			f := transfer.ListFilter{BranchID: args[0], Role: r}
			for _, v := range statuses {
				st, err := model.ParseStatus(v)
				if err != nil {
					return err
				}
				f.Statuses = append(f.Statuses, st)
			}

			orders, err := a.transfers.ListOrders(cmd.Context(), f)
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout(), "ID", "NUMBER", "STATUS", "BUYER", "SELLER", "QTY", "CREATED")
			for _, o := range orders {
				row(tw, o.ID, o.Number, o.Status, o.BuyerBranchID, o.SellerBranchID, o.TotalQuantity(), stamp(&o.CreatedAt))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "buyer, seller or any")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "only these statuses")
	return cmd
}
