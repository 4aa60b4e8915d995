package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/zaloga/internal/model"
)

func newTable(w io.Writer, header ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	return tw
}

func row(tw *tabwriter.Writer, cols ...any) {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprint(c)
	}
	fmt.Fprintln(tw, strings.Join(parts, "\t"))
}

func price(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.StringFixed(2)
}

func stamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// parsePrice parses a non-negative price. "none" and "" mean no price.
func parsePrice(field, v string) (*decimal.Decimal, error) {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "none") {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(v, ",", "."))
	if err != nil {
		return nil, &model.ValidationError{Field: field, Reason: "not a number: " + v}
	}
	if d.IsNegative() {
		return nil, &model.ValidationError{Field: field, Reason: "must not be negative"}
	}
	return &d, nil
}

// parseTime accepts RFC 3339 timestamps or plain dates. Empty is the zero time.
func parseTime(field, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", v, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, &model.ValidationError{Field: field, Reason: "expected YYYY-MM-DD or RFC 3339 time"}
}

func printOrder(w io.Writer, o *model.Order) {
	fmt.Fprintf(w, "Order:    %s (%s)\n", o.Number, o.ID)
	fmt.Fprintf(w, "Status:   %s\n", o.Status)
	fmt.Fprintf(w, "Buyer:    %s (%s)\n", o.BuyerBranchName, o.BuyerBranchID)
	fmt.Fprintf(w, "Seller:   %s (%s)\n", o.SellerBranchName, o.SellerBranchID)
	if o.CancelReason != "" {
		fmt.Fprintf(w, "Reason:   %s\n", o.CancelReason)
	}
	if o.Note != "" {
		fmt.Fprintf(w, "Note:     %s\n", o.Note)
	}
	fmt.Fprintf(w, "Created:  %s\n", stamp(&o.CreatedAt))
	fmt.Fprintln(w)

	tw := newTable(w, "PRODUCT", "SPEC", "LOT", "QTY", "PRICE")
	for _, it := range o.Items {
		row(tw, it.Product(), it.Specification, it.LotCode, it.Quantity, price(it.UnitPrice))
	}
	tw.Flush()
}
