package render

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/picklepickle/picklepay/internal/invoice/domain"
)

// currencies without a minor unit.
var zeroDecimal = map[string]bool{
	"VND": true,
	"JPY": true,
	"KRW": true,
	"IDR": true,
}

type PDFRenderer struct {
	sellerName string
}

func NewPDFRenderer(sellerName string) *PDFRenderer {
	sellerName = strings.TrimSpace(sellerName)
	if sellerName == "" {
		sellerName = "PicklePickle"
	}
	return &PDFRenderer{sellerName: sellerName}
}

func (r *PDFRenderer) Render(ctx context.Context, invoice domain.Invoice) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(8, r.sellerName, props.Text{Size: 18, Style: fontstyle.Bold, Align: align.Left}),
		text.NewCol(4, "Invoice", props.Text{Size: 18, Style: fontstyle.Bold, Align: align.Right}),
	)

	m.AddRow(24,
		col.New(6).Add(
			text.New("Invoice number: "+invoice.Number, props.Text{Top: 0}),
			text.New("Issued: "+invoice.IssuedAt.UTC().Format("2006-01-02 15:04 MST"), props.Text{Top: 5}),
		),
		col.New(6).Add(
			text.New("Booking: "+invoice.BookingID, props.Text{Top: 0, Align: align.Right}),
			text.New("Payment: "+invoice.PaymentID, props.Text{Top: 5, Align: align.Right}),
		),
	)

	m.AddRow(10,
		text.NewCol(8, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(12,
		text.NewCol(8, "Court booking "+invoice.BookingID, props.Text{Size: 9}),
		text.NewCol(4, FormatAmount(invoice.Amount, invoice.Currency), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(12,
		col.New(8),
		text.NewCol(2, "Total paid", props.Text{Size: 10, Style: fontstyle.Bold}),
		text.NewCol(2, FormatAmount(invoice.Amount, invoice.Currency), props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate invoice pdf: %w", err)
	}
	return doc.GetBytes(), nil
}

// FormatAmount renders minor units with the currency's decimal places and thousands separators.
func FormatAmount(amount int64, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	if zeroDecimal[currency] {
		return sign + group(strconv.FormatInt(amount, 10)) + " " + currency
	}
	return fmt.Sprintf("%s%s.%02d %s", sign, group(strconv.FormatInt(amount/100, 10)), amount%100, currency)
}

func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
