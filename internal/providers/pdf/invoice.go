package pdf

import (
	"context"
	"errors"
	"strconv"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

var ErrMissingInvoiceNumber = errors.New("missing_invoice_number")

// InvoiceData is the printable view of an invoice. Amounts are preformatted.
type InvoiceData struct {
	Title         string
	BillID        string
	InvoiceNumber string
	InvoiceDate   string
	InvoiceType   string
	SupplyType    string

	BillToName   string
	BillToMobile string
	BillToEmail  string

	Notes string
	Items []InvoiceItem
	Total string
}

type InvoiceItem struct {
	Description string
	Qty         int64
	UnitPrice   string
	Discount    string
	Amount      string
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateInvoice(ctx context.Context, invoice InvoiceData) ([]byte, error) {
	if invoice.InvoiceNumber == "" {
		return nil, ErrMissingInvoiceNumber
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	title := invoice.Title
	if title == "" {
		title = "Invoice"
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, title, props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(24,
		col.New(6).Add(
			text.New("Invoice number: "+invoice.InvoiceNumber, props.Text{Top: 0}),
			text.New("Bill ID: "+invoice.BillID, props.Text{Top: 5}),
			text.New("Date: "+invoice.InvoiceDate, props.Text{Top: 10}),
		),
		col.New(6).Add(
			text.New("Type: "+invoice.InvoiceType, props.Text{Top: 0, Align: align.Right}),
			text.New("Supply: "+invoice.SupplyType, props.Text{Top: 5, Align: align.Right}),
		),
	)

	if invoice.BillToName != "" {
		m.AddRow(24,
			col.New(12).Add(
				text.New("Bill to", props.Text{Style: fontstyle.Bold}),
				text.New(invoice.BillToName, props.Text{Top: 5}),
				text.New(invoice.BillToMobile, props.Text{Top: 10}),
				text.New(invoice.BillToEmail, props.Text{Top: 15}),
			),
		)
	}

	m.AddRow(10,
		text.NewCol(5, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(1, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Rate", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Discount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(2, line.NewCol(12))

	for _, item := range invoice.Items {
		m.AddRow(10,
			text.NewCol(5, item.Description, props.Text{Size: 9}),
			text.NewCol(1, strconv.FormatInt(item.Qty, 10), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.UnitPrice, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.Discount, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(2, line.NewCol(12))
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Total", props.Text{Style: fontstyle.Bold, Size: 10}),
		text.NewCol(2, invoice.Total, props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right}),
	)

	if invoice.Notes != "" {
		m.AddRow(20,
			text.NewCol(12, invoice.Notes, props.Text{Size: 9, Top: 4}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}
