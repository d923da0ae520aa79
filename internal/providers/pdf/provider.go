package pdf

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("pdf.provider",
	fx.Provide(New),
)

// Provider renders printable documents.
type Provider interface {
	GenerateInvoice(ctx context.Context, invoice InvoiceData) ([]byte, error)
}
