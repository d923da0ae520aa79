// Package numbering derives the next and missing invoice identifiers for an
// owner from what is already persisted. It only reads; uniqueness is enforced
// by the database at insert time.
package numbering

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicebook/internal/config"
	"github.com/smallbiznis/invoicebook/internal/invoice/domain"
	"github.com/smallbiznis/invoicebook/internal/invoice/format"
	"github.com/smallbiznis/invoicebook/internal/observability/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store is the read side of the invoice repository used for allocation.
type Store interface {
	MaxIdentifier(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, column domain.IdentifierColumn, prefix string) (string, error)
	ListIdentifiers(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, column domain.IdentifierColumn, prefix string) ([]string, error)
	IdentifierExists(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, column domain.IdentifierColumn, value string) (bool, error)
}

type Allocator struct {
	store     Store
	log       *zap.Logger
	numbering *config.NumberingConfigHolder
}

func NewAllocator(store Store, log *zap.Logger, numbering *config.NumberingConfigHolder) *Allocator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Allocator{
		store:     store,
		log:       log.Named("invoice.numbering"),
		numbering: numbering,
	}
}

// NextNumber returns the invoice number the next invoice dated date would get.
func (a *Allocator) NextNumber(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, date time.Time) (string, error) {
	return a.next(ctx, db, ownerID, domain.ColumnInvoiceNumber, format.PeriodPrefix(date))
}

// NextBillID returns the bill ID for an invoice created at createdAt.
func (a *Allocator) NextBillID(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, createdAt time.Time) (string, error) {
	return a.next(ctx, db, ownerID, domain.ColumnBillID, format.BillIDPrefix(createdAt, a.billIDLayout()))
}

func (a *Allocator) next(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, column domain.IdentifierColumn, prefix string) (string, error) {
	ctx, span := tracing.Tracer("invoicebook/numbering").Start(ctx, "numbering.next")
	defer span.End()
	span.SetAttributes(attribute.String("column", string(column)), attribute.String("prefix", prefix))

	latest, err := a.store.MaxIdentifier(ctx, db, ownerID, column, prefix)
	if err != nil {
		return "", err
	}
	if latest == "" {
		return format.Compose(prefix, 1)
	}

	n, err := format.ParseSuffix(latest)
	if err != nil {
		// A malformed legacy value sorts above well-formed ones; fall back to
		// the highest parsable suffix.
		a.log.Warn("unparsable identifier at period max",
			zap.String("column", string(column)),
			zap.String("identifier", latest),
		)
		used, scanErr := a.usedSuffixes(ctx, db, ownerID, column, prefix)
		if scanErr != nil {
			return "", scanErr
		}
		n = 0
		if len(used) > 0 {
			n = used[len(used)-1]
		}
	}

	return format.Compose(prefix, n+1)
}

// MissingNumbers lists every unused invoice number below the highest one in
// the period of date, in ascending order.
func (a *Allocator) MissingNumbers(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, date time.Time) ([]string, error) {
	prefix := format.PeriodPrefix(date)
	used, err := a.usedSuffixes(ctx, db, ownerID, domain.ColumnInvoiceNumber, prefix)
	if err != nil {
		return nil, err
	}
	if len(used) == 0 {
		return []string{}, nil
	}

	seen := make(map[int]struct{}, len(used))
	for _, n := range used {
		seen[n] = struct{}{}
	}

	highest := used[len(used)-1]
	missing := []string{}
	for n := 1; n < highest; n++ {
		if _, ok := seen[n]; ok {
			continue
		}
		id, err := format.Compose(prefix, n)
		if err != nil {
			return nil, err
		}
		missing = append(missing, id)
	}
	return missing, nil
}

// ValidateManualNumber checks a caller supplied invoice number against the
// period of date and the owner's existing numbers.
func (a *Allocator) ValidateManualNumber(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, date time.Time, candidate string) error {
	prefix := format.PeriodPrefix(date)
	if !strings.HasPrefix(candidate, prefix) {
		return fmt.Errorf("%w: %q does not start with %s", domain.ErrPrefixMismatch, candidate, prefix)
	}
	if len(candidate) != len(prefix)+format.SuffixWidth {
		return fmt.Errorf("%w: %q", domain.ErrInvalidIdentifierFormat, candidate)
	}
	n, err := format.ParseSuffix(candidate)
	if err != nil {
		return err
	}
	if n < 1 {
		return fmt.Errorf("%w: %q", domain.ErrInvalidIdentifierFormat, candidate)
	}

	exists, err := a.store.IdentifierExists(ctx, db, ownerID, domain.ColumnInvoiceNumber, candidate)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateIdentifier, candidate)
	}
	return nil
}

// usedSuffixes returns the sorted parsable suffixes in use under prefix.
func (a *Allocator) usedSuffixes(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, column domain.IdentifierColumn, prefix string) ([]int, error) {
	ids, err := a.store.ListIdentifiers(ctx, db, ownerID, column, prefix)
	if err != nil {
		return nil, err
	}

	used := make([]int, 0, len(ids))
	for _, id := range ids {
		n, err := format.ParseSuffix(id)
		if err != nil {
			if errors.Is(err, format.ErrInvalidIdentifierFormat) {
				a.log.Warn("skipping unparsable identifier",
					zap.String("column", string(column)),
					zap.String("identifier", id),
				)
				continue
			}
			return nil, err
		}
		used = append(used, n)
	}
	sort.Ints(used)
	return used, nil
}

func (a *Allocator) billIDLayout() string {
	if a.numbering.Get().BillIDLayout == config.BillIDLayoutYYYYMMDD {
		return format.LayoutYYYYMMDD
	}
	return format.LayoutDDMMYY
}
