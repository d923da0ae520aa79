package numbering

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicebook/internal/config"
	"github.com/smallbiznis/invoicebook/internal/invoice/domain"
	"github.com/smallbiznis/invoicebook/internal/invoice/format"
	"github.com/smallbiznis/invoicebook/internal/invoice/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var jan7 = time.Date(2025, time.January, 7, 0, 0, 0, 0, time.UTC)

type harness struct {
	db        *gorm.DB
	node      *snowflake.Node
	repo      domain.Repository
	allocator *Allocator
}

func newHarness(t *testing.T, cfg config.NumberingConfig) harness {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Invoice{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	repo := repository.Provide()

	return harness{
		db:        db,
		node:      node,
		repo:      repo,
		allocator: NewAllocator(repo, zap.NewNop(), config.NewStaticNumberingConfig(cfg)),
	}
}

// seed stores an invoice with the given number and a unique bill ID.
func (h harness) seed(t *testing.T, ownerID snowflake.ID, number string) {
	t.Helper()
	id := h.node.Generate()
	require.NoError(t, h.repo.InsertInvoice(context.Background(), h.db, &domain.Invoice{
		ID:            id,
		OwnerID:       ownerID,
		BillID:        "SEED-" + id.String(),
		InvoiceNumber: number,
		InvoiceType:   domain.InvoiceTypeDefault,
		SupplyType:    domain.SupplyTypeRegular,
		InvoiceDate:   jan7,
		TotalAmount:   decimal.Zero,
		CreatedAt:     jan7,
		UpdatedAt:     jan7,
	}))
}

func (h harness) seedNumbers(t *testing.T, ownerID snowflake.ID, prefix string, suffixes ...int) {
	t.Helper()
	for _, n := range suffixes {
		id, err := format.Compose(prefix, n)
		require.NoError(t, err)
		h.seed(t, ownerID, id)
	}
}

func TestNextNumberEmptyPeriodStartsAtOne(t *testing.T) {
	h := newHarness(t, config.DefaultNumberingConfig())

	next, err := h.allocator.NextNumber(context.Background(), h.db, h.node.Generate(), jan7)
	require.NoError(t, err)
	assert.Equal(t, "JAN-25070001", next)
}

func TestNextNumberIsAPureRead(t *testing.T) {
	h := newHarness(t, config.DefaultNumberingConfig())
	ctx := context.Background()
	owner := h.node.Generate()
	h.seedNumbers(t, owner, "JAN-2507", 7)

	first, err := h.allocator.NextNumber(ctx, h.db, owner, jan7)
	require.NoError(t, err)
	second, err := h.allocator.NextNumber(ctx, h.db, owner, jan7)
	require.NoError(t, err)
	assert.Equal(t, "JAN-25070008", first)
	assert.Equal(t, first, second)

	h.seed(t, owner, first)
	third, err := h.allocator.NextNumber(ctx, h.db, owner, jan7)
	require.NoError(t, err)
	assert.Equal(t, "JAN-25070009", third)
}

func TestNextNumberIgnoresOtherPeriodsAndOwners(t *testing.T) {
	h := newHarness(t, config.DefaultNumberingConfig())
	ctx := context.Background()
	owner := h.node.Generate()
	other := h.node.Generate()

	h.seedNumbers(t, owner, "JAN-2506", 40)
	h.seedNumbers(t, other, "JAN-2507", 12)

	next, err := h.allocator.NextNumber(ctx, h.db, owner, jan7)
	require.NoError(t, err)
	assert.Equal(t, "JAN-25070001", next)

	next, err = h.allocator.NextNumber(ctx, h.db, other, jan7)
	require.NoError(t, err)
	assert.Equal(t, "JAN-25070013", next)
}

func TestNextNumberOverflow(t *testing.T) {
	h := newHarness(t, config.DefaultNumberingConfig())
	owner := h.node.Generate()
	h.seedNumbers(t, owner, "JAN-2507", format.MaxSuffix)

	_, err := h.allocator.NextNumber(context.Background(), h.db, owner, jan7)
	assert.ErrorIs(t, err, format.ErrSuffixOutOfRange)
}

func TestNextNumberSkipsMalformedMax(t *testing.T) {
	h := newHarness(t, config.DefaultNumberingConfig())
	owner := h.node.Generate()
	h.seedNumbers(t, owner, "JAN-2507", 3)
	h.seed(t, owner, "JAN-2507ABCD")

	next, err := h.allocator.NextNumber(context.Background(), h.db, owner, jan7)
	require.NoError(t, err)
	assert.Equal(t, "JAN-25070004", next)
}

func TestMissingNumbers(t *testing.T) {
	h := newHarness(t, config.DefaultNumberingConfig())
	ctx := context.Background()
	owner := h.node.Generate()
	h.seedNumbers(t, owner, "JAN-2507", 1, 2, 4, 7)

	missing, err := h.allocator.MissingNumbers(ctx, h.db, owner, jan7)
	require.NoError(t, err)
	assert.Equal(t, []string{"JAN-25070003", "JAN-25070005", "JAN-25070006"}, missing)

	again, err := h.allocator.MissingNumbers(ctx, h.db, owner, jan7)
	require.NoError(t, err)
	assert.Equal(t, missing, again)
}

func TestMissingNumbersEmptyCases(t *testing.T) {
	h := newHarness(t, config.DefaultNumberingConfig())
	ctx := context.Background()

	none := h.node.Generate()
	missing, err := h.allocator.MissingNumbers(ctx, h.db, none, jan7)
	require.NoError(t, err)
	assert.Empty(t, missing)

	first := h.node.Generate()
	h.seedNumbers(t, first, "JAN-2507", 1)
	missing, err = h.allocator.MissingNumbers(ctx, h.db, first, jan7)
	require.NoError(t, err)
	assert.Empty(t, missing)

	contiguous := h.node.Generate()
	h.seedNumbers(t, contiguous, "JAN-2507", 1, 2, 3)
	missing, err = h.allocator.MissingNumbers(ctx, h.db, contiguous, jan7)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestMissingNumbersBelowSingleNumber(t *testing.T) {
	h := newHarness(t, config.DefaultNumberingConfig())
	owner := h.node.Generate()
	h.seedNumbers(t, owner, "JAN-2507", 5)

	missing, err := h.allocator.MissingNumbers(context.Background(), h.db, owner, jan7)
	require.NoError(t, err)
	assert.Equal(t, []string{"JAN-25070001", "JAN-25070002", "JAN-25070003", "JAN-25070004"}, missing)
}

func TestMissingNumbersSkipsUnparsable(t *testing.T) {
	h := newHarness(t, config.DefaultNumberingConfig())
	owner := h.node.Generate()
	h.seedNumbers(t, owner, "JAN-2507", 1, 3)
	h.seed(t, owner, "JAN-2507-OLD")

	missing, err := h.allocator.MissingNumbers(context.Background(), h.db, owner, jan7)
	require.NoError(t, err)
	assert.Equal(t, []string{"JAN-25070002"}, missing)
}

func TestValidateManualNumber(t *testing.T) {
	h := newHarness(t, config.DefaultNumberingConfig())
	ctx := context.Background()
	owner := h.node.Generate()
	h.seedNumbers(t, owner, "JAN-2507", 1)

	assert.ErrorIs(t, h.allocator.ValidateManualNumber(ctx, h.db, owner, jan7, "FEB-25070001"), domain.ErrPrefixMismatch)
	assert.ErrorIs(t, h.allocator.ValidateManualNumber(ctx, h.db, owner, jan7, "JAN-2507000X"), domain.ErrInvalidIdentifierFormat)
	assert.ErrorIs(t, h.allocator.ValidateManualNumber(ctx, h.db, owner, jan7, "JAN-250700001"), domain.ErrInvalidIdentifierFormat)
	assert.ErrorIs(t, h.allocator.ValidateManualNumber(ctx, h.db, owner, jan7, "JAN-25070000"), domain.ErrInvalidIdentifierFormat)
	assert.ErrorIs(t, h.allocator.ValidateManualNumber(ctx, h.db, owner, jan7, "JAN-25070001"), domain.ErrDuplicateIdentifier)
	assert.NoError(t, h.allocator.ValidateManualNumber(ctx, h.db, owner, jan7, "JAN-25070005"))

	// Another owner may reuse the same number.
	assert.NoError(t, h.allocator.ValidateManualNumber(ctx, h.db, h.node.Generate(), jan7, "JAN-25070001"))
}

func TestNextBillIDLayouts(t *testing.T) {
	created := time.Date(2025, time.March, 4, 15, 30, 0, 0, time.UTC)

	h := newHarness(t, config.DefaultNumberingConfig())
	billID, err := h.allocator.NextBillID(context.Background(), h.db, h.node.Generate(), created)
	require.NoError(t, err)
	assert.Equal(t, "INV040325-0001", billID)

	legacy := newHarness(t, config.NumberingConfig{MaxAllocationAttempts: 3, BillIDLayout: config.BillIDLayoutYYYYMMDD})
	billID, err = legacy.allocator.NextBillID(context.Background(), legacy.db, legacy.node.Generate(), created)
	require.NoError(t, err)
	assert.Equal(t, "INV20250304-0001", billID)
}

func TestNextBillIDContinuesSequence(t *testing.T) {
	h := newHarness(t, config.DefaultNumberingConfig())
	ctx := context.Background()
	owner := h.node.Generate()
	created := time.Date(2025, time.March, 4, 15, 30, 0, 0, time.UTC)

	for _, billID := range []string{"INV040325-0001", "INV040325-0002", "INV030325-0009"} {
		id := h.node.Generate()
		require.NoError(t, h.repo.InsertInvoice(ctx, h.db, &domain.Invoice{
			ID:            id,
			OwnerID:       owner,
			BillID:        billID,
			InvoiceNumber: "SEED-" + id.String(),
			InvoiceType:   domain.InvoiceTypeDefault,
			SupplyType:    domain.SupplyTypeRegular,
			InvoiceDate:   created,
			TotalAmount:   decimal.Zero,
			CreatedAt:     created,
			UpdatedAt:     created,
		}))
	}

	next, err := h.allocator.NextBillID(ctx, h.db, owner, created)
	require.NoError(t, err)
	assert.Equal(t, "INV040325-0003", next)
}
