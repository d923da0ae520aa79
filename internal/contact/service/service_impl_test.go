package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/invoicebook/internal/clock"
	"github.com/smallbiznis/invoicebook/internal/contact/domain"
	"github.com/smallbiznis/invoicebook/internal/contact/repository"
	invoicedomain "github.com/smallbiznis/invoicebook/internal/invoice/domain"
	"github.com/smallbiznis/invoicebook/internal/ownercontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	svc   domain.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Contact{}, &invoicedomain.Invoice{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, time.January, 7, 10, 0, 0, 0, time.UTC))

	return fixture{
		db:    db,
		node:  node,
		clock: clk,
		svc: New(Params{
			DB:    db,
			Log:   zap.NewNop(),
			GenID: node,
			Clock: clk,
			Repo:  repository.Provide(),
		}),
	}
}

func (f fixture) ownerCtx() context.Context {
	return ownercontext.WithOwnerID(context.Background(), f.node.Generate())
}

func TestCreateContact(t *testing.T) {
	f := newFixture(t)
	ctx := f.ownerCtx()

	contact, err := f.svc.Create(ctx, domain.CreateContactRequest{
		Name:   "  Acme Traders ",
		Mobile: "+919876543210",
		Email:  "billing@acme.example",
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Traders", contact.Name)

	got, err := f.svc.GetByID(ctx, contact.ID.String())
	require.NoError(t, err)
	assert.Equal(t, contact.Email, got.Email)
	assert.Equal(t, contact.Mobile, got.Mobile)
}

func TestCreateContactValidation(t *testing.T) {
	f := newFixture(t)
	ctx := f.ownerCtx()

	_, err := f.svc.Create(ctx, domain.CreateContactRequest{Name: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = f.svc.Create(ctx, domain.CreateContactRequest{Name: "A", Mobile: "1234567890123456"})
	assert.ErrorIs(t, err, domain.ErrInvalidMobile)

	_, err = f.svc.Create(ctx, domain.CreateContactRequest{Name: "A", Email: "not-an-email"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, err = f.svc.Create(context.Background(), domain.CreateContactRequest{Name: "A"})
	assert.ErrorIs(t, err, domain.ErrInvalidOwner)
}

func TestContactsAreScopedToOwner(t *testing.T) {
	f := newFixture(t)
	ownerA := f.ownerCtx()
	ownerB := f.ownerCtx()

	contact, err := f.svc.Create(ownerA, domain.CreateContactRequest{Name: "Acme"})
	require.NoError(t, err)

	_, err = f.svc.GetByID(ownerB, contact.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	resp, err := f.svc.List(ownerB, domain.ListContactRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Contacts)
}

func TestListContactsPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := f.ownerCtx()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(ctx, domain.CreateContactRequest{Name: fmt.Sprintf("Contact %d", i)})
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}

	first, err := f.svc.List(ctx, domain.ListContactRequest{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.Contacts, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, "Contact 2", first.Contacts[0].Name)

	second, err := f.svc.List(ctx, domain.ListContactRequest{PageSize: 2, PageToken: first.NextPageToken})
	require.NoError(t, err)
	require.Len(t, second.Contacts, 1)
	assert.False(t, second.HasMore)
	assert.Equal(t, "Contact 0", second.Contacts[0].Name)
}

func TestUpdateAndDeleteContact(t *testing.T) {
	f := newFixture(t)
	ctx := f.ownerCtx()

	contact, err := f.svc.Create(ctx, domain.CreateContactRequest{Name: "Acme"})
	require.NoError(t, err)

	name := "Acme Pvt Ltd"
	updated, err := f.svc.Update(ctx, domain.UpdateContactRequest{ID: contact.ID.String(), Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)

	bad := ""
	_, err = f.svc.Update(ctx, domain.UpdateContactRequest{ID: contact.ID.String(), Name: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	require.NoError(t, f.svc.Delete(ctx, contact.ID.String()))
	_, err = f.svc.GetByID(ctx, contact.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, f.svc.Delete(ctx, contact.ID.String()), domain.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, "abc"), domain.ErrInvalidID)
}
