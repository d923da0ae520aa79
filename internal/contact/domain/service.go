package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/invoicebook/pkg/db/pagination"
)

const MaxMobileLength = 15

type ListContactRequest struct {
	PageToken string
	PageSize  int
	Name      string
	Email     string
}

type ListContactFilter struct {
	Name  string
	Email string
}

type ListContactResponse struct {
	pagination.PageInfo
	Contacts []Contact `json:"contacts"`
}

type CreateContactRequest struct {
	Name     string
	Mobile   string
	Email    string
	Metadata map[string]any
}

type UpdateContactRequest struct {
	ID       string
	Name     *string
	Mobile   *string
	Email    *string
	Metadata map[string]any
}

type Service interface {
	Create(context.Context, CreateContactRequest) (Contact, error)
	List(context.Context, ListContactRequest) (ListContactResponse, error)
	GetByID(ctx context.Context, id string) (Contact, error)
	Update(context.Context, UpdateContactRequest) (Contact, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidOwner  = errors.New("invalid_owner")
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidEmail  = errors.New("invalid_email")
	ErrInvalidMobile = errors.New("invalid_mobile")
	ErrInvalidID     = errors.New("invalid_id")
	ErrNotFound      = errors.New("not_found")
)
