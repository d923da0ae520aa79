package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/invoicebook/internal/clock"
	"github.com/smallbiznis/invoicebook/internal/config"
	contactdomain "github.com/smallbiznis/invoicebook/internal/contact/domain"
	contactrepo "github.com/smallbiznis/invoicebook/internal/contact/repository"
	contactservice "github.com/smallbiznis/invoicebook/internal/contact/service"
	invoicedomain "github.com/smallbiznis/invoicebook/internal/invoice/domain"
	invoicerepo "github.com/smallbiznis/invoicebook/internal/invoice/repository"
	invoiceservice "github.com/smallbiznis/invoicebook/internal/invoice/service"
	itemdomain "github.com/smallbiznis/invoicebook/internal/item/domain"
	itemrepo "github.com/smallbiznis/invoicebook/internal/item/repository"
	itemservice "github.com/smallbiznis/invoicebook/internal/item/service"
	"github.com/smallbiznis/invoicebook/internal/observability"
	"github.com/smallbiznis/invoicebook/internal/providers/pdf"
	"github.com/smallbiznis/invoicebook/internal/ratelimit"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testServer struct {
	server *Server
	engine *gin.Engine
	node   *snowflake.Node
	owner  string
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *errorPayload   `json:"error"`
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&contactdomain.Contact{},
		&itemdomain.Item{},
		&invoicedomain.Invoice{},
		&invoicedomain.LineItem{},
		&invoicedomain.InvoiceLineItem{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, time.January, 7, 9, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	engine := NewEngine(observability.Config{ServiceName: "invoicebook", Environment: "test"}, nil)
	server := NewServer(ServerParams{
		Gin: engine,
		Cfg: config.Config{Environment: "test"},
		ContactSvc: contactservice.New(contactservice.Params{
			DB: db, Log: log, GenID: node, Clock: clk, Repo: contactrepo.Provide(),
		}),
		ItemSvc: itemservice.New(itemservice.Params{
			DB: db, Log: log, GenID: node, Clock: clk, Repo: itemrepo.Provide(),
		}),
		InvoiceSvc: invoiceservice.NewService(invoiceservice.ServiceParam{
			DB:        db,
			Log:       log,
			GenID:     node,
			Clock:     clk,
			Repo:      invoicerepo.Provide(),
			Contacts:  contactrepo.Provide(),
			Items:     itemrepo.Provide(),
			Numbering: config.NewStaticNumberingConfig(config.DefaultNumberingConfig()),
		}),
		PDF: pdf.New(),
	})

	return &testServer{server: server, engine: engine, node: node, owner: node.Generate().String()}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if s.owner != "" {
		req.Header.Set(HeaderUserID, s.owner)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec.Code, env
}

func decodeInvoice(t *testing.T, env envelope) map[string]any {
	t.Helper()
	var invoice map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &invoice))
	return invoice
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	srv.owner = ""
	code, _ := srv.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestAPIRequiresOwner(t *testing.T) {
	srv := newTestServer(t)
	srv.owner = ""

	code, env := srv.do(t, http.MethodGet, "/api/invoices", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "unauthorized", env.Error.Type)
	assert.Equal(t, actionFixInput, env.Error.Action)

	srv.owner = "not-a-number"
	code, _ = srv.do(t, http.MethodGet, "/api/invoices", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestCreateInvoiceFlow(t *testing.T) {
	srv := newTestServer(t)

	code, env := srv.do(t, http.MethodPost, "/api/invoices", map[string]any{
		"invoice_date": "07-01-2025",
		"line_items": []map[string]any{
			{"quantity": 2, "rate": "100"},
			{"quantity": 3, "rate": "200"},
		},
	})
	require.Equal(t, http.StatusCreated, code)
	invoice := decodeInvoice(t, env)
	assert.Equal(t, "JAN-25070001", invoice["invoice_number"])
	assert.Equal(t, "INV070125-0001", invoice["bill_id"])
	assert.Equal(t, "800", invoice["total_amount"])
	id := invoice["id"].(string)

	code, env = srv.do(t, http.MethodGet, "/api/invoices/"+id, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "JAN-25070001", decodeInvoice(t, env)["invoice_number"])

	code, env = srv.do(t, http.MethodGet, "/api/invoices/invoice-number?date=2025-01-07", nil)
	require.Equal(t, http.StatusOK, code)
	var info invoicedomain.InvoiceNumberInfo
	require.NoError(t, json.Unmarshal(env.Data, &info))
	assert.Equal(t, "JAN-25070002", info.NextInvoiceNumber)
	assert.Empty(t, info.MissingNumbers)

	code, env = srv.do(t, http.MethodPatch, "/api/invoices/"+id, map[string]any{"invoice_number": "JAN-25070042"})
	assert.Equal(t, http.StatusConflict, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "immutable_identifier", env.Error.Errors[0].Code)

	code, env = srv.do(t, http.MethodPatch, "/api/invoices/"+id, map[string]any{"invoice_date": "01-03-2025"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "JAN-25070001", decodeInvoice(t, env)["invoice_number"])

	code, _ = srv.do(t, http.MethodDelete, "/api/invoices/"+id, nil)
	assert.Equal(t, http.StatusOK, code)
	code, env = srv.do(t, http.MethodGet, "/api/invoices/"+id, nil)
	assert.Equal(t, http.StatusNotFound, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_found", env.Error.Type)
}

func TestLineItemEndpoints(t *testing.T) {
	srv := newTestServer(t)

	code, env := srv.do(t, http.MethodPost, "/api/invoices", map[string]any{})
	require.Equal(t, http.StatusCreated, code)
	id := decodeInvoice(t, env)["id"].(string)

	code, env = srv.do(t, http.MethodPost, "/api/invoices/"+id+"/line-items", map[string]any{
		"line_items": []map[string]any{
			{"quantity": 5, "rate": "100", "discount": "50"},
		},
	})
	require.Equal(t, http.StatusOK, code)
	invoice := decodeInvoice(t, env)
	assert.Equal(t, "450", invoice["total_amount"])
	lines := invoice["line_items"].([]any)
	require.Len(t, lines, 1)
	lineID := lines[0].(map[string]any)["id"].(string)

	code, env = srv.do(t, http.MethodDelete, "/api/invoices/"+id+"/line-items/"+lineID, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "0", decodeInvoice(t, env)["total_amount"])

	code, _ = srv.do(t, http.MethodPost, "/api/invoices/"+id+"/line-items", map[string]any{"line_items": []any{}})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestDownloadInvoicePDF(t *testing.T) {
	srv := newTestServer(t)

	code, env := srv.do(t, http.MethodPost, "/api/contacts", map[string]any{"name": "Acme Traders"})
	require.Equal(t, http.StatusCreated, code)
	var contact map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &contact))

	code, env = srv.do(t, http.MethodPost, "/api/invoices", map[string]any{
		"contact_id": contact["id"],
		"line_items": []map[string]any{
			{"description": "Consulting", "quantity": 5, "rate": "100", "discount": "50"},
		},
	})
	require.Equal(t, http.StatusCreated, code)
	id := decodeInvoice(t, env)["id"].(string)

	req := httptest.NewRequest(http.MethodGet, "/api/invoices/"+id+"/pdf", nil)
	req.Header.Set(HeaderUserID, srv.owner)
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "JAN-25070001.pdf")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	code, _ = srv.do(t, http.MethodGet, "/api/invoices/"+srv.node.Generate().String()+"/pdf", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestManualInvoiceNumberErrors(t *testing.T) {
	srv := newTestServer(t)

	code, env := srv.do(t, http.MethodPost, "/api/invoices", map[string]any{
		"invoice_date":   "2025-01-07",
		"invoice_number": "FEB-25070001",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "validation_error", env.Error.Type)
	assert.Equal(t, actionFixInput, env.Error.Action)
	assert.Equal(t, "prefix_mismatch", env.Error.Errors[0].Code)
	assert.Equal(t, "invoice_number", env.Error.Errors[0].Field)

	code, _ = srv.do(t, http.MethodPost, "/api/invoices", map[string]any{
		"invoice_date":   "2025-01-07",
		"invoice_number": "JAN-25070003",
	})
	require.Equal(t, http.StatusCreated, code)

	code, env = srv.do(t, http.MethodPost, "/api/invoices", map[string]any{
		"invoice_date":   "2025-01-07",
		"invoice_number": "JAN-25070003",
	})
	assert.Equal(t, http.StatusConflict, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "duplicate_identifier", env.Error.Errors[0].Code)

	code, env = srv.do(t, http.MethodPost, "/api/invoices", map[string]any{
		"line_items": []map[string]any{{"quantity": -1}},
	})
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "invalid_quantity", env.Error.Errors[0].Code)
}

func TestInvoiceNumberEndpointValidatesDate(t *testing.T) {
	srv := newTestServer(t)

	code, env := srv.do(t, http.MethodGet, "/api/invoices/invoice-number", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "required", env.Error.Errors[0].Code)

	code, _ = srv.do(t, http.MethodGet, "/api/invoices/invoice-number?date=07/01/2025", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = srv.do(t, http.MethodGet, "/api/invoices/invoice-number?date=07-01-2025", nil)
	require.Equal(t, http.StatusOK, code)
	var info invoicedomain.InvoiceNumberInfo
	require.NoError(t, json.Unmarshal(env.Data, &info))
	assert.Equal(t, "JAN-2507", info.Prefix)
	assert.Equal(t, "JAN-25070001", info.NextInvoiceNumber)
}

func TestContactAndItemEndpoints(t *testing.T) {
	srv := newTestServer(t)

	code, env := srv.do(t, http.MethodPost, "/api/contacts", map[string]any{"name": "Acme Traders", "email": "billing@acme.test"})
	require.Equal(t, http.StatusCreated, code)
	var contact map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &contact))

	code, env = srv.do(t, http.MethodPost, "/api/contacts", map[string]any{"name": "Bad", "email": "nope"})
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "invalid_email", env.Error.Errors[0].Code)

	code, env = srv.do(t, http.MethodPost, "/api/items", map[string]any{
		"name":                "Consulting",
		"type":                "service",
		"rate":                "1500",
		"invoice_description": "Consulting hours",
	})
	require.Equal(t, http.StatusCreated, code)
	var item map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &item))

	code, _ = srv.do(t, http.MethodPost, "/api/items", map[string]any{"name": "Consulting", "type": "service"})
	assert.Equal(t, http.StatusConflict, code)

	code, env = srv.do(t, http.MethodPost, "/api/invoices", map[string]any{
		"contact_id": contact["id"],
		"line_items": []map[string]any{{"item_id": item["id"], "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, code)
	invoice := decodeInvoice(t, env)
	assert.Equal(t, contact["id"], invoice["contact_id"])
	assert.Equal(t, "3000", invoice["total_amount"])

	srv.owner = srv.node.Generate().String()
	code, _ = srv.do(t, http.MethodGet, "/api/contacts/"+contact["id"].(string), nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestMapErrorActions(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		action string
	}{
		{"transient", fmt.Errorf("%w: database is locked", invoicedomain.ErrTransient), http.StatusServiceUnavailable, actionRetry},
		{"exhausted", fmt.Errorf("%w after 5 attempts", invoicedomain.ErrAllocationExhausted), http.StatusInternalServerError, actionContactSupport},
		{"suffix", invoicedomain.ErrSuffixOutOfRange, http.StatusInternalServerError, actionContactSupport},
		{"wrapped validation", fmt.Errorf("line 2: %w", invoicedomain.ErrInvalidDiscount), http.StatusBadRequest, actionFixInput},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, actionContactSupport},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.action, payload.Action)
		})
	}

	_, payload := mapError(fmt.Errorf("line 2: %w", invoicedomain.ErrInvalidDiscount))
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "discount", payload.Errors[0].Field)
}

func TestParseCalendarDate(t *testing.T) {
	parsed, err := parseCalendarDate("07-01-2025")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.January, 7, 0, 0, 0, 0, time.UTC), parsed)

	parsed, err = parseCalendarDate("2025-01-07")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.January, 7, 0, 0, 0, 0, time.UTC), parsed)

	_, err = parseCalendarDate("7 Jan 2025")
	assert.Error(t, err)
}

func TestOwnerRateLimit(t *testing.T) {
	srv := newTestServer(t)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter, err := ratelimit.New(client, ratelimit.Options{OwnerRate: 0.001, OwnerBurst: 2})
	require.NoError(t, err)
	srv.server.limiter = limiter

	for i := 0; i < 2; i++ {
		code, _ := srv.do(t, http.MethodGet, "/api/contacts", nil)
		require.Equal(t, http.StatusOK, code)
	}

	code, env := srv.do(t, http.MethodGet, "/api/contacts", nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "rate_limited", env.Error.Type)
	assert.Equal(t, actionRetry, env.Error.Action)

	srv.owner = srv.node.Generate().String()
	code, _ = srv.do(t, http.MethodGet, "/api/contacts", nil)
	assert.Equal(t, http.StatusOK, code)
}
