package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	itemdomain "github.com/smallbiznis/invoicebook/internal/item/domain"
	"github.com/smallbiznis/invoicebook/pkg/db/pagination"
)

type createItemRequest struct {
	Name               string          `json:"name"`
	Type               string          `json:"type"`
	SAC                string          `json:"sac"`
	UnitType           string          `json:"unit_type"`
	TaxCategory        string          `json:"tax_category"`
	InvoiceDescription string          `json:"invoice_description"`
	Rate               decimal.Decimal `json:"rate"`
	Discount           decimal.Decimal `json:"discount"`
	WithTax            bool            `json:"with_tax"`
	Metadata           map[string]any  `json:"metadata"`
}

type updateItemRequest struct {
	Name               *string          `json:"name"`
	Type               *string          `json:"type"`
	SAC                *string          `json:"sac"`
	UnitType           *string          `json:"unit_type"`
	TaxCategory        *string          `json:"tax_category"`
	InvoiceDescription *string          `json:"invoice_description"`
	Rate               *decimal.Decimal `json:"rate"`
	Discount           *decimal.Decimal `json:"discount"`
	WithTax            *bool            `json:"with_tax"`
	Metadata           map[string]any   `json:"metadata"`
}

func (s *Server) CreateItem(c *gin.Context) {
	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.itemSvc.Create(c.Request.Context(), itemdomain.CreateItemRequest{
		Name:               strings.TrimSpace(req.Name),
		Type:               strings.TrimSpace(req.Type),
		SAC:                strings.TrimSpace(req.SAC),
		UnitType:           strings.TrimSpace(req.UnitType),
		TaxCategory:        strings.TrimSpace(req.TaxCategory),
		InvoiceDescription: strings.TrimSpace(req.InvoiceDescription),
		Rate:               req.Rate,
		Discount:           req.Discount,
		WithTax:            req.WithTax,
		Metadata:           req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListItems(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Type string `form:"type"`
		Name string `form:"name"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.itemSvc.List(c.Request.Context(), itemdomain.ListItemRequest{
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
		Type:      strings.TrimSpace(query.Type),
		Name:      strings.TrimSpace(query.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetItemByID(c *gin.Context) {
	resp, err := s.itemSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateItem(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.itemSvc.Update(c.Request.Context(), itemdomain.UpdateItemRequest{
		ID:                 strings.TrimSpace(c.Param("id")),
		Name:               req.Name,
		Type:               req.Type,
		SAC:                req.SAC,
		UnitType:           req.UnitType,
		TaxCategory:        req.TaxCategory,
		InvoiceDescription: req.InvoiceDescription,
		Rate:               req.Rate,
		Discount:           req.Discount,
		WithTax:            req.WithTax,
		Metadata:           req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteItem(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.itemSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": id, "deleted": true}})
}
