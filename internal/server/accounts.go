package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/upeosms/upeo/pkg/db/pagination"
)

type createAccountRequest struct {
	Name     string `json:"name" binding:"required"`
	Currency string `json:"currency"`
}

func (s *Server) CreateAccount(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	currency := strings.TrimSpace(req.Currency)
	if currency == "" {
		currency = s.cfg.Billing.Currency
	}

	account, err := s.ledgerSvc.CreateAccount(c.Request.Context(), strings.TrimSpace(req.Name), currency)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, account)
}

func (s *Server) GetAccount(c *gin.Context) {
	accountID, ok := pathID(c, "id")
	if !ok {
		return
	}

	account, err := s.ledgerSvc.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, account)
}

type topUpRequest struct {
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Reference string          `json:"reference"`
	Metadata  map[string]any  `json:"metadata"`
}

func (s *Server) TopUpAccount(c *gin.Context) {
	accountID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req topUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		reference = idempotencyKeyFromHeader(c)
	}

	entry, err := s.ledgerSvc.TopUp(c.Request.Context(), accountID, req.Amount, reference, req.Metadata)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, entry)
}

func (s *Server) ListLedgerEntries(c *gin.Context) {
	accountID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	entries, err := s.ledgerSvc.Entries(c.Request.Context(), accountID, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	pageInfo := page.Next(len(entries))
	respondList(c, entries, &pageInfo)
}

func pathID(c *gin.Context, param string) (snowflake.ID, bool) {
	return parseID(c, param, c.Param(param))
}

func parseID(c *gin.Context, field, value string) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil {
		AbortWithError(c, newValidationError(field, "invalid_id", "invalid id"))
		return 0, false
	}
	return id, true
}
