package server

import (
	"github.com/gin-gonic/gin"
	messagedomain "github.com/upeosms/upeo/internal/message/domain"
	"github.com/upeosms/upeo/pkg/db/pagination"
)

type messageRequest struct {
	AccountID string `json:"account_id" binding:"required"`
	Body      string `json:"body"`
}

func (s *Server) PreviewMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	accountID, ok := parseID(c, "account_id", req.AccountID)
	if !ok {
		return
	}

	comp, err := s.billingSvc.Preview(c.Request.Context(), accountID, req.Body)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, comp)
}

func (s *Server) SendMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	accountID, ok := parseID(c, "account_id", req.AccountID)
	if !ok {
		return
	}

	message, err := s.billingSvc.SendAndCharge(c.Request.Context(), accountID, req.Body)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, message)
}

func (s *Server) GetMessage(c *gin.Context) {
	messageID, ok := pathID(c, "id")
	if !ok {
		return
	}

	message, err := s.billingSvc.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, message)
}

type deliveryRequest struct {
	Status messagedomain.DeliveryStatus `json:"status" binding:"required"`
}

// ReportDelivery is the carrier callback. Duplicate callbacks for the
// same message are accepted and settle at most once.
func (s *Server) ReportDelivery(c *gin.Context) {
	messageID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req deliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.billingSvc.SettleOutcome(c.Request.Context(), messageID, req.Status); err != nil {
		AbortWithError(c, err)
		return
	}

	message, err := s.billingSvc.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, message)
}

func (s *Server) ListAccountMessages(c *gin.Context) {
	accountID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	messages, err := s.billingSvc.ListMessages(c.Request.Context(), accountID, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	pageInfo := page.Next(len(messages))
	respondList(c, messages, &pageInfo)
}
