package server

import (
	"github.com/gin-gonic/gin"
	pricingdomain "github.com/upeosms/upeo/internal/pricing/domain"
)

func (s *Server) ListPricingRules(c *gin.Context) {
	rules, err := s.pricingSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondList(c, rules, nil)
}

func (s *Server) GetGlobalPricingRule(c *gin.Context) {
	rule, err := s.pricingSvc.GetGlobal(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, rule)
}

func (s *Server) PutGlobalPricingRule(c *gin.Context) {
	var spec pricingdomain.RuleSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	rule, err := s.pricingSvc.UpsertGlobal(c.Request.Context(), spec)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, rule)
}

func (s *Server) PutAccountPricingRule(c *gin.Context) {
	accountID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var spec pricingdomain.RuleSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	rule, err := s.pricingSvc.UpsertAccountRule(c.Request.Context(), accountID, spec)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, rule)
}

func (s *Server) DeleteAccountPricingRule(c *gin.Context) {
	accountID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := s.pricingSvc.DeleteAccountRule(c.Request.Context(), accountID); err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, gin.H{"deleted": true})
}
