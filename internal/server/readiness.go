package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	pricingdomain "github.com/upeosms/upeo/internal/pricing/domain"
)

type ReadinessState string

const (
	ReadinessStateReady    ReadinessState = "ready"
	ReadinessStateNotReady ReadinessState = "not_ready"
)

type ReadinessCheck struct {
	ID     string         `json:"id"`
	Status ReadinessState `json:"status"`
	Detail string         `json:"detail,omitempty"`
}

type ReadinessResponse struct {
	State  ReadinessState   `json:"state"`
	Checks []ReadinessCheck `json:"checks"`
}

func (s *Server) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz verifies the dependencies a send needs: database connectivity
// and a provisioned global pricing rule.
func (s *Server) Readyz(c *gin.Context) {
	ctx := c.Request.Context()
	checks := []ReadinessCheck{}
	ready := true

	dbCheck := ReadinessCheck{ID: "database", Status: ReadinessStateReady}
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		ready = false
		dbCheck.Status = ReadinessStateNotReady
		dbCheck.Detail = err.Error()
	}
	checks = append(checks, dbCheck)

	ruleCheck := ReadinessCheck{ID: "global_pricing_rule", Status: ReadinessStateReady}
	if _, err := s.pricingSvc.GetGlobal(ctx); err != nil {
		ready = false
		ruleCheck.Status = ReadinessStateNotReady
		ruleCheck.Detail = pricingdomain.ErrNoGlobalRule.Error()
	}
	checks = append(checks, ruleCheck)

	state := ReadinessStateReady
	status := http.StatusOK
	if !ready {
		state = ReadinessStateNotReady
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, ReadinessResponse{State: state, Checks: checks})
}
