package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListMemberBillingCycles(c *gin.Context) {
	resp, err := s.cycleSvc.ListCycles(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"billing_cycles": resp}})
}

func (s *Server) GetBillingCycleByID(c *gin.Context) {
	resp, err := s.cycleSvc.GetCycleDetail(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// MigrateBillingCycles backfills cycle-ledger state for members created
// before the ledger existed. Safe to call repeatedly.
func (s *Server) MigrateBillingCycles(c *gin.Context) {
	resp, err := s.cycleSvc.MigrateExistingMembers(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
