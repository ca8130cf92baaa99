package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/gymdesk/gymdesk/internal/billing/domain"
	paymentdomain "github.com/gymdesk/gymdesk/internal/payment/domain"
	"github.com/shopspring/decimal"
)

type recordPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Date   string          `json:"date"`
	Method string          `json:"method"`
	Notes  string          `json:"notes"`
}

func (s *Server) RecordPayment(c *gin.Context) {
	var req recordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		AbortWithError(c, newValidationError("date", "invalid_payment_date", "invalid payment date"))
		return
	}

	resp, err := s.billingSvc.RecordPayment(c.Request.Context(), billingdomain.RecordPaymentRequest{
		MemberID: strings.TrimSpace(c.Param("id")),
		Amount:   req.Amount,
		Date:     date,
		Method:   strings.TrimSpace(req.Method),
		Notes:    strings.TrimSpace(req.Notes),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListMemberPayments(c *gin.Context) {
	resp, err := s.paymentSvc.ListByMember(c.Request.Context(), paymentdomain.ListByMemberRequest{
		MemberID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"payments": resp}})
}
