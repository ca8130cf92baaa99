package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	memberdomain "github.com/gymdesk/gymdesk/internal/member/domain"
	"github.com/gymdesk/gymdesk/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

type createMemberRequest struct {
	Name                 string          `json:"name"`
	Email                string          `json:"email"`
	Phone                string          `json:"phone"`
	MonthlyFee           decimal.Decimal `json:"monthly_fee"`
	StartDate            string          `json:"start_date"`
	BillingIntervalDays  int             `json:"billing_interval_days"`
	AutoRemindersEnabled *bool           `json:"auto_reminders_enabled"`
}

func (s *Server) CreateMember(c *gin.Context) {
	var req createMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		AbortWithError(c, newValidationError("start_date", "invalid_start_date", "invalid start_date"))
		return
	}

	resp, err := s.memberSvc.Create(c.Request.Context(), memberdomain.CreateMemberRequest{
		Name:                 strings.TrimSpace(req.Name),
		Email:                strings.TrimSpace(req.Email),
		Phone:                strings.TrimSpace(req.Phone),
		MonthlyFee:           req.MonthlyFee,
		StartDate:            startDate,
		BillingIntervalDays:  req.BillingIntervalDays,
		AutoRemindersEnabled: req.AutoRemindersEnabled,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListMembers(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Name          string `form:"name"`
		Email         string `form:"email"`
		Status        string `form:"status"`
		PaymentStatus string `form:"payment_status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.memberSvc.List(c.Request.Context(), memberdomain.ListMemberRequest{
		PageToken:     query.PageToken,
		PageSize:      int32(query.PageSize),
		Name:          strings.TrimSpace(query.Name),
		Email:         strings.TrimSpace(query.Email),
		Status:        memberdomain.MemberStatus(strings.TrimSpace(query.Status)),
		PaymentStatus: memberdomain.PaymentStatus(strings.TrimSpace(query.PaymentStatus)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetMemberByID(c *gin.Context) {
	resp, err := s.memberSvc.GetByID(c.Request.Context(), memberdomain.GetMemberRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateMemberRequest struct {
	Name                 *string          `json:"name"`
	Email                *string          `json:"email"`
	Phone                *string          `json:"phone"`
	MonthlyFee           *decimal.Decimal `json:"monthly_fee"`
	StartDate            *string          `json:"start_date"`
	AutoRemindersEnabled *bool            `json:"auto_reminders_enabled"`
	Status               *string          `json:"status"`
}

func (s *Server) UpdateMember(c *gin.Context) {
	var req updateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	update := memberdomain.UpdateMemberRequest{
		ID:                   strings.TrimSpace(c.Param("id")),
		Name:                 req.Name,
		Email:                req.Email,
		Phone:                req.Phone,
		MonthlyFee:           req.MonthlyFee,
		AutoRemindersEnabled: req.AutoRemindersEnabled,
	}

	if req.StartDate != nil {
		startDate, err := parseDate(*req.StartDate)
		if err != nil {
			AbortWithError(c, newValidationError("start_date", "invalid_start_date", "invalid start_date"))
			return
		}
		update.StartDate = &startDate
	}

	if req.Status != nil {
		status := memberdomain.MemberStatus(strings.TrimSpace(*req.Status))
		update.Status = &status
	}

	resp, err := s.memberSvc.Update(c.Request.Context(), update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteMember(c *gin.Context) {
	err := s.memberSvc.Delete(c.Request.Context(), memberdomain.DeleteMemberRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
