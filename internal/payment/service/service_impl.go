package service

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gymdesk/gymdesk/internal/billing/schedule"
	"github.com/gymdesk/gymdesk/internal/clock"
	memberdomain "github.com/gymdesk/gymdesk/internal/member/domain"
	"github.com/gymdesk/gymdesk/internal/payment/domain"
	"github.com/gymdesk/gymdesk/internal/providers/email"
	"github.com/gymdesk/gymdesk/pkg/db/option"
	"github.com/gymdesk/gymdesk/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Email email.Provider
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	email email.Provider

	records repository.Repository[domain.PaymentRecord]
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("payment.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		email:   p.Email,
		records: repository.ProvideStore[domain.PaymentRecord](p.DB),
	}
}

func (s *Service) Apply(ctx context.Context, req domain.ApplyRequest) (domain.ApplyResult, error) {
	memberID, err := snowflake.ParseString(strings.TrimSpace(req.MemberID))
	if err != nil || memberID == 0 {
		return domain.ApplyResult{}, memberdomain.ErrInvalidID
	}
	if req.Amount.Sign() <= 0 {
		return domain.ApplyResult{}, domain.ErrInvalidAmount
	}
	if req.Date.IsZero() {
		return domain.ApplyResult{}, domain.ErrInvalidDate
	}

	var result domain.ApplyResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member memberdomain.Member
		if err := tx.Where("id = ?", memberID).Take(&member).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return memberdomain.ErrNotFound
			}
			return err
		}

		currentDue := member.NextPaymentDate
		classification := domain.Classify(member.StartDate, currentDue, req.Date)

		candidateNext := currentDue
		if classification == domain.StandardOccurrence {
			candidateNext = schedule.NextDueDate(currentDue)
		}

		// A zero balance on a member that is not paid up means the
		// field was never seeded (pre-ledger data); fall back to the
		// monthly fee for the first recorded payment.
		owedBefore := member.AmountOwed
		if owedBefore.IsZero() && member.PaymentStatus != memberdomain.PaymentStatusPaid {
			owedBefore = member.MonthlyFee
		}

		resolution := domain.ResolveBalance(owedBefore, req.Amount)

		if resolution.IsFull {
			member.PaymentStatus = memberdomain.PaymentStatusPaid
			member.AmountOwed = resolution.Remaining
			// The due date only advances on a completed payment.
			member.NextPaymentDate = candidateNext
		} else {
			// Money is still owed for the current period; the due
			// date stays put.
			member.PaymentStatus = memberdomain.PaymentStatusDue
			member.AmountOwed = resolution.Remaining
		}
		member.UpdatedAt = s.clock.Now()

		if err := tx.Save(&member).Error; err != nil {
			return err
		}

		record := domain.PaymentRecord{
			ID:              s.genID.Generate(),
			MemberID:        member.ID,
			AmountPaid:      req.Amount,
			PaymentDate:     req.Date,
			Method:          normalizeMethod(req.Method),
			Notes:           strings.TrimSpace(req.Notes),
			PreviousDueDate: currentDue,
			NewDueDate:      candidateNext,
			RecordedAt:      s.clock.Now(),
		}
		if err := s.records.WithTrx(tx).Create(ctx, &record); err != nil {
			return err
		}

		result = domain.ApplyResult{
			Member:         member,
			Record:         record,
			Classification: classification,
			IsFull:         resolution.IsFull,
		}
		return nil
	})
	if err != nil {
		return domain.ApplyResult{}, err
	}
	return result, nil
}

func (s *Service) ListByMember(ctx context.Context, req domain.ListByMemberRequest) ([]domain.PaymentRecord, error) {
	memberID, err := snowflake.ParseString(strings.TrimSpace(req.MemberID))
	if err != nil || memberID == 0 {
		return nil, memberdomain.ErrInvalidID
	}

	records, err := s.records.Find(ctx,
		&domain.PaymentRecord{MemberID: memberID},
		option.WithOrder("recorded_at desc, id desc"),
	)
	if err != nil {
		return nil, err
	}

	out := make([]domain.PaymentRecord, 0, len(records))
	for _, record := range records {
		if record == nil {
			continue
		}
		out = append(out, *record)
	}
	return out, nil
}

var invoiceTmpl = template.Must(template.New("invoice").Parse(`
<p>Hi {{.Name}},</p>
<p>We received your payment of {{.Amount}} on {{.Date}} ({{.Method}}).</p>
{{if .Settled}}<p>Your membership is paid up. The next payment is due on {{.NextDue}}.</p>
{{else}}<p>Your remaining balance is {{.Remaining}}, due on {{.NextDue}}.</p>{{end}}
<p>Thanks,<br>The front desk</p>
`))

func (s *Service) SendInvoice(ctx context.Context, member memberdomain.Member, record domain.PaymentRecord) bool {
	var body bytes.Buffer
	err := invoiceTmpl.Execute(&body, map[string]any{
		"Name":      member.Name,
		"Amount":    record.AmountPaid.StringFixed(2),
		"Date":      record.PaymentDate.Format("2006-01-02"),
		"Method":    record.Method,
		"Settled":   member.PaymentStatus == memberdomain.PaymentStatusPaid,
		"Remaining": member.AmountOwed.StringFixed(2),
		"NextDue":   member.NextPaymentDate.Format("2006-01-02"),
	})
	if err == nil {
		err = s.email.Send(ctx, []string{member.Email}, "Payment received", body.String())
	}
	if err != nil {
		// Best effort: the ledger update stands regardless.
		s.log.Warn("invoice email failed",
			zap.String("member_id", member.ID.String()),
			zap.String("email", member.Email),
			zap.Error(err),
		)
		return false
	}
	return true
}

func normalizeMethod(method string) string {
	method = strings.ToLower(strings.TrimSpace(method))
	if method == "" {
		return "cash"
	}
	return method
}
