// Package reminder runs the polling loop that emails members about
// upcoming and overdue payments. It only reads the due dates computed
// by payment recording; it never moves them.
package reminder

import (
	"bytes"
	"context"
	"text/template"
	"time"

	billingdomain "github.com/gymdesk/gymdesk/internal/billing/domain"
	"github.com/gymdesk/gymdesk/internal/clock"
	"github.com/gymdesk/gymdesk/internal/config"
	memberdomain "github.com/gymdesk/gymdesk/internal/member/domain"
	"github.com/gymdesk/gymdesk/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const resendAfter = 24 * time.Hour

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Config    config.Config
	Templates *config.ReminderTemplatesHolder
	Email     email.Provider
	MemberSvc memberdomain.Service
	Billing   billingdomain.Service
}

type Scheduler struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	cfg       config.ReminderConfig
	templates *config.ReminderTemplatesHolder
	email     email.Provider
	memberSvc memberdomain.Service
	billing   billingdomain.Service
}

func New(p Params) *Scheduler {
	return &Scheduler{
		db:        p.DB,
		log:       p.Log.Named("reminder.scheduler"),
		clock:     p.Clock,
		cfg:       p.Config.Reminder,
		templates: p.Templates,
		email:     p.Email,
		memberSvc: p.MemberSvc,
		billing:   p.Billing,
	}
}

func (s *Scheduler) RunForever(ctx context.Context) {
	interval := time.Duration(s.cfg.PollInterval) * time.Second
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single sweep: flag overdue members, send
// reminders, and retry diverged cycle writes.
func (s *Scheduler) RunOnce(ctx context.Context) {
	now := s.clock.Now()

	if flagged, err := s.memberSvc.MarkOverdue(ctx, now); err != nil {
		s.log.Error("overdue sweep failed", zap.Error(err))
	} else if flagged > 0 {
		s.log.Info("members flagged overdue", zap.Int64("count", flagged))
	}

	if err := s.sendReminders(ctx, now); err != nil {
		s.log.Error("reminder sweep failed", zap.Error(err))
	}

	if resolved, err := s.billing.ReconcilePending(ctx, 100); err != nil {
		s.log.Error("reconciliation sweep failed", zap.Error(err))
	} else if resolved > 0 {
		s.log.Info("cycle writes reconciled", zap.Int("count", resolved))
	}
}

func (s *Scheduler) sendReminders(ctx context.Context, now time.Time) error {
	horizon := now.AddDate(0, 0, s.cfg.LeadDays)
	cutoff := now.Add(-resendAfter)

	var members []memberdomain.Member
	err := s.db.WithContext(ctx).
		Where("status = ?", memberdomain.MemberStatusActive).
		Where("auto_reminders_enabled = ?", true).
		Where("payment_status != ?", memberdomain.PaymentStatusPaid).
		Where("next_payment_date <= ?", horizon).
		Where("last_reminder_sent_at IS NULL OR last_reminder_sent_at < ?", cutoff).
		Order("next_payment_date asc").
		Find(&members).Error
	if err != nil {
		return err
	}

	tmpl := s.templates.Get()
	for _, member := range members {
		subject := tmpl.UpcomingSubject
		body := tmpl.UpcomingBody
		if member.PaymentStatus == memberdomain.PaymentStatusOverdue {
			subject = tmpl.OverdueSubject
			body = tmpl.OverdueBody
		}

		rendered, err := renderBody(body, member)
		if err != nil {
			s.log.Error("reminder template render failed",
				zap.String("member_id", member.ID.String()),
				zap.Error(err),
			)
			continue
		}

		if err := s.email.Send(ctx, []string{member.Email}, subject, rendered); err != nil {
			s.log.Warn("reminder email failed",
				zap.String("member_id", member.ID.String()),
				zap.Error(err),
			)
			continue
		}

		if err := s.db.WithContext(ctx).Exec(
			`UPDATE members SET last_reminder_sent_at = ? WHERE id = ?`,
			now, member.ID,
		).Error; err != nil {
			s.log.Error("failed to stamp reminder",
				zap.String("member_id", member.ID.String()),
				zap.Error(err),
			)
		}
	}
	return nil
}

func renderBody(body string, member memberdomain.Member) (string, error) {
	t, err := template.New("reminder").Parse(body)
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	err = t.Execute(&out, map[string]any{
		"Name":    member.Name,
		"Amount":  member.AmountOwed.StringFixed(2),
		"DueDate": member.NextPaymentDate.Format("2006-01-02"),
	})
	if err != nil {
		return "", err
	}
	return out.String(), nil
}
