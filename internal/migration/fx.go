package migration

import (
	billingdomain "github.com/gymdesk/gymdesk/internal/billing/domain"
	billingcycledomain "github.com/gymdesk/gymdesk/internal/billingcycle/domain"
	memberdomain "github.com/gymdesk/gymdesk/internal/member/domain"
	paymentdomain "github.com/gymdesk/gymdesk/internal/payment/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Module applies the schema before any service starts.
var Module = fx.Module("migration",
	fx.Invoke(Run),
)

func Run(db *gorm.DB) error {
	return db.AutoMigrate(
		&memberdomain.Member{},
		&paymentdomain.PaymentRecord{},
		&billingcycledomain.BillingCycle{},
		&billingcycledomain.CyclePayment{},
		&billingdomain.ReconciliationTask{},
	)
}
