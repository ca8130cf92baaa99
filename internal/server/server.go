package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/gymdesk/gymdesk/internal/billing"
	billingdomain "github.com/gymdesk/gymdesk/internal/billing/domain"
	"github.com/gymdesk/gymdesk/internal/billingcycle"
	billingcycledomain "github.com/gymdesk/gymdesk/internal/billingcycle/domain"
	"github.com/gymdesk/gymdesk/internal/config"
	"github.com/gymdesk/gymdesk/internal/member"
	memberdomain "github.com/gymdesk/gymdesk/internal/member/domain"
	"github.com/gymdesk/gymdesk/internal/payment"
	paymentdomain "github.com/gymdesk/gymdesk/internal/payment/domain"
	"github.com/gymdesk/gymdesk/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	member.Module,
	payment.Module,
	billingcycle.Module,
	billing.Module,
	email.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	genID      *snowflake.Node
	memberSvc  memberdomain.Service
	billingSvc billingdomain.Service
	cycleSvc   billingcycledomain.Service
	paymentSvc paymentdomain.Service
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	GenID      *snowflake.Node
	MemberSvc  memberdomain.Service
	BillingSvc billingdomain.Service
	CycleSvc   billingcycledomain.Service
	PaymentSvc paymentdomain.Service
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		genID:      p.GenID,
		memberSvc:  p.MemberSvc,
		billingSvc: p.BillingSvc,
		cycleSvc:   p.CycleSvc,
		paymentSvc: p.PaymentSvc,
	}
}

func registerRoutes(s *Server) {
	v1 := s.engine.Group("/v1")

	v1.POST("/members", s.CreateMember)
	v1.GET("/members", s.ListMembers)
	v1.GET("/members/:id", s.GetMemberByID)
	v1.PATCH("/members/:id", s.UpdateMember)
	v1.DELETE("/members/:id", s.DeleteMember)

	v1.POST("/members/:id/payments", s.RecordPayment)
	v1.GET("/members/:id/payments", s.ListMemberPayments)
	v1.GET("/members/:id/billing-cycles", s.ListMemberBillingCycles)
	v1.GET("/billing-cycles/:id", s.GetBillingCycleByID)

	v1.POST("/admin/migrate-billing-cycles", s.MigrateBillingCycles)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
