package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/ticketflow/internal/config"
	"github.com/smallbiznis/ticketflow/internal/lifecycle"
	maildomain "github.com/smallbiznis/ticketflow/internal/mailqueue/domain"
	notificationdomain "github.com/smallbiznis/ticketflow/internal/notification/domain"
	"github.com/smallbiznis/ticketflow/internal/observability"
	obsmiddleware "github.com/smallbiznis/ticketflow/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/ticketflow/internal/observability/metrics"
	obstracing "github.com/smallbiznis/ticketflow/internal/observability/tracing"
	otpdomain "github.com/smallbiznis/ticketflow/internal/otp/domain"
	paymentdomain "github.com/smallbiznis/ticketflow/internal/payment/domain"
	profiledomain "github.com/smallbiznis/ticketflow/internal/profile/domain"
	"github.com/smallbiznis/ticketflow/internal/reminder"
	subscriptiondomain "github.com/smallbiznis/ticketflow/internal/subscription/domain"
	"github.com/smallbiznis/ticketflow/internal/tenant"
	ticketdomain "github.com/smallbiznis/ticketflow/internal/ticket/domain"
	tokendomain "github.com/smallbiznis/ticketflow/internal/token/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type ginParams struct {
	fx.In

	ObsCfg  observability.Config
	Metrics *obsmetrics.Metrics `optional:"true"`
}

func registerGin(p ginParams) *gin.Engine {
	return NewEngine(p.ObsCfg, p.Metrics)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http.server.failed", zap.String("addr", srv.Addr), zap.Error(err))
				}
			}()
			log.Info("http.server.started", zap.String("addr", srv.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type redriver interface {
	Redrive(ctx context.Context, key tenant.Key, txnID string) (lifecycle.Result, error)
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	tokenSvc        tokendomain.Service
	ticketSvc       ticketdomain.Service
	paymentSvc      paymentdomain.Service
	mailSvc         maildomain.Service
	notificationSvc notificationdomain.Service
	profileSvc      profiledomain.Service
	subscriptionSvc subscriptiondomain.Service
	otpSvc          otpdomain.Service
	lifecycle       redriver
	sweeper         reminder.Sweeper
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	TokenSvc        tokendomain.Service
	TicketSvc       ticketdomain.Service
	PaymentSvc      paymentdomain.Service
	MailSvc         maildomain.Service
	NotificationSvc notificationdomain.Service
	ProfileSvc      profiledomain.Service
	SubscriptionSvc subscriptiondomain.Service
	OTPSvc          otpdomain.Service
	Lifecycle       *lifecycle.Engine

	// Sweeper is absent when the reminder scanner is not wired into the binary.
	Sweeper reminder.Sweeper `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http"),
		tokenSvc:        p.TokenSvc,
		ticketSvc:       p.TicketSvc,
		paymentSvc:      p.PaymentSvc,
		mailSvc:         p.MailSvc,
		notificationSvc: p.NotificationSvc,
		profileSvc:      p.ProfileSvc,
		subscriptionSvc: p.SubscriptionSvc,
		otpSvc:          p.OTPSvc,
		lifecycle:       p.Lifecycle,
		sweeper:         p.Sweeper,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	scoped := s.engine.Group("/v1/tenants/:tenantId/apps/:appId", TenantContext())

	// -------- Notification tokens --------
	scoped.PUT("/notifications_tokens/:role/tokens/:userId", s.RegisterToken)
	scoped.GET("/notifications_tokens/:role/tokens/:userId", s.GetToken)

	// -------- Tickets --------
	scoped.PUT("/tickets/:bookingId", s.SaveTicket)
	scoped.GET("/tickets/:bookingId", s.GetTicket)
	scoped.DELETE("/tickets/:bookingId", s.DeleteTicket)

	// -------- Payment transactions --------
	scoped.PUT("/payment_transactions/:txnId", s.SaveTransaction)
	scoped.GET("/payment_transactions/:txnId", s.GetTransaction)
	scoped.GET("/payment_transactions/stuck", s.AdminRequired(), s.ListStuckTransactions)
	scoped.POST("/payment_transactions/:txnId/redrive", s.AdminRequired(), s.RedriveTransaction)

	// -------- Mail --------
	scoped.GET("/mail/errors", s.AdminRequired(), s.ListMailErrors)

	// -------- Notifications --------
	scoped.POST("/notifications/test", s.AdminRequired(), s.SendTestNotification)
	scoped.GET("/notifications/banners/:customerId", s.ListBanners)

	// -------- Profiles & subscriptions --------
	scoped.PUT("/profiles/:uid", s.SaveProfile)
	scoped.GET("/profiles/:uid", s.GetProfile)
	scoped.GET("/subscriptions/:uid", s.GetSubscription)

	// -------- OTP --------
	scoped.POST("/otp/issue", s.IssueOTP)
	scoped.POST("/otp/verify", s.VerifyOTP)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/v1/admin", s.AdminRequired())

	admin.POST("/reminders/run", s.RunReminders)
}

func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}
