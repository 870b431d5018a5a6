// Package server exposes the HTTP surface of the verification pipeline.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rupeeback/verify/internal/bill"
	"github.com/rupeeback/verify/internal/cashback"
	"github.com/rupeeback/verify/internal/clock"
	"github.com/rupeeback/verify/internal/config"
	"github.com/rupeeback/verify/internal/fraud"
	frauddomain "github.com/rupeeback/verify/internal/fraud/domain"
	"github.com/rupeeback/verify/internal/imagestore"
	"github.com/rupeeback/verify/internal/merchant"
	obslogger "github.com/rupeeback/verify/internal/observability/logger"
	"github.com/rupeeback/verify/internal/ocr"
	"github.com/rupeeback/verify/internal/ratelimit"
	"github.com/rupeeback/verify/internal/verification"
	verificationdomain "github.com/rupeeback/verify/internal/verification/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	bill.Module,
	merchant.Module,
	cashback.Module,
	fraud.Module,
	ocr.Module,
	imagestore.Module,
	ratelimit.Module,
	verification.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger) *gin.Engine {
	return NewEngine(log)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	clock           clock.Clock
	verificationSvc verificationdomain.Service
	queue           verificationdomain.Queue
	fraudSvc        frauddomain.Service
	uploadLimiter   *ratelimit.UploadLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	Clock           clock.Clock
	VerificationSvc verificationdomain.Service
	Queue           verificationdomain.Queue
	FraudSvc        frauddomain.Service
	UploadLimiter   *ratelimit.UploadLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http"),
		clock:           p.Clock,
		verificationSvc: p.VerificationSvc,
		queue:           p.Queue,
		fraudSvc:        p.FraudSvc,
		uploadLimiter:   p.UploadLimiter,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.Static("/images", s.cfg.ImageDir)

	v1 := s.engine.Group("/v1")
	{
		v1.POST("/bills", s.SubmitBill)
		v1.GET("/bills/:id", s.GetBill)
		v1.POST("/bills/:id/resubmit", s.ResubmitBill)
	}

	admin := s.engine.Group("/v1/admin")
	{
		admin.GET("/bills/pending", s.ListPendingReview)
		admin.POST("/bills/:id/approve", s.ApproveBill)
		admin.POST("/bills/:id/reject", s.RejectBill)
		admin.GET("/bills/:id/cross-user-duplicates", s.CrossUserDuplicates)
		admin.GET("/users/:id/fraud-history", s.UserFraudHistory)
		admin.GET("/stats", s.Stats)
	}
}

func parseID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(raw)
}
