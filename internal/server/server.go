package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	activitydomain "github.com/framecraft/studio/internal/activity/domain"
	authdomain "github.com/framecraft/studio/internal/auth/domain"
	"github.com/framecraft/studio/internal/auth/google"
	"github.com/framecraft/studio/internal/auth/session"
	"github.com/framecraft/studio/internal/config"
	"github.com/framecraft/studio/internal/ratelimit"
	eventdomain "github.com/framecraft/studio/internal/securityevent/domain"
	"github.com/framecraft/studio/pkg/telemetry"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(telemetry.NewMetrics),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, log *zap.Logger, metrics *telemetry.Metrics) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(MetricsMiddleware(metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, log *zap.Logger, metrics *telemetry.Metrics) *gin.Engine {
	return NewEngine(cfg, log, metrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			timeout := time.Duration(cfg.HTTPShutdownSeconds) * time.Second
			if timeout <= 0 {
				timeout = 10 * time.Second
			}
			shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	log          *zap.Logger
	authsvc      authdomain.Service
	googlesvc    google.Service
	sessions     *session.Manager
	events       eventdomain.Service
	activities   activitydomain.Service
	loginLimiter *ratelimit.LoginLimiter
	metrics      *telemetry.Metrics
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	Log          *zap.Logger
	Authsvc      authdomain.Service
	Googlesvc    google.Service
	Sessions     *session.Manager
	Events       eventdomain.Service
	Activities   activitydomain.Service
	LoginLimiter *ratelimit.LoginLimiter `optional:"true"`
	Metrics      *telemetry.Metrics      `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		log:          p.Log.Named("server"),
		authsvc:      p.Authsvc,
		googlesvc:    p.Googlesvc,
		sessions:     p.Sessions,
		events:       p.Events,
		activities:   p.Activities,
		loginLimiter: p.LoginLimiter,
		metrics:      p.Metrics,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterRoutes() {
	s.registerAuthRoutes()
	s.registerAdminRoutes()
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth", s.OriginCheck())

	auth.POST("/login", s.LoginRateLimit(), s.Login)
	auth.POST("/admin/login", s.LoginRateLimit(), s.AdminLogin)
	auth.POST("/logout", s.Logout)
	auth.GET("/me", s.Me)

	auth.GET("/google", s.GoogleLogin)
	auth.GET("/google/callback", s.GoogleCallback)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")

	admin.Use(s.OriginCheck())
	admin.Use(s.WebAuthRequired())
	admin.Use(s.AdminRequired())

	admin.GET("/security-events", s.ListSecurityEvents)
	admin.POST("/security-events/:id/resolve", s.ResolveSecurityEvent)
	admin.GET("/activity", s.ListActivity)
}
