package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	cors "github.com/itsjamie/gin-cors"

	"github.com/PaulSpaurgen/interface-v2/conf"
	"github.com/PaulSpaurgen/interface-v2/constants"
	"github.com/PaulSpaurgen/interface-v2/internal/metrics"
	"github.com/PaulSpaurgen/interface-v2/internal/services"
	"github.com/PaulSpaurgen/interface-v2/internal/store"
)

// Server exposes the oyster store and the oyster actions over http.
type Server struct {
	store   *store.Store
	service *services.OysterService
	metrics *metrics.Metrics
	token   conf.TokenMetadata
}

type Option func(*Server)

// WithService enables the action endpoints. Without it they answer with
// util.WalletNotConfigured.
func WithService(s *services.OysterService) Option {
	return func(srv *Server) {
		srv.service = s
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(srv *Server) {
		srv.metrics = m
	}
}

// NewServer formats amounts with token and parses user entered amounts with it.
func NewServer(st *store.Store, token conf.TokenMetadata, opts ...Option) *Server {
	srv := &Server{store: st, token: token}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

// Engine builds the gin engine serving /api/v1/oyster, pprof and /metrics.
func (s *Server) Engine(allowOrigins string) *gin.Engine {
	r := gin.Default()
	r.Use(cors.Middleware(cors.Config{
		Origins:         allowOrigins,
		Methods:         "GET, PUT, POST, DELETE",
		RequestHeaders:  "Origin, Authorization, Content-Type",
		ExposedHeaders:  "",
		MaxAge:          50 * time.Second,
		ValidateHeaders: false,
	}))
	pprof.Register(r)

	if s.metrics != nil {
		r.GET("/metrics", s.metrics.Handler())
	}
	s.RegisterRoutes(r.Group("/api/v1/oyster"))
	return r
}

func (s *Server) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/jobs", s.ListJobs)
	router.GET("/jobs/:id", s.GetJob)
	router.GET("/merchant/jobs", s.ListMerchantJobs)
	router.GET("/marketplace", s.ListMarketplace)
	router.GET("/marketplace/filters", s.MarketplaceFilters)
	router.GET("/marketplace/providers/:address", s.ProviderOffer)
	router.GET("/provider", s.GetProvider)
	router.GET("/state/ws", s.StateStream)

	router.POST("/jobs", s.CreateJob)
	router.POST("/jobs/:id/deposit", s.Deposit)
	router.POST("/jobs/:id/withdraw", s.Withdraw)
	router.POST("/jobs/:id/revise", s.InitiateRevise)
	router.POST("/jobs/:id/revise/cancel", s.CancelRevise)
	router.POST("/jobs/:id/revise/finalize", s.FinalizeRevise)
	router.POST("/jobs/:id/revise/timer-end", s.ReviseTimerEnd)
	router.POST("/jobs/:id/stop", s.StopJob)
	router.POST("/merchant/jobs/:id/settle", s.SettleJob)
	router.POST("/allowance", s.ApproveFunds)
	router.POST("/provider", s.RegisterProvider)
	router.PUT("/provider", s.UpdateProvider)
	router.DELETE("/provider", s.UnregisterProvider)
}

// filterValue treats the "All" option of a filter list as no filter.
func filterValue(s string) string {
	if strings.EqualFold(s, constants.FilterAllOption) {
		return ""
	}
	return s
}
