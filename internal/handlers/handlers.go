package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"vendora/presence/internal/config"
	"vendora/presence/internal/middleware"
	"vendora/presence/internal/presence"
)

type HandlerSet struct {
	log     zerolog.Logger
	cfg     *config.AppConfig
	service *presence.Service
	db      *pgxpool.Pool
	cache   *redis.Client
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, service *presence.Service, cfg *config.AppConfig) HandlerSet {
	return HandlerSet{
		log:     log,
		cfg:     cfg,
		service: service,
		db:      db,
		cache:   cache,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	{
		status := v1.Group("/presence")
		status.GET("/status/:userID", h.GetStatus)
		status.GET("/online/count", h.OnlineCount)

		self := v1.Group("/presence")
		self.Use(middleware.Auth(h.cfg))
		self.POST("/connect", h.Connect)
		self.POST("/disconnect", h.Disconnect)
		self.POST("/heartbeat", h.Heartbeat)
		self.POST("/viewport", h.Viewport)
		self.POST("/activity", h.TrackActivity)
		self.GET("/activity", h.RecentActivity)
		self.PUT("/preference", h.SetPreference)
		self.PUT("/manual", h.UpdateManualStatus)
		self.PUT("/notifications", h.SetNotificationPrefs)
	}

	push := router.Group("/v1/push")
	push.Use(middleware.Auth(h.cfg))
	push.GET("/eligibility/:userID", h.PushEligibility)
	push.GET("/eligible", h.EligibleUsers)
}
