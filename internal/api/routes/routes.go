package routes

import (
	"time"

	"messaging-service/internal/api/handlers"
	"messaging-service/internal/api/middleware"
	"messaging-service/internal/repositories/postgres"
	"messaging-service/internal/services"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// Options carries everything the router needs from main. Redis is optional;
// without it rate limiting is off.
type Options struct {
	DB             *gorm.DB
	Redis          *services.RedisService
	Notifier       services.Notifier
	JWTSecret      string
	TokenTTL       time.Duration
	AllowedOrigins []string
	RequestTimeout time.Duration
	RateLimit      int // requests per minute per user and route
}

type Router struct {
	engine              *gin.Engine
	authHandler         *handlers.AuthHandler
	userHandler         *handlers.UserHandler
	groupHandler        *handlers.GroupHandler
	groupMessageHandler *handlers.GroupMessageHandler
	messageHandler      *handlers.MessageHandler
	notificationHandler *handlers.NotificationHandler
	healthHandler       *handlers.HealthHandler
	rateLimitMW         *middleware.RateLimitMiddleware
	authMW              *middleware.AuthMiddleware
	rateLimit           int
}

func NewRouter(opts Options) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	// Add middlewares
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.CORS(opts.AllowedOrigins))
	engine.Use(middleware.LogApi())
	if opts.RequestTimeout > 0 {
		engine.Use(middleware.Timeout(opts.RequestTimeout))
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = services.NopNotifier{}
	}

	// Initialize repositories and services
	store := postgres.NewStore(opts.DB)
	uow := postgres.NewUnitOfWork(opts.DB)

	userService := services.NewUserService(store.Users, opts.JWTSecret, opts.TokenTTL)
	gate := services.NewAccessGate(store.Memberships)
	groupService := services.NewGroupService(store, uow, userService, gate, notifier)
	conversationService := services.NewConversationService(store, uow, gate)
	directMessageService := services.NewDirectMessageService(store.DirectMessages, userService, notifier)
	groupMessageService := services.NewGroupMessageService(store, gate, notifier)
	notificationService := services.NewNotificationService(store.Notifications)

	checks := map[string]handlers.Pinger{"database": store}
	var rateLimitMW *middleware.RateLimitMiddleware
	if opts.Redis != nil {
		checks["redis"] = opts.Redis
		rateLimitMW = middleware.NewRateLimitMiddleware(opts.Redis)
	}

	return &Router{
		engine:              engine,
		authHandler:         handlers.NewAuthHandler(userService),
		userHandler:         handlers.NewUserHandler(userService),
		groupHandler:        handlers.NewGroupHandler(groupService),
		groupMessageHandler: handlers.NewGroupMessageHandler(groupMessageService),
		messageHandler:      handlers.NewMessageHandler(directMessageService, conversationService),
		notificationHandler: handlers.NewNotificationHandler(notificationService),
		healthHandler:       handlers.NewHealthHandler(checks),
		rateLimitMW:         rateLimitMW,
		authMW:              middleware.NewAuthMiddleware(opts.JWTSecret),
		rateLimit:           opts.RateLimit,
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthz", r.healthHandler.Health)
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.engine.Group("/api/v1")

	// Public routes (no authentication required)
	authRoutes := api.Group("/auth")
	authRoutes.Use(r.limitIP(50, time.Minute))
	{
		authRoutes.POST("/register", r.authHandler.Register)
		authRoutes.POST("/login", r.authHandler.Login)
	}

	// Authenticated routes
	auth := api.Group("")
	auth.Use(r.authMW.RequireAuth(), r.limitUser(r.rateLimit, time.Minute))
	{
		admin := auth.Group("")
		admin.Use(middleware.RequireAdmin())
		{
			admin.POST("/groups", r.groupHandler.CreateGroup)
			admin.GET("/groups", r.groupHandler.ListGroups)
			admin.GET("/groups/:id", r.groupHandler.GetGroup)
			admin.PUT("/groups/:id", r.groupHandler.UpdateGroup)
			admin.DELETE("/groups/:id", r.groupHandler.DeactivateGroup)
			admin.PUT("/admin/users/:id/active", r.userHandler.SetActive)
		}

		auth.GET("/me/groups", r.groupHandler.MyGroups)
		auth.GET("/me/groups/:id", r.groupHandler.GetMyGroup)

		auth.POST("/groups/:id/messages", r.groupMessageHandler.SendGroupMessage)
		auth.GET("/groups/:id/messages", r.groupMessageHandler.ListGroupMessages)

		auth.GET("/conversations", r.messageHandler.ListConversations)
		auth.GET("/conversations/:otherUserId", r.messageHandler.GetThread)

		messages := auth.Group("/messages")
		{
			messages.POST("", r.messageHandler.SendMessage)
			messages.GET("/:id", r.messageHandler.GetMessage)
			messages.DELETE("/:id", r.messageHandler.DeleteMessage)
		}

		notifications := auth.Group("/notifications")
		{
			notifications.GET("", r.notificationHandler.ListNotifications)
			notifications.GET("/unread-count", r.notificationHandler.UnreadCount)
			notifications.PUT("/read-all", r.notificationHandler.MarkAllRead)
			notifications.PUT("/:id/read", r.notificationHandler.MarkRead)
		}
	}
}

func (r *Router) limitUser(requests int, window time.Duration) gin.HandlerFunc {
	if r.rateLimitMW == nil || requests <= 0 {
		return passThrough
	}
	return r.rateLimitMW.RateLimit(requests, window)
}

func (r *Router) limitIP(requests int, window time.Duration) gin.HandlerFunc {
	if r.rateLimitMW == nil {
		return passThrough
	}
	return r.rateLimitMW.RateLimitIP(requests, window)
}

func passThrough(c *gin.Context) { c.Next() }

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
