package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/handlers"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"ridehail/internal/domain"
	"ridehail/internal/handler"
	"ridehail/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RideHandler       *handler.RideHandler
	DriverHandler     *handler.DriverHandler
	RiderHandler      *handler.RiderHandler
	WalletHandler     *handler.WalletHandler
	WithdrawalHandler *handler.WithdrawalHandler
	Tokens            middleware.TokenParser
	RedisClient       redis.Cmdable // Optional: disables idempotent replay when nil
	NewRelicApp       *newrelic.Application
	Logger            logrus.FieldLogger
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")

	// Registration hands out the bearer token.
	v1.POST("/riders/register", deps.RiderHandler.Register)
	v1.POST("/drivers/register", deps.DriverHandler.Register)

	authed := v1.Group("")
	authed.Use(middleware.AuthMiddleware(deps.Tokens))
	authed.Use(middleware.ActorAttributes())
	if deps.RedisClient != nil {
		authed.Use(middleware.IdempotencyMiddleware(deps.RedisClient))
	}

	rider := middleware.RequireRole(domain.RoleRider)
	driver := middleware.RequireRole(domain.RoleDriver)
	operator := middleware.RequireRole(domain.RoleOperator)
	anyone := middleware.RequireRole(domain.RoleRider, domain.RoleDriver, domain.RoleOperator)

	authed.GET("/riders/me", rider, deps.RiderHandler.Me)

	rides := authed.Group("/rides")
	{
		rides.POST("/quote", rider, deps.RideHandler.Quote)
		rides.POST("", rider, deps.RideHandler.Book)
		rides.GET("", anyone, deps.RideHandler.ListMine)
		rides.GET("/:id", anyone, deps.RideHandler.GetRide)
		rides.POST("/:id/cancel", middleware.RequireRole(domain.RoleRider, domain.RoleOperator), deps.RideHandler.CancelRide)
		rides.POST("/:id/rating", rider, deps.RideHandler.RateRide)
		rides.GET("/:id/receipt", anyone, deps.RideHandler.Receipt)
		rides.GET("/:id/otp", middleware.RequireRole(domain.RoleRider, domain.RoleOperator), deps.RideHandler.RevealOTP)
		rides.POST("/:id/otp", middleware.RequireRole(domain.RoleRider, domain.RoleDriver), deps.RideHandler.ReissueOTP)
	}

	drivers := authed.Group("/drivers/me", driver)
	{
		drivers.GET("", deps.DriverHandler.Me)
		drivers.PUT("/vehicle", deps.DriverHandler.SetVehicle)
		drivers.PUT("/bank-account", deps.DriverHandler.SetBankAccount)
		drivers.PUT("/availability", deps.DriverHandler.SetAvailability)
		drivers.GET("/earnings", deps.DriverHandler.Earnings)
		drivers.GET("/pool", deps.DriverHandler.Pool)
		drivers.POST("/rides/:id/accept", deps.DriverHandler.AcceptRide)
		drivers.POST("/rides/:id/decline", deps.DriverHandler.DeclineRide)
		drivers.POST("/rides/:id/start", deps.DriverHandler.StartRide)
		drivers.POST("/rides/:id/complete", deps.DriverHandler.CompleteRide)
		drivers.POST("/rides/:id/collect", deps.DriverHandler.CollectPayment)
	}

	wallet := authed.Group("/wallet")
	{
		wallet.GET("", middleware.RequireRole(domain.RoleRider, domain.RoleDriver), deps.WalletHandler.Balance)
		wallet.GET("/ledger", middleware.RequireRole(domain.RoleRider, domain.RoleDriver), deps.WalletHandler.History)
		wallet.POST("/top-up", rider, deps.WalletHandler.TopUp)
	}

	withdrawals := authed.Group("/withdrawals")
	{
		withdrawals.POST("", driver, deps.WithdrawalHandler.Request)
		withdrawals.GET("", driver, deps.WithdrawalHandler.ListMine)
		withdrawals.GET("/:id", middleware.RequireRole(domain.RoleDriver, domain.RoleOperator), deps.WithdrawalHandler.Get)
	}

	ops := authed.Group("/operator", operator)
	{
		ops.GET("/drivers", deps.DriverHandler.ListDrivers)
		ops.GET("/drivers/:id", deps.DriverHandler.GetDriver)
		ops.PUT("/drivers/:id/verification", deps.DriverHandler.SetVerification)
		ops.GET("/withdrawals", deps.WithdrawalHandler.ListPending)
		ops.POST("/withdrawals/:id/approve", deps.WithdrawalHandler.Approve)
		ops.POST("/withdrawals/:id/reject", deps.WithdrawalHandler.Reject)
		ops.GET("/ledger/:kind/:owner/reconcile", deps.WalletHandler.Reconcile)
	}

	return router
}

// WithCORS wraps the router with the CORS policy for browser clients.
func WithCORS(h http.Handler, allowedOrigins []string) http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins(allowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "Idempotency-Key"}),
	)(h)
}
