package routes

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"github.com/mari-gunting/booking-core/internal/audit"
	"github.com/mari-gunting/booking-core/internal/config"
	"github.com/mari-gunting/booking-core/internal/gate"
	"github.com/mari-gunting/booking-core/internal/handlers"
	infraRepo "github.com/mari-gunting/booking-core/internal/infra/repository"
	"github.com/mari-gunting/booking-core/internal/middleware"
	"github.com/mari-gunting/booking-core/internal/payments"
	"github.com/mari-gunting/booking-core/internal/pricing"
	ucBooking "github.com/mari-gunting/booking-core/internal/usecase/booking"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config) {

	// ======================================================
	// MIDDLEWARE GLOBAL
	// ======================================================
	r.Use(middleware.CORSMiddleware())

	// ======================================================
	// INFRA (SINGLETONS)
	// ======================================================
	clock := clockwork.NewRealClock()

	bookingRepo := infraRepo.NewBookingGormRepository(db)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("invalid REDIS_URL: %v", err)
	}
	rdb := redis.NewClient(redisOpts)

	creationGate := gate.New(rdb, clock, cfg.RateLimitPerMin, cfg.RateLimitWindow, cfg.IdempotencyTTL)

	auditLogger := audit.New(db)
	auditDispatcher := audit.NewDispatcher(auditLogger)

	curlec := payments.NewCurlecClient(cfg.CurlecKeyID, cfg.CurlecKeySecret, cfg.CurlecAccountID)
	engine := payments.NewEngine(bookingRepo, curlec, auditDispatcher, clock, cfg.CaptureDelay)

	pricer := pricing.NewResolver(bookingRepo, clock)

	// ======================================================
	// USE CASES / BOOKINGS
	// ======================================================
	quoteBookingUC := ucBooking.NewQuoteBooking(pricer, engine, clock)

	createBookingUC := ucBooking.NewCreateBooking(
		bookingRepo,
		creationGate,
		pricer,
		engine,
		auditDispatcher,
		clock,
		cfg.PendingTTL,
	)

	getBookingUC := ucBooking.NewGetBooking(bookingRepo, engine)

	listBookingsUC := ucBooking.NewListBookings(bookingRepo)

	transitionBookingUC := ucBooking.NewTransitionBooking(
		bookingRepo,
		engine,
		auditDispatcher,
		clock,
	)

	cancelBookingUC := ucBooking.NewCancelBooking(transitionBookingUC)

	confirmCompletionUC := ucBooking.NewConfirmCompletion(
		bookingRepo,
		engine,
		auditDispatcher,
		clock,
	)

	disputeCompletionUC := ucBooking.NewDisputeCompletion(
		bookingRepo,
		engine,
		auditDispatcher,
		clock,
	)

	// ======================================================
	// HANDLERS
	// ======================================================
	bookingHandler := handlers.NewBookingHandler(
		quoteBookingUC,
		createBookingUC,
		getBookingUC,
		listBookingsUC,
		transitionBookingUC,
		cancelBookingUC,
		confirmCompletionUC,
		disputeCompletionUC,
	)

	webhookHandler := handlers.NewWebhookHandler(engine, cfg.CurlecWebhookSecret)

	// ======================================================
	// WEBHOOKS (signature-authenticated, no JWT)
	// ======================================================
	r.POST("/webhooks/curlec", webhookHandler.Handle)

	// ======================================================
	// API (JSON)
	// ======================================================
	api := r.Group("/api")
	{
		secured := api.Group("/")
		secured.Use(middleware.AuthMiddleware(cfg))
		{
			// ------------------------------
			// BOOKINGS
			// ------------------------------
			secured.POST("/bookings/quote", bookingHandler.Quote)
			secured.POST("/bookings", bookingHandler.Create)
			secured.GET("/bookings/:id", bookingHandler.Get)
			secured.PATCH("/bookings/:id/status", bookingHandler.Transition)
			secured.PATCH("/bookings/:id/cancel", bookingHandler.Cancel)
			secured.POST("/bookings/:id/confirm-completion", bookingHandler.ConfirmCompletion)
			secured.POST("/bookings/:id/dispute", bookingHandler.Dispute)

			secured.GET("/me/bookings", bookingHandler.ListMine)
		}
	}
}
