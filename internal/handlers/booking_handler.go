package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	domain "github.com/mari-gunting/booking-core/internal/domain/booking"
	"github.com/mari-gunting/booking-core/internal/httperr"
	"github.com/mari-gunting/booking-core/internal/httpresp"
	"github.com/mari-gunting/booking-core/internal/middleware"
	"github.com/mari-gunting/booking-core/internal/models"
	usecase "github.com/mari-gunting/booking-core/internal/usecase/booking"
)

// ======================================================
// HANDLER
// ======================================================

type BookingHandler struct {
	quoteUC      *usecase.QuoteBooking
	createUC     *usecase.CreateBooking
	getUC        *usecase.GetBooking
	listUC       *usecase.ListBookings
	transitionUC *usecase.TransitionBooking
	cancelUC     *usecase.CancelBooking
	confirmUC    *usecase.ConfirmCompletion
	disputeUC    *usecase.DisputeCompletion
}

func NewBookingHandler(
	quoteUC *usecase.QuoteBooking,
	createUC *usecase.CreateBooking,
	getUC *usecase.GetBooking,
	listUC *usecase.ListBookings,
	transitionUC *usecase.TransitionBooking,
	cancelUC *usecase.CancelBooking,
	confirmUC *usecase.ConfirmCompletion,
	disputeUC *usecase.DisputeCompletion,
) *BookingHandler {
	return &BookingHandler{
		quoteUC:      quoteUC,
		createUC:     createUC,
		getUC:        getUC,
		listUC:       listUC,
		transitionUC: transitionUC,
		cancelUC:     cancelUC,
		confirmUC:    confirmUC,
		disputeUC:    disputeUC,
	}
}

func actorFromContext(c *gin.Context) domain.Actor {
	return domain.Actor{
		ID:   c.GetString(middleware.ContextUserID),
		Role: c.GetString(middleware.ContextUserRole),
	}
}

// ======================================================
// QUOTE
// ======================================================

type quoteBookingRequest struct {
	BarberID      string   `json:"barber_id" binding:"required"`
	ServiceIDs    []string `json:"service_ids" binding:"required"`
	ServiceType   string   `json:"service_type" binding:"required"`
	DistanceKm    float64  `json:"distance_km"`
	UserVoucherID string   `json:"user_voucher_id"`
	PaymentMethod string   `json:"payment_method" binding:"required"`
}

// POST /api/bookings/quote
func (h *BookingHandler) Quote(c *gin.Context) {
	var req quoteBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", err.Error())
		return
	}

	actor := actorFromContext(c)
	if actor.Role != domain.RoleCustomer {
		httperr.Write(c, http.StatusForbidden, "customer_only", "only customers quote bookings")
		return
	}

	out, err := h.quoteUC.Execute(c.Request.Context(), usecase.QuoteBookingInput{
		CustomerID:    actor.ID,
		BarberID:      req.BarberID,
		ServiceIDs:    req.ServiceIDs,
		ServiceType:   req.ServiceType,
		DistanceKm:    req.DistanceKm,
		UserVoucherID: req.UserVoucherID,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		httperr.WriteError(c, err)
		return
	}
	httpresp.OK(c, out)
}

// ======================================================
// CREATE
// ======================================================

type createBookingRequest struct {
	BarberID     string  `json:"barber_id" binding:"required"`
	BarbershopID *string `json:"barbershop_id"`

	ServiceIDs  []string  `json:"service_ids" binding:"required"`
	ServiceType string    `json:"service_type" binding:"required"`
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`

	CustomerAddress *models.Address `json:"customer_address"`
	DistanceKm      float64         `json:"distance_km"`
	CustomerNotes   string          `json:"customer_notes"`

	PaymentMethod   string  `json:"payment_method" binding:"required"`
	CurlecPaymentID *string `json:"curlec_payment_id"`
	CurlecOrderID   *string `json:"curlec_order_id"`

	UserVoucherID string `json:"user_voucher_id"`
}

// POST /api/bookings
func (h *BookingHandler) Create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", err.Error())
		return
	}

	actor := actorFromContext(c)
	if actor.Role != domain.RoleCustomer {
		httperr.Write(c, http.StatusForbidden, "customer_only", "only customers create bookings")
		return
	}

	b, err := h.createUC.Execute(c.Request.Context(), usecase.CreateBookingInput{
		CustomerID:      actor.ID,
		BarberID:        req.BarberID,
		BarbershopID:    req.BarbershopID,
		ServiceIDs:      req.ServiceIDs,
		ServiceType:     req.ServiceType,
		ScheduledAt:     req.ScheduledAt,
		CustomerAddress: req.CustomerAddress,
		DistanceKm:      req.DistanceKm,
		CustomerNotes:   req.CustomerNotes,
		PaymentMethod:   req.PaymentMethod,
		CurlecPaymentID: req.CurlecPaymentID,
		CurlecOrderID:   req.CurlecOrderID,
		UserVoucherID:   req.UserVoucherID,
		IdempotencyKey:  c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		httperr.WriteError(c, err)
		return
	}

	httpresp.Created(c, b)
}

// ======================================================
// READ
// ======================================================

// GET /api/bookings/:id
func (h *BookingHandler) Get(c *gin.Context) {
	b, err := h.getUC.Execute(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		httperr.WriteError(c, err)
		return
	}
	httpresp.OK(c, b)
}

// GET /api/me/bookings?status=a&status=b&limit=n
func (h *BookingHandler) ListMine(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	bookings, err := h.listUC.Execute(
		c.Request.Context(),
		actorFromContext(c),
		c.QueryArray("status"),
		limit,
	)
	if err != nil {
		httperr.WriteError(c, err)
		return
	}
	httpresp.List(c, bookings)
}

// ======================================================
// LIFECYCLE
// ======================================================

type transitionRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

// PATCH /api/bookings/:id/status
func (h *BookingHandler) Transition(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", err.Error())
		return
	}

	b, err := h.transitionUC.Execute(
		c.Request.Context(),
		c.Param("id"),
		domain.Status(req.Status),
		actorFromContext(c),
		req.Notes,
	)
	if err != nil {
		httperr.WriteError(c, err)
		return
	}
	httpresp.OK(c, b)
}

type cancelRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// PATCH /api/bookings/:id/cancel
func (h *BookingHandler) Cancel(c *gin.Context) {
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", err.Error())
		return
	}

	b, err := h.cancelUC.Execute(c.Request.Context(), c.Param("id"), actorFromContext(c), req.Reason)
	if err != nil {
		httperr.WriteError(c, err)
		return
	}
	httpresp.OK(c, b)
}

// ======================================================
// COMPLETION
// ======================================================

// POST /api/bookings/:id/confirm-completion
func (h *BookingHandler) ConfirmCompletion(c *gin.Context) {
	actor := actorFromContext(c)
	if actor.Role != domain.RoleCustomer {
		httperr.Write(c, http.StatusForbidden, "customer_only", "only the customer confirms completion")
		return
	}

	b, err := h.confirmUC.Execute(c.Request.Context(), c.Param("id"), actor.ID)
	if err != nil {
		httperr.WriteError(c, err)
		return
	}
	httpresp.OK(c, b)
}

type disputeRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// POST /api/bookings/:id/dispute
func (h *BookingHandler) Dispute(c *gin.Context) {
	actor := actorFromContext(c)
	if actor.Role != domain.RoleCustomer {
		httperr.Write(c, http.StatusForbidden, "customer_only", "only the customer disputes completion")
		return
	}

	var req disputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", err.Error())
		return
	}

	b, err := h.disputeUC.Execute(c.Request.Context(), c.Param("id"), actor.ID, req.Reason)
	if err != nil {
		httperr.WriteError(c, err)
		return
	}
	httpresp.OK(c, b)
}
