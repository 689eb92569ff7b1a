package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/model"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/service/booking"
)

type BookingHandler struct {
	svc *booking.Service
}

func NewBookingHandler(svc *booking.Service) *BookingHandler {
	return &BookingHandler{svc: svc}
}

type bookingRequest struct {
	UserID      string `json:"user_id"`
	SportHallID string `json:"sport_hall_id"`
	SportID     string `json:"sport_id"`
	TimeSlotID  string `json:"time_slot_id"`
	BookingDate string `json:"booking_date"` // YYYY-MM-DD
	Purpose     string `json:"purpose"`
}

func (r bookingRequest) date() (time.Time, error) {
	if r.BookingDate == "" {
		return time.Time{}, nil
	}
	return model.ParseDate(r.BookingDate)
}

// POST /bookings
func (h *BookingHandler) Create(c *gin.Context) {
	var in bookingRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	date, err := in.date()
	if err != nil {
		badRequest(c, "booking_date must be YYYY-MM-DD")
		return
	}

	b, err := h.svc.CreateBooking(c.Request.Context(), booking.CreateRequest{
		UserID:      currentUser(c),
		SportHallID: in.SportHallID,
		SportID:     in.SportID,
		Date:        date,
		TimeSlotID:  in.TimeSlotID,
		Purpose:     in.Purpose,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// GET /bookings
func (h *BookingHandler) List(c *gin.Context) {
	bookings, err := h.svc.GetAllBookings(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

// GET /bookings/search?student_id_prefix=&location=&profile_type=&status=
// 指定されていないパラメータは条件に使いません
func (h *BookingHandler) Search(c *gin.Context) {
	var f booking.Filter
	if v, ok := c.GetQuery("student_id_prefix"); ok {
		f.StudentIDPrefix = &v
	}
	if v, ok := c.GetQuery("location"); ok {
		l := model.Location(v)
		if !l.Valid() {
			badRequest(c, "location must be indoor or outdoor")
			return
		}
		f.Location = &l
	}
	if v, ok := c.GetQuery("profile_type"); ok {
		p := model.ProfileType(v)
		if !p.Valid() {
			badRequest(c, "profile_type must be user or admin")
			return
		}
		f.ProfileType = &p
	}
	if v, ok := c.GetQuery("status"); ok {
		s := model.BookingStatus(v)
		if !s.Valid() {
			badRequest(c, "status must be pending, confirmed or rejected")
			return
		}
		f.Status = &s
	}

	bookings, err := h.svc.FilterBookings(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

// GET /bookings/:id
func (h *BookingHandler) Get(c *gin.Context) {
	b, err := h.svc.GetBookingByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// GET /users/:id/bookings
func (h *BookingHandler) ListByUser(c *gin.Context) {
	bookings, err := h.svc.GetBookingsByUserID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

// PUT /bookings/:id
// 空のフィールドは変更しません
func (h *BookingHandler) Modify(c *gin.Context) {
	var in bookingRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	date, err := in.date()
	if err != nil {
		badRequest(c, "booking_date must be YYYY-MM-DD")
		return
	}

	b, err := h.svc.ModifyBooking(c.Request.Context(), booking.ModifyRequest{
		BookingID:   c.Param("id"),
		ModifiedBy:  currentUser(c),
		UserID:      in.UserID,
		SportHallID: in.SportHallID,
		SportID:     in.SportID,
		Date:        date,
		TimeSlotID:  in.TimeSlotID,
		Purpose:     in.Purpose,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// DELETE /bookings/:id
func (h *BookingHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteBooking(c.Request.Context(), c.Param("id"), currentUser(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /bookings/:id/confirm
func (h *BookingHandler) Confirm(c *gin.Context) {
	h.transition(c, h.svc.ConfirmBooking)
}

// POST /bookings/:id/cancel
func (h *BookingHandler) Cancel(c *gin.Context) {
	h.transition(c, h.svc.CancelBooking)
}

// POST /bookings/:id/reject
func (h *BookingHandler) Reject(c *gin.Context) {
	h.transition(c, h.svc.RejectBooking)
}

func (h *BookingHandler) transition(c *gin.Context, op func(ctx context.Context, id, actor string) (*model.Booking, error)) {
	b, err := op(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
