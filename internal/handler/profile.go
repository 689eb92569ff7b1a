package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/service/profile"
)

type ProfileHandler struct {
	svc *profile.Service
}

func NewProfileHandler(svc *profile.Service) *ProfileHandler {
	return &ProfileHandler{svc: svc}
}

// GET /profiles/:id
func (h *ProfileHandler) Get(c *gin.Context) {
	p, err := h.svc.GetProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DELETE /profiles/:id
// 論理削除のみ行います
func (h *ProfileHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteProfile(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /notifications
func (h *ProfileHandler) ListNotifications(c *gin.Context) {
	records, err := h.svc.ListNotifications(c.Request.Context(), currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// PUT /notifications/:id/read
func (h *ProfileHandler) MarkRead(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		badRequest(c, "notification id must be a number")
		return
	}
	var in struct {
		IsRead *bool `json:"is_read"`
	}
	if err := c.ShouldBindJSON(&in); err != nil && c.Request.ContentLength > 0 {
		badRequest(c, "invalid request body")
		return
	}
	isRead := true
	if in.IsRead != nil {
		isRead = *in.IsRead
	}

	if err := h.svc.MarkNotificationRead(c.Request.Context(), currentUser(c), id, isRead); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
