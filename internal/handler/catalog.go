package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/service/catalog"
)

type CatalogHandler struct {
	svc *catalog.Service
}

func NewCatalogHandler(svc *catalog.Service) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// GET /sports
func (h *CatalogHandler) ListSports(c *gin.Context) {
	sports, err := h.svc.ListSports(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sports)
}

// GET /sport-halls
func (h *CatalogHandler) ListSportHalls(c *gin.Context) {
	halls, err := h.svc.ListSportHalls(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, halls)
}

// GET /time-slots
func (h *CatalogHandler) ListTimeSlots(c *gin.Context) {
	slots, err := h.svc.ListTimeSlots(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, slots)
}
