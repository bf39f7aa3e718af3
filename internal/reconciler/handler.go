package reconciler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Nachiket-Roy/LMS-Backend/internal/platform/apperr"
	"github.com/Nachiket-Roy/LMS-Backend/internal/platform/auth"
)

type Handler struct{ rec *Reconciler }

// RegisterRoutes exposes manual sweep triggers for staff, useful for
// catch-up after maintenance windows.
func RegisterRoutes(r gin.IRoutes, rec *Reconciler) {
	h := &Handler{rec: rec}
	staff := auth.RequireRole("admin")
	r.POST("/admin/sweeps/fines", staff, h.RunFineSweep)
	r.POST("/admin/sweeps/expiry", staff, h.RunExpirySweep)
}

func (h *Handler) RunFineSweep(c *gin.Context) {
	processed, err := h.rec.RunDailyFineSweep(c.Request.Context(), time.Now().UTC())
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.Body(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"processed": processed})
}

func (h *Handler) RunExpirySweep(c *gin.Context) {
	if err := h.rec.RunExpirySweep(c.Request.Context(), time.Now().UTC()); err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.Body(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "expiry sweep completed"})
}
