package notify

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Nachiket-Roy/LMS-Backend/internal/platform/apperr"
	"github.com/Nachiket-Roy/LMS-Backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/notifications", h.List)
	r.PATCH("/notifications/:notification_id/read", h.MarkRead)
}

type notificationResponse struct {
	NotificationID string    `json:"notification_id"`
	Kind           string    `json:"kind"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	RelatedBorrow  string    `json:"related_borrow,omitempty"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

func (h *Handler) List(c *gin.Context) {
	userID := auth.UserID(c)
	unreadOnly := c.Query("unread") == "true"

	items, err := h.svc.List(c.Request.Context(), userID, unreadOnly)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.Body(err))
		return
	}

	out := make([]notificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, notificationResponse{
			NotificationID: n.NotificationID,
			Kind:           n.Kind,
			Title:          n.Title,
			Message:        n.Message,
			RelatedBorrow:  n.RelatedBorrow,
			IsRead:         n.IsRead,
			CreatedAt:      n.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"count": len(out), "data": out})
}

func (h *Handler) MarkRead(c *gin.Context) {
	err := h.svc.MarkRead(c.Request.Context(), c.Param("notification_id"), auth.UserID(c))
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.Body(err))
		return
	}
	c.Status(http.StatusNoContent)
}
