package fines

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Nachiket-Roy/LMS-Backend/internal/platform/apperr"
	"github.com/Nachiket-Roy/LMS-Backend/internal/platform/auth"
)

type Handler struct{ eng *Engine }

func RegisterRoutes(r gin.IRoutes, eng *Engine) {
	h := &Handler{eng: eng}

	r.GET("/fines", h.ListMine)
	r.POST("/fines/:fine_id/pay", h.Pay)

	staff := auth.RequireRole("librarian", "admin")
	r.GET("/admin/fines", staff, h.ListAll)
}

type fineResponse struct {
	FineID        string     `json:"fine_id"`
	BorrowID      string     `json:"borrow_id"`
	UserID        string     `json:"user_id"`
	ItemID        string     `json:"item_id"`
	Amount        float64    `json:"amount"`
	DaysOverdue   int        `json:"days_overdue"`
	Status        string     `json:"status"`
	PaymentDate   *time.Time `json:"payment_date,omitempty"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type payRequest struct {
	PaymentMethod string `json:"payment_method" binding:"required"`
}

func (h *Handler) ListMine(c *gin.Context) {
	out, err := h.eng.ListByUser(c.Request.Context(), auth.UserID(c))
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.Body(err))
		return
	}
	c.JSON(http.StatusOK, fineListBody(out))
}

func (h *Handler) ListAll(c *gin.Context) {
	out, err := h.eng.List(c.Request.Context(), Status(c.Query("status")))
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.Body(err))
		return
	}
	c.JSON(http.StatusOK, fineListBody(out))
}

// Pay records the payment collaborator's outcome. Borrowers may settle
// their own fines; staff may settle anyone's.
func (h *Handler) Pay(c *gin.Context) {
	var req payRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.InvalidArgument("payment_method is required")))
		return
	}

	fineID := c.Param("fine_id")
	if role := auth.Role(c); role != "librarian" && role != "admin" {
		f, err := h.eng.GetByID(c.Request.Context(), fineID)
		if err != nil {
			c.JSON(apperr.HTTPStatus(err), apperr.Body(err))
			return
		}
		if f.UserID != auth.UserID(c) {
			err := apperr.Forbidden("you can only pay your own fines")
			c.JSON(apperr.HTTPStatus(err), apperr.Body(err))
			return
		}
	}

	if err := h.eng.MarkPaid(c.Request.Context(), fineID, req.PaymentMethod); err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.Body(err))
		return
	}
	c.Status(http.StatusNoContent)
}

func fineListBody(fs []*Fine) gin.H {
	out := make([]fineResponse, 0, len(fs))
	for _, f := range fs {
		out = append(out, fineResponse{
			FineID:        f.FineID,
			BorrowID:      f.BorrowID,
			UserID:        f.UserID,
			ItemID:        f.ItemID,
			Amount:        f.Amount,
			DaysOverdue:   f.DaysOverdue,
			Status:        string(f.Status),
			PaymentDate:   f.PaymentDate,
			PaymentMethod: f.PaymentMethod,
			UpdatedAt:     f.UpdatedAt,
		})
	}
	return gin.H{"count": len(out), "data": out}
}
