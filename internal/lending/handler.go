package lending

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

	// Borrower-facing.
	r.POST("/borrows", h.RequestBorrow)
	r.GET("/borrows", h.ListMine)
	r.POST("/borrows/:borrow_id/renew", h.RequestRenewal)

	// Staff-facing.
	staff := auth.RequireRole("librarian", "admin")
	r.GET("/borrows/pending", staff, h.ListPending)
	r.GET("/borrows/:borrow_id", staff, h.GetRecord)
	r.PATCH("/borrows/:borrow_id/status", staff, h.UpdateStatus)
	r.POST("/borrows/:borrow_id/renewal", staff, h.ResolveRenewal)
}

func (h *Handler) RequestBorrow(c *gin.Context) {
	var req RequestBorrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.InvalidArgument("invalid json or missing required fields")))
		return
	}

	rec, err := h.svc.RequestBorrow(c.Request.Context(), auth.UserID(c), req.ItemID)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.Body(err))
		return
	}

	c.Header("Location", "/borrows/"+rec.BorrowID)
	c.JSON(http.StatusCreated, toBorrowResponse(rec, time.Now().UTC()))
}

func (h *Handler) ListMine(c *gin.Context) {
	status := normalizeStatus(c.Query("status"))
	if c.Query("status") == "" {
		status = ""
	}

	recs, err := h.svc.ListByUser(c.Request.Context(), auth.UserID(c), status)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.Body(err))
		return
	}
	c.JSON(http.StatusOK, borrowListBody(recs))
}

func (h *Handler) ListPending(c *gin.Context) {
	recs, err := h.svc.ListPending(c.Request.Context())
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.Body(err))
		return
	}
	c.JSON(http.StatusOK, borrowListBody(recs))
}

func (h *Handler) GetRecord(c *gin.Context) {
	rec, err := h.svc.GetRecord(c.Request.Context(), c.Param("borrow_id"))
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.Body(err))
		return
	}
	c.JSON(http.StatusOK, toBorrowResponse(rec, time.Now().UTC()))
}

func (h *Handler) RequestRenewal(c *gin.Context) {
	rec, err := h.svc.RequestRenewal(c.Request.Context(), c.Param("borrow_id"), auth.UserID(c))
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.Body(err))
		return
	}
	c.JSON(http.StatusOK, toBorrowResponse(rec, time.Now().UTC()))
}

// UpdateStatus drives the staff transitions: approve, issue, return,
// reject. The target status decides which service operation runs.
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.InvalidArgument("invalid json or missing required fields")))
		return
	}

	borrowID := c.Param("borrow_id")
	staffID := auth.UserID(c)
	ctx := c.Request.Context()

	var (
		rec *BorrowRecord
		err error
	)
	switch normalizeStatus(req.Status) {
	case StatusApproved:
		rec, err = h.svc.Approve(ctx, borrowID, staffID, req.DueDate, req.Notes)
	case StatusBorrowed:
		rec, err = h.svc.Issue(ctx, borrowID, staffID, req.DueDate)
	case StatusReturned:
		rec, err = h.svc.Return(ctx, borrowID, staffID, req.ReturnDate)
	case StatusRejected:
		rec, err = h.svc.Reject(ctx, borrowID, staffID, req.RejectionReason)
	default:
		err = apperr.InvalidArgument("status must be one of: approved, borrowed, returned, rejected")
	}
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.Body(err))
		return
	}

	c.JSON(http.StatusOK, toBorrowResponse(rec, time.Now().UTC()))
}

func (h *Handler) ResolveRenewal(c *gin.Context) {
	var req ResolveRenewalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.InvalidArgument("invalid json or missing required fields")))
		return
	}

	rec, err := h.svc.ResolveRenewal(c.Request.Context(), c.Param("borrow_id"), auth.UserID(c), req.Action)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.Body(err))
		return
	}
	c.JSON(http.StatusOK, toBorrowResponse(rec, time.Now().UTC()))
}

func borrowListBody(recs []*BorrowRecord) gin.H {
	now := time.Now().UTC()
	out := make([]BorrowResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toBorrowResponse(rec, now))
	}
	return gin.H{"count": len(out), "data": out}
}
