package catalog

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Nachiket-Roy/LMS-Backend/internal/platform/apperr"
	"github.com/Nachiket-Roy/LMS-Backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.GET("/items", h.ListItems)
	r.GET("/items/:item_id", h.GetItem)

	// Staff-only inventory edits.
	r.POST("/items", auth.RequireRole("librarian", "admin"), h.CreateItem)
	r.PATCH("/items/:item_id/copies", auth.RequireRole("librarian", "admin"), h.AdjustTotal)
	r.DELETE("/items/:item_id", auth.RequireRole("admin"), h.DeleteItem)
}

func (h *Handler) CreateItem(c *gin.Context) {
	var req CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.InvalidArgument("invalid json or missing required fields")))
		return
	}

	item, err := h.svc.CreateItem(c.Request.Context(), req)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.Body(err))
		return
	}

	c.Header("Location", "/items/"+item.ItemID)
	c.JSON(http.StatusCreated, toItemResponse(item))
}

func (h *Handler) GetItem(c *gin.Context) {
	item, err := h.svc.GetItem(c.Request.Context(), c.Param("item_id"))
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.Body(err))
		return
	}
	c.JSON(http.StatusOK, toItemResponse(item))
}

func (h *Handler) ListItems(c *gin.Context) {
	items, err := h.svc.ListItems(c.Request.Context(), c.Query("category"))
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.Body(err))
		return
	}

	out := make([]ItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, toItemResponse(it))
	}
	c.JSON(http.StatusOK, gin.H{"count": len(out), "data": out})
}

func (h *Handler) AdjustTotal(c *gin.Context) {
	var req AdjustTotalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.InvalidArgument("invalid json or missing required fields")))
		return
	}

	item, err := h.svc.AdjustTotal(c.Request.Context(), c.Param("item_id"), req.TotalCopies)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.Body(err))
		return
	}
	c.JSON(http.StatusOK, toItemResponse(item))
}

func (h *Handler) DeleteItem(c *gin.Context) {
	if err := h.svc.DeleteItem(c.Request.Context(), c.Param("item_id")); err != nil {
		c.JSON(apperr.HTTPStatus(err), apperr.Body(err))
		return
	}
	c.Status(http.StatusNoContent)
}
