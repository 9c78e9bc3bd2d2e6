package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smbworks/erp-backend/api/models"
	"github.com/smbworks/erp-backend/internal/domain"
	"github.com/smbworks/erp-backend/internal/storage"
)

func orderFields(req models.OrderRequest) storage.OrderFields {
	return storage.OrderFields{
		OrderDate:     req.OrderDate.TimePtr(),
		CustomerID:    req.CustomerID,
		Status:        req.Status,
		DueDate:       req.DueDate.TimePtr(),
		ContactPerson: req.ContactPerson,
	}
}

func (h *EntityHandler) ListOrders(c *gin.Context) {
	opts, filters, ok := listParams(c)
	if !ok {
		return
	}
	orders, err := storage.ListOrders(c.Request.Context(), h.DB, opts, filters)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GetOrder returns the order together with its lines.
func (h *EntityHandler) GetOrder(c *gin.Context) {
	order, err := storage.GetOrder(c.Request.Context(), h.DB, c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *EntityHandler) CreateOrder(c *gin.Context) {
	var req models.OrderRequest
	if !bindJSON(c, &req) {
		return
	}
	if missing(c, required{"order_id", req.OrderID != ""}, required{"customer_id", req.CustomerID != nil}) {
		return
	}
	order, err := storage.CreateOrder(c.Request.Context(), h.DB, req.OrderID, orderFields(req))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *EntityHandler) UpdateOrder(c *gin.Context) {
	var req models.OrderRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := storage.UpdateOrder(c.Request.Context(), h.DB, c.Param("id"), orderFields(req))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *EntityHandler) DeleteOrder(c *gin.Context) {
	if err := storage.DeleteOrder(c.Request.Context(), h.DB, c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *EntityHandler) OrderTotal(c *gin.Context) {
	total, err := storage.GetOrderTotal(c.Request.Context(), h.DB, c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, total)
}

// --- Order lines ---

func (h *EntityHandler) ListOrderLines(c *gin.Context) {
	ctx := c.Request.Context()
	orderID := c.Param("id")
	if _, err := storage.GetOrder(ctx, h.DB, orderID); err != nil {
		_ = c.Error(err)
		return
	}
	lines, err := storage.ListOrderLines(ctx, h.DB, orderID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, lines)
}

func (h *EntityHandler) CreateOrderLine(c *gin.Context) {
	var req models.OrderLineRequest
	if !bindJSON(c, &req) {
		return
	}
	line := domain.OrderLine{
		OrderID:   req.OrderID,
		LineNo:    req.LineNo,
		ProductID: req.ProductID,
		Qty:       req.Qty,
		UnitPrice: req.UnitPrice,
		GraphicID: req.GraphicID,
	}
	if req.DiscountPct != nil {
		line.DiscountPct = *req.DiscountPct
	}

	created, err := storage.CreateOrderLine(c.Request.Context(), h.DB, line)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *EntityHandler) DeleteOrderLine(c *gin.Context) {
	lineNo, ok := int64Param(c, "line_no")
	if !ok {
		return
	}
	if err := storage.DeleteOrderLine(c.Request.Context(), h.DB, c.Param("order_id"), lineNo); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
