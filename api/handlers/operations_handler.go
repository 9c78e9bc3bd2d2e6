package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smbworks/erp-backend/api/models"
	"github.com/smbworks/erp-backend/internal/domain"
	"github.com/smbworks/erp-backend/internal/storage"
)

// --- Timesheets ---

// ListTimesheets accepts ?from= and ?to= (inclusive dates) besides column filters.
func (h *EntityHandler) ListTimesheets(c *gin.Context) {
	opts, filters, ok := listParams(c, "from", "to")
	if !ok {
		return
	}
	from, ok := dateQuery(c, "from")
	if !ok {
		return
	}
	to, ok := dateQuery(c, "to")
	if !ok {
		return
	}
	timesheets, err := storage.ListTimesheets(c.Request.Context(), h.DB, opts, filters, from, to)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, timesheets)
}

func (h *EntityHandler) GetTimesheet(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	ts, err := storage.GetTimesheet(c.Request.Context(), h.DB, id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ts)
}

func (h *EntityHandler) CreateTimesheet(c *gin.Context) {
	var req models.TimesheetRequest
	if !bindJSON(c, &req) {
		return
	}
	if missing(c, required{"emp_id", req.EmpID != nil}, required{"hours", req.Hours != nil}) {
		return
	}
	ts, err := storage.CreateTimesheet(c.Request.Context(), h.DB, domain.Timesheet{
		EmpID:       *req.EmpID,
		TsDate:      req.TsDate.TimePtr(),
		OrderID:     req.OrderID,
		OperationNo: req.OperationNo,
		Hours:       *req.Hours,
		Notes:       req.Notes,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, ts)
}

func (h *EntityHandler) UpdateTimesheet(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req models.TimesheetRequest
	if !bindJSON(c, &req) {
		return
	}
	ts, err := storage.UpdateTimesheet(c.Request.Context(), h.DB, id, storage.TimesheetFields{
		EmpID:       req.EmpID,
		TsDate:      req.TsDate.TimePtr(),
		OrderID:     req.OrderID,
		OperationNo: req.OperationNo,
		Hours:       req.Hours,
		Notes:       req.Notes,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ts)
}

func (h *EntityHandler) DeleteTimesheet(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	if err := storage.DeleteTimesheet(c.Request.Context(), h.DB, id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Inventory ---

func (h *EntityHandler) ListInventory(c *gin.Context) {
	opts, filters, ok := listParams(c)
	if !ok {
		return
	}
	txns, err := storage.ListInventory(c.Request.Context(), h.DB, opts, filters)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, txns)
}

func (h *EntityHandler) GetInventoryTxn(c *gin.Context) {
	txn, err := storage.GetInventoryTxn(c.Request.Context(), h.DB, c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

func (h *EntityHandler) CreateInventoryTxn(c *gin.Context) {
	var req models.InventoryRequest
	if !bindJSON(c, &req) {
		return
	}
	if missing(c, required{"product_id", req.ProductID != nil}, required{"qty_change", req.QtyChange != nil}, required{"reason", req.Reason != nil}) {
		return
	}
	txn, err := storage.CreateInventoryTxn(c.Request.Context(), h.DB, domain.InventoryTxn{
		TxnID:     req.TxnID,
		TxnDate:   req.TxnDate.TimePtr(),
		ProductID: *req.ProductID,
		QtyChange: *req.QtyChange,
		Reason:    *req.Reason,
		Lot:       req.Lot,
		Location:  req.Location,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}

func (h *EntityHandler) UpdateInventoryTxn(c *gin.Context) {
	var req models.InventoryRequest
	if !bindJSON(c, &req) {
		return
	}
	txn, err := storage.UpdateInventoryTxn(c.Request.Context(), h.DB, c.Param("id"), storage.InventoryFields{
		TxnDate:   req.TxnDate.TimePtr(),
		ProductID: req.ProductID,
		QtyChange: req.QtyChange,
		Reason:    req.Reason,
		Lot:       req.Lot,
		Location:  req.Location,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

func (h *EntityHandler) DeleteInventoryTxn(c *gin.Context) {
	if err := storage.DeleteInventoryTxn(c.Request.Context(), h.DB, c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// StockOnHand sums movements, for one product when ?product_id= is given.
func (h *EntityHandler) StockOnHand(c *gin.Context) {
	levels, err := storage.StockOnHand(c.Request.Context(), h.DB, c.Query("product_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, levels)
}
