package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smbworks/erp-backend/api/models"
	"github.com/smbworks/erp-backend/internal/dal"
	"github.com/smbworks/erp-backend/internal/storage"
)

// EntityHandler serves the business tables.
type EntityHandler struct {
	DB dal.DB
}

func NewEntityHandler(db dal.DB) *EntityHandler {
	return &EntityHandler{DB: db}
}

// --- Customers ---

func customerFields(req models.CustomerRequest) storage.CustomerFields {
	return storage.CustomerFields{
		Name:             req.Name,
		NIP:              req.NIP,
		Address:          req.Address,
		Email:            req.Email,
		ContactPerson:    req.ContactPerson,
		PaymentTermsDays: req.PaymentTermsDays,
		Active:           req.Active,
	}
}

func (h *EntityHandler) ListCustomers(c *gin.Context) {
	opts, filters, ok := listParams(c)
	if !ok {
		return
	}
	customers, err := storage.ListCustomers(c.Request.Context(), h.DB, opts, filters)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, customers)
}

func (h *EntityHandler) GetCustomer(c *gin.Context) {
	customer, err := storage.GetCustomer(c.Request.Context(), h.DB, c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *EntityHandler) CreateCustomer(c *gin.Context) {
	var req models.CustomerRequest
	if !bindJSON(c, &req) {
		return
	}
	if missing(c, required{"customer_id", req.CustomerID != ""}, required{"name", req.Name != nil}) {
		return
	}
	customer, err := storage.CreateCustomer(c.Request.Context(), h.DB, req.CustomerID, customerFields(req))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func (h *EntityHandler) UpdateCustomer(c *gin.Context) {
	var req models.CustomerRequest
	if !bindJSON(c, &req) {
		return
	}
	customer, err := storage.UpdateCustomer(c.Request.Context(), h.DB, c.Param("id"), customerFields(req))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *EntityHandler) DeleteCustomer(c *gin.Context) {
	if err := storage.DeleteCustomer(c.Request.Context(), h.DB, c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Products ---

func productFields(req models.ProductRequest) storage.ProductFields {
	return storage.ProductFields{
		Name:      req.Name,
		Unit:      req.Unit,
		StdCost:   req.StdCost,
		Price:     req.Price,
		VATRate:   req.VATRate,
		MakeOrBuy: req.MakeOrBuy,
	}
}

func (h *EntityHandler) ListProducts(c *gin.Context) {
	opts, filters, ok := listParams(c)
	if !ok {
		return
	}
	products, err := storage.ListProducts(c.Request.Context(), h.DB, opts, filters)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *EntityHandler) GetProduct(c *gin.Context) {
	product, err := storage.GetProduct(c.Request.Context(), h.DB, c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *EntityHandler) CreateProduct(c *gin.Context) {
	var req models.ProductRequest
	if !bindJSON(c, &req) {
		return
	}
	if missing(c, required{"product_id", req.ProductID != ""}, required{"name", req.Name != nil}) {
		return
	}
	product, err := storage.CreateProduct(c.Request.Context(), h.DB, req.ProductID, productFields(req))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *EntityHandler) UpdateProduct(c *gin.Context) {
	var req models.ProductRequest
	if !bindJSON(c, &req) {
		return
	}
	product, err := storage.UpdateProduct(c.Request.Context(), h.DB, c.Param("id"), productFields(req))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *EntityHandler) DeleteProduct(c *gin.Context) {
	if err := storage.DeleteProduct(c.Request.Context(), h.DB, c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Employees ---

func employeeFields(req models.EmployeeRequest) storage.EmployeeFields {
	return storage.EmployeeFields{Name: req.Name, Role: req.Role, HourlyRate: req.HourlyRate}
}

func (h *EntityHandler) ListEmployees(c *gin.Context) {
	opts, filters, ok := listParams(c)
	if !ok {
		return
	}
	employees, err := storage.ListEmployees(c.Request.Context(), h.DB, opts, filters)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, employees)
}

func (h *EntityHandler) GetEmployee(c *gin.Context) {
	employee, err := storage.GetEmployee(c.Request.Context(), h.DB, c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, employee)
}

func (h *EntityHandler) CreateEmployee(c *gin.Context) {
	var req models.EmployeeRequest
	if !bindJSON(c, &req) {
		return
	}
	if missing(c, required{"emp_id", req.EmpID != ""}, required{"name", req.Name != nil}) {
		return
	}
	employee, err := storage.CreateEmployee(c.Request.Context(), h.DB, req.EmpID, employeeFields(req))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, employee)
}

func (h *EntityHandler) UpdateEmployee(c *gin.Context) {
	var req models.EmployeeRequest
	if !bindJSON(c, &req) {
		return
	}
	employee, err := storage.UpdateEmployee(c.Request.Context(), h.DB, c.Param("id"), employeeFields(req))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, employee)
}

func (h *EntityHandler) DeleteEmployee(c *gin.Context) {
	if err := storage.DeleteEmployee(c.Request.Context(), h.DB, c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
