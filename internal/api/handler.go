package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"gestistock/internal/auth"
	"gestistock/internal/models"
	"gestistock/internal/service"
	"gestistock/internal/store"
	"gestistock/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger reports whether a dependency is reachable. redisclient.Client implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	sales         *service.SaleService
	stock         *service.StockService
	catalog       *service.CatalogService
	notifications *service.NotificationService
	reports       *service.ReportService
	tokens        *auth.Manager
	ready         Pinger
}

// NewHandler creates a new HTTP handler. ready may be nil when no redis is configured.
func NewHandler(
	sales *service.SaleService,
	stock *service.StockService,
	catalog *service.CatalogService,
	notifications *service.NotificationService,
	reports *service.ReportService,
	tokens *auth.Manager,
	ready Pinger,
) *Handler {
	return &Handler{
		sales:         sales,
		stock:         stock,
		catalog:       catalog,
		notifications: notifications,
		reports:       reports,
		tokens:        tokens,
		ready:         ready,
	}
}

var (
	allRoles      = []string{models.RoleAdmin, models.RoleManager, models.RoleSeller}
	managerRoles  = []string{models.RoleAdmin, models.RoleManager}
	adminRoleOnly = []string{models.RoleAdmin}
)

// SetupRoutes sets up HTTP routes. rate uses the limiter format, e.g. "300-M".
func (h *Handler) SetupRoutes(router *gin.Engine, rate string) error {
	limit, err := rateLimit(rate)
	if err != nil {
		return err
	}
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := service.RegisterValidations(v); err != nil {
			return err
		}
	}

	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(requestLogger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1", limit, h.authenticate())
	{
		sales := v1.Group("/sales")
		sales.POST("", requireRoles(allRoles...), h.createSale)
		sales.GET("", h.listSales)
		sales.GET("/outstanding", h.outstandingSales)
		sales.GET("/stats", h.salesStats)
		sales.GET("/:id", h.getSale)
		sales.POST("/:id/payments", requireRoles(allRoles...), h.addPayment)
		sales.PUT("/:id", requireRoles(managerRoles...), h.updateSale)
		sales.DELETE("/:id", requireRoles(adminRoleOnly...), h.deleteSale)

		stock := v1.Group("/stock")
		stock.POST("/movements", requireRoles(managerRoles...), h.recordMovement)
		stock.GET("/movements", h.listMovements)
		stock.GET("/movements/:id", h.getMovement)
		stock.PUT("/movements/:id", requireRoles(managerRoles...), h.updateMovement)
		stock.DELETE("/movements/:id", requireRoles(adminRoleOnly...), h.deleteMovement)
		stock.GET("/stats", h.stockStats)

		products := v1.Group("/products")
		products.GET("", h.listProducts)
		products.GET("/low-stock", h.lowStock)
		products.GET("/:id", h.getProduct)
		products.POST("", requireRoles(managerRoles...), h.createProduct)
		products.PUT("/:id", requireRoles(managerRoles...), h.updateProduct)
		products.DELETE("/:id", requireRoles(adminRoleOnly...), h.deleteProduct)

		clients := v1.Group("/clients")
		clients.GET("", h.listClients)
		clients.GET("/vip", h.vipClients)
		clients.GET("/:id", h.getClient)
		clients.POST("", requireRoles(managerRoles...), h.createClient)
		clients.PUT("/:id", requireRoles(managerRoles...), h.updateClient)
		clients.DELETE("/:id", requireRoles(adminRoleOnly...), h.deleteClient)

		suppliers := v1.Group("/suppliers")
		suppliers.GET("", h.listSuppliers)
		suppliers.GET("/:id", h.getSupplier)
		suppliers.POST("", requireRoles(managerRoles...), h.createSupplier)
		suppliers.PUT("/:id", requireRoles(managerRoles...), h.updateSupplier)
		suppliers.DELETE("/:id", requireRoles(adminRoleOnly...), h.deleteSupplier)

		notifications := v1.Group("/notifications")
		notifications.GET("", h.listNotifications)
		notifications.PUT("/read-all", h.markAllNotificationsRead)
		notifications.PUT("/:id/read", h.markNotificationRead)
		notifications.DELETE("/:id", h.deleteNotification)
		notifications.POST("/scan", requireRoles(managerRoles...), h.scanStockAlerts)

		v1.GET("/dashboard", h.dashboard)

		reports := v1.Group("/reports", requireRoles(managerRoles...))
		reports.GET("/monthly", h.monthlyReport)
		reports.GET("/daily", h.dailyReport)
		reports.GET("/products", h.productsReport)
		reports.GET("/categories", h.categoriesReport)
		reports.GET("/clients", h.clientsReport)
		reports.GET("/inventory", h.inventoryReport)
	}
	return nil
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready once redis answers
func (h *Handler) readinessCheck(c *gin.Context) {
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.ready.Ping(ctx); err != nil {
			util.LoggerFrom(c.Request.Context()).Warn("Readiness check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"time":   time.Now().Unix(),
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// respondError maps a service error to its status code. Storage failures get a
// generic message; the details are only logged.
func respondError(c *gin.Context, err error) {
	var (
		validation *service.ValidationError
		stock      *service.InsufficientStockError
		notFound   *service.NotFoundError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &stock),
		errors.Is(err, service.ErrInvalidAmount), errors.Is(err, service.ErrAlreadyPaid):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.As(err, &notFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrRequestInProgress):
		fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrStockConflict):
		fail(c, http.StatusConflict, "stock changed concurrently, please retry")
	default:
		util.LoggerFrom(c.Request.Context()).Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal server error")
	}
}

// bind decodes the JSON body, answering 400 on malformed input
func bind(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		var invalid *service.ValidationError
		if errors.As(service.ValidationErrorFrom(err), &invalid) {
			fail(c, http.StatusBadRequest, invalid.Error())
			return false
		}
		fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// pathID returns the :id parameter. Anything that is not a UUID cannot exist.
func pathID(c *gin.Context, entity string) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusNotFound, entity+" not found")
		return "", false
	}
	return id, true
}

// queryID returns an optional UUID query parameter
func queryID(c *gin.Context, name string) (string, bool) {
	id := c.Query(name)
	if id == "" {
		return "", true
	}
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, "invalid "+name)
		return "", false
	}
	return id, true
}

// queryTime parses an optional RFC 3339 or YYYY-MM-DD query parameter.
// A bare "to" date covers the whole day.
func queryTime(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, true
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid "+name+" date")
		return nil, false
	}
	if name == "to" {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
