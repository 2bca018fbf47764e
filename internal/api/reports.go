package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

func (h *Handler) dashboard(c *gin.Context) {
	d, err := h.reports.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, d)
}

// monthlyReport defaults to the current year
func (h *Handler) monthlyReport(c *gin.Context) {
	year := time.Now().Year()
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 1 || y > 9999 {
			fail(c, http.StatusBadRequest, "invalid year")
			return
		}
		year = y
	}

	report, err := h.reports.Monthly(c.Request.Context(), year)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, report)
}

// dailyReport defaults to today
func (h *Handler) dailyReport(c *gin.Context) {
	day := time.Now()
	if raw := c.Query("date"); raw != "" {
		d, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			fail(c, http.StatusBadRequest, "invalid date")
			return
		}
		day = d
	}

	report, err := h.reports.Daily(c.Request.Context(), day)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, report)
}

func (h *Handler) productsReport(c *gin.Context) {
	rows, err := h.reports.Products(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, rows)
}

func (h *Handler) categoriesReport(c *gin.Context) {
	rows, err := h.reports.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, rows)
}

// clientsReport ranks all clients, or details one when client_id is given
func (h *Handler) clientsReport(c *gin.Context) {
	clientID, ok := queryID(c, "client_id")
	if !ok {
		return
	}
	if clientID != "" {
		report, err := h.reports.ClientSales(c.Request.Context(), clientID)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, report)
		return
	}

	clients, err := h.reports.Clients(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, clients)
}

func (h *Handler) inventoryReport(c *gin.Context) {
	report, err := h.reports.Inventory(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, report)
}
