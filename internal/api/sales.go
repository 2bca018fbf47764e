package api

import (
	"net/http"
	"strings"

	"gestistock/internal/service"
	"gestistock/internal/store"

	"github.com/gin-gonic/gin"
)

// createSale handles sale creation
func (h *Handler) createSale(c *gin.Context) {
	var req service.CreateSaleRequest
	if !bind(c, &req) {
		return
	}
	req.IdempotencyKey = c.GetHeader("Idempotency-Key")

	sale, err := h.sales.CreateSale(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, sale)
}

func (h *Handler) listSales(c *gin.Context) {
	clientID, ok := queryID(c, "client_id")
	if !ok {
		return
	}
	from, ok := queryTime(c, "from")
	if !ok {
		return
	}
	to, ok := queryTime(c, "to")
	if !ok {
		return
	}

	filter := store.SaleFilter{
		Search:   c.Query("search"),
		Status:   c.Query("status"),
		ClientID: clientID,
		From:     from,
		To:       to,
	}
	if ps := c.Query("payment_status"); ps != "" {
		filter.PaymentStatuses = strings.Split(ps, ",")
	}

	sales, err := h.sales.ListSales(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, sales)
}

func (h *Handler) getSale(c *gin.Context) {
	id, ok := pathID(c, "sale")
	if !ok {
		return
	}
	sale, err := h.sales.GetSale(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, sale)
}

// addPayment records an installment against a sale
func (h *Handler) addPayment(c *gin.Context) {
	id, ok := pathID(c, "sale")
	if !ok {
		return
	}
	var req service.AddPaymentRequest
	if !bind(c, &req) {
		return
	}

	sale, err := h.sales.AddPayment(c.Request.Context(), actorFrom(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, sale)
}

func (h *Handler) updateSale(c *gin.Context) {
	id, ok := pathID(c, "sale")
	if !ok {
		return
	}
	var req service.UpdateSaleRequest
	if !bind(c, &req) {
		return
	}

	sale, err := h.sales.UpdateSale(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, sale)
}

// deleteSale cancels a sale and restores its stock
func (h *Handler) deleteSale(c *gin.Context) {
	id, ok := pathID(c, "sale")
	if !ok {
		return
	}
	if err := h.sales.DeleteSale(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id})
}

func (h *Handler) outstandingSales(c *gin.Context) {
	out, err := h.sales.Outstanding(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, out)
}

func (h *Handler) salesStats(c *gin.Context) {
	stats, err := h.sales.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}
