package api

import (
	"net/http"
	"strings"

	"gestistock/internal/service"
	"gestistock/internal/store"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listProducts(c *gin.Context) {
	filter := store.ProductFilter{
		Search:   c.Query("search"),
		Category: c.Query("category"),
	}
	if status := c.Query("status"); status != "" {
		filter.Statuses = strings.Split(status, ",")
	}

	products, err := h.catalog.ListProducts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, products)
}

func (h *Handler) lowStock(c *gin.Context) {
	products, err := h.catalog.LowStock(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, products)
}

func (h *Handler) getProduct(c *gin.Context) {
	id, ok := pathID(c, "product")
	if !ok {
		return
	}
	product, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, product)
}

func (h *Handler) createProduct(c *gin.Context) {
	var in service.ProductInput
	if !bind(c, &in) {
		return
	}
	product, err := h.catalog.CreateProduct(c.Request.Context(), &in)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, product)
}

func (h *Handler) updateProduct(c *gin.Context) {
	id, ok := pathID(c, "product")
	if !ok {
		return
	}
	var in service.ProductInput
	if !bind(c, &in) {
		return
	}
	product, err := h.catalog.UpdateProduct(c.Request.Context(), id, &in)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, product)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	id, ok := pathID(c, "product")
	if !ok {
		return
	}
	if err := h.catalog.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id})
}

func (h *Handler) listClients(c *gin.Context) {
	clients, err := h.catalog.ListClients(c.Request.Context(), store.ClientFilter{
		Search: c.Query("search"),
		Status: c.Query("status"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, clients)
}

func (h *Handler) vipClients(c *gin.Context) {
	clients, err := h.catalog.VIPClients(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, clients)
}

func (h *Handler) getClient(c *gin.Context) {
	id, ok := pathID(c, "client")
	if !ok {
		return
	}
	client, err := h.catalog.GetClient(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, client)
}

func (h *Handler) createClient(c *gin.Context) {
	var in service.ClientInput
	if !bind(c, &in) {
		return
	}
	client, err := h.catalog.CreateClient(c.Request.Context(), &in)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, client)
}

func (h *Handler) updateClient(c *gin.Context) {
	id, ok := pathID(c, "client")
	if !ok {
		return
	}
	var in service.ClientInput
	if !bind(c, &in) {
		return
	}
	client, err := h.catalog.UpdateClient(c.Request.Context(), id, &in)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, client)
}

func (h *Handler) deleteClient(c *gin.Context) {
	id, ok := pathID(c, "client")
	if !ok {
		return
	}
	if err := h.catalog.DeleteClient(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id})
}

func (h *Handler) listSuppliers(c *gin.Context) {
	suppliers, err := h.catalog.ListSuppliers(c.Request.Context(), store.SupplierFilter{
		Search: c.Query("search"),
		Status: c.Query("status"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, suppliers)
}

func (h *Handler) getSupplier(c *gin.Context) {
	id, ok := pathID(c, "supplier")
	if !ok {
		return
	}
	supplier, err := h.catalog.GetSupplier(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, supplier)
}

func (h *Handler) createSupplier(c *gin.Context) {
	var in service.SupplierInput
	if !bind(c, &in) {
		return
	}
	supplier, err := h.catalog.CreateSupplier(c.Request.Context(), &in)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, supplier)
}

func (h *Handler) updateSupplier(c *gin.Context) {
	id, ok := pathID(c, "supplier")
	if !ok {
		return
	}
	var in service.SupplierInput
	if !bind(c, &in) {
		return
	}
	supplier, err := h.catalog.UpdateSupplier(c.Request.Context(), id, &in)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, supplier)
}

func (h *Handler) deleteSupplier(c *gin.Context) {
	id, ok := pathID(c, "supplier")
	if !ok {
		return
	}
	if err := h.catalog.DeleteSupplier(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id})
}
