package api

import (
	"net/http"

	"gestistock/internal/service"
	"gestistock/internal/store"

	"github.com/gin-gonic/gin"
)

type updateMovementRequest struct {
	Comment string `json:"comment" binding:"max=500"`
}

// recordMovement handles stock entries and exits
func (h *Handler) recordMovement(c *gin.Context) {
	var req service.RecordMovementRequest
	if !bind(c, &req) {
		return
	}

	movement, err := h.stock.RecordMovement(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, movement)
}

func (h *Handler) listMovements(c *gin.Context) {
	productID, ok := queryID(c, "product_id")
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

	movements, err := h.stock.ListMovements(c.Request.Context(), store.MovementFilter{
		Search:    c.Query("search"),
		Type:      c.Query("type"),
		ProductID: productID,
		From:      from,
		To:        to,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, movements)
}

func (h *Handler) getMovement(c *gin.Context) {
	id, ok := pathID(c, "movement")
	if !ok {
		return
	}
	movement, err := h.stock.GetMovement(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, movement)
}

// updateMovement changes the comment of a movement
func (h *Handler) updateMovement(c *gin.Context) {
	id, ok := pathID(c, "movement")
	if !ok {
		return
	}
	var req updateMovementRequest
	if !bind(c, &req) {
		return
	}

	movement, err := h.stock.UpdateComment(c.Request.Context(), id, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, movement)
}

// deleteMovement removes a movement and reverses its quantity
func (h *Handler) deleteMovement(c *gin.Context) {
	id, ok := pathID(c, "movement")
	if !ok {
		return
	}
	if err := h.stock.DeleteMovement(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id})
}

func (h *Handler) stockStats(c *gin.Context) {
	stats, err := h.stock.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}
