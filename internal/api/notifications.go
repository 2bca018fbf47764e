package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listNotifications(c *gin.Context) {
	list, err := h.notifications.List(c.Request.Context(), c.Query("unread") == "true")
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, list)
}

func (h *Handler) markNotificationRead(c *gin.Context) {
	id, ok := pathID(c, "notification")
	if !ok {
		return
	}
	n, err := h.notifications.MarkRead(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, n)
}

func (h *Handler) markAllNotificationsRead(c *gin.Context) {
	if err := h.notifications.MarkAllRead(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"read": true})
}

func (h *Handler) deleteNotification(c *gin.Context) {
	id, ok := pathID(c, "notification")
	if !ok {
		return
	}
	if err := h.notifications.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id})
}

// scanStockAlerts runs the stock alert scan on demand
func (h *Handler) scanStockAlerts(c *gin.Context) {
	res, err := h.notifications.ScanStockAlerts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, res)
}
