package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	inventorydomain "github.com/smallbiznis/constructtrack/internal/inventory/domain"
)

// Exactly one of ItemID or Name is set.
type addOrderListRequest struct {
	ItemID string `json:"item_id"`
	Name   string `json:"name"`
}

func (s *Server) ListOrderList(c *gin.Context) {
	entries, err := s.inventorySvc.ListOrderList(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	views := make([]inventorydomain.OrderEntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, inventorydomain.ViewOf(entry))
	}
	c.JSON(http.StatusOK, gin.H{"data": views})
}

func (s *Server) AddOrderListEntry(c *gin.Context) {
	var req addOrderListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	itemID := strings.TrimSpace(req.ItemID)
	name := strings.TrimSpace(req.Name)
	if (itemID == "") == (name == "") {
		AbortWithError(c, inventorydomain.ErrInvalidOrderEntry)
		return
	}

	var (
		entry inventorydomain.OrderEntry
		err   error
	)
	if itemID != "" {
		entry, err = s.inventorySvc.AddToOrderList(c.Request.Context(), itemID)
	} else {
		entry, err = s.inventorySvc.AddManualToOrderList(c.Request.Context(), name)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": inventorydomain.ViewOf(entry)})
}

// RemoveOrderListEntry takes the entry key, "inventory:<itemId>" or "manual:<id>".
func (s *Server) RemoveOrderListEntry(c *gin.Context) {
	entry, err := inventorydomain.ParseOrderEntryKey(strings.TrimSpace(c.Param("key")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.inventorySvc.RemoveFromOrderList(c.Request.Context(), entry); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ClearOrderList(c *gin.Context) {
	if err := s.inventorySvc.ClearOrderList(c.Request.Context()); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
