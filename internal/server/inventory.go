package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	inventorydomain "github.com/smallbiznis/constructtrack/internal/inventory/domain"
	"github.com/smallbiznis/constructtrack/internal/photo"
)

type createInventoryItemRequest struct {
	Name              string           `json:"name"`
	Quantity          decimal.Decimal  `json:"quantity"`
	Unit              string           `json:"unit"`
	Cost              int64            `json:"cost"`
	LowStockThreshold *decimal.Decimal `json:"low_stock_threshold"`
}

type updateInventoryItemRequest struct {
	Name              *string          `json:"name"`
	Unit              *string          `json:"unit"`
	Cost              *int64           `json:"cost"`
	LowStockThreshold *decimal.Decimal `json:"low_stock_threshold"`
	ClearThreshold    bool             `json:"clear_threshold"`
}

type quantityRequest struct {
	Quantity *decimal.Decimal `json:"quantity"`
}

type adjustRequest struct {
	Delta *decimal.Decimal `json:"delta"`
}

func (s *Server) CreateInventoryItem(c *gin.Context) {
	var req createInventoryItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.inventorySvc.CreateItem(c.Request.Context(), inventorydomain.CreateItemRequest{
		Name:              strings.TrimSpace(req.Name),
		Quantity:          req.Quantity,
		Unit:              strings.TrimSpace(req.Unit),
		Cost:              req.Cost,
		LowStockThreshold: req.LowStockThreshold,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdateInventoryItem(c *gin.Context) {
	var req updateInventoryItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.inventorySvc.UpdateItem(c.Request.Context(), inventorydomain.UpdateItemRequest{
		ID:                strings.TrimSpace(c.Param("itemId")),
		Name:              req.Name,
		Unit:              req.Unit,
		Cost:              req.Cost,
		LowStockThreshold: req.LowStockThreshold,
		ClearThreshold:    req.ClearThreshold,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInventoryItem(c *gin.Context) {
	resp, err := s.inventorySvc.GetItem(c.Request.Context(), strings.TrimSpace(c.Param("itemId")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListInventoryItems(c *gin.Context) {
	resp, err := s.inventorySvc.ListItems(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListLowStockItems(c *gin.Context) {
	resp, err := s.inventorySvc.ListLowStock(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SetInventoryQuantity(c *gin.Context) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.inventorySvc.SetQuantity(c.Request.Context(), strings.TrimSpace(c.Param("itemId")), *req.Quantity)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AdjustInventoryQuantity(c *gin.Context) {
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Delta == nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.inventorySvc.AdjustQuantity(c.Request.Context(), strings.TrimSpace(c.Param("itemId")), *req.Delta)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type inventoryUsageRequest struct {
	ItemID   string          `json:"item_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

func (s *Server) LogInventoryUsage(c *gin.Context) {
	var req inventoryUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.inventorySvc.LogUsageFromInventory(c.Request.Context(), inventorydomain.InventoryUsageRequest{
		ProjectID: strings.TrimSpace(c.Param("projectId")),
		ItemID:    strings.TrimSpace(req.ItemID),
		Quantity:  req.Quantity,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

type receiptUsageRequest struct {
	Items          []inventorydomain.ReceiptLine `json:"items"`
	ReceiptPhotoID string                        `json:"receipt_photo_id"`
	Receipt        string                        `json:"receipt"`
}

func (s *Server) LogReceiptUsage(c *gin.Context) {
	var req receiptUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var receipt *photo.Image
	if strings.TrimSpace(req.Receipt) != "" {
		img, err := photo.ParseDataURL(req.Receipt)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		receipt = &img
	}

	resp, err := s.inventorySvc.LogUsageFromReceipt(c.Request.Context(), inventorydomain.ReceiptUsageRequest{
		ProjectID:      strings.TrimSpace(c.Param("projectId")),
		Lines:          req.Items,
		ReceiptPhotoID: strings.TrimSpace(req.ReceiptPhotoID),
		Receipt:        receipt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListMaterialLogs(c *gin.Context) {
	resp, err := s.inventorySvc.ListMaterialLogs(c.Request.Context(), strings.TrimSpace(c.Param("projectId")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
