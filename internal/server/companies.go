package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	companydomain "github.com/smallbiznis/constructtrack/internal/company/domain"
)

type createCompanyRequest struct {
	Name                 string           `json:"name"`
	Currency             string           `json:"currency"`
	Timezone             string           `json:"timezone"`
	DefaultMarkupPercent *decimal.Decimal `json:"default_markup_percent"`
}

func (s *Server) CreateCompany(c *gin.Context) {
	var req createCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.companySvc.Create(c.Request.Context(), companydomain.CreateRequest{
		Name:                 strings.TrimSpace(req.Name),
		Currency:             strings.TrimSpace(req.Currency),
		Timezone:             strings.TrimSpace(req.Timezone),
		DefaultMarkupPercent: req.DefaultMarkupPercent,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetCurrentCompany(c *gin.Context) {
	resp, err := s.companySvc.Current(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
