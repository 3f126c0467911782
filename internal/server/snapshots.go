package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) ExportSnapshot(c *gin.Context) {
	if s.snapshotSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	resp, err := s.snapshotSvc.Export(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ImportSnapshot(c *gin.Context) {
	if s.snapshotSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	resp, err := s.snapshotSvc.Import(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSnapshotCollection(c *gin.Context) {
	if s.snapshotSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	raw, err := s.snapshotSvc.Collection(c.Request.Context(), strings.TrimSpace(c.Param("collection")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/json", raw)
}
