package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	userdomain "github.com/smallbiznis/constructtrack/internal/user/domain"
)

type createUserRequest struct {
	Name       string `json:"name"`
	Role       string `json:"role"`
	AccessRole string `json:"access_role"`
	HourlyRate int64  `json:"hourly_rate"`
}

type updateUserRequest struct {
	Name       *string `json:"name"`
	Role       *string `json:"role"`
	AccessRole *string `json:"access_role"`
	HourlyRate *int64  `json:"hourly_rate"`
}

func (s *Server) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.userSvc.Create(c.Request.Context(), userdomain.CreateRequest{
		Name:       strings.TrimSpace(req.Name),
		Role:       strings.TrimSpace(req.Role),
		AccessRole: strings.TrimSpace(req.AccessRole),
		HourlyRate: req.HourlyRate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "user.create", "user", resp.ID.String(), map[string]any{
		"name":        resp.Name,
		"access_role": resp.AccessRole,
		"hourly_rate": resp.HourlyRate,
	})
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.userSvc.Update(c.Request.Context(), userdomain.UpdateRequest{
		ID:         strings.TrimSpace(c.Param("userId")),
		Name:       req.Name,
		Role:       req.Role,
		AccessRole: req.AccessRole,
		HourlyRate: req.HourlyRate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "user.update", "user", resp.ID.String(), map[string]any{
		"access_role": resp.AccessRole,
		"hourly_rate": resp.HourlyRate,
	})
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetUser(c *gin.Context) {
	resp, err := s.userSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("userId")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListUsers(c *gin.Context) {
	resp, err := s.userSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
