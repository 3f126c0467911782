package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	projectdomain "github.com/smallbiznis/constructtrack/internal/project/domain"
)

type createProjectRequest struct {
	Name          string           `json:"name"`
	Address       string           `json:"address"`
	Type          string           `json:"type"`
	Status        string           `json:"status"`
	StartDate     *time.Time       `json:"start_date"`
	EndDate       *time.Time       `json:"end_date"`
	Budget        int64            `json:"budget"`
	MarkupPercent *decimal.Decimal `json:"markup_percent"`
}

type updateProjectRequest struct {
	Name          *string          `json:"name"`
	Address       *string          `json:"address"`
	Type          *string          `json:"type"`
	Status        *string          `json:"status"`
	StartDate     *time.Time       `json:"start_date"`
	EndDate       *time.Time       `json:"end_date"`
	Budget        *int64           `json:"budget"`
	MarkupPercent *decimal.Decimal `json:"markup_percent"`
}

func (s *Server) CreateProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.projectSvc.Create(c.Request.Context(), projectdomain.CreateRequest{
		Name:          strings.TrimSpace(req.Name),
		Address:       strings.TrimSpace(req.Address),
		Type:          strings.TrimSpace(req.Type),
		Status:        strings.TrimSpace(req.Status),
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Budget:        req.Budget,
		MarkupPercent: req.MarkupPercent,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdateProject(c *gin.Context) {
	var req updateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.projectSvc.Update(c.Request.Context(), projectdomain.UpdateRequest{
		ID:            strings.TrimSpace(c.Param("projectId")),
		Name:          req.Name,
		Address:       req.Address,
		Type:          req.Type,
		Status:        req.Status,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Budget:        req.Budget,
		MarkupPercent: req.MarkupPercent,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetProject(c *gin.Context) {
	resp, err := s.projectSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("projectId")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListProjects(c *gin.Context) {
	resp, err := s.projectSvc.List(c.Request.Context(), strings.TrimSpace(c.Query("status")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteProject(c *gin.Context) {
	if err := s.projectSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("projectId"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type punchListItemRequest struct {
	Text string `json:"text"`
}

func (s *Server) AddPunchListItem(c *gin.Context) {
	var req punchListItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.projectSvc.AddPunchListItem(c.Request.Context(), strings.TrimSpace(c.Param("projectId")), req.Text)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) TogglePunchListItem(c *gin.Context) {
	resp, err := s.projectSvc.TogglePunchListItem(c.Request.Context(),
		strings.TrimSpace(c.Param("projectId")),
		strings.TrimSpace(c.Param("itemId")),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListProjectTasks(c *gin.Context) {
	resp, err := s.taskSvc.ListByProject(c.Request.Context(), strings.TrimSpace(c.Param("projectId")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
