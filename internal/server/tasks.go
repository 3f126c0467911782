package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	taskdomain "github.com/smallbiznis/constructtrack/internal/task/domain"
)

type createTaskRequest struct {
	AssigneeID  string     `json:"assignee_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
}

type updateTaskStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) CreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.taskSvc.Create(c.Request.Context(), taskdomain.CreateRequest{
		ProjectID:   strings.TrimSpace(c.Param("projectId")),
		AssigneeID:  strings.TrimSpace(req.AssigneeID),
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		DueDate:     req.DueDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "task.create", "task", resp.ID.String(), map[string]any{
		"project_id": resp.ProjectID.String(),
		"title":      resp.Title,
	})
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdateTaskStatus(c *gin.Context) {
	var req updateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.taskSvc.UpdateStatus(c.Request.Context(), strings.TrimSpace(c.Param("taskId")), strings.TrimSpace(req.Status))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "task.status_changed", "task", resp.ID.String(), map[string]any{
		"status": resp.Status,
	})
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
