package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/constructtrack/internal/geo"
	timetrackingdomain "github.com/smallbiznis/constructtrack/internal/timetracking/domain"
)

type locationPayload struct {
	Latitude  *float64 `json:"lat"`
	Longitude *float64 `json:"lng"`
	Accuracy  float64  `json:"accuracy"`
}

// locator turns a client-supplied fix into a geo.Locator. A missing fix
// records no location.
func (p *locationPayload) locator() geo.Locator {
	if p == nil || p.Latitude == nil || p.Longitude == nil {
		return nil
	}
	return geo.Fixed(*p.Latitude, *p.Longitude, p.Accuracy)
}

type clockInRequest struct {
	ProjectID string           `json:"project_id"`
	Location  *locationPayload `json:"location"`
}

type clockOutRequest struct {
	Location *locationPayload `json:"location"`
}

func (s *Server) ClockIn(c *gin.Context) {
	var req clockInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.timeSvc.ClockIn(c.Request.Context(), timetrackingdomain.ClockInRequest{
		UserID:    strings.TrimSpace(c.Param("userId")),
		ProjectID: strings.TrimSpace(req.ProjectID),
		Locator:   req.Location.locator(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ClockOut(c *gin.Context) {
	var req clockOutRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	resp, err := s.timeSvc.ClockOut(c.Request.Context(), timetrackingdomain.ClockOutRequest{
		UserID:  strings.TrimSpace(c.Param("userId")),
		Locator: req.Location.locator(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SwitchJob(c *gin.Context) {
	var req clockInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.timeSvc.SwitchJob(c.Request.Context(), timetrackingdomain.SwitchJobRequest{
		UserID:       strings.TrimSpace(c.Param("userId")),
		NewProjectID: strings.TrimSpace(req.ProjectID),
		Locator:      req.Location.locator(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetOpenLog(c *gin.Context) {
	resp, err := s.timeSvc.OpenLog(c.Request.Context(), strings.TrimSpace(c.Param("userId")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListUserTimeLogs(c *gin.Context) {
	from, err := parseOptionalTime(c.Query("from"), false)
	if err != nil {
		AbortWithError(c, newValidationError("from", "invalid_from", "invalid from"))
		return
	}
	to, err := parseOptionalTime(c.Query("to"), true)
	if err != nil {
		AbortWithError(c, newValidationError("to", "invalid_to", "invalid to"))
		return
	}

	resp, err := s.timeSvc.ListByUser(c.Request.Context(), strings.TrimSpace(c.Param("userId")), from, to)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListProjectTimeLogs(c *gin.Context) {
	resp, err := s.timeSvc.ListByProject(c.Request.Context(), strings.TrimSpace(c.Param("projectId")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
