package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/constructtrack/internal/photo"
	projectdomain "github.com/smallbiznis/constructtrack/internal/project/domain"
)

// Images travel as data URLs, "data:image/png;base64,...".
type addPhotosRequest struct {
	Images      []string `json:"images"`
	Description string   `json:"description"`
}

type replacePhotoRequest struct {
	Image string `json:"image"`
}

func parseImages(raw []string) ([]photo.Image, error) {
	images := make([]photo.Image, 0, len(raw))
	for _, value := range raw {
		img, err := photo.ParseDataURL(value)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

func (s *Server) AddProjectPhotos(c *gin.Context) {
	var req addPhotosRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	images, err := parseImages(req.Images)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.projectSvc.AddPhotos(c.Request.Context(), projectdomain.AddPhotosRequest{
		ProjectID:   strings.TrimSpace(c.Param("projectId")),
		Images:      images,
		Description: strings.TrimSpace(req.Description),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) AddPunchListPhotos(c *gin.Context) {
	var req addPhotosRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	images, err := parseImages(req.Images)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.projectSvc.AddPunchListPhotos(c.Request.Context(), projectdomain.AddPhotosRequest{
		ProjectID:       strings.TrimSpace(c.Param("projectId")),
		PunchListItemID: strings.TrimSpace(c.Param("itemId")),
		Images:          images,
		Description:     strings.TrimSpace(req.Description),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdatePunchListPhoto(c *gin.Context) {
	var req replacePhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	img, err := photo.ParseDataURL(req.Image)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.projectSvc.UpdatePunchListPhoto(c.Request.Context(),
		strings.TrimSpace(c.Param("projectId")),
		strings.TrimSpace(c.Param("itemId")),
		strings.TrimSpace(c.Param("photoId")),
		img,
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetPhoto streams the stored image bytes, or the data URL with ?format=data_url.
func (s *Server) GetPhoto(c *gin.Context) {
	meta, img, err := s.projectSvc.GetPhoto(c.Request.Context(),
		strings.TrimSpace(c.Param("projectId")),
		strings.TrimSpace(c.Param("photoId")),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if strings.EqualFold(c.Query("format"), "data_url") {
		c.JSON(http.StatusOK, gin.H{"data": meta, "image": img.DataURL()})
		return
	}
	c.Data(http.StatusOK, img.ContentType, img.Data)
}
