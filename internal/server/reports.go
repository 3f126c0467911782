package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/constructtrack/internal/report"
)

const contentTypePDF = "application/pdf"

func (s *Server) GetWeeklyPayroll(c *gin.Context) {
	if s.reportSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	resp, err := s.reportSvc.WeeklyPayroll(c.Request.Context(), strings.TrimSpace(c.Param("userId")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DownloadWeeklyPayroll(c *gin.Context) {
	if s.reportSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	doc, err := s.reportSvc.WeeklyPayrollPDF(c.Request.Context(), strings.TrimSpace(c.Param("userId")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.sendDocument(c, doc)
}

func (s *Server) GetProjectSummary(c *gin.Context) {
	if s.reportSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	resp, err := s.reportSvc.ProjectSummary(c.Request.Context(), strings.TrimSpace(c.Param("projectId")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DownloadProjectReport(c *gin.Context) {
	if s.reportSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	doc, err := s.reportSvc.ProjectReportPDF(c.Request.Context(), strings.TrimSpace(c.Param("projectId")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.sendDocument(c, doc)
}

func (s *Server) DownloadInvoice(c *gin.Context) {
	if s.reportSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	doc, err := s.reportSvc.InvoicePDF(c.Request.Context(), strings.TrimSpace(c.Param("invoiceId")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.sendDocument(c, doc)
}

func (s *Server) sendDocument(c *gin.Context, doc *report.Document) {
	body, err := io.ReadAll(doc.Content)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	c.Data(http.StatusOK, contentTypePDF, body)
}
