package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jupark12/fiado/models"
	"github.com/jupark12/fiado/queue"
)

const maxUploadSize = 10 << 20

// UploadStatement stores a PDF ledger and queues it for import into a client's account
func (s *Server) UploadStatement(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	merchantID := merchantFrom(c).MerchantID
	if _, err := s.store.GetClient(c.Request.Context(), merchantID, id); err != nil {
		s.respondError(c, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	header, err := c.FormFile("pdfFile")
	if err != nil {
		badRequest(c, "Missing PDF file")
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		badRequest(c, "pdfFile must be a .pdf")
		return
	}

	if err := os.MkdirAll(s.opts.UploadDir, 0755); err != nil {
		s.logger.Error("failed to create upload directory", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create upload directory"})
		return
	}

	filePath := filepath.Join(s.opts.UploadDir, uuid.NewString()+"_"+filepath.Base(header.Filename))
	if err := c.SaveUploadedFile(header, filePath); err != nil {
		s.logger.Error("failed to save upload", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file"})
		return
	}

	job, err := s.queue.EnqueueJob(merchantID, id, filePath)
	if err != nil {
		s.logger.Error("failed to enqueue import", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue job"})
		return
	}
	c.JSON(http.StatusCreated, job)
}

// ListImports returns the merchant's import jobs, optionally by ?status=
func (s *Server) ListImports(c *gin.Context) {
	var jobs []*models.ImportJob
	if status := c.Query("status"); status != "" {
		var err error
		jobs, err = s.queue.GetJobsByStatus(models.JobStatus(status))
		if err != nil {
			badRequest(c, "Invalid status parameter")
			return
		}
	} else {
		jobs = s.queue.GetAllJobs()
	}

	merchantID := merchantFrom(c).MerchantID
	own := make([]*models.ImportJob, 0, len(jobs))
	for _, job := range jobs {
		if job.MerchantID == merchantID {
			own = append(own, job)
		}
	}
	c.JSON(http.StatusOK, gin.H{"jobs": own, "total_count": len(own)})
}

func (s *Server) GetImport(c *gin.Context) {
	job, err := s.queue.GetJob(c.Param("id"))
	if err == nil && job.MerchantID != merchantFrom(c).MerchantID {
		err = queue.ErrJobNotFound
	}
	if err != nil {
		if !errors.Is(err, queue.ErrJobNotFound) {
			s.logger.Error("failed to get import job", zap.Error(err))
		}
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}
