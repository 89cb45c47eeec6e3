package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jupark12/fiado/ledger"
	"github.com/jupark12/fiado/queue"
	"github.com/jupark12/fiado/store"
)

// respondError maps domain errors to a status and a JSON body
func (s *Server) respondError(c *gin.Context, err error) {
	var validation *ledger.ValidationError
	var persistence *ledger.PersistenceError

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message, "code": validation.Kind.String()})
	case errors.As(err, &persistence):
		s.logger.Error("failed to record transaction", zap.Error(persistence.Err))
		if s.metrics != nil {
			s.metrics.SubmitFailures.Inc()
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": persistence.Error()})
	case errors.Is(err, ledger.ErrEmptyCart),
		errors.Is(err, ledger.ErrIndexOutOfRange),
		errors.Is(err, ledger.ErrInvalidType),
		errors.Is(err, store.ErrInvalidRows):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound), errors.Is(err, queue.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, ledger.ErrSubmitInFlight),
		errors.Is(err, ledger.ErrSessionClosed),
		errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
