package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(s.logger))
	router.Use(cors())

	router.GET("/health", s.Health)
	if s.opts.PrometheusEnabled && s.metrics != nil {
		router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
		s.logger.Info("/metrics endpoint registered")
	}

	portal := router.Group("/portal")
	{
		portal.GET("/:code", s.GetPortal)
		portal.GET("/:code/ws", s.PortalFeed)
	}

	v1 := router.Group("/api/v1", requireMerchant())
	{
		v1.GET("/merchant", s.GetMerchant)
		v1.PUT("/merchant", s.PutMerchant)

		v1.GET("/clients", s.ListClients)
		v1.POST("/clients", s.CreateClient)
		v1.POST("/clients/access-codes", s.AssignAccessCodes)
		v1.GET("/clients/:id", s.GetClient)
		v1.DELETE("/clients/:id", s.DeleteClient)
		v1.PUT("/clients/:id/avatar", s.UpdateAvatar)
		v1.GET("/clients/:id/statement", s.GetStatement)
		v1.GET("/clients/:id/transactions", s.ListTransactions)
		v1.DELETE("/clients/:id/transactions", s.DeleteClientTransactions)
		v1.POST("/clients/:id/entries", s.OpenEntry)
		v1.POST("/clients/:id/imports", s.UploadStatement)

		v1.DELETE("/transactions/:id", s.DeleteTransaction)

		v1.GET("/catalog", s.SuggestProducts)

		v1.GET("/entries/:id", s.GetEntry)
		v1.PUT("/entries/:id/type", s.SetEntryType)
		v1.POST("/entries/:id/items", s.AddEntryItem)
		v1.DELETE("/entries/:id/items/:index", s.RemoveEntryItem)
		v1.POST("/entries/:id/submit", s.SubmitEntry)
		v1.DELETE("/entries/:id", s.CancelEntry)

		v1.GET("/imports", s.ListImports)
		v1.GET("/imports/:id", s.GetImport)
	}

	return router
}

// Health reports the process is serving
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"open_entries": s.sessions.Len(),
		"workers":      len(s.workers),
		"busy_workers": s.busyWorkers(),
	})
}

func (s *Server) busyWorkers() int {
	n := 0
	for _, w := range s.workers {
		if w.Processing() {
			n++
		}
	}
	return n
}
