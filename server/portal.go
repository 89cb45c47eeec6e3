package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jupark12/fiado/models"
	"github.com/jupark12/fiado/store"
)

// GetPortal is the read-only account a client opens from its QR code
func (s *Server) GetPortal(c *gin.Context) {
	ctx := c.Request.Context()
	client, err := s.store.GetClientByAccessCode(ctx, c.Param("code"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	txs, err := s.store.ListTransactions(ctx, client.MerchantID, client.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	body := gin.H{
		"client": gin.H{
			"id":             client.ID,
			"nombre":         client.Name,
			"saldo_actual":   client.Balance,
			"limite_credito": client.CreditLimit,
			"avatar_url":     client.AvatarURL,
		},
		"transactions": txs,
	}
	merchant, err := s.store.GetMerchant(ctx, client.MerchantID)
	switch {
	case err == nil:
		body["merchant"] = gin.H{
			"nombre_comercio": merchant.Name,
			"telefono":        merchant.Phone,
			"logo_url":        merchant.LogoURL,
		}
	case !errors.Is(err, store.ErrNotFound):
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, body)
}

// PortalFeed upgrades to a websocket that receives the client's balance changes
func (s *Server) PortalFeed(c *gin.Context) {
	client, err := s.store.GetClientByAccessCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade to websocket", zap.Error(err))
		return
	}

	// Current balance goes out before the hub may write to conn
	if err := conn.WriteJSON(models.BalanceUpdate{
		Type:      "initial_balance",
		ClientID:  client.ID,
		Balance:   client.Balance,
		Timestamp: time.Now(),
	}); err != nil {
		conn.Close()
		return
	}

	s.wsManager.RegisterClient(client.ID, conn)
	if s.metrics != nil {
		s.metrics.PortalSubscribers.Inc()
	}

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.wsManager.UnregisterClient(client.ID, conn)
				if s.metrics != nil {
					s.metrics.PortalSubscribers.Dec()
				}
				return
			}
		}
	}()
}
