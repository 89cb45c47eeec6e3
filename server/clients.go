package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/jupark12/fiado/ledger"
	"github.com/jupark12/fiado/models"
	"github.com/jupark12/fiado/store"
)

type merchantRequest struct {
	Name      string  `json:"nombre_comercio"`
	Phone     *string `json:"telefono"`
	LogoURL   *string `json:"logo_url"`
	AvatarURL *string `json:"avatar_url"`
	CoverURL  *string `json:"portada_url"`
}

type clientRequest struct {
	Name        string          `json:"nombre"`
	Phone       *string         `json:"telefono"`
	CreditLimit decimal.Decimal `json:"limite_credito"`
	Notes       *string         `json:"notas"`
	Email       *string         `json:"email"`
}

type avatarRequest struct {
	AvatarURL string `json:"avatar_url"`
}

func (s *Server) GetMerchant(c *gin.Context) {
	m, err := s.store.GetMerchant(c.Request.Context(), merchantFrom(c).MerchantID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (s *Server) PutMerchant(c *gin.Context) {
	var req merchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		badRequest(c, "nombre_comercio is required")
		return
	}

	mc := merchantFrom(c)
	m, err := s.store.UpsertMerchant(c.Request.Context(), models.Merchant{
		ID:        mc.MerchantID,
		UserID:    mc.UserID,
		Name:      name,
		Phone:     req.Phone,
		LogoURL:   req.LogoURL,
		AvatarURL: req.AvatarURL,
		CoverURL:  req.CoverURL,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// ListClients returns the active clients matching ?q= and the totals of all of them
func (s *Server) ListClients(c *gin.Context) {
	clients, err := s.store.ListClients(c.Request.Context(), merchantFrom(c).MerchantID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"clients": ledger.SearchClients(clients, strings.TrimSpace(c.Query("q"))),
		"summary": ledger.SummarizeClients(clients),
	})
}

func (s *Server) CreateClient(c *gin.Context) {
	var req clientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		badRequest(c, "nombre is required")
		return
	}
	if req.CreditLimit.IsNegative() {
		badRequest(c, "limite_credito cannot be negative")
		return
	}

	client, err := s.store.CreateClient(c.Request.Context(), models.Client{
		MerchantID:  merchantFrom(c).MerchantID,
		Name:        name,
		Phone:       req.Phone,
		CreditLimit: req.CreditLimit,
		Notes:       req.Notes,
		Email:       req.Email,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s.clientView(client))
}

func (s *Server) GetClient(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	client, err := s.store.GetClient(c.Request.Context(), merchantFrom(c).MerchantID, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.clientView(client))
}

func (s *Server) DeleteClient(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteClient(c.Request.Context(), merchantFrom(c).MerchantID, id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) UpdateAvatar(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req avatarRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.AvatarURL) == "" {
		badRequest(c, "avatar_url is required")
		return
	}
	if err := s.store.UpdateClientAvatar(c.Request.Context(), merchantFrom(c).MerchantID, id, req.AvatarURL); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"avatar_url": req.AvatarURL})
}

// AssignAccessCodes gives portal codes to clients created before codes existed
func (s *Server) AssignAccessCodes(c *gin.Context) {
	n, err := s.store.AssignMissingAccessCodes(c.Request.Context(), merchantFrom(c).MerchantID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assigned": n})
}

// GetStatement renders the account text and the WhatsApp link that shares it
func (s *Server) GetStatement(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	merchantID := merchantFrom(c).MerchantID

	client, err := s.store.GetClient(ctx, merchantID, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	txs, err := s.store.ListTransactions(ctx, merchantID, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	merchant, err := s.store.GetMerchant(ctx, merchantID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.respondError(c, err)
		return
	}

	text := ledger.StatementText(merchant, client, txs, time.Now())
	phone := ""
	if client.Phone != nil {
		phone = *client.Phone
	}
	c.JSON(http.StatusOK, gin.H{
		"text":         text,
		"whatsapp_url": ledger.WhatsAppLink(phone, text),
		"reminder":     ledger.ReminderText(client),
	})
}

func (s *Server) ListTransactions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	txs, err := s.store.ListTransactions(c.Request.Context(), merchantFrom(c).MerchantID, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs, "total_count": len(txs)})
}

func (s *Server) DeleteClientTransactions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	merchantID := merchantFrom(c).MerchantID

	n, err := s.store.DeleteClientTransactions(ctx, merchantID, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	balance := decimal.Zero
	if client, err := s.store.GetClient(ctx, merchantID, id); err == nil {
		balance = client.Balance
	}
	s.notifyBalance(id, balance)
	c.JSON(http.StatusOK, gin.H{"deleted": n, "balance": balance})
}

func (s *Server) DeleteTransaction(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	tx, balance, err := s.store.DeleteTransaction(c.Request.Context(), merchantFrom(c).MerchantID, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.notifyBalance(tx.ClientID, balance)
	c.JSON(http.StatusOK, gin.H{"transaction": tx, "balance": balance})
}

type clientView struct {
	models.Client
	HasDebt   bool   `json:"has_debt"`
	AtRisk    bool   `json:"at_risk"`
	PortalURL string `json:"portal_url,omitempty"`
}

func (s *Server) clientView(client models.Client) clientView {
	v := clientView{Client: client, HasDebt: client.HasDebt(), AtRisk: client.AtRisk()}
	if client.AccessCode != nil {
		v.PortalURL = strings.TrimRight(s.opts.PortalBaseURL, "/") + "/portal/" + *client.AccessCode
	}
	return v
}
