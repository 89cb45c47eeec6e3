package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jupark12/fiado/ledger"
	"github.com/jupark12/fiado/models"
)

type typeRequest struct {
	Type string `json:"type"`
}

// SuggestProducts filters the merchant's catalog by ?q=
func (s *Server) SuggestProducts(c *gin.Context) {
	catalog := ledger.LoadCatalog(c.Request.Context(), s.store, merchantFrom(c).MerchantID, s.logger)
	c.JSON(http.StatusOK, gin.H{
		"suggestions": ledger.Filter(catalog, c.Query("q"), s.opts.SuggestionLimit),
	})
}

// OpenEntry starts an entry session for a client. The body may pick the type.
func (s *Server) OpenEntry(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req typeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}

	merchant := merchantFrom(c)
	client, err := s.store.GetClient(c.Request.Context(), merchant.MerchantID, id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	session := ledger.NewEntrySession(merchant, client)
	if req.Type != "" {
		t, ok := models.ParseTransactionType(req.Type)
		if !ok {
			s.respondError(c, ledger.ErrInvalidType)
			return
		}
		if err := session.SetType(t); err != nil {
			s.respondError(c, err)
			return
		}
	}

	s.sessions.Add(session)
	if s.metrics != nil {
		s.metrics.OpenSessions.Inc()
	}
	c.JSON(http.StatusCreated, session.Preview())
}

// entry looks up the session in the path; it writes the 404 itself
func (s *Server) entry(c *gin.Context) (*ledger.EntrySession, bool) {
	id, ok := pathID(c, "id")
	if !ok {
		return nil, false
	}
	session, ok := s.sessions.Get(merchantFrom(c).MerchantID, id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		return nil, false
	}
	return session, true
}

func (s *Server) GetEntry(c *gin.Context) {
	session, ok := s.entry(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session.Preview())
}

func (s *Server) SetEntryType(c *gin.Context) {
	session, ok := s.entry(c)
	if !ok {
		return
	}
	var req typeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	t, ok := models.ParseTransactionType(req.Type)
	if !ok {
		s.respondError(c, ledger.ErrInvalidType)
		return
	}
	if err := session.SetType(t); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.Preview())
}

func (s *Server) AddEntryItem(c *gin.Context) {
	session, ok := s.entry(c)
	if !ok {
		return
	}
	var in ledger.ItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	item, err := session.AddItem(in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"item":       item,
		"price_mode": item.Mode().String(),
		"entry":      session.Preview(),
	})
}

func (s *Server) RemoveEntryItem(c *gin.Context) {
	session, ok := s.entry(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, "invalid index")
		return
	}
	if err := session.RemoveItem(index); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.Preview())
}

// SubmitEntry writes the cart as ledger rows. On failure the entry stays open
// with its cart so it can be sent again.
func (s *Server) SubmitEntry(c *gin.Context) {
	session, ok := s.entry(c)
	if !ok {
		return
	}

	result, err := session.Submit(c.Request.Context(), s.store)
	if err != nil {
		s.respondError(c, err)
		return
	}

	if s.sessions.Remove(session.ID) && s.metrics != nil {
		s.metrics.OpenSessions.Dec()
	}
	if s.metrics != nil {
		s.metrics.ObserveRows(result.Rows)
	}
	s.notifyBalance(session.ClientID(), result.Balance)
	s.logger.Info("entry submitted",
		zap.String("entry_id", session.ID.String()),
		zap.String("client_id", session.ClientID().String()),
		zap.Int("rows", len(result.Rows)),
		zap.String("balance", result.Balance.String()))

	c.JSON(http.StatusCreated, result)
}

// CancelEntry drops the entry without writing anything
func (s *Server) CancelEntry(c *gin.Context) {
	session, ok := s.entry(c)
	if !ok {
		return
	}
	session.Cancel()
	if s.sessions.Remove(session.ID) && s.metrics != nil {
		s.metrics.OpenSessions.Dec()
	}
	c.Status(http.StatusNoContent)
}
