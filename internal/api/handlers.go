// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pdiddy/recog-engine/internal/recognition"
)

type textRequest struct {
	Text        string `json:"text"`
	Institution string `json:"institution"`
	Limit       int    `json:"limit"`
}

// selectRequest accepts each module either as a JSON object or as a
// string holding one, the way the web form posts it.
type selectRequest struct {
	SelectedModule json.RawMessage `json:"selected_module"`
	ExternalModule json.RawMessage `json:"external_module"`
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleExtract returns the module record for {text}. Extraction never
// fails; a failed model call shows up in the record's error field.
func (s *Server) handleExtract(c *gin.Context) {
	req, ok := s.bindText(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.extractor.ModuleInfo(c.Request.Context(), req.Text))
}

// handleSuggestions ranks catalog modules for {text, institution, limit}.
// text is used as the query verbatim.
func (s *Server) handleSuggestions(c *gin.Context) {
	req, ok := s.bindText(c)
	if !ok {
		return
	}
	out, err := s.ranker.Suggestions(c.Request.Context(), req.Text, req.Institution, req.Limit)
	if err != nil {
		s.fail(c, http.StatusBadGateway, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": out})
}

func (s *Server) handleFind(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	res, err := s.workflows.Find(c.Request.Context(), req.Text, req.Institution)
	if err != nil {
		s.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleSelect(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	selected, err := moduleDocument("selected_module", req.SelectedModule)
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	external, err := moduleDocument("external_module", req.ExternalModule)
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}

	res, err := s.workflows.Select(c.Request.Context(), selected, external)
	if err != nil {
		s.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) bindText(c *gin.Context) (textRequest, bool) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return req, false
	}
	req.Text = recognition.Truncate(req.Text, s.maxInput)
	if strings.TrimSpace(req.Text) == "" {
		s.fail(c, http.StatusBadRequest, recognition.ErrEmptyInput)
		return req, false
	}
	return req, true
}

func (s *Server) fail(c *gin.Context, status int, err error) {
	s.logger.Warn("request failed",
		zap.Int("status", status),
		zap.String("request_id", c.GetString(RequestIDHeader)),
		zap.Error(err),
	)
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// statusFor maps workflow errors to HTTP statuses: caller mistakes are 400,
// everything else came from the model or the index.
func statusFor(err error) int {
	switch {
	case errors.Is(err, recognition.ErrEmptyInput), errors.Is(err, recognition.ErrInvalidModule):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func moduleDocument(field string, raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", errors.New(field + " is required")
	}
	if raw[0] != '"' {
		return string(raw), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}
	return s, nil
}
