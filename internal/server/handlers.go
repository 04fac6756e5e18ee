package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"

	"github.com/homemade/remap/internal/rulestore"
	"github.com/homemade/remap/mapping"
)

const maxBodyBytes = 8 << 20

func (s *Server) process(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		abortWithError(c, http.StatusBadRequest, "missing_code", "query parameter 'code' is required")
		return
	}
	body, ok := readBody(c)
	if !ok {
		return
	}
	if !gjson.ValidBytes(body) {
		abortWithError(c, http.StatusBadRequest, "invalid_body", "request body is not valid json")
		return
	}
	source := gjson.GetBytes(body, "source")
	if !source.Exists() {
		abortWithError(c, http.StatusBadRequest, "invalid_body", "'source' is required")
		return
	}
	var template []byte
	if t := gjson.GetBytes(body, "targetTemplate"); t.Exists() && t.Type != gjson.Null {
		template = []byte(t.Raw)
	}

	start := time.Now()
	result, invalid, err := s.executor.ExecuteJSON(code, []byte(source.Raw), template)
	if err != nil {
		if errors.Is(err, mapping.ErrRuleSetNotFound) {
			s.metrics.observeExecution(code, "not_found", 0, 0)
			abortWithError(c, http.StatusNotFound, "rule_set_not_found", err.Error())
			return
		}
		s.metrics.observeExecution(code, "error", 0, 0)
		abortWithError(c, http.StatusBadRequest, "invalid_document", err.Error())
		return
	}
	s.metrics.observeExecution(code, "ok", time.Since(start).Seconds(), invalid.Len())
	if invalid.Len() > 0 {
		requestLogger(c, s.logger).Info("fields skipped", slog.String("code", code), slog.Any("invalidFields", invalid.Paths()))
	}
	c.JSON(http.StatusOK, gin.H{
		"code":          code,
		"result":        json.RawMessage(result),
		"invalidFields": invalid,
	})
}

func (s *Server) listRules(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusOK, gin.H{"codes": s.registry.Codes()})
		return
	}
	codes, err := s.store.Codes(c.Request.Context())
	if err != nil {
		s.storeError(c, err)
		return
	}
	if codes == nil {
		codes = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"codes": codes})
}

func (s *Server) getRule(c *gin.Context) {
	code := c.Param("code")
	if s.store == nil {
		set, ok := s.registry.Get(code)
		if !ok {
			abortWithError(c, http.StatusNotFound, "rule_set_not_found", "rule set not found: '"+code+"'")
			return
		}
		c.JSON(http.StatusOK, set.Config())
		return
	}
	row, err := s.store.Get(c.Request.Context(), code)
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.Header("X-Rule-Set-Version", strconv.Itoa(row.Version))
	c.Data(http.StatusOK, "application/json", []byte(row.Document))
}

func (s *Server) createRule(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	body, ok := readBody(c)
	if !ok {
		return
	}
	set, ok := s.compileDocument(c, body)
	if !ok {
		return
	}
	if err := s.store.Create(c.Request.Context(), set.Code(), body); err != nil {
		s.storeError(c, err)
		return
	}
	s.install(c, set)
	c.JSON(http.StatusCreated, gin.H{"code": set.Code(), "mappings": set.Len()})
}

func (s *Server) replaceRule(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	body, ok := readBody(c)
	if !ok {
		return
	}
	set, ok := s.compileDocument(c, body)
	if !ok {
		return
	}
	if set.Code() != c.Param("code") {
		abortWithError(c, http.StatusBadRequest, "code_mismatch", "document code '"+set.Code()+"' does not match '"+c.Param("code")+"'")
		return
	}
	if err := s.store.Save(c.Request.Context(), set.Code(), body); err != nil {
		s.storeError(c, err)
		return
	}
	s.install(c, set)
	c.JSON(http.StatusOK, gin.H{"code": set.Code(), "mappings": set.Len()})
}

func (s *Server) deleteRule(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	code := c.Param("code")
	if err := s.store.Delete(c.Request.Context(), code); err != nil {
		s.storeError(c, err)
		return
	}
	s.registry.Clear(code)
	s.metrics.SetRuleSets(s.registry.Len())
	c.Status(http.StatusNoContent)
}

func (s *Server) putMapping(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	var rule mapping.FieldRuleConfig
	if err := c.ShouldBindJSON(&rule); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	s.editDocument(c, func(doc []byte) ([]byte, error) {
		return mapping.PatchMapping(doc, rule)
	})
}

func (s *Server) deleteMapping(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	targetPath := c.Query("targetPath")
	if targetPath == "" {
		abortWithError(c, http.StatusBadRequest, "missing_target_path", "query parameter 'targetPath' is required")
		return
	}
	s.editDocument(c, func(doc []byte) ([]byte, error) {
		return mapping.RemoveMapping(doc, targetPath)
	})
}

func (s *Server) editDocument(c *gin.Context, edit func([]byte) ([]byte, error)) {
	ctx := c.Request.Context()
	code := c.Param("code")
	row, err := s.store.Get(ctx, code)
	if err != nil {
		s.storeError(c, err)
		return
	}
	edited, err := edit([]byte(row.Document))
	if err != nil {
		if errors.Is(err, mapping.ErrMappingNotFound) {
			abortWithError(c, http.StatusNotFound, "mapping_not_found", err.Error())
			return
		}
		abortWithError(c, http.StatusBadRequest, "invalid_rule_set", err.Error())
		return
	}
	set, ok := s.compileDocument(c, edited)
	if !ok {
		return
	}
	if err := s.store.Save(ctx, code, edited); err != nil {
		s.storeError(c, err)
		return
	}
	s.install(c, set)
	c.Data(http.StatusOK, "application/json", edited)
}

func (s *Server) ruleDoc(c *gin.Context) {
	set, ok := s.registry.Get(c.Param("code"))
	if !ok {
		abortWithError(c, http.StatusNotFound, "rule_set_not_found", "rule set not found: '"+c.Param("code")+"'")
		return
	}
	csv, err := mapping.GenerateRuleDocumentation(set).FormatCSV()
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "doc_failed", err.Error())
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+set.Code()+`.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(csv))
}

func (s *Server) requireStore(c *gin.Context) bool {
	if s.store == nil {
		abortWithError(c, http.StatusNotImplemented, "store_unavailable", "rule writes need a rule store")
		return false
	}
	return true
}

func (s *Server) compileDocument(c *gin.Context, body []byte) (*mapping.RuleSet, bool) {
	cfg, err := mapping.ParseRuleSetJSON(body)
	if err == nil {
		var set *mapping.RuleSet
		if set, err = cfg.Compile(); err == nil {
			return set, true
		}
	}
	abortWithError(c, http.StatusBadRequest, "invalid_rule_set", err.Error())
	return nil, false
}

func (s *Server) install(c *gin.Context, set *mapping.RuleSet) {
	if err := s.registry.Register(set); err != nil {
		requestLogger(c, s.logger).Error("failed to register rule set", slog.String("code", set.Code()), slog.String("error", err.Error()))
	}
	s.metrics.SetRuleSets(s.registry.Len())
}

func (s *Server) storeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, rulestore.ErrNotFound):
		abortWithError(c, http.StatusNotFound, "rule_set_not_found", err.Error())
	case errors.Is(err, rulestore.ErrAlreadyExists):
		abortWithError(c, http.StatusConflict, "rule_set_exists", err.Error())
	default:
		requestLogger(c, s.logger).Error("rule store error", slog.String("error", err.Error()))
		abortWithError(c, http.StatusInternalServerError, "store_error", "rule store unavailable")
	}
}

func readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid_body", err.Error())
		return nil, false
	}
	if len(body) == 0 {
		abortWithError(c, http.StatusBadRequest, "invalid_body", "request body is empty")
		return nil, false
	}
	return body, true
}
