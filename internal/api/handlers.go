package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/atp-triage-server/internal/domain"
	"github.com/atp-triage-server/internal/service"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   "1.0.0",
	})
}

// handleTriage classifies one patient snapshot and returns the committed
// verdict record.
func (s *Server) handleTriage(c *gin.Context) {
	var input service.SnapshotInput
	if err := c.ShouldBindJSON(&input); err != nil {
		s.respondError(c, http.StatusBadRequest,
			domain.CodeInvalidInput, "Malformed JSON body", err.Error())
		return
	}

	record, err := s.classifier.Triage(c.Request.Context(), &input)
	if err != nil {
		s.respondClassifierError(c, err)
		return
	}

	s.hub.Broadcast(record)

	c.JSON(http.StatusOK, record)
}

// handleValidate checks a snapshot document without classifying it.
func (s *Server) handleValidate(c *gin.Context) {
	var input service.SnapshotInput
	if err := c.ShouldBindJSON(&input); err != nil {
		s.respondError(c, http.StatusBadRequest,
			domain.CodeInvalidInput, "Malformed JSON body", err.Error())
		return
	}

	if err := s.classifier.ValidateSnapshot(&input); err != nil {
		s.respondClassifierError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// handleGetVerdict retrieves a committed verdict by ID.
func (s *Server) handleGetVerdict(c *gin.Context) {
	id := c.Param("id")

	record, err := s.classifier.GetVerdict(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.respondError(c, http.StatusNotFound,
				domain.CodeNotFound, "Verdict not found", "")
			return
		}
		s.log.WithError(err).WithField("verdict_id", id).Error("Verdict lookup failed")
		s.respondError(c, http.StatusInternalServerError,
			domain.CodeStorageError, "Failed to retrieve verdict", "")
		return
	}

	c.JSON(http.StatusOK, record)
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// handleListVerdicts returns recent verdicts, newest first.
func (s *Server) handleListVerdicts(c *gin.Context) {
	limit, err := parseQueryInt(c, "limit", defaultListLimit)
	if err != nil || limit <= 0 || limit > maxListLimit {
		s.respondError(c, http.StatusBadRequest,
			domain.CodeInvalidInput, "Invalid limit parameter", "")
		return
	}
	offset, err := parseQueryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		s.respondError(c, http.StatusBadRequest,
			domain.CodeInvalidInput, "Invalid offset parameter", "")
		return
	}

	ctx := c.Request.Context()
	var records []*domain.TriageRecord
	if raw := c.Query("level"); raw != "" {
		level := domain.TriageLevel(strings.ToUpper(raw))
		if !level.IsValid() {
			s.respondError(c, http.StatusBadRequest,
				domain.CodeInvalidInput, "Invalid level parameter", "")
			return
		}
		if s.reader != nil {
			records, err = s.reader.ListByLevel(ctx, level, limit)
		} else {
			records, err = s.classifier.ListVerdictsByLevel(ctx, level, limit)
		}
	} else if s.reader != nil {
		records, err = s.reader.ListRecent(ctx, limit, offset)
	} else {
		records, err = s.classifier.ListVerdicts(ctx, limit, offset)
	}
	if err != nil {
		s.log.WithError(err).Error("Verdict listing failed")
		s.respondError(c, http.StatusInternalServerError,
			domain.CodeStorageError, "Failed to list verdicts", "")
		return
	}
	if records == nil {
		records = []*domain.TriageRecord{}
	}

	c.JSON(http.StatusOK, gin.H{
		"verdicts": records,
		"count":    len(records),
	})
}

// handleStats reports verdict totals, broken down per level when the
// read-side repository is available.
func (s *Server) handleStats(c *gin.Context) {
	ctx := c.Request.Context()

	total, err := s.classifier.CountVerdicts(ctx)
	if err != nil {
		s.log.WithError(err).Error("Verdict count failed")
		s.respondError(c, http.StatusInternalServerError,
			domain.CodeStorageError, "Failed to count verdicts", "")
		return
	}

	body := gin.H{"total": total}
	if s.reader != nil {
		counts, err := s.reader.CountByLevel(ctx)
		if err != nil {
			s.log.WithError(err).Error("Verdict level breakdown failed")
			s.respondError(c, http.StatusInternalServerError,
				domain.CodeStorageError, "Failed to count verdicts", "")
			return
		}
		byLevel := make(map[string]int64, len(counts))
		for level, n := range counts {
			byLevel[level.String()] = n
		}
		body["by_level"] = byLevel
	}

	c.JSON(http.StatusOK, body)
}

func parseQueryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

// respondClassifierError maps service-level errors onto the HTTP error
// envelope. Out-of-range inputs are distinguished from missing or malformed
// fields so callers can tell a typo from an implausible reading.
func (s *Server) respondClassifierError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrOutOfRangeInput):
		s.respondError(c, http.StatusUnprocessableEntity,
			domain.CodeOutOfRangeInput, "Vital sign out of plausible range", err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		s.respondError(c, http.StatusBadRequest,
			domain.CodeInvalidInput, "Invalid snapshot document", err.Error())
	default:
		s.log.WithError(err).Error("Triage request failed")
		s.respondError(c, http.StatusInternalServerError,
			domain.CodeInternalServer, "Internal server error", "")
	}
}

func (s *Server) respondError(c *gin.Context, status int, code, message, details string) {
	c.JSON(status, domain.NewAPIError(code, message, details, c.GetString("correlation_id")))
}
