package api

import (
	"errors"
	"net/http"

	"CricketSync/internal/interfaces"
	"CricketSync/internal/logging"
	"CricketSync/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// MatchHandler 比赛查询接口（只读）
type MatchHandler struct {
	reader interfaces.MatchReader
	logger *logrus.Logger
}

// NewMatchHandler 创建 MatchHandler
func NewMatchHandler(reader interfaces.MatchReader, logger *logrus.Logger) *MatchHandler {
	return &MatchHandler{
		reader: reader,
		logger: logger,
	}
}

// ListMatches 全部比赛（含比分）
// GET /matches
func (h *MatchHandler) ListMatches(c *gin.Context) {
	matches, err := h.reader.ListMatches(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("ListMatches failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, matches)
}

// ListCurrentMatches 已开始的比赛（status 不是 "Match not started"）
// GET /current-matches
func (h *MatchHandler) ListCurrentMatches(c *gin.Context) {
	matches, err := h.reader.ListCurrentMatches(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("ListCurrentMatches failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, matches)
}

// GetMatch 单场比赛
// GET /matches/:id
func (h *MatchHandler) GetMatch(c *gin.Context) {
	id := c.Param("id")
	match, err := h.reader.GetMatch(c.Request.Context(), id)
	if errors.Is(err, repository.ErrMatchNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField(logging.FieldMatchID, id).Error("GetMatch failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, match)
}
