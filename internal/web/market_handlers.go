package web

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akravets/coinboard/pkg/logger"
	"github.com/akravets/coinboard/pkg/models"
)

func (s *Server) handleListCryptos(c *gin.Context) {
	assets, err := s.market.ListAssets(c.Request.Context())
	if err != nil {
		logger.Error("failed to list assets", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load assets"})
		return
	}
	c.JSON(http.StatusOK, assets)
}

func (s *Server) handleGraphDetails(c *gin.Context) {
	id := c.Param("id")

	period, err := strconv.Atoi(c.DefaultQuery("period", "7"))
	if err != nil || period <= 0 || period > 365 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "period must be a number of days between 1 and 365"})
		return
	}

	details, err := s.graphs.Details(c.Request.Context(), id, period)
	if err != nil {
		logger.Error("failed to build graph details",
			zap.String("id", id),
			zap.Int("period", period),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load graph data"})
		return
	}
	c.JSON(http.StatusOK, details)
}

func (s *Server) handleIndicatorGraph(c *gin.Context) {
	id := c.Param("id")

	kind := models.IndicatorKind(c.Param("kind"))
	if kind != models.IndicatorRSI && kind != models.IndicatorSMA {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be rsi or sma"})
		return
	}

	symbol, points, err := s.indicators.Graph(c.Request.Context(), id, kind)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no indicator data for this asset"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":              symbol,
		string(kind) + "Data": points,
	})
}

func (s *Server) handleListNews(c *gin.Context) {
	limit := s.newsLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	articles, err := s.news.ListRecent(c.Request.Context(), limit)
	if err != nil {
		logger.Error("failed to list news", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load news"})
		return
	}
	c.JSON(http.StatusOK, articles)
}
