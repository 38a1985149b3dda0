package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/primendon/dailycut/internal/collector"
	"github.com/primendon/dailycut/internal/digest"
	"github.com/primendon/dailycut/internal/logging"
	"github.com/primendon/dailycut/internal/notify"
	"github.com/primendon/dailycut/internal/processor"
	"github.com/primendon/dailycut/internal/storage"
)

// Refresher 聚合器对 API 层暴露的最小接口
type Refresher interface {
	Refresh(ctx context.Context) []processor.ContentItem
	ForceRefresh(ctx context.Context) []processor.ContentItem
}

type Server struct {
	feed     Refresher
	settings storage.SettingsStore
	mailer   *notify.Mailer
	metrics  http.Handler
	log      logging.Logger
}

func NewServer(feed Refresher, settings storage.SettingsStore, mailer *notify.Mailer, metricsHandler http.Handler, log logging.Logger) *Server {
	return &Server{
		feed:     feed,
		settings: settings,
		mailer:   mailer,
		metrics:  metricsHandler,
		log:      log,
	}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics))
	}

	v1 := r.Group("/api/v1")
	{
		v1.GET("/feed", s.getFeed)
		v1.GET("/podcasts", s.getPodcasts)
		v1.GET("/interviews", s.getInterviews)
		v1.GET("/awards", s.getAwards)
		v1.GET("/awards/countdown", s.getAwardCountdown)
		v1.GET("/settings", s.getSettings)
		v1.PUT("/settings", s.updateSettings)
		v1.POST("/refresh", s.forceRefresh)
		v1.POST("/digest/send", s.sendDigest)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"components": gin.H{
			"mailer":  s.mailer.Enabled(),
			"metrics": s.metrics != nil,
		},
	})
}

func (s *Server) getFeed(c *gin.Context) {
	items := s.feed.Refresh(c.Request.Context())

	limitStr := c.DefaultQuery("limit", "0")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 0 {
		limit = 0
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    items,
	})
}

func (s *Server) getPodcasts(c *gin.Context) {
	items := s.feed.Refresh(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    filterKind(items, collector.KindPodcastSummary),
	})
}

func (s *Server) getInterviews(c *gin.Context) {
	st, err := s.settings.GetSettings()
	if err == nil && len(st.Interests) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"code":    "ok",
			"message": "No interests configured",
			"data":    []processor.ContentItem{},
		})
		return
	}

	items := s.feed.Refresh(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    filterKind(items, collector.KindInterview),
	})
}

func (s *Server) getAwards(c *gin.Context) {
	items := s.feed.Refresh(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    filterKind(items, collector.KindHeadline),
	})
}

func (s *Server) getAwardCountdown(c *gin.Context) {
	upcoming := digest.UpcomingShows(time.Now())
	if len(upcoming) > 5 {
		upcoming = upcoming[:5]
	}

	var next *digest.Countdown
	if len(upcoming) > 0 {
		next = &upcoming[0]
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data": gin.H{
			"next":     next,
			"upcoming": upcoming,
		},
	})
}

func (s *Server) getSettings(c *gin.Context) {
	st, err := s.settings.GetSettings()
	if err != nil {
		s.log.Errorf("api: load settings: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    st,
	})
}

type settingsRequest struct {
	Interests []string `json:"interests"`
	Blocked   []string `json:"blocked"`
	AwardMode bool     `json:"awardMode"`
}

func (s *Server) updateSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "invalid_request",
			"message": "invalid settings payload",
		})
		return
	}

	st, err := s.settings.SaveSettings(storage.Settings{
		Interests: req.Interests,
		Blocked:   req.Blocked,
		AwardMode: req.AwardMode,
	})
	if err != nil {
		s.log.Errorf("api: save settings: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    st,
	})
}

func (s *Server) forceRefresh(c *gin.Context) {
	items := s.feed.ForceRefresh(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data": gin.H{
			"count": len(items),
			"items": items,
		},
	})
}

func (s *Server) sendDigest(c *gin.Context) {
	if !s.mailer.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code":    "mailer_disabled",
			"message": "email delivery is not configured",
		})
		return
	}

	items := s.feed.Refresh(c.Request.Context())
	id, err := s.mailer.SendDigest(c.Request.Context(), items, digest.NextShow(time.Now()))
	if err != nil {
		s.log.Errorf("api: send digest: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "send_failed",
			"message": "failed to send digest email",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    gin.H{"id": id, "count": len(items)},
	})
}

func filterKind(items []processor.ContentItem, kind collector.SourceKind) []processor.ContentItem {
	out := make([]processor.ContentItem, 0, len(items))
	for _, it := range items {
		if it.Kind == kind {
			out = append(out, it)
		}
	}
	return out
}
