package httpapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/scout/core"
	"github.com/poiesic/scout/storage"
)

const (
	dateLayout       = "2006-01-02"
	defaultListLimit = 20
	maxListLimit     = 200
)

type handlers struct {
	svc    Service
	logger *slog.Logger
}

// discoverRequest is the JSON body of POST /v1/discover.
type discoverRequest struct {
	Term     string   `json:"term"`
	Country  string   `json:"country"`
	From     string   `json:"from" binding:"required"`
	To       string   `json:"to" binding:"required"`
	Industry []string `json:"industry"`
}

func (r discoverRequest) searchRequest() (core.SearchRequest, error) {
	from, err := time.Parse(dateLayout, r.From)
	if err != nil {
		return core.SearchRequest{}, fmt.Errorf("%w: from must be YYYY-MM-DD", core.ErrInvalidRequest)
	}
	to, err := time.Parse(dateLayout, r.To)
	if err != nil {
		return core.SearchRequest{}, fmt.Errorf("%w: to must be YYYY-MM-DD", core.ErrInvalidRequest)
	}
	return core.SearchRequest{
		Term:     r.Term,
		Country:  r.Country,
		From:     from,
		To:       to,
		Industry: r.Industry,
	}, nil
}

func (h *handlers) discover(c *gin.Context) {
	var body discoverRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}
	req, err := body.searchRequest()
	if err != nil {
		h.fail(c, err)
		return
	}

	res, err := h.svc.Discover(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) getRun(c *gin.Context) {
	res, err := h.svc.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) listRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	runs, err := h.svc.ListRuns(c.Request.Context(), min(limit, maxListLimit))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// fail maps err to a status code and writes it as a JSON error.
func (h *handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.FullPath(), "err", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNoResults), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrDeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *handlers) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	h.logger.Info("request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"latency", time.Since(start))
}
