package rest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Guyuepp/likers-match/domain"
	"github.com/Guyuepp/likers-match/internal/rest/request"
	"github.com/Guyuepp/likers-match/internal/rest/response"
)

// LikersHandler represent the httphandler for the likers feed
type LikersHandler struct {
	Sessions domain.FeedSessions
}

func NewLikersHandler(sessions domain.FeedSessions) *LikersHandler {
	return &LikersHandler{
		Sessions: sessions,
	}
}

// GetLikers loads the feed on first use and returns it with the query filter applied
func (h *LikersHandler) GetLikers(c *gin.Context) {
	viewer, ok := viewerID(c)
	if !ok {
		abortUnauthenticated(c)
		return
	}

	var req request.FeedFilter
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
		return
	}

	feed, err := h.Sessions.Feed(c.Request.Context(), viewer)
	if err != nil {
		c.JSON(getStatusCode(err), ResponseError{Message: err.Error()})
		return
	}

	snap := feed.View(req.ToDomain())
	c.JSON(http.StatusOK, response.NewFeedFromDomain(&snap))
}

// More reads the next ledger page into the feed
func (h *LikersHandler) More(c *gin.Context) {
	h.withFeed(c, func(c *gin.Context, feed domain.FeedUsecase) error {
		return feed.Refill(c.Request.Context())
	})
}

// Refetch drops the feed and loads it from the first page again
func (h *LikersHandler) Refetch(c *gin.Context) {
	h.withFeed(c, func(c *gin.Context, feed domain.FeedUsecase) error {
		return feed.Refetch(c.Request.Context())
	})
}

// MarkConsumed consumes the pending like eventId without a like-back or pass
func (h *LikersHandler) MarkConsumed(c *gin.Context) {
	eventID := c.Param("eventId")
	if eventID == "" {
		c.JSON(http.StatusBadRequest, ResponseError{Message: domain.ErrBadParamInput.Error()})
		return
	}
	h.withFeed(c, func(c *gin.Context, feed domain.FeedUsecase) error {
		return feed.MarkConsumed(c.Request.Context(), eventID)
	})
}

func (h *LikersHandler) withFeed(c *gin.Context, fn func(*gin.Context, domain.FeedUsecase) error) {
	viewer, ok := viewerID(c)
	if !ok {
		abortUnauthenticated(c)
		return
	}

	feed, err := h.Sessions.Feed(c.Request.Context(), viewer)
	if err != nil {
		c.JSON(getStatusCode(err), ResponseError{Message: err.Error()})
		return
	}
	if err := fn(c, feed); err != nil {
		c.JSON(getStatusCode(err), ResponseError{Message: err.Error()})
		return
	}

	snap := feed.Snapshot()
	c.JSON(http.StatusOK, response.NewFeedFromDomain(&snap))
}

// CloseSession tears down the viewer's feed session
func (h *LikersHandler) CloseSession(c *gin.Context) {
	viewer, ok := viewerID(c)
	if !ok {
		abortUnauthenticated(c)
		return
	}
	h.Sessions.Close(viewer)
	c.Status(http.StatusNoContent)
}

// LikeBack turns the pending like eventId into a match
func (h *LikersHandler) LikeBack(c *gin.Context) {
	h.decide(c, domain.MatchUsecase.LikeBack)
}

// Pass declines the pending like eventId
func (h *LikersHandler) Pass(c *gin.Context) {
	h.decide(c, domain.MatchUsecase.Pass)
}

type decision func(domain.MatchUsecase, context.Context, string) (domain.Outcome, error)

func (h *LikersHandler) decide(c *gin.Context, fn decision) {
	viewer, ok := viewerID(c)
	if !ok {
		abortUnauthenticated(c)
		return
	}
	eventID := c.Param("eventId")
	if eventID == "" {
		c.JSON(http.StatusBadRequest, ResponseError{Message: domain.ErrBadParamInput.Error()})
		return
	}

	ctx := c.Request.Context()
	coord, err := h.Sessions.Coordinator(ctx, viewer)
	if err != nil {
		c.JSON(getStatusCode(err), ResponseError{Message: err.Error()})
		return
	}

	out, err := fn(coord, ctx, eventID)
	if err != nil {
		c.JSON(getStatusCode(err), ResponseError{Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.NewOutcomeFromDomain(&out))
}
