package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Guyuepp/likers-match/domain"
	"github.com/Guyuepp/likers-match/internal/rest/request"
	"github.com/Guyuepp/likers-match/internal/rest/response"
)

// SwipeHandler represent the httphandler for swipes
type SwipeHandler struct {
	Service domain.SwipeUsecase
}

func NewSwipeHandler(svc domain.SwipeUsecase) *SwipeHandler {
	return &SwipeHandler{
		Service: svc,
	}
}

// Record stores the caller's swipe on another user
func (h *SwipeHandler) Record(c *gin.Context) {
	var req request.Swipe
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
		return
	}

	viewer, ok := viewerID(c)
	if !ok {
		abortUnauthenticated(c)
		return
	}

	out, err := h.Service.Record(c.Request.Context(), viewer, req.ToUserID, req.ActionValue())
	if err != nil {
		c.JSON(getStatusCode(err), ResponseError{Message: err.Error()})
		return
	}

	status := http.StatusCreated
	if out.Match != nil || out.Pass != nil || out.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, response.NewOutcomeFromDomain(&out))
}
