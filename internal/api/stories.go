package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// fetchStoriesRequest accepts limit from the query string or a JSON body
type fetchStoriesRequest struct {
	Limit *int `json:"limit" form:"limit" binding:"omitempty,min=1,max=100"`
}

// fetchStories queues an ingestion run and answers without waiting for it
func (r *Router) fetchStories(c *gin.Context) {
	var req fetchStoriesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondInvalid(c, fieldErrors(err))
		return
	}
	if c.Request.ContentLength != 0 && c.ContentType() == gin.MIMEJSON {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondInvalid(c, fieldErrors(err))
			return
		}
	}

	limit := r.defaultLimit
	if req.Limit != nil {
		limit = *req.Limit
	}

	runID, err := r.dispatcher.Submit(limit)
	if err != nil {
		r.logger.Error("Error dispatching fetch stories run", zap.Int("limit", limit), zap.Error(err))
		respondError(c, NewError(http.StatusInternalServerError, "An error occurred while dispatching the job."), err)
		return
	}

	respondOK(c, "Fetching stories job dispatched.", gin.H{
		"run_id": runID,
		"limit":  limit,
	})
}
