package syncserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/redboxergaming-hash/trackerv8/internal/remote"
)

type Response struct {
	Data  any              `json:"data,omitempty"`
	Meta  map[string]any   `json:"meta,omitempty"`
	Error *remote.APIError `json:"error,omitempty"`
}

func Success(data any, meta map[string]any) Response {
	return Response{Data: data, Meta: meta}
}

func Failure(status int, msg string) Response {
	return Response{Error: &remote.APIError{Code: status, Message: msg}}
}

func handleError(c *gin.Context, log *zap.Logger, err error, status int, msg string) {
	fields := []zap.Field{zap.String("request_id", c.GetString(ctxRequestID)), zap.Int("status", status), zap.Error(err)}
	if status >= http.StatusInternalServerError {
		log.Error(msg, fields...)
	} else {
		log.Info(msg, fields...)
	}
	c.JSON(status, Failure(status, msg+": "+err.Error()))
}

func handleSuccess(c *gin.Context, log *zap.Logger, data any, meta map[string]any) {
	log.Debug("request served", zap.String("request_id", c.GetString(ctxRequestID)), zap.String("path", c.FullPath()))
	c.JSON(http.StatusOK, Success(data, meta))
}
