package handlers

import (
	"errors"
	"net/http"

	"hivelog/internal/services"
	"hivelog/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// respondError 把服务层错误映射到 HTTP 状态码
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrStateConflict):
		status = http.StatusConflict
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrDepthLimit):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNothingToUpdate):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrSynthesisFailed):
		status = http.StatusBadGateway
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrAccountDisabled):
		status = http.StatusUnauthorized
	}

	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		logrus.WithError(err).WithField("path", c.FullPath()).Error("unhandled error")
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

// paramID 解析路径中的数字 ID，失败时直接返回 400
func paramID(c *gin.Context, name string) (uint, bool) {
	id, ok := utils.ParseID(c.Param(name))
	if !ok {
		badRequest(c, "invalid "+name)
	}
	return id, ok
}
