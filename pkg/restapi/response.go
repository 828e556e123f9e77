package restapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"transcribe-service/pkg/errno"
)

// Response is the uniform API envelope.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success writes a 200 envelope with the payload.
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, Response{
		Code:    errno.OK.Code,
		Message: errno.OK.Message,
		Data:    data,
	})
}

// Failed maps an error to its envelope. Business errnos keep their code and
// message; anything else becomes an opaque internal error.
func Failed(ctx *gin.Context, err error) {
	var e *errno.Errno
	if !errors.As(err, &e) {
		e = errno.ErrInternalServer
	}
	ctx.JSON(httpStatus(e), Response{
		Code:    e.Code,
		Message: e.Message,
	})
}

func httpStatus(e *errno.Errno) int {
	switch {
	case e.Code == errno.ErrJobNotFound.Code || e.Code == http.StatusNotFound:
		return http.StatusNotFound
	case e.Code == errno.ErrQueueUnavailable.Code:
		return http.StatusServiceUnavailable
	case e.Code >= 20000:
		return http.StatusBadRequest
	case e.Code >= 400 && e.Code < 600:
		return e.Code
	default:
		return http.StatusInternalServerError
	}
}
