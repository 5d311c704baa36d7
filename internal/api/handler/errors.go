package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/gabrielsqw/badminton-club/pkg/errors"
	"github.com/gabrielsqw/badminton-club/pkg/response"
)

// 业务错误码，按错误分类划分
const (
	codeBadRequest   = 10001
	codeForbidden    = 10003
	codeNotFound     = 40400
	codeConflict     = 40900
	codeUnavailable  = 50300
	codeInvalidLogin = 11001
	codeInvalidToken = 11002
)

// handleServiceError 按错误分类映射 HTTP 状态码，未分类错误一律 500
func handleServiceError(c *gin.Context, err error) {
	_ = c.Error(err)
	msg := pkgerrors.MessageOf(err)

	switch pkgerrors.KindOf(err) {
	case pkgerrors.KindValidation:
		response.BadRequest(c, codeBadRequest, msg)
	case pkgerrors.KindAuthorization:
		response.Forbidden(c, codeForbidden, msg)
	case pkgerrors.KindNotFound:
		response.NotFound(c, codeNotFound, msg)
	case pkgerrors.KindConflict:
		response.Conflict(c, codeConflict, msg)
	case pkgerrors.KindUnavailable:
		response.ServiceUnavailable(c, msg)
	default:
		response.InternalError(c)
	}
}

// handleBindError 参数绑定失败，details 列出未通过校验的字段
func handleBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s:%s", fe.Field(), fe.Tag()))
		}
		response.ErrorWithDetails(c, http.StatusBadRequest, codeBadRequest, "参数校验失败", strings.Join(fields, ","))
		return
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		_ = c.Error(err)
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
		return
	}
	response.BadRequest(c, codeBadRequest, "参数校验失败")
}
