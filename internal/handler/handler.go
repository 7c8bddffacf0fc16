package handler

import (
	"net/http"

	"shop/internal/apperr"
	"shop/internal/middleware"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// apperrの種別をHTTPステータスへ対応づける。
// サービス層の生のエラー（DBエラー等）は外に出さず500にまとめる。
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if ae, ok := apperr.As(err); ok {
		return c.JSON(statusOf(ae.Kind), ErrorResponse{Error: ae.Message})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindAuthorization:
		return http.StatusForbidden
	case apperr.KindGateway:
		return http.StatusBadGateway
	case apperr.KindGatewayUnknown:
		//結果不明。クライアントはそのまま再送しないこと。
		return http.StatusGatewayTimeout
	case apperr.KindConsistency:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func getUserIDFromContext(c echo.Context) (int64, bool) {
	v := c.Get(middleware.CtxUserIDKey)
	id, ok := v.(int64)
	return id, ok
}

func getUserEmailFromContext(c echo.Context) (string, bool) {
	v := c.Get(middleware.CtxUserEmailKey)
	email, ok := v.(string)
	return email, ok
}
