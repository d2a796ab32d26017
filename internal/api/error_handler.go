package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/parul297/MeraEvents/internal/pkg/logger"
)

// ErrorResponse はエラーレスポンスの統一フォーマット
// kind により「業務ルールによる拒否」「再試行可能」「システム障害」を呼び出し側が区別できる
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

// CustomHTTPErrorHandler はカスタムエラーハンドラー
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		code    = http.StatusInternalServerError
		message = "内部サーバーエラー"
	)

	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	}

	// エラーログを出力（5xx エラーの場合）
	if code >= 500 {
		logger.Error("サーバーエラー",
			zap.Int("status", code),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}

	if err := c.JSON(code, ErrorResponse{
		Error: message,
		Code:  code,
		Kind:  kindForStatus(code),
	}); err != nil {
		logger.Error("エラーレスポンス送信失敗", zap.Error(err))
	}
}

// kindForStatus はステータスコードから提示区分を導く
func kindForStatus(code int) string {
	switch {
	case code == http.StatusConflict || code == http.StatusGatewayTimeout:
		return "retryable"
	case code >= 500:
		return "system"
	case code >= 400:
		return "rejected"
	default:
		return ""
	}
}
