package apperr

import (
	"errors"
	"fmt"
)

// サービス層が返すエラーの種別。
// handler側でHTTPステータスに変換する（DBのエラーはそのまま外に出さない）。
type Kind string

const (
	KindValidation     Kind = "validation"      // 入力不正・空カートなど
	KindNotFound       Kind = "not_found"       // 商品・カート・明細が無い
	KindAuthorization  Kind = "authorization"   // 他人のカート/注文への操作
	KindGateway        Kind = "gateway"         // 決済ゲートウェイの失敗
	KindGatewayUnknown Kind = "gateway_unknown" // タイムアウト等で課金結果が不明
	KindConsistency    Kind = "consistency"     // 更新が期待どおり効かなかった（並行削除など）
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

func Validation(message string) error     { return New(KindValidation, message) }
func NotFound(message string) error       { return New(KindNotFound, message) }
func Authorization(message string) error  { return New(KindAuthorization, message) }
func Gateway(message string) error        { return New(KindGateway, message) }
func GatewayUnknown(message string) error { return New(KindGatewayUnknown, message) }
func Consistency(message string) error    { return New(KindConsistency, message) }

func As(err error) (*Error, bool) {
	var ae *Error
	ok := errors.As(err, &ae)
	return ae, ok
}

func IsKind(err error, kind Kind) bool {
	ae, ok := As(err)
	return ok && ae.Kind == kind
}
