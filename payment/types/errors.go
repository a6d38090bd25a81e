package types

import (
	"errors"
	"fmt"
)

var (
	ErrGatewayNotFound     = errors.New("payment gateway not found")
	ErrConfigInvalid       = errors.New("payment gateway config invalid")
	ErrSignatureMismatch   = errors.New("signature mismatch")
	ErrCallbackUnsupported = errors.New("gateway does not accept callbacks")
	ErrCallbackMalformed   = errors.New("malformed callback")
	ErrAmountMismatch      = errors.New("paid amount mismatch")
	ErrCurrencyMismatch    = errors.New("currency mismatch")
	ErrDepositNotFound     = errors.New("deposit not found")
	ErrDepositClosed       = errors.New("deposit already closed")
	ErrGatewayRequest      = errors.New("gateway request failed")
)

// VerificationError 回调校验失败
type VerificationError struct {
	Gateway string
	Reason  string
	Err     error
}

func (e *VerificationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s callback rejected: %s", e.Gateway, e.Reason)
	}
	return fmt.Sprintf("%s callback rejected: %s: %v", e.Gateway, e.Reason, e.Err)
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

func NewVerificationError(gateway, reason string, err error) error {
	return &VerificationError{Gateway: gateway, Reason: reason, Err: err}
}

// SignatureError 签名不一致的快捷构造
func SignatureError(gateway string) error {
	return NewVerificationError(gateway, "invalid signature", ErrSignatureMismatch)
}

// RequestError 调用渠道接口失败
func RequestError(gateway string, err error) error {
	return fmt.Errorf("%s: %w: %v", gateway, ErrGatewayRequest, err)
}
