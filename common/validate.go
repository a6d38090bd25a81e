package common

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var Validate *validator.Validate

func init() {
	Validate = validator.New()
	_ = Validate.RegisterValidation("dgt0", decimalGreaterThanZero)
}

// decimalGreaterThanZero 校验 decimal.Decimal 金额大于 0
func decimalGreaterThanZero(fl validator.FieldLevel) bool {
	d, ok := fl.Field().Interface().(decimal.Decimal)
	if !ok {
		return false
	}
	return d.GreaterThan(decimal.Zero)
}

// ValidateEmailStrict 比 validator 的 email 规则更严格：拒绝显示名与多余空白
func ValidateEmailStrict(email string) error {
	if email == "" || strings.TrimSpace(email) != email {
		return errors.New("invalid email")
	}
	if err := Validate.Var(email, "required,email,max=100"); err != nil {
		return err
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errors.New("invalid email")
	}
	return nil
}
