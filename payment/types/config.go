package types

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

var configValidate = validator.New()

// ParseConfig 将网关 JSON 凭据解码为具体配置结构，并按 validate 标签校验
// 数字与字符串之间允许宽松转换，后台录入时无需区分类型
func ParseConfig(gatewayConfig string, out any) error {
	if gatewayConfig == "" {
		return fmt.Errorf("%w: empty config", ErrConfigInvalid)
	}
	raw := make(map[string]any)
	if err := json.Unmarshal([]byte(gatewayConfig), &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		TagName:          "json",
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err = decoder.Decode(raw); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	if err = configValidate.Struct(out); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	return nil
}
