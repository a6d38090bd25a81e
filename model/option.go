package model

import (
	"context"
	"fmt"
	"strings"
	"time"

	"blackcnote/common/config"
	"blackcnote/common/logger"

	"gorm.io/gorm/clause"
)

// Option 配置项表（键值对，后台可通过接口修改并写入内存）
type Option struct {
	// Key 配置项键（主键）
	Key string `json:"key" gorm:"primaryKey;comment:配置项Key"`
	// Value 配置项值（字符串存储，复杂结构以 JSON 存储）
	Value string `json:"value" gorm:"comment:配置项值(字符串/JSON)"`
}

func AllOption() ([]*Option, error) {
	var options []*Option
	err := DB.Find(&options).Error
	return options, err
}

func InitOptionMap() {
	// 登录注册与邮箱
	config.GlobalOption.RegisterBool("PasswordLoginEnabled", &config.PasswordLoginEnabled)
	config.GlobalOption.RegisterBool("PasswordRegisterEnabled", &config.PasswordRegisterEnabled)
	config.GlobalOption.RegisterBool("EmailVerificationEnabled", &config.EmailVerificationEnabled)
	config.GlobalOption.RegisterBool("EmailDomainRestrictionEnabled", &config.EmailDomainRestrictionEnabled)
	config.GlobalOption.RegisterBool("RegisterEnabled", &config.RegisterEnabled)
	config.GlobalOption.RegisterCustom("EmailDomainWhitelist", func() string {
		return strings.Join(config.EmailDomainWhitelist, ",")
	}, func(value string) error {
		config.EmailDomainWhitelist = strings.Split(value, ",")
		return nil
	}, "")

	// SMTP
	config.GlobalOption.RegisterString("SMTPServer", &config.SMTPServer)
	config.GlobalOption.RegisterString("SMTPFrom", &config.SMTPFrom)
	config.GlobalOption.RegisterInt("SMTPPort", &config.SMTPPort)
	config.GlobalOption.RegisterString("SMTPAccount", &config.SMTPAccount)
	config.GlobalOption.RegisterString("SMTPToken", &config.SMTPToken)

	// OIDC
	config.GlobalOption.RegisterBool("OIDCAuthEnabled", &config.OIDCAuthEnabled)
	config.GlobalOption.RegisterString("OIDCClientId", &config.OIDCClientId)
	config.GlobalOption.RegisterString("OIDCClientSecret", &config.OIDCClientSecret)
	config.GlobalOption.RegisterString("OIDCIssuer", &config.OIDCIssuer)
	config.GlobalOption.RegisterString("OIDCScopes", &config.OIDCScopes)
	config.GlobalOption.RegisterString("OIDCUsernameClaims", &config.OIDCUsernameClaims)

	// 页面与系统信息
	config.GlobalOption.RegisterValue("Notice")
	config.GlobalOption.RegisterValue("About")
	config.GlobalOption.RegisterValue("HomePageContent")
	config.GlobalOption.RegisterString("Footer", &config.Footer)
	config.GlobalOption.RegisterString("SystemName", &config.SystemName)
	config.GlobalOption.RegisterString("Logo", &config.Logo)
	config.GlobalOption.RegisterString("ServerAddress", &config.ServerAddress)

	// 记账币种
	config.GlobalOption.RegisterString("CurrencyText", &config.CurrencyText)
	config.GlobalOption.RegisterString("CurrencySymbol", &config.CurrencySymbol)

	// 充值
	config.GlobalOption.RegisterInt("PaymentMinAmount", &config.PaymentMinAmount)
	config.GlobalOption.RegisterInt("DepositExpireHours", &config.DepositExpireHours)

	// 推荐返佣
	config.GlobalOption.RegisterBool("DepositCommissionEnabled", &config.DepositCommissionEnabled)
	config.GlobalOption.RegisterBool("InvestCommissionEnabled", &config.InvestCommissionEnabled)
	config.GlobalOption.RegisterBool("InterestCommissionEnabled", &config.InterestCommissionEnabled)

	// 提现
	config.GlobalOption.RegisterBool("WithdrawEnabled", &config.WithdrawEnabled)
	config.GlobalOption.RegisterBool("WithdrawTwoFARequired", &config.WithdrawTwoFARequired)

	loadOptionsFromDatabase()
}

func loadOptionsFromDatabase() {
	options, err := AllOption()
	if err != nil {
		logger.SysError("failed to load options: " + err.Error())
		return
	}
	for _, option := range options {
		if err := config.GlobalOption.Set(option.Key, option.Value); err != nil {
			logger.SysError("failed to update option map: " + err.Error())
		}
	}
}

// SyncOptions 多节点部署时定期从数据库刷新内存中的配置
func SyncOptions(ctx context.Context, frequency int) {
	if frequency <= 0 {
		return
	}
	ticker := time.NewTicker(time.Duration(frequency) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			loadOptionsFromDatabase()
		}
	}
}

// UpdateOption 先写内存校验取值，再落库；落库失败时回滚内存中的值
func UpdateOption(key string, value string) error {
	previous, ok := config.GlobalOption.Get(key)
	if !ok {
		return fmt.Errorf("unknown option: %s", key)
	}
	if err := config.GlobalOption.Set(key, value); err != nil {
		return err
	}
	option := Option{Key: key, Value: value}
	err := DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&option).Error
	if err != nil {
		_ = config.GlobalOption.Set(key, previous)
		return err
	}
	return nil
}
