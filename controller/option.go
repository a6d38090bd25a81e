package controller

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"blackcnote/common/config"
	"blackcnote/common/logger"
	"blackcnote/common/oidc"
	"blackcnote/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GetOptions godoc
// @Summary Get options (root)
// @Description 获取所有配置项（Root），不返回密钥类配置
// @Tags Option
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /option/ [get]
func GetOptions(c *gin.Context) {
	var options []*model.Option
	for k, v := range config.GlobalOption.GetAll() {
		if strings.HasSuffix(k, "Token") || strings.HasSuffix(k, "Secret") {
			continue
		}
		options = append(options, &model.Option{Key: k, Value: v})
	}
	sort.Slice(options, func(i, j int) bool { return options[i].Key < options[j].Key })
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "",
		"data":    options,
	})
}

// validateOption 返回空字符串表示通过
func validateOption(option *model.Option) string {
	switch option.Key {
	case "OIDCAuthEnabled":
		if option.Value == "true" && (config.OIDCClientId == "" || config.OIDCClientSecret == "" || config.OIDCIssuer == "" || config.OIDCScopes == "" || config.OIDCUsernameClaims == "") {
			return "无法启用 OIDC，请先填入OIDC信息！"
		}
	case "EmailDomainRestrictionEnabled":
		if option.Value == "true" && len(config.EmailDomainWhitelist) == 0 {
			return "无法启用邮箱域名限制，请先填入限制的邮箱域名！"
		}
	case "EmailVerificationEnabled":
		if option.Value == "true" && config.SMTPServer == "" {
			return "无法启用邮箱验证，请先填入 SMTP 相关配置信息！"
		}
	case "PaymentMinAmount", "SMTPPort":
		v, err := strconv.Atoi(option.Value)
		if err != nil || v < 0 {
			return option.Key + " 必须为非负整数"
		}
	case "DepositExpireHours":
		v, err := strconv.Atoi(option.Value)
		if err != nil || v < 1 {
			return "充值订单过期时间必须为正整数（小时）"
		}
	case "WithdrawTwoFARequired":
		if option.Value != "true" && option.Value != "false" {
			return "无效的参数"
		}
	case "CurrencyText":
		if strings.TrimSpace(option.Value) == "" {
			return "记账币种不能为空"
		}
	}
	return ""
}

// UpdateOption godoc
// @Summary Update option (root)
// @Description 更新配置项（Root）
// @Tags Option
// @Accept json
// @Produce json
// @Param body body model.Option true "配置项"
// @Success 200 {object} map[string]interface{}
// @Router /option/ [put]
func UpdateOption(c *gin.Context) {
	var option model.Option
	if err := json.NewDecoder(c.Request.Body).Decode(&option); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "无效的参数",
		})
		return
	}
	if msg := validateOption(&option); msg != "" {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": msg})
		return
	}
	if err := model.UpdateOption(option.Key, option.Value); err != nil {
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": err.Error(),
		})
		return
	}
	if strings.HasPrefix(option.Key, "OIDC") {
		oidc.InitOIDCConfig()
	}
	logger.LogInfo(c.Request.Context(), "option updated", zap.String("key", option.Key), zap.Int("user_id", c.GetInt("id")))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "",
	})
}
