package controller

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"blackcnote/common"
	"blackcnote/common/config"
	"blackcnote/common/logger"
	"blackcnote/common/stmp"
	"blackcnote/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GetStatus godoc
// @Summary Get system status
// @Description 获取站点信息与充值、提现开关
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /status [get]
func GetStatus(c *gin.Context) {
	common.APIRespondWithData(c, gin.H{
		"version":            config.Version,
		"start_time":         config.StartTime,
		"system_name":        config.SystemName,
		"logo":               config.Logo,
		"language":           config.Language,
		"footer_html":        config.Footer,
		"server_address":     config.ServerAddress,
		"email_verification": config.EmailVerificationEnabled,
		"oidc_auth":          config.OIDCAuthEnabled,
		"register_enabled":   config.RegisterEnabled,
		"currency_text":      config.CurrencyText,
		"currency_symbol":    config.CurrencySymbol,
		"payment_min_amount": config.PaymentMinAmount,
		"withdraw_enabled":   config.WithdrawEnabled,
		"withdraw_two_fa":    config.WithdrawTwoFARequired,
	})
}

func emailDomainAllowed(email string) bool {
	if !config.EmailDomainRestrictionEnabled {
		return true
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	for _, allowed := range config.EmailDomainWhitelist {
		if strings.EqualFold(strings.TrimSpace(allowed), domain) {
			return true
		}
	}
	return false
}

// SendEmailVerification godoc
// @Summary Send email verification code
// @Description 发送邮箱验证码（用于注册/绑定等场景）
// @Tags Email
// @Produce json
// @Param email query string true "邮箱地址"
// @Success 200 {object} map[string]interface{}
// @Router /verification [get]
func SendEmailVerification(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if err := common.ValidateEmailStrict(email); err != nil {
		common.APIRespondWithError(c, http.StatusOK, errors.New("邮箱格式不符合要求"))
		return
	}
	if !emailDomainAllowed(email) {
		common.APIRespondWithError(c, http.StatusOK, errors.New("邮箱域名不在白名单中"))
		return
	}
	if model.IsEmailAlreadyTaken(email) {
		common.APIRespondWithError(c, http.StatusOK, errors.New("邮箱地址已被占用"))
		return
	}
	if !stmp.Enabled() {
		common.APIRespondWithError(c, http.StatusOK, errors.New("管理员未配置 SMTP 服务"))
		return
	}

	code := common.GenerateVerificationCode(6)
	common.RegisterVerificationCodeWithKey(email, code, common.EmailVerificationPurpose)
	if err := stmp.SendVerificationCodeEmail(email, code); err != nil {
		logger.LogError(c.Request.Context(), "failed to send verification email", zap.Error(err))
		common.APIRespondWithError(c, http.StatusOK, errors.New("邮件发送失败，请稍后重试"))
		return
	}
	common.APIRespondWithData(c, nil)
}

// SendPasswordResetEmail godoc
// @Summary Send password reset email
// @Description 发送重置密码链接到邮箱；邮箱未注册时同样返回成功
// @Tags Email
// @Produce json
// @Param email query string true "邮箱地址"
// @Success 200 {object} map[string]interface{}
// @Router /reset_password [get]
func SendPasswordResetEmail(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if err := common.Validate.Var(email, "required,email"); err != nil {
		common.APIRespondWithError(c, http.StatusOK, errors.New("无效的参数"))
		return
	}
	user := &model.User{Email: email}
	if err := user.FillUserByEmail(); err != nil {
		logger.LogInfo(c.Request.Context(), "password reset requested for unknown email")
		common.APIRespondWithData(c, nil)
		return
	}

	userName := user.DisplayName
	if userName == "" {
		userName = user.Username
	}
	code := common.GenerateVerificationCode(0)
	common.RegisterVerificationCodeWithKey(email, code, common.PasswordResetPurpose)
	link := fmt.Sprintf("%s/user/reset?email=%s&token=%s", strings.TrimSuffix(config.ServerAddress, "/"), url.QueryEscape(email), code)
	if err := stmp.SendPasswordResetEmail(userName, email, link); err != nil {
		logger.LogError(c.Request.Context(), "failed to send reset email", zap.Int("user_id", user.Id), zap.Error(err))
		common.APIRespondWithError(c, http.StatusOK, errors.New("邮件发送失败，请稍后重试"))
		return
	}
	common.APIRespondWithData(c, nil)
}

type PasswordResetRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=20"`
}

// ResetPassword godoc
// @Summary Reset password with token
// @Description 通过邮件中的令牌设置新密码
// @Tags User
// @Accept json
// @Produce json
// @Param body body PasswordResetRequest true "重置请求"
// @Success 200 {object} map[string]interface{}
// @Router /user/reset [post]
func ResetPassword(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.APIRespondWithError(c, http.StatusOK, errors.New("无效的参数"))
		return
	}
	if err := common.Validate.Struct(&req); err != nil {
		common.APIRespondWithError(c, http.StatusOK, errors.New("参数不合法，密码长度需为 8-20 位"))
		return
	}
	if !common.VerifyCodeWithKey(req.Email, req.Token, common.PasswordResetPurpose) {
		common.APIRespondWithError(c, http.StatusOK, errors.New("重置链接非法或已过期"))
		return
	}
	if err := model.ResetUserPasswordByEmail(req.Email, req.Password); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	common.DeleteKey(req.Email, common.PasswordResetPurpose)
	logger.LogInfo(c.Request.Context(), "password reset by email token")
	common.APIRespondWithData(c, nil)
}
