package controller

import (
	"net/http"

	"blackcnote/common"
	"blackcnote/common/logger"
	"blackcnote/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TwoFARequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// Get2FASetup godoc
// @Summary Start 2FA setup
// @Description 生成新的 TOTP 密钥与二维码，需调用 enable 接口确认后生效
// @Tags User
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /user/2fa [get]
func Get2FASetup(c *gin.Context) {
	user, err := model.GetUserById(c.GetInt("id"), true)
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	if user.TwoFAEnabled {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "两步验证已启用，请先关闭"})
		return
	}
	secret, qrcode, err := common.GenerateTOTPSecret(user.Username)
	if err != nil {
		logger.LogError(c.Request.Context(), "failed to generate totp secret", zap.Int("user_id", user.Id), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "生成密钥失败"})
		return
	}
	if err := model.SetTwoFA(user.Id, secret, false); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	common.APIRespondWithData(c, gin.H{
		"secret": secret,
		"qrcode": qrcode,
	})
}

func bindTwoFACode(c *gin.Context) (*model.User, bool) {
	var req TwoFARequest
	if err := c.ShouldBindJSON(&req); err != nil || common.Validate.Struct(&req) != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "无效的参数"})
		return nil, false
	}
	user, err := model.GetUserById(c.GetInt("id"), true)
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return nil, false
	}
	if user.TwoFASecret == "" || !common.VerifyTOTPCode(user.TwoFASecret, req.Code) {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "两步验证码错误"})
		return nil, false
	}
	return user, true
}

// Enable2FA godoc
// @Summary Enable 2FA
// @Tags User
// @Accept json
// @Produce json
// @Param body body TwoFARequest true "验证码"
// @Success 200 {object} map[string]interface{}
// @Router /user/2fa/enable [post]
func Enable2FA(c *gin.Context) {
	user, ok := bindTwoFACode(c)
	if !ok {
		return
	}
	if err := model.SetTwoFA(user.Id, user.TwoFASecret, true); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	logger.LogInfo(c.Request.Context(), "2fa enabled", zap.Int("user_id", user.Id))
	c.JSON(http.StatusOK, gin.H{"success": true, "message": ""})
}

// Disable2FA godoc
// @Summary Disable 2FA
// @Tags User
// @Accept json
// @Produce json
// @Param body body TwoFARequest true "验证码"
// @Success 200 {object} map[string]interface{}
// @Router /user/2fa/disable [post]
func Disable2FA(c *gin.Context) {
	user, ok := bindTwoFACode(c)
	if !ok {
		return
	}
	if !user.TwoFAEnabled {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "两步验证未启用"})
		return
	}
	if err := model.SetTwoFA(user.Id, "", false); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	logger.LogInfo(c.Request.Context(), "2fa disabled", zap.Int("user_id", user.Id))
	c.JSON(http.StatusOK, gin.H{"success": true, "message": ""})
}
