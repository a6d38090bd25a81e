package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"blackcnote/common"
	"blackcnote/common/config"
	"blackcnote/common/logger"
	"blackcnote/common/utils"
	"blackcnote/model"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// 占位密码，用于在未修改密码时通过校验
const placeholderPassword = "$UNCHANGED"

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	// Code 已启用两步验证时必填
	Code string `json:"code"`
}

type RegisterRequest struct {
	Username         string `json:"username"`
	Password         string `json:"password"`
	Email            string `json:"email"`
	VerificationCode string `json:"verification_code"`
	// AffCode 推荐人的推荐码，也可通过 ?ref= 传入
	AffCode string `json:"aff_code"`
}

// getFriendlyValidationMessage 将验证错误转换为友好的中文提示
func getFriendlyValidationMessage(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fieldError := range validationErrors {
			switch fieldError.Field() {
			case "Username":
				switch fieldError.Tag() {
				case "required":
					return "用户名不能为空"
				case "max":
					return "用户名长度不能超过12个字符"
				}
			case "Password":
				switch fieldError.Tag() {
				case "required":
					return "密码不能为空"
				case "min":
					return "密码长度不能少于8个字符"
				case "max":
					return "密码长度不能超过20个字符"
				}
			case "DisplayName":
				return "显示名称长度不能超过20个字符"
			case "Email":
				return "邮箱格式不正确"
			}
		}
	}
	return "输入参数不符合要求"
}

// Login godoc
// @Summary User login
// @Description 用户名密码登录，启用两步验证的账户需同时提交 code
// @Tags User
// @Accept json
// @Produce json
// @Param body body LoginRequest true "登录请求"
// @Success 200 {object} map[string]interface{}
// @Router /user/login [post]
func Login(c *gin.Context) {
	if !config.PasswordLoginEnabled {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "管理员关闭了密码登录"})
		return
	}
	var req LoginRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "无效的参数"})
		return
	}
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Password) == "" {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "无效的参数"})
		return
	}
	user := model.User{
		Username: req.Username,
		Password: req.Password,
	}
	if err := user.ValidateAndFill(); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": err.Error()})
		return
	}
	if user.TwoFAEnabled {
		if req.Code == "" {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "请输入两步验证码", "data": gin.H{"two_fa_required": true}})
			return
		}
		if !common.VerifyTOTPCode(user.TwoFASecret, req.Code) {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "两步验证码错误"})
			return
		}
	}
	setupLogin(&user, c)
}

// setupLogin 写入会话并返回脱敏后的用户信息
func setupLogin(user *model.User, c *gin.Context) {
	session := sessions.Default(c)
	session.Set("id", user.Id)
	session.Set("username", user.Username)
	session.Set("role", user.Role)
	session.Set("status", user.Status)
	if err := session.Save(); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "无法保存会话信息，请重试"})
		return
	}
	if err := model.UpdateUser(user.Id, map[string]any{"last_login_time": time.Now().Unix()}); err != nil {
		logger.LogWarn(c.Request.Context(), "failed to update last login time", zap.Int("user_id", user.Id), zap.Error(err))
	}

	cleanUser := model.User{
		Id:           user.Id,
		AvatarUrl:    user.AvatarUrl,
		Username:     user.Username,
		DisplayName:  user.DisplayName,
		Role:         user.Role,
		Status:       user.Status,
		AffCode:      user.AffCode,
		TwoFAEnabled: user.TwoFAEnabled,
	}
	common.APIRespondWithData(c, cleanUser)
}

// Logout godoc
// @Summary User logout
// @Tags User
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /user/logout [get]
func Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": ""})
}

// Register godoc
// @Summary User register
// @Description 用户注册，可携带推荐码
// @Tags User
// @Accept json
// @Produce json
// @Param body body RegisterRequest true "注册信息"
// @Param ref query string false "推荐码"
// @Success 200 {object} map[string]interface{}
// @Router /user/register [post]
func Register(c *gin.Context) {
	if !config.RegisterEnabled || !config.PasswordRegisterEnabled {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "管理员关闭了新用户注册"})
		return
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "无效的参数"})
		return
	}
	user := model.User{
		Username:    req.Username,
		Password:    req.Password,
		DisplayName: req.Username,
	}
	if strings.TrimSpace(user.Password) == "" {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "密码不能为空"})
		return
	}
	if err := common.Validate.Struct(&user); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": getFriendlyValidationMessage(err)})
		return
	}

	if config.EmailVerificationEnabled {
		if req.Email == "" || req.VerificationCode == "" {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "管理员开启了邮箱验证，请输入邮箱地址和验证码"})
			return
		}
		if err := common.ValidateEmailStrict(req.Email); err != nil {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "邮箱格式不符合要求"})
			return
		}
		if !common.VerifyCodeWithKey(req.Email, req.VerificationCode, common.EmailVerificationPurpose) {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "验证码错误或已过期"})
			return
		}
		user.Email = req.Email
	}

	inviterId := model.GetInviterIdByCode(utils.FirstNonEmpty(req.AffCode, c.Query("ref")))
	if err := user.Insert(inviterId); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	if config.EmailVerificationEnabled {
		common.DeleteKey(req.Email, common.EmailVerificationPurpose)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": ""})
}

// GetUsersList godoc
// @Summary List users (admin)
// @Tags Admin
// @Produce json
// @Param page query int false "页码"
// @Param size query int false "每页数量"
// @Param order query string false "排序，如 -id,username"
// @Param keyword query string false "搜索关键字"
// @Success 200 {object} map[string]interface{}
// @Router /user/ [get]
func GetUsersList(c *gin.Context) {
	var params model.GenericParams
	if err := c.ShouldBindQuery(&params); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}

	users, err := model.GetUsersList(&params)
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	common.APIRespondWithData(c, users)
}

// loadManagedUser 读取目标用户，并确认当前管理员的权限高于目标用户
func loadManagedUser(c *gin.Context, id int) (*model.User, bool) {
	user, err := model.GetUserById(id, false)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "用户不存在"})
		return nil, false
	}
	myRole := c.GetInt("role")
	if myRole <= user.Role && myRole != config.RoleRootUser {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "无权操作同级或更高等级的用户"})
		return nil, false
	}
	return user, true
}

// GetUser godoc
// @Summary Get user (admin)
// @Tags Admin
// @Produce json
// @Param id path int true "用户ID"
// @Success 200 {object} map[string]interface{}
// @Router /user/{id} [get]
func GetUser(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	user, ok := loadManagedUser(c, id)
	if !ok {
		return
	}
	common.APIRespondWithData(c, user)
}

// GenerateAccessToken godoc
// @Summary Generate access token
// @Description 生成用户 AccessToken（无 Session 的 API 鉴权使用）
// @Tags User
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /user/token [get]
func GenerateAccessToken(c *gin.Context) {
	id := c.GetInt("id")
	token := utils.GetUUID()
	if model.IsFieldAlreadyTaken("access_token", token) {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "请重试，系统生成的 UUID 竟然重复了！"})
		return
	}
	if err := model.UpdateUser(id, map[string]any{"access_token": token}); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	common.APIRespondWithData(c, token)
}

// GetSelf godoc
// @Summary Get self profile
// @Tags User
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /user/self [get]
func GetSelf(c *gin.Context) {
	user, err := model.GetUserById(c.GetInt("id"), false)
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	common.APIRespondWithData(c, user)
}

// UpdateUser godoc
// @Summary Update user (admin)
// @Tags Admin
// @Accept json
// @Produce json
// @Param body body model.User true "用户信息"
// @Success 200 {object} map[string]interface{}
// @Router /user/ [put]
func UpdateUser(c *gin.Context) {
	var updatedUser model.User
	if err := json.NewDecoder(c.Request.Body).Decode(&updatedUser); err != nil || updatedUser.Id == 0 {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "无效的参数"})
		return
	}
	if updatedUser.Password == "" {
		updatedUser.Password = placeholderPassword
	}
	if err := common.Validate.Struct(&updatedUser); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": getFriendlyValidationMessage(err)})
		return
	}
	if updatedUser.Email != "" {
		if err := common.ValidateEmailStrict(updatedUser.Email); err != nil {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "邮箱格式不符合要求"})
			return
		}
	}
	if _, ok := loadManagedUser(c, updatedUser.Id); !ok {
		return
	}
	myRole := c.GetInt("role")
	if myRole <= updatedUser.Role && myRole != config.RoleRootUser {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "无权将其他用户权限等级提升到大于等于自己的权限等级"})
		return
	}
	if updatedUser.Password == placeholderPassword {
		updatedUser.Password = ""
	}
	if err := updatedUser.Update(updatedUser.Password != ""); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": ""})
}

// UpdateSelf godoc
// @Summary Update self profile
// @Tags User
// @Accept json
// @Produce json
// @Param body body model.User true "用户信息"
// @Success 200 {object} map[string]interface{}
// @Router /user/self [put]
func UpdateSelf(c *gin.Context) {
	var user model.User
	if err := json.NewDecoder(c.Request.Body).Decode(&user); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "无效的参数"})
		return
	}
	if user.Password == "" {
		user.Password = placeholderPassword
	}
	user.Username = "self"
	if err := common.Validate.Struct(&user); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": getFriendlyValidationMessage(err)})
		return
	}

	cleanUser := model.User{
		Id:          c.GetInt("id"),
		Password:    user.Password,
		DisplayName: user.DisplayName,
		AvatarUrl:   user.AvatarUrl,
	}
	if cleanUser.Password == placeholderPassword {
		cleanUser.Password = ""
	}
	if err := cleanUser.Update(cleanUser.Password != ""); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": ""})
}

// DeleteUser godoc
// @Summary Delete user (admin)
// @Tags Admin
// @Produce json
// @Param id path int true "用户ID"
// @Success 200 {object} map[string]interface{}
// @Router /user/{id} [delete]
func DeleteUser(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	user, ok := loadManagedUser(c, id)
	if !ok {
		return
	}
	if user.Role == config.RoleRootUser {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "无法删除超级管理员用户"})
		return
	}
	if err := user.Delete(); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": ""})
}

// CreateUser godoc
// @Summary Create user (admin)
// @Tags Admin
// @Accept json
// @Produce json
// @Param body body model.User true "用户信息"
// @Success 200 {object} map[string]interface{}
// @Router /user/ [post]
func CreateUser(c *gin.Context) {
	var user model.User
	if err := c.ShouldBindJSON(&user); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	if strings.TrimSpace(user.Username) == "" || strings.TrimSpace(user.Password) == "" {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "用户名和密码不能为空"})
		return
	}
	if err := common.Validate.Struct(&user); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": getFriendlyValidationMessage(err)})
		return
	}
	if user.Email != "" {
		if err := common.ValidateEmailStrict(user.Email); err != nil {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "邮箱格式不符合要求"})
			return
		}
	}
	if user.Role >= c.GetInt("role") {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "无法创建权限大于等于自己的用户"})
		return
	}

	cleanUser := model.User{
		Username:    user.Username,
		Password:    user.Password,
		DisplayName: utils.FirstNonEmpty(user.DisplayName, user.Username),
		Email:       user.Email,
	}
	if err := cleanUser.Insert(0); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": ""})
}

type ManageRequest struct {
	UserId int    `json:"user_id"`
	Action string `json:"action"`
}

// ManageUser godoc
// @Summary Manage user (admin)
// @Description 封禁、解封、提升、降级
// @Tags Admin
// @Accept json
// @Produce json
// @Param body body ManageRequest true "管理操作"
// @Success 200 {object} map[string]interface{}
// @Router /user/manage [post]
func ManageUser(c *gin.Context) {
	var req ManageRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil || req.UserId == 0 {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "无效的参数"})
		return
	}
	user, ok := loadManagedUser(c, req.UserId)
	if !ok {
		return
	}

	updates := map[string]any{}
	switch req.Action {
	case "disable":
		if user.Role == config.RoleRootUser {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "无法禁用超级管理员用户"})
			return
		}
		updates["status"] = config.UserStatusDisabled
	case "enable":
		updates["status"] = config.UserStatusEnabled
	case "promote":
		if c.GetInt("role") != config.RoleRootUser {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "普通管理员用户无法提升其他用户为管理员"})
			return
		}
		if user.Role >= config.RoleAdminUser {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "该用户已经是管理员"})
			return
		}
		updates["role"] = config.RoleAdminUser
	case "demote":
		if user.Role == config.RoleRootUser {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "无法降级超级管理员用户"})
			return
		}
		if user.Role == config.RoleCommonUser {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "该用户已经是普通用户"})
			return
		}
		updates["role"] = config.RoleCommonUser
	case "reset_2fa":
		if err := model.SetTwoFA(user.Id, "", false); err != nil {
			common.APIRespondWithError(c, http.StatusOK, err)
			return
		}
	default:
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "无效的操作"})
		return
	}

	if len(updates) > 0 {
		if err := model.UpdateUser(user.Id, updates); err != nil {
			common.APIRespondWithError(c, http.StatusOK, err)
			return
		}
	}
	user, err := model.GetUserById(user.Id, false)
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	common.APIRespondWithData(c, model.User{Role: user.Role, Status: user.Status, TwoFAEnabled: user.TwoFAEnabled})
}

type BalanceRequest struct {
	UserId  int             `json:"user_id" validate:"required"`
	Wallet  string          `json:"wallet" validate:"required,oneof=deposit_wallet interest_wallet"`
	Amount  decimal.Decimal `json:"amount"`
	Type    string          `json:"type" validate:"required,oneof=add subtract"`
	Details string          `json:"details" validate:"max=255"`
}

// AdjustUserBalance godoc
// @Summary Adjust balance (admin)
// @Description 管理员增减用户钱包余额，写入账务流水
// @Tags Admin
// @Accept json
// @Produce json
// @Param body body BalanceRequest true "调整请求"
// @Success 200 {object} map[string]interface{}
// @Router /user/balance [post]
func AdjustUserBalance(c *gin.Context) {
	var req BalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil || common.Validate.Struct(&req) != nil || !req.Amount.IsPositive() {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "无效的参数"})
		return
	}
	if _, ok := loadManagedUser(c, req.UserId); !ok {
		return
	}
	details := utils.FirstNonEmpty(req.Details, "Balance adjusted by "+c.GetString("username"))
	record, err := model.AdjustBalance(req.UserId, req.Wallet, req.Amount, req.Type == "add", details)
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	logger.LogInfo(c.Request.Context(), "balance adjusted",
		zap.Int("user_id", req.UserId), zap.String("wallet", req.Wallet),
		zap.String("trx_type", record.TrxType), zap.String("amount", record.Amount.String()),
		zap.Int("admin_id", c.GetInt("id")))
	common.APIRespondWithData(c, record)
}

// EmailBind godoc
// @Summary Bind email with code
// @Tags User
// @Produce json
// @Param email query string true "邮箱"
// @Param code query string true "验证码"
// @Success 200 {object} map[string]interface{}
// @Router /oauth/email/bind [get]
func EmailBind(c *gin.Context) {
	email := c.Query("email")
	code := c.Query("code")
	if err := common.ValidateEmailStrict(email); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "邮箱格式不符合要求"})
		return
	}
	if !common.VerifyCodeWithKey(email, code, common.EmailVerificationPurpose) {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "验证码错误或已过期"})
		return
	}
	// 验证码发送前已校验邮箱未被占用
	if err := model.UpdateUser(c.GetInt("id"), map[string]any{"email": email}); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	common.DeleteKey(email, common.EmailVerificationPurpose)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": ""})
}
