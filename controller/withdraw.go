package controller

import (
	"errors"
	"net/http"
	"strconv"

	"blackcnote/common"
	"blackcnote/common/config"
	"blackcnote/common/logger"
	"blackcnote/model"
	"blackcnote/worker"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GetWithdrawMethods godoc
// @Summary List withdraw methods
// @Description 用户获取启用的提现方式；管理员获取全部
// @Tags Withdraw
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /withdraw/method [get]
func GetWithdrawMethods(c *gin.Context) {
	onlyEnabled := c.GetInt("role") < config.RoleAdminUser
	methods, err := model.GetWithdrawMethods(onlyEnabled)
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	common.APIRespondWithData(c, methods)
}

func bindWithdrawMethod(c *gin.Context) (*model.WithdrawMethod, bool) {
	var method model.WithdrawMethod
	if err := c.ShouldBindJSON(&method); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "无效的参数"})
		return nil, false
	}
	if err := common.Validate.Struct(&method); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "输入不合法 " + err.Error()})
		return nil, false
	}
	if method.MinAmount.IsNegative() || (method.MaxAmount.IsPositive() && method.MaxAmount.LessThan(method.MinAmount)) {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "提现金额范围不合法"})
		return nil, false
	}
	return &method, true
}

// AddWithdrawMethod godoc
// @Summary Create withdraw method (admin)
// @Tags Withdraw
// @Accept json
// @Produce json
// @Param body body model.WithdrawMethod true "提现方式"
// @Success 200 {object} map[string]interface{}
// @Router /withdraw/method [post]
func AddWithdrawMethod(c *gin.Context) {
	method, ok := bindWithdrawMethod(c)
	if !ok {
		return
	}
	if err := method.Insert(); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	common.APIRespondWithData(c, method)
}

// UpdateWithdrawMethod godoc
// @Summary Update withdraw method (admin)
// @Tags Withdraw
// @Accept json
// @Produce json
// @Param body body model.WithdrawMethod true "提现方式"
// @Success 200 {object} map[string]interface{}
// @Router /withdraw/method [put]
func UpdateWithdrawMethod(c *gin.Context) {
	method, ok := bindWithdrawMethod(c)
	if !ok {
		return
	}
	if method.ID == 0 {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "无效的参数"})
		return
	}
	if err := method.Update(); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	common.APIRespondWithData(c, method)
}

// DeleteWithdrawMethod godoc
// @Summary Delete withdraw method (admin)
// @Tags Withdraw
// @Produce json
// @Param id path int true "提现方式ID"
// @Success 200 {object} map[string]interface{}
// @Router /withdraw/method/{id} [delete]
func DeleteWithdrawMethod(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	method := model.WithdrawMethod{ID: id}
	if err := method.Delete(); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": ""})
}

type WithdrawRequest struct {
	MethodId int               `json:"method_id" validate:"required"`
	Amount   decimal.Decimal   `json:"amount"`
	Fields   map[string]string `json:"fields"`
	// Code 两步验证码，用户启用 2FA 或系统要求时必填
	Code string `json:"code"`
}

// RequestWithdraw godoc
// @Summary Request withdrawal
// @Description 从收益钱包申请提现，等待管理员审核
// @Tags Withdraw
// @Accept json
// @Produce json
// @Param body body WithdrawRequest true "提现请求"
// @Success 200 {object} map[string]interface{}
// @Router /withdraw/ [post]
func RequestWithdraw(c *gin.Context) {
	if !config.WithdrawEnabled {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "管理员关闭了提现"})
		return
	}
	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil || common.Validate.Struct(&req) != nil || !req.Amount.IsPositive() {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "无效的参数"})
		return
	}

	user, err := model.GetUserById(c.GetInt("id"), true)
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	if user.TwoFAEnabled || config.WithdrawTwoFARequired {
		if !user.TwoFAEnabled {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "请先启用两步验证"})
			return
		}
		if !common.VerifyTOTPCode(user.TwoFASecret, req.Code) {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "两步验证码错误"})
			return
		}
	}

	withdrawal, err := model.RequestWithdrawal(user.Id, req.MethodId, req.Amount, req.Fields)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInsufficientBalance),
			errors.Is(err, model.ErrInvalidAmount),
			errors.Is(err, model.ErrWithdrawMethodUnavailable),
			errors.Is(err, model.ErrWithdrawFieldMissing):
			common.APIRespondWithError(c, http.StatusOK, err)
		default:
			logger.LogError(c.Request.Context(), "withdraw request failed", zap.Int("user_id", user.Id), zap.Error(err))
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "提现申请失败，请稍后重试"})
		}
		return
	}
	common.APIRespondWithData(c, withdrawal)
}

// GetSelfWithdrawList godoc
// @Summary List own withdrawals
// @Tags Withdraw
// @Produce json
// @Param page query int false "页码"
// @Param size query int false "每页数量"
// @Param status query string false "状态"
// @Success 200 {object} map[string]interface{}
// @Router /withdraw/self [get]
func GetSelfWithdrawList(c *gin.Context) {
	var params model.SearchWithdrawalParams
	if err := c.ShouldBindQuery(&params); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	params.UserId = c.GetInt("id")
	withdrawals, err := model.GetWithdrawalList(&params)
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	common.APIRespondWithData(c, withdrawals)
}

// GetWithdrawList godoc
// @Summary List withdrawals (admin)
// @Tags Withdraw
// @Produce json
// @Param page query int false "页码"
// @Param size query int false "每页数量"
// @Param user_id query int false "用户ID"
// @Param status query string false "状态"
// @Success 200 {object} map[string]interface{}
// @Router /withdraw/ [get]
func GetWithdrawList(c *gin.Context) {
	var params model.SearchWithdrawalParams
	if err := c.ShouldBindQuery(&params); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	withdrawals, err := model.GetWithdrawalList(&params)
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	common.APIRespondWithData(c, withdrawals)
}

// ReviewWithdraw godoc
// @Summary Approve or reject withdrawal (admin)
// @Description action 为 approve 或 reject，拒绝时金额退回收益钱包
// @Tags Withdraw
// @Accept json
// @Produce json
// @Param id path int true "提现ID"
// @Param action path string true "approve/reject"
// @Param body body ReviewRequest false "审核意见"
// @Success 200 {object} map[string]interface{}
// @Router /withdraw/{id}/{action} [post]
func ReviewWithdraw(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	var req ReviewRequest
	_ = c.ShouldBindJSON(&req)

	var withdrawal *model.Withdrawal
	switch c.Param("action") {
	case "approve":
		withdrawal, err = model.ApproveWithdrawal(id, req.Feedback)
	case "reject":
		withdrawal, err = model.RejectWithdrawal(id, req.Feedback)
	default:
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "无效的参数"})
		return
	}
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}

	logger.LogInfo(c.Request.Context(), "withdrawal reviewed",
		zap.String("trx", withdrawal.Trx), zap.String("status", withdrawal.Status), zap.Int("admin_id", c.GetInt("id")))
	payload := &worker.PayloadWithdrawStatus{WithdrawalId: withdrawal.ID, Status: withdrawal.Status}
	if err := worker.Distributor.DistributeWithdrawStatus(c.Request.Context(), payload); err != nil {
		logger.LogError(c.Request.Context(), "failed to enqueue withdraw task", zap.String("trx", withdrawal.Trx), zap.Error(err))
	}
	common.APIRespondWithData(c, withdrawal)
}
