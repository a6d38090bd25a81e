package controller

import (
	"net/http"

	"blackcnote/common"
	"blackcnote/model"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// GetUserDashboard godoc
// @Summary User dashboard
// @Description 钱包余额、累计充值/提现/投资/收益/返佣与最近流水
// @Tags Dashboard
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /user/dashboard [get]
func GetUserDashboard(c *gin.Context) {
	dashboard, err := model.GetUserDashboard(c.GetInt("id"))
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	common.APIRespondWithData(c, dashboard)
}

// GetAdminDashboard godoc
// @Summary Admin dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /dashboard/ [get]
func GetAdminDashboard(c *gin.Context) {
	dashboard, err := model.GetAdminDashboard()
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	common.APIRespondWithData(c, dashboard)
}

// GetSelfTransactions godoc
// @Summary List own ledger
// @Tags Transaction
// @Produce json
// @Param page query int false "页码"
// @Param size query int false "每页数量"
// @Param remark query string false "分类"
// @Param wallet query string false "钱包"
// @Success 200 {object} map[string]interface{}
// @Router /transaction/self [get]
func GetSelfTransactions(c *gin.Context) {
	var params model.SearchTransactionParams
	if err := c.ShouldBindQuery(&params); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	params.UserId = c.GetInt("id")
	transactions, err := model.GetTransactionList(&params)
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	common.APIRespondWithData(c, transactions)
}

// GetTransactions godoc
// @Summary List ledger (admin)
// @Tags Transaction
// @Produce json
// @Param page query int false "页码"
// @Param size query int false "每页数量"
// @Param user_id query int false "用户ID"
// @Param trx query string false "交易号"
// @Success 200 {object} map[string]interface{}
// @Router /transaction/ [get]
func GetTransactions(c *gin.Context) {
	var params model.SearchTransactionParams
	if err := c.ShouldBindQuery(&params); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	transactions, err := model.GetTransactionList(&params)
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	common.APIRespondWithData(c, transactions)
}

// GetReferralLevels godoc
// @Summary List referral levels
// @Tags Referral
// @Produce json
// @Param type query string false "deposit/invest/interest"
// @Success 200 {object} map[string]interface{}
// @Router /referral/levels [get]
func GetReferralLevels(c *gin.Context) {
	levels, err := model.GetReferralLevels(c.Query("type"))
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	common.APIRespondWithData(c, levels)
}

type ReferralLevelsRequest struct {
	CommissionType string            `json:"commission_type" validate:"required,oneof=deposit invest interest"`
	Percents       []decimal.Decimal `json:"percents" validate:"max=20"`
}

// SetReferralLevels godoc
// @Summary Replace referral levels (admin)
// @Description 整体替换某类返佣的层级比例，percents[0] 为一级
// @Tags Referral
// @Accept json
// @Produce json
// @Param body body ReferralLevelsRequest true "返佣层级"
// @Success 200 {object} map[string]interface{}
// @Router /referral/levels [put]
func SetReferralLevels(c *gin.Context) {
	var req ReferralLevelsRequest
	if err := c.ShouldBindJSON(&req); err != nil || common.Validate.Struct(&req) != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "无效的参数"})
		return
	}
	if err := model.SetReferralLevels(req.CommissionType, req.Percents); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": ""})
}

// GetSelfReferrals godoc
// @Summary List own referrals
// @Description 推荐码与直接下线
// @Tags Referral
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /user/referrals [get]
func GetSelfReferrals(c *gin.Context) {
	id := c.GetInt("id")
	user, err := model.GetUserById(id, false)
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	referrals, err := model.GetReferrals(id)
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	common.APIRespondWithData(c, gin.H{
		"aff_code":  user.AffCode,
		"referrals": referrals,
	})
}
