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

// GetEnabledPlans godoc
// @Summary List plans
// @Description 获取可投资的计划
// @Tags Plan
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /plan/ [get]
func GetEnabledPlans(c *gin.Context) {
	plans, err := model.GetEnabledPlans()
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	common.APIRespondWithData(c, plans)
}

// GetPlanList godoc
// @Summary List plans (admin)
// @Description 获取全部投资计划（管理员）
// @Tags Plan
// @Produce json
// @Param page query int false "页码"
// @Param size query int false "每页数量"
// @Param keyword query string false "名称"
// @Success 200 {object} map[string]interface{}
// @Router /plan/admin [get]
func GetPlanList(c *gin.Context) {
	var params model.GenericParams
	if err := c.ShouldBindQuery(&params); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	plans, err := model.GetPlanList(&params)
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	common.APIRespondWithData(c, plans)
}

func bindPlan(c *gin.Context) (*model.Plan, bool) {
	var plan model.Plan
	if err := c.ShouldBindJSON(&plan); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "无效的参数"})
		return nil, false
	}
	if err := common.Validate.Struct(&plan); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "输入不合法 " + err.Error()})
		return nil, false
	}
	if !plan.MinAmount.IsPositive() || (plan.MaxAmount.IsPositive() && plan.MaxAmount.LessThan(plan.MinAmount)) {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "投资金额范围不合法"})
		return nil, false
	}
	if !plan.Interest.IsPositive() {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "收益必须大于 0"})
		return nil, false
	}
	return &plan, true
}

// AddPlan godoc
// @Summary Create plan (admin)
// @Tags Plan
// @Accept json
// @Produce json
// @Param body body model.Plan true "计划"
// @Success 200 {object} map[string]interface{}
// @Router /plan/ [post]
func AddPlan(c *gin.Context) {
	plan, ok := bindPlan(c)
	if !ok {
		return
	}
	if err := plan.Insert(); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	common.APIRespondWithData(c, plan)
}

// UpdatePlan godoc
// @Summary Update plan (admin)
// @Tags Plan
// @Accept json
// @Produce json
// @Param body body model.Plan true "计划"
// @Success 200 {object} map[string]interface{}
// @Router /plan/ [put]
func UpdatePlan(c *gin.Context) {
	plan, ok := bindPlan(c)
	if !ok {
		return
	}
	if plan.ID == 0 {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "无效的参数"})
		return
	}
	if err := plan.Update(); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	common.APIRespondWithData(c, plan)
}

// DeletePlan godoc
// @Summary Delete plan (admin)
// @Tags Plan
// @Produce json
// @Param id path int true "计划ID"
// @Success 200 {object} map[string]interface{}
// @Router /plan/{id} [delete]
func DeletePlan(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	plan := model.Plan{ID: id}
	if err := plan.Delete(); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": ""})
}

type InvestRequest struct {
	PlanId int             `json:"plan_id" validate:"required"`
	Amount decimal.Decimal `json:"amount"`
	Wallet string          `json:"wallet" validate:"omitempty,oneof=deposit_wallet interest_wallet"`
}

// Invest godoc
// @Summary Invest in plan
// @Description 从指定钱包扣款投资，默认使用充值钱包
// @Tags Invest
// @Accept json
// @Produce json
// @Param body body InvestRequest true "投资请求"
// @Success 200 {object} map[string]interface{}
// @Router /invest/ [post]
func Invest(c *gin.Context) {
	var req InvestRequest
	if err := c.ShouldBindJSON(&req); err != nil || common.Validate.Struct(&req) != nil || !req.Amount.IsPositive() {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "无效的参数"})
		return
	}
	if req.Wallet == "" {
		req.Wallet = config.WalletDeposit
	}

	invest, err := model.InvestInPlan(c.GetInt("id"), req.PlanId, req.Amount, req.Wallet)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInsufficientBalance),
			errors.Is(err, model.ErrInvalidAmount),
			errors.Is(err, model.ErrPlanUnavailable),
			errors.Is(err, model.ErrInvalidWallet):
			common.APIRespondWithError(c, http.StatusOK, err)
		default:
			logger.LogError(c.Request.Context(), "invest failed", zap.Int("user_id", c.GetInt("id")), zap.Error(err))
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "投资失败，请稍后重试"})
		}
		return
	}

	if err := worker.Distributor.DistributeInvestCreated(c.Request.Context(), &worker.PayloadInvestCreated{InvestId: invest.ID}); err != nil {
		logger.LogError(c.Request.Context(), "failed to enqueue invest task", zap.String("trx", invest.Trx), zap.Error(err))
	}
	common.APIRespondWithData(c, invest)
}

// GetSelfInvestList godoc
// @Summary List own investments
// @Tags Invest
// @Produce json
// @Param page query int false "页码"
// @Param size query int false "每页数量"
// @Param status query string false "状态 running/completed"
// @Success 200 {object} map[string]interface{}
// @Router /invest/self [get]
func GetSelfInvestList(c *gin.Context) {
	var params model.SearchInvestParams
	if err := c.ShouldBindQuery(&params); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	params.UserId = c.GetInt("id")
	invests, err := model.GetInvestList(&params)
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	common.APIRespondWithData(c, invests)
}

// GetInvestList godoc
// @Summary List investments (admin)
// @Tags Invest
// @Produce json
// @Param page query int false "页码"
// @Param size query int false "每页数量"
// @Param user_id query int false "用户ID"
// @Param plan_id query int false "计划ID"
// @Param status query string false "状态"
// @Success 200 {object} map[string]interface{}
// @Router /invest/ [get]
func GetInvestList(c *gin.Context) {
	var params model.SearchInvestParams
	if err := c.ShouldBindQuery(&params); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	invests, err := model.GetInvestList(&params)
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	common.APIRespondWithData(c, invests)
}
