package controller

import (
	"net/http"
	"strconv"

	"blackcnote/common"
	"blackcnote/common/logger"
	"blackcnote/model"
	paymentService "blackcnote/payment"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GetGatewayList godoc
// @Summary List gateways (admin)
// @Description 获取支付网关列表（管理员）
// @Tags Gateway
// @Produce json
// @Param page query int false "页码"
// @Param size query int false "每页数量"
// @Param order query string false "排序"
// @Param type query string false "网关别名"
// @Success 200 {object} map[string]interface{}
// @Router /gateway/ [get]
func GetGatewayList(c *gin.Context) {
	var params model.SearchGatewayParams
	if err := c.ShouldBindQuery(&params); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}

	gateways, err := model.GetGatewayList(&params)
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	common.APIRespondWithData(c, gateways)
}

// GetGateway godoc
// @Summary Get gateway (admin)
// @Description 获取支付网关详情（管理员）
// @Tags Gateway
// @Produce json
// @Param id path int true "网关ID"
// @Success 200 {object} map[string]interface{}
// @Router /gateway/{id} [get]
func GetGateway(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}

	gateway, err := model.GetGatewayByID(id)
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	common.APIRespondWithData(c, gateway)
}

// AddGateway godoc
// @Summary Create gateway (admin)
// @Description 新增支付网关并完成渠道侧初始化（管理员）
// @Tags Gateway
// @Accept json
// @Produce json
// @Param body body model.Gateway true "网关信息"
// @Success 201 {object} map[string]interface{}
// @Router /gateway/ [post]
func AddGateway(c *gin.Context) {
	gateway := model.Gateway{}
	if err := c.ShouldBindJSON(&gateway); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	if _, err := paymentService.GetProcessor(gateway.Type); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}

	if err := gateway.Insert(); err != nil {
		common.APIRespondWithError(c, http.StatusInternalServerError, err)
		return
	}

	// 初始化失败时回滚，避免留下无法使用的网关
	rollback := func(err error) {
		if deleteErr := gateway.Delete(); deleteErr != nil {
			logger.LogError(c.Request.Context(), "failed to delete gateway after init error",
				zap.Int("gateway_id", gateway.ID), zap.Error(deleteErr))
		}
		common.APIRespondWithError(c, http.StatusOK, err)
	}

	ps, err := paymentService.NewPaymentServiceWithGateway(&gateway)
	if err != nil {
		rollback(err)
		return
	}
	if err := ps.CreatedPay(); err != nil {
		rollback(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Gateway added successfully",
		"data":    ps.Payment,
	})
}

// UpdateGateway godoc
// @Summary Update gateway (admin)
// @Description 更新支付网关（管理员），携带 uuid 时整体覆盖
// @Tags Gateway
// @Accept json
// @Produce json
// @Param body body model.Gateway true "网关信息"
// @Success 200 {object} map[string]interface{}
// @Router /gateway/ [put]
func UpdateGateway(c *gin.Context) {
	gateway := model.Gateway{}
	if err := c.ShouldBindJSON(&gateway); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	if gateway.ID == 0 {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "无效的参数"})
		return
	}
	if gateway.Type != "" {
		if _, err := paymentService.GetProcessor(gateway.Type); err != nil {
			common.APIRespondWithError(c, http.StatusOK, err)
			return
		}
	}

	if err := gateway.Update(gateway.UUID != ""); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	common.APIRespondWithData(c, gateway)
}

// DeleteGateway godoc
// @Summary Delete gateway (admin)
// @Description 删除支付网关（管理员）
// @Tags Gateway
// @Produce json
// @Param id path int true "网关ID"
// @Success 200 {object} map[string]interface{}
// @Router /gateway/{id} [delete]
func DeleteGateway(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}

	gateway := model.Gateway{ID: id}
	if err := gateway.Delete(); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "",
	})
}

// GetUserGatewayList godoc
// @Summary List enabled gateways (user)
// @Description 获取可用支付网关（用户，不含凭据）
// @Tags Gateway
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /gateway/user [get]
func GetUserGatewayList(c *gin.Context) {
	gateways, err := model.GetUserGatewayList()
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	common.APIRespondWithData(c, gateways)
}

// GetGatewayAliases godoc
// @Summary List gateway aliases (admin)
// @Description 获取已注册的网关别名
// @Tags Gateway
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /gateway/aliases [get]
func GetGatewayAliases(c *gin.Context) {
	common.APIRespondWithData(c, paymentService.Aliases())
}
