package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"blackcnote/common"
	"blackcnote/common/logger"
	"blackcnote/model"
	paymentService "blackcnote/payment"
	"blackcnote/payment/types"
	"blackcnote/worker"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type DepositRequest struct {
	UUID   string          `json:"uuid" form:"uuid" validate:"required"`
	Amount decimal.Decimal `json:"amount" form:"amount"`
}

func bindDepositRequest(c *gin.Context) (*DepositRequest, *paymentService.PaymentService, bool) {
	var req DepositRequest
	var err error
	if c.Request.Method == http.MethodGet {
		err = c.ShouldBindQuery(&req)
	} else {
		err = c.ShouldBindJSON(&req)
	}
	if err == nil {
		err = common.Validate.Struct(&req)
	}
	if err != nil || !req.Amount.IsPositive() {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "无效的参数"})
		return nil, nil, false
	}

	ps, err := paymentService.NewPaymentService(req.UUID)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "支付网关不存在或已停用"})
		return nil, nil, false
	}
	return &req, ps, true
}

// QuoteDeposit godoc
// @Summary Quote deposit
// @Description 计算手续费与实付金额
// @Tags Deposit
// @Produce json
// @Param uuid query string true "网关UUID"
// @Param amount query string true "充值金额"
// @Success 200 {object} map[string]interface{}
// @Router /deposit/quote [get]
func QuoteDeposit(c *gin.Context) {
	req, ps, ok := bindDepositRequest(c)
	if !ok {
		return
	}
	quote, err := ps.Quote(req.Amount)
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	common.APIRespondWithData(c, quote)
}

// CreateDeposit godoc
// @Summary Create deposit
// @Description 创建充值并返回支付指令（跳转/表单/二维码/人工转账说明）
// @Tags Deposit
// @Accept json
// @Produce json
// @Param body body DepositRequest true "充值请求"
// @Success 200 {object} map[string]interface{}
// @Router /deposit/ [post]
func CreateDeposit(c *gin.Context) {
	req, ps, ok := bindDepositRequest(c)
	if !ok {
		return
	}
	user, err := model.GetUserById(c.GetInt("id"), false)
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}

	deposit, payRequest, err := ps.Pay(c.Request.Context(), user, req.Amount, c.ClientIP())
	if err != nil {
		if errors.Is(err, paymentService.ErrAmountTooSmall) || errors.Is(err, paymentService.ErrAmountTooLarge) {
			common.APIRespondWithError(c, http.StatusOK, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "创建支付失败，请稍后重试"})
		return
	}

	common.APIRespondWithData(c, gin.H{
		"trade_no": deposit.TradeNo,
		"deposit":  deposit,
		"payment":  payRequest,
	})
}

// CheckDepositStatus godoc
// @Summary Check deposit status
// @Description 查询本人充值状态
// @Tags Deposit
// @Produce json
// @Param trade_no query string true "充值单号"
// @Success 200 {object} map[string]interface{}
// @Router /deposit/status [get]
func CheckDepositStatus(c *gin.Context) {
	tradeNo := c.Query("trade_no")
	if tradeNo == "" {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "无效的参数"})
		return
	}
	deposit, err := model.GetUserDeposit(c.GetInt("id"), tradeNo)
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	common.APIRespondWithData(c, gin.H{
		"trade_no": deposit.TradeNo,
		"status":   deposit.Status,
		"amount":   deposit.Amount,
	})
}

// GetSelfDepositList godoc
// @Summary List own deposits
// @Description 获取本人充值记录
// @Tags Deposit
// @Produce json
// @Param page query int false "页码"
// @Param size query int false "每页数量"
// @Param status query string false "状态"
// @Success 200 {object} map[string]interface{}
// @Router /deposit/self [get]
func GetSelfDepositList(c *gin.Context) {
	var params model.SearchDepositParams
	if err := c.ShouldBindQuery(&params); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	params.UserId = c.GetInt("id")

	deposits, err := model.GetDepositList(&params)
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	common.APIRespondWithData(c, deposits)
}

type ManualDepositRequest struct {
	TradeNo string            `json:"trade_no" validate:"required"`
	Fields  map[string]string `json:"fields" validate:"required,min=1"`
}

// SubmitManualDeposit godoc
// @Summary Submit manual deposit proof
// @Description 提交人工充值凭证，等待管理员审核
// @Tags Deposit
// @Accept json
// @Produce json
// @Param body body ManualDepositRequest true "凭证"
// @Success 200 {object} map[string]interface{}
// @Router /deposit/manual [post]
func SubmitManualDeposit(c *gin.Context) {
	var req ManualDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil || common.Validate.Struct(&req) != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "无效的参数"})
		return
	}
	deposit, err := model.GetUserDeposit(c.GetInt("id"), req.TradeNo)
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	if deposit.GatewayType != "manual" {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "该充值不是人工充值"})
		return
	}

	detail, err := json.Marshal(req.Fields)
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	if err := model.SubmitManualDeposit(deposit.UserId, deposit.TradeNo, string(detail)); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": ""})
}

// GetDepositList godoc
// @Summary List deposits (admin)
// @Description 获取充值记录（管理员）
// @Tags Deposit
// @Produce json
// @Param page query int false "页码"
// @Param size query int false "每页数量"
// @Param user_id query int false "用户ID"
// @Param gateway_id query int false "网关ID"
// @Param status query string false "状态"
// @Success 200 {object} map[string]interface{}
// @Router /deposit/ [get]
func GetDepositList(c *gin.Context) {
	var params model.SearchDepositParams
	if err := c.ShouldBindQuery(&params); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}

	deposits, err := model.GetDepositList(&params)
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	common.APIRespondWithData(c, deposits)
}

type ReviewRequest struct {
	Feedback string `json:"feedback"`
}

// ApproveDeposit godoc
// @Summary Approve deposit (admin)
// @Description 审核通过充值并入账
// @Tags Deposit
// @Accept json
// @Produce json
// @Param id path int true "充值ID"
// @Success 200 {object} map[string]interface{}
// @Router /deposit/{id}/approve [post]
func ApproveDeposit(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	deposit, err := model.GetDepositByID(id)
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	if deposit.IsFinal() {
		common.APIRespondWithError(c, http.StatusOK, model.ErrDepositNotPending)
		return
	}

	details := fmt.Sprintf("Deposit approved by %s", c.GetString("username"))
	deposit, credited, err := model.CompleteDeposit(deposit.TradeNo, "", details)
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	if credited {
		logger.LogInfo(c.Request.Context(), "deposit approved",
			zap.String("trade_no", deposit.TradeNo), zap.Int("admin_id", c.GetInt("id")))
		if err := worker.Distributor.DistributeDepositCompleted(c.Request.Context(), &worker.PayloadDepositCompleted{DepositId: deposit.ID}); err != nil {
			logger.LogError(c.Request.Context(), "failed to enqueue deposit task", zap.String("trade_no", deposit.TradeNo), zap.Error(err))
		}
	}
	common.APIRespondWithData(c, deposit)
}

// RejectDeposit godoc
// @Summary Reject deposit (admin)
// @Description 拒绝人工充值
// @Tags Deposit
// @Accept json
// @Produce json
// @Param id path int true "充值ID"
// @Param body body ReviewRequest false "审核意见"
// @Success 200 {object} map[string]interface{}
// @Router /deposit/{id}/reject [post]
func RejectDeposit(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	var req ReviewRequest
	_ = c.ShouldBindJSON(&req)

	if err := model.RejectDeposit(id, req.Feedback); err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": ""})
}

// GetDepositStatistics godoc
// @Summary Deposit statistics (admin)
// @Description 按币种汇总及按日统计成功充值
// @Tags Deposit
// @Produce json
// @Param start_timestamp query int false "开始时间"
// @Param end_timestamp query int false "结束时间"
// @Success 200 {object} map[string]interface{}
// @Router /deposit/statistics [get]
func GetDepositStatistics(c *gin.Context) {
	end := time.Now().Unix()
	start := end - 30*24*3600
	if v, err := strconv.ParseInt(c.Query("start_timestamp"), 10, 64); err == nil && v > 0 {
		start = v
	}
	if v, err := strconv.ParseInt(c.Query("end_timestamp"), 10, 64); err == nil && v > 0 {
		end = v
	}

	total, err := model.GetStatisticsDeposit()
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	daily, err := model.GetStatisticsDepositByPeriod(start, end)
	if err != nil {
		common.APIRespondWithError(c, http.StatusOK, err)
		return
	}
	common.APIRespondWithData(c, gin.H{
		"total": total,
		"daily": daily,
	})
}

// PaymentCallback godoc
// @Summary Gateway callback
// @Description 支付网关异步通知（IPN/Webhook），验签通过后入账
// @Tags Deposit
// @Param uuid path string true "网关UUID"
// @Param trade_no query string false "充值单号"
// @Success 200 {string} string "网关要求的应答"
// @Router /payment/notify/{uuid} [post]
func PaymentCallback(c *gin.Context) {
	ctx := c.Request.Context()
	uuid := c.Param("uuid")

	ps, err := paymentService.NewCallbackService(uuid)
	if err != nil {
		logger.LogWarn(ctx, "callback for unknown gateway", zap.String("uuid", uuid))
		c.String(http.StatusNotFound, "gateway not found")
		return
	}

	req, err := newCallbackRequest(c)
	if err != nil {
		c.String(http.StatusBadRequest, "bad request")
		return
	}

	notify, err := ps.HandleCallback(ctx, req)
	if err != nil {
		fields := []zap.Field{
			zap.String("gateway", ps.Alias()),
			zap.String("trade_no", req.TradeNo),
			zap.String("client_ip", req.ClientIP),
			zap.Any("headers", logger.MaskHeaders(req.Header)),
			zap.Any("payload", maskedPayload(req)),
			zap.Error(err),
		}
		var verr *types.VerificationError
		if errors.As(err, &verr) || errors.Is(err, types.ErrCallbackUnsupported) {
			logger.LogWarn(ctx, "payment callback rejected", fields...)
			c.String(http.StatusBadRequest, "fail")
			return
		}
		logger.LogError(ctx, "payment callback failed", fields...)
		c.String(http.StatusInternalServerError, "fail")
		return
	}

	contentType := notify.ReplyContentType
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}
	c.Data(http.StatusOK, contentType, []byte(notify.Reply))
}

// maskedPayload 回调原文脱敏后用于排查，JSON 按字段脱敏，其余按表单/查询参数脱敏
func maskedPayload(req *types.CallbackRequest) any {
	var payload map[string]any
	if len(req.Body) > 0 && json.Unmarshal(req.Body, &payload) == nil {
		return logger.MaskJSON(payload)
	}
	return logger.MaskValues(req.Values())
}

func newCallbackRequest(c *gin.Context) (*types.CallbackRequest, error) {
	body, err := common.GetRequestBody(c)
	if err != nil {
		return nil, err
	}
	req := &types.CallbackRequest{
		Method:   c.Request.Method,
		Header:   c.Request.Header.Clone(),
		Query:    c.Request.URL.Query(),
		Body:     body,
		ClientIP: c.ClientIP(),
		TradeNo:  c.Query("trade_no"),
	}
	// 仅表单请求解析表单，JSON 等原文由网关自行解析
	if c.ContentType() == gin.MIMEPOSTForm || c.ContentType() == gin.MIMEMultipartPOSTForm {
		if err := c.Request.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return nil, err
		}
		req.Form = c.Request.PostForm
	}
	return req, nil
}
