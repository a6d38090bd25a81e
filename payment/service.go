package payment

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"blackcnote/common/config"
	"blackcnote/common/logger"
	"blackcnote/common/metrics"
	"blackcnote/model"
	"blackcnote/payment/types"
	"blackcnote/worker"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	ErrAmountTooSmall = errors.New("充值金额低于最低限额")
	ErrAmountTooLarge = errors.New("充值金额超过最高限额")
)

// precisioner 由以加密货币计价的网关实现，默认保留两位小数
type precisioner interface {
	AmountPrecision() int32
}

type PaymentService struct {
	Payment *model.Gateway
	gateway PaymentProcessor
}

func NewPaymentService(uuid string) (*PaymentService, error) {
	payment, err := model.GetGatewayByUUID(uuid, true)
	if err != nil {
		return nil, types.ErrGatewayNotFound
	}
	return NewPaymentServiceWithGateway(payment)
}

// NewCallbackService 停用网关仍需接收在途充值的回调
func NewCallbackService(uuid string) (*PaymentService, error) {
	payment, err := model.GetGatewayByUUID(uuid, false)
	if err != nil {
		return nil, types.ErrGatewayNotFound
	}
	return NewPaymentServiceWithGateway(payment)
}

// NewPaymentServiceWithGateway 直接使用已加载的网关（如新增后尚未启用的网关）
func NewPaymentServiceWithGateway(payment *model.Gateway) (*PaymentService, error) {
	gateway, err := GetProcessor(payment.Type)
	if err != nil {
		return nil, err
	}

	return &PaymentService{
		Payment: payment,
		gateway: gateway,
	}, nil
}

func (s *PaymentService) Alias() string {
	return s.Payment.Type
}

func (s *PaymentService) precision() int32 {
	if p, ok := s.gateway.(precisioner); ok {
		return p.AmountPrecision()
	}
	return 2
}

// CreatedPay 新增网关时校验配置并完成渠道侧初始化
func (s *PaymentService) CreatedPay() error {
	return s.gateway.CreatedPay(s.getNotifyURL(""), s.Payment)
}

// Quote 计算手续费与实付金额
type Quote struct {
	Amount      decimal.Decimal `json:"amount"`
	Charge      decimal.Decimal `json:"charge"`
	Payable     decimal.Decimal `json:"payable"`
	Rate        decimal.Decimal `json:"rate"`
	FinalAmount decimal.Decimal `json:"final_amount"`
	Currency    string          `json:"currency"`
}

func (s *PaymentService) Quote(amount decimal.Decimal) (*Quote, error) {
	if !amount.IsPositive() || amount.LessThan(decimal.NewFromInt(int64(config.PaymentMinAmount))) {
		return nil, ErrAmountTooSmall
	}
	if amount.LessThan(s.Payment.MinAmount) {
		return nil, ErrAmountTooSmall
	}
	if s.Payment.MaxAmount.IsPositive() && amount.GreaterThan(s.Payment.MaxAmount) {
		return nil, ErrAmountTooLarge
	}

	charge := s.Payment.Charge(amount)
	payable := amount.Add(charge)
	rate := s.Payment.EffectiveRate()
	return &Quote{
		Amount:      amount,
		Charge:      charge,
		Payable:     payable,
		Rate:        rate,
		FinalAmount: payable.Mul(rate).Round(s.precision()),
		Currency:    s.Payment.Currency,
	}, nil
}

// Pay 创建充值记录并向网关获取支付指令
func (s *PaymentService) Pay(ctx context.Context, user *model.User, amount decimal.Decimal, clientIP string) (*model.Deposit, *types.PayRequest, error) {
	quote, err := s.Quote(amount)
	if err != nil {
		return nil, nil, err
	}

	deposit := &model.Deposit{
		UserId:         user.Id,
		GatewayId:      s.Payment.ID,
		GatewayType:    s.Payment.Type,
		Amount:         quote.Amount,
		Charge:         quote.Charge,
		Rate:           quote.Rate,
		FinalAmount:    quote.FinalAmount,
		MethodCurrency: quote.Currency,
	}
	if err = deposit.Insert(); err != nil {
		return nil, nil, err
	}
	metrics.DepositCreated.WithLabelValues(s.Alias()).Inc()

	payConfig := &types.PayConfig{
		NotifyURL:   s.getNotifyURL(deposit.TradeNo),
		ReturnURL:   s.getReturnURL(deposit.TradeNo, "success"),
		CancelURL:   s.getReturnURL(deposit.TradeNo, "cancel"),
		TradeNo:     deposit.TradeNo,
		Amount:      quote.FinalAmount,
		Currency:    quote.Currency,
		Description: fmt.Sprintf("%s deposit %s", config.SystemName, deposit.TradeNo),
		User: types.PayUser{
			Id:       user.Id,
			Username: user.Username,
			Email:    user.Email,
		},
		ClientIP: clientIP,
	}

	start := time.Now()
	payRequest, err := s.gateway.Pay(ctx, payConfig, s.Payment.Config)
	metrics.GatewayRequestDuration.WithLabelValues(s.Alias()).Observe(time.Since(start).Seconds())
	if err != nil {
		logger.LogError(ctx, "payment gateway request failed",
			zap.String("gateway", s.Alias()), zap.String("trade_no", deposit.TradeNo), zap.Error(err))
		_ = model.FailDeposit(deposit.TradeNo)
		return nil, nil, err
	}
	if err = deposit.SetGatewayNo(payRequest.GatewayNo); err != nil {
		logger.LogWarn(ctx, "failed to save gateway no", zap.String("trade_no", deposit.TradeNo), zap.Error(err))
	}
	return deposit, payRequest, nil
}

// HandleCallback 校验回调并按结果更新充值，成功时入账
func (s *PaymentService) HandleCallback(ctx context.Context, req *types.CallbackRequest) (*types.PayNotify, error) {
	notify, err := s.gateway.HandleCallback(ctx, req, s.Payment.Config)
	if err != nil {
		s.countCallback(metrics.ResultRejected)
		return nil, err
	}
	if notify.Status == types.NotifyStatusIgnored {
		s.countCallback(metrics.ResultIgnored)
		logger.LogInfo(ctx, "gateway notice acknowledged without change",
			zap.String("gateway", s.Alias()), zap.String("trade_no", notify.TradeNo),
			zap.String("gateway_no", notify.GatewayNo), zap.String("amount", notify.Amount.String()))
		return notify, nil
	}

	deposit, err := s.findDeposit(notify, req)
	if err != nil {
		s.countCallback(metrics.ResultRejected)
		return nil, err
	}

	switch notify.Status {
	case types.NotifyStatusPending:
		s.countCallback(metrics.ResultPending)
		if err = model.MarkDepositPending(deposit.TradeNo); err != nil {
			return nil, err
		}
		logger.LogDebug(ctx, "deposit pending at gateway", zap.String("gateway", s.Alias()), zap.String("trade_no", deposit.TradeNo))
		return notify, nil
	case types.NotifyStatusFailed:
		s.countCallback(metrics.ResultFailed)
		if err = model.FailDeposit(deposit.TradeNo); err != nil && !errors.Is(err, model.ErrDepositNotPending) {
			return nil, err
		}
		return notify, nil
	}

	if deposit.Status == model.DepositStatusSuccess {
		s.countCallback(metrics.ResultSuccess)
		return notify, nil
	}
	if deposit.Status == model.DepositStatusFailed || deposit.Status == model.DepositStatusRejected {
		s.countCallback(metrics.ResultRejected)
		return nil, types.NewVerificationError(s.Alias(), "deposit is "+string(deposit.Status), types.ErrDepositClosed)
	}
	if err = s.checkAmount(deposit, notify); err != nil {
		s.countCallback(metrics.ResultRejected)
		return nil, err
	}

	details := fmt.Sprintf("Deposit via %s", s.Payment.Name)
	deposit, credited, err := model.CompleteDeposit(deposit.TradeNo, notify.GatewayNo, details)
	if err != nil {
		s.countCallback(metrics.ResultError)
		return nil, err
	}
	s.countCallback(metrics.ResultSuccess)

	if credited {
		metrics.DepositCredited.WithLabelValues(s.Alias()).Inc()
		logger.LogInfo(ctx, "deposit credited",
			zap.String("gateway", s.Alias()), zap.String("trade_no", deposit.TradeNo),
			zap.String("amount", deposit.Amount.String()))
		if err := worker.Distributor.DistributeDepositCompleted(ctx, &worker.PayloadDepositCompleted{DepositId: deposit.ID}); err != nil {
			logger.LogError(ctx, "failed to enqueue deposit task", zap.String("trade_no", deposit.TradeNo), zap.Error(err))
		}
	}
	return notify, nil
}

func (s *PaymentService) countCallback(result string) {
	metrics.CallbackTotal.WithLabelValues(s.Alias(), result).Inc()
}

func (s *PaymentService) findDeposit(notify *types.PayNotify, req *types.CallbackRequest) (*model.Deposit, error) {
	if notify.TradeNo == "" {
		notify.TradeNo = req.TradeNo
	}
	// 渠道回传的单号必须与通知地址上的一致
	if req.TradeNo != "" && notify.TradeNo != req.TradeNo {
		return nil, types.NewVerificationError(s.Alias(), "trade no mismatch", types.ErrDepositNotFound)
	}

	var (
		deposit *model.Deposit
		err     error
	)
	switch {
	case notify.TradeNo != "":
		deposit, err = model.GetDepositByTradeNo(notify.TradeNo)
	case notify.GatewayNo != "":
		deposit, err = model.GetDepositByGatewayNo(s.Payment.ID, notify.GatewayNo)
	default:
		return nil, types.NewVerificationError(s.Alias(), "missing trade no", types.ErrCallbackMalformed)
	}
	if err != nil {
		if errors.Is(err, model.ErrDepositNotFound) {
			return nil, types.NewVerificationError(s.Alias(), "unknown deposit", types.ErrDepositNotFound)
		}
		return nil, err
	}
	if deposit.GatewayId != s.Payment.ID {
		return nil, types.NewVerificationError(s.Alias(), "deposit belongs to another gateway", types.ErrDepositNotFound)
	}
	notify.TradeNo = deposit.TradeNo
	return deposit, nil
}

func (s *PaymentService) checkAmount(deposit *model.Deposit, notify *types.PayNotify) error {
	if notify.Currency != "" && deposit.MethodCurrency != "" && !strings.EqualFold(notify.Currency, deposit.MethodCurrency) {
		return types.NewVerificationError(s.Alias(),
			fmt.Sprintf("currency %s, expected %s", notify.Currency, deposit.MethodCurrency), types.ErrCurrencyMismatch)
	}
	if notify.Amount.IsZero() {
		return nil
	}
	precision := s.precision()
	if notify.Amount.Round(precision).LessThan(deposit.FinalAmount.Round(precision)) {
		return types.NewVerificationError(s.Alias(),
			fmt.Sprintf("paid %s, expected %s", notify.Amount.String(), deposit.FinalAmount.String()), types.ErrAmountMismatch)
	}
	return nil
}

func (s *PaymentService) getNotifyURL(tradeNo string) string {
	notifyDomain := s.Payment.NotifyDomain
	if notifyDomain == "" {
		notifyDomain = config.ServerAddress
	}
	notifyURL := fmt.Sprintf("%s/api/payment/notify/%s", strings.TrimSuffix(notifyDomain, "/"), s.Payment.UUID)
	if tradeNo != "" {
		notifyURL += "?trade_no=" + url.QueryEscape(tradeNo)
	}
	return notifyURL
}

func (s *PaymentService) getReturnURL(tradeNo, result string) string {
	base := viper.GetString("frontend_base_url")
	if base == "" {
		base = config.ServerAddress
	}
	return fmt.Sprintf("%s/deposit/result?trade_no=%s&result=%s", strings.TrimSuffix(base, "/"), url.QueryEscape(tradeNo), result)
}
