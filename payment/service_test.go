package payment

import (
	"context"
	"errors"
	"testing"

	"blackcnote/common/config"
	"blackcnote/model"
	"blackcnote/payment/types"
	"blackcnote/worker"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProcessor 按测试设定返回回调结果
type fakeProcessor struct {
	notify  *types.PayNotify
	err     error
	payErr  error
	lastPay *types.PayConfig
}

func (f *fakeProcessor) Name() string { return "Fake" }

func (f *fakeProcessor) Pay(_ context.Context, config *types.PayConfig, _ string) (*types.PayRequest, error) {
	f.lastPay = config
	if f.payErr != nil {
		return nil, f.payErr
	}
	return &types.PayRequest{Type: types.PayTypeRedirect, URL: "https://pay.example.com", GatewayNo: "GW-" + config.TradeNo}, nil
}

func (f *fakeProcessor) CreatedPay(string, *model.Gateway) error { return nil }

func (f *fakeProcessor) HandleCallback(context.Context, *types.CallbackRequest, string) (*types.PayNotify, error) {
	if f.err != nil {
		return nil, f.err
	}
	copied := *f.notify
	return &copied, nil
}

func setupService(t *testing.T) (*PaymentService, *fakeProcessor, *model.User) {
	t.Helper()
	require.NoError(t, model.SetupTestDB(t.Name()))
	t.Cleanup(func() { _ = model.CloseDB() })

	previous := worker.Distributor
	worker.Distributor = worker.NewInlineTaskDistributor(false)
	t.Cleanup(func() { worker.Distributor = previous })

	fake := &fakeProcessor{}
	Register("fake", fake)
	t.Cleanup(func() {
		gatewaysMu.Lock()
		delete(Gateways, "fake")
		gatewaysMu.Unlock()
	})

	gateway := &model.Gateway{
		Type:          "fake",
		Name:          "Fake",
		FixedCharge:   decimal.NewFromInt(1),
		PercentCharge: decimal.NewFromInt(2),
		MinAmount:     decimal.NewFromInt(10),
		MaxAmount:     decimal.NewFromInt(1000),
		Rate:          decimal.NewFromInt(1),
		Currency:      "USD",
		Config:        `{}`,
	}
	require.NoError(t, gateway.Insert())

	user := &model.User{Username: "payer", Password: "password123", Email: "payer@example.com", Status: config.UserStatusEnabled}
	require.NoError(t, user.Insert(0))

	service, err := NewPaymentService(gateway.UUID)
	require.NoError(t, err)
	return service, fake, user
}

func TestNewPaymentServiceUnknownGateway(t *testing.T) {
	require.NoError(t, model.SetupTestDB(t.Name()))
	t.Cleanup(func() { _ = model.CloseDB() })

	_, err := NewPaymentService("missing")
	assert.ErrorIs(t, err, types.ErrGatewayNotFound)
}

func TestQuote(t *testing.T) {
	service, _, _ := setupService(t)

	quote, err := service.Quote(decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, quote.Charge.Equal(decimal.NewFromInt(3)), quote.Charge.String())
	assert.True(t, quote.FinalAmount.Equal(decimal.NewFromInt(103)))

	_, err = service.Quote(decimal.NewFromInt(5))
	assert.ErrorIs(t, err, ErrAmountTooSmall)
	_, err = service.Quote(decimal.NewFromInt(5000))
	assert.ErrorIs(t, err, ErrAmountTooLarge)
}

func TestPayCreatesDeposit(t *testing.T) {
	service, fake, user := setupService(t)

	deposit, req, err := service.Pay(context.Background(), user, decimal.NewFromInt(100), "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, types.PayTypeRedirect, req.Type)
	assert.Equal(t, model.DepositStatusInitiated, deposit.Status)
	assert.Contains(t, fake.lastPay.NotifyURL, "/api/payment/notify/"+service.Payment.UUID)
	assert.Contains(t, fake.lastPay.NotifyURL, "trade_no="+deposit.TradeNo)

	stored, err := model.GetDepositByTradeNo(deposit.TradeNo)
	require.NoError(t, err)
	assert.Equal(t, "GW-"+deposit.TradeNo, stored.GatewayNo)
}

func TestPayFailureClosesDeposit(t *testing.T) {
	service, fake, user := setupService(t)
	fake.payErr = errors.New("boom")

	_, _, err := service.Pay(context.Background(), user, decimal.NewFromInt(100), "")
	require.Error(t, err)

	var deposits []model.Deposit
	require.NoError(t, model.DB.Find(&deposits).Error)
	require.Len(t, deposits, 1)
	assert.Equal(t, model.DepositStatusFailed, deposits[0].Status)
}

func TestHandleCallbackCreditsOnce(t *testing.T) {
	service, fake, user := setupService(t)
	deposit, _, err := service.Pay(context.Background(), user, decimal.NewFromInt(100), "")
	require.NoError(t, err)

	fake.notify = types.NewNotify(deposit.TradeNo, "GW-1", types.NotifyStatusSuccess)
	fake.notify.Amount = decimal.RequireFromString("103.00")
	fake.notify.Currency = "usd"

	req := &types.CallbackRequest{TradeNo: deposit.TradeNo}
	for i := 0; i < 3; i++ {
		notify, err := service.HandleCallback(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "success", notify.Reply)
	}

	reloaded, err := model.GetUserById(user.Id, false)
	require.NoError(t, err)
	assert.True(t, reloaded.DepositWallet.Equal(decimal.NewFromInt(100)), reloaded.DepositWallet.String())

	var count int64
	require.NoError(t, model.DB.Model(&model.Transaction{}).Where("trx = ?", deposit.TradeNo).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestHandleCallbackRejectsUnderpayment(t *testing.T) {
	service, fake, user := setupService(t)
	deposit, _, err := service.Pay(context.Background(), user, decimal.NewFromInt(100), "")
	require.NoError(t, err)

	fake.notify = types.NewNotify(deposit.TradeNo, "", types.NotifyStatusSuccess)
	fake.notify.Amount = decimal.NewFromInt(50)
	_, err = service.HandleCallback(context.Background(), &types.CallbackRequest{})
	assert.ErrorIs(t, err, types.ErrAmountMismatch)

	fake.notify.Amount = decimal.NewFromInt(103)
	fake.notify.Currency = "EUR"
	_, err = service.HandleCallback(context.Background(), &types.CallbackRequest{})
	assert.ErrorIs(t, err, types.ErrCurrencyMismatch)

	stored, err := model.GetDepositByTradeNo(deposit.TradeNo)
	require.NoError(t, err)
	assert.Equal(t, model.DepositStatusInitiated, stored.Status)
}

func TestHandleCallbackTradeNoMismatch(t *testing.T) {
	service, fake, user := setupService(t)
	deposit, _, err := service.Pay(context.Background(), user, decimal.NewFromInt(100), "")
	require.NoError(t, err)

	fake.notify = types.NewNotify(deposit.TradeNo, "", types.NotifyStatusSuccess)
	_, err = service.HandleCallback(context.Background(), &types.CallbackRequest{TradeNo: "OTHER"})
	assert.ErrorIs(t, err, types.ErrDepositNotFound)
}

func TestHandleCallbackStatuses(t *testing.T) {
	service, fake, user := setupService(t)
	deposit, _, err := service.Pay(context.Background(), user, decimal.NewFromInt(100), "")
	require.NoError(t, err)

	fake.notify = types.NewNotify(deposit.TradeNo, "", types.NotifyStatusPending)
	_, err = service.HandleCallback(context.Background(), &types.CallbackRequest{})
	require.NoError(t, err)
	stored, _ := model.GetDepositByTradeNo(deposit.TradeNo)
	assert.Equal(t, model.DepositStatusPending, stored.Status)

	fake.notify.Status = types.NotifyStatusFailed
	_, err = service.HandleCallback(context.Background(), &types.CallbackRequest{})
	require.NoError(t, err)
	stored, _ = model.GetDepositByTradeNo(deposit.TradeNo)
	assert.Equal(t, model.DepositStatusFailed, stored.Status)

	// 已失败的充值不再入账
	fake.notify.Status = types.NotifyStatusSuccess
	_, err = service.HandleCallback(context.Background(), &types.CallbackRequest{})
	assert.ErrorIs(t, err, types.ErrDepositClosed)
}

func TestHandleCallbackIgnoredNotice(t *testing.T) {
	service, fake, user := setupService(t)
	deposit, _, err := service.Pay(context.Background(), user, decimal.NewFromInt(100), "")
	require.NoError(t, err)

	fake.notify = types.NewNotify(deposit.TradeNo, "GW-1", types.NotifyStatusSuccess)
	fake.notify.Amount = decimal.NewFromInt(103)
	_, err = service.HandleCallback(context.Background(), &types.CallbackRequest{})
	require.NoError(t, err)

	// 退款通知只应答，已入账金额不变
	fake.notify = types.NewNotify(deposit.TradeNo, "GW-REFUND", types.NotifyStatusIgnored)
	fake.notify.Amount = decimal.NewFromInt(-103)
	notify, err := service.HandleCallback(context.Background(), &types.CallbackRequest{})
	require.NoError(t, err)
	assert.Equal(t, types.NotifyStatusIgnored, notify.Status)

	stored, err := model.GetDepositByTradeNo(deposit.TradeNo)
	require.NoError(t, err)
	assert.Equal(t, model.DepositStatusSuccess, stored.Status)
	reloaded, err := model.GetUserById(user.Id, false)
	require.NoError(t, err)
	assert.True(t, reloaded.DepositWallet.Equal(decimal.NewFromInt(100)), reloaded.DepositWallet.String())
}

func TestNewCallbackServiceDisabledGateway(t *testing.T) {
	service, _, _ := setupService(t)
	require.NoError(t, model.DB.Model(&model.Gateway{}).Where("id = ?", service.Payment.ID).Update("enable", false).Error)

	_, err := NewPaymentService(service.Payment.UUID)
	assert.ErrorIs(t, err, types.ErrGatewayNotFound)

	callback, err := NewCallbackService(service.Payment.UUID)
	require.NoError(t, err)
	assert.Equal(t, service.Payment.ID, callback.Payment.ID)

	_, err = NewCallbackService("missing")
	assert.ErrorIs(t, err, types.ErrGatewayNotFound)
}

func TestHandleCallbackVerificationFailure(t *testing.T) {
	service, fake, _ := setupService(t)
	fake.err = types.SignatureError("fake")

	_, err := service.HandleCallback(context.Background(), &types.CallbackRequest{})
	var verr *types.VerificationError
	assert.True(t, errors.As(err, &verr))
}

func TestAliasesIncludesBuiltins(t *testing.T) {
	aliases := Aliases()
	names := make([]string, 0, len(aliases))
	for _, info := range aliases {
		names = append(names, info.Alias)
	}
	for _, alias := range []string{"paypal", "stripe", "perfectmoney", "blockchain", "manual"} {
		assert.Contains(t, names, alias)
	}
	_, err := GetProcessor("nope")
	assert.ErrorIs(t, err, types.ErrGatewayNotFound)
}
