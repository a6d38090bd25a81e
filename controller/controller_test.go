package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"blackcnote/common"
	"blackcnote/common/config"
	"blackcnote/model"
	paymentService "blackcnote/payment"
	"blackcnote/payment/types"
	"blackcnote/worker"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// stubProcessor 按测试设定返回回调结果
type stubProcessor struct {
	notify *types.PayNotify
	err    error
}

func (s *stubProcessor) Name() string { return "Stub" }

func (s *stubProcessor) Pay(_ context.Context, config *types.PayConfig, _ string) (*types.PayRequest, error) {
	return &types.PayRequest{Type: types.PayTypeRedirect, URL: "https://pay.example.com/" + config.TradeNo}, nil
}

func (s *stubProcessor) CreatedPay(string, *model.Gateway) error { return nil }

func (s *stubProcessor) HandleCallback(context.Context, *types.CallbackRequest, string) (*types.PayNotify, error) {
	if s.err != nil {
		return nil, s.err
	}
	copied := *s.notify
	return &copied, nil
}

func setupControllerTest(t *testing.T) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, model.SetupTestDB(t.Name()))
	t.Cleanup(func() { _ = model.CloseDB() })

	previous := worker.Distributor
	worker.Distributor = worker.NewInlineTaskDistributor(false)
	t.Cleanup(func() { worker.Distributor = previous })
}

func createUser(t *testing.T, username string, role int) *model.User {
	t.Helper()
	user := &model.User{
		Username:    username,
		Password:    "password123",
		DisplayName: username,
		Role:        role,
		Status:      config.UserStatusEnabled,
	}
	require.NoError(t, user.Insert(0))
	return user
}

// newTestEngine 以指定用户身份挂载路由，user 为 nil 时不注入身份
func newTestEngine(user *model.User, register func(r *gin.Engine)) *gin.Engine {
	r := gin.New()
	r.Use(sessions.Sessions("session", cookie.NewStore([]byte("test-secret"))))
	if user != nil {
		r.Use(func(c *gin.Context) {
			c.Set("id", user.Id)
			c.Set("role", user.Role)
			c.Set("username", user.Username)
			c.Next()
		})
	}
	register(r)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, target string, body any) apiResponse {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func createStubGateway(t *testing.T) (*model.Gateway, *stubProcessor) {
	t.Helper()
	stub := &stubProcessor{}
	paymentService.Register("stub", stub)
	t.Cleanup(func() { paymentService.Register("stub", &stubProcessor{}) })

	gateway := &model.Gateway{
		Type:      "stub",
		Name:      "Stub",
		MinAmount: decimal.NewFromInt(10),
		MaxAmount: decimal.NewFromInt(1000),
		Rate:      decimal.NewFromInt(1),
		Currency:  "USD",
		Config:    `{}`,
	}
	require.NoError(t, gateway.Insert())
	return gateway, stub
}

func TestCreateDepositAndCallback(t *testing.T) {
	setupControllerTest(t)
	gateway, stub := createStubGateway(t)
	user := createUser(t, "payer", config.RoleCommonUser)

	r := newTestEngine(user, func(r *gin.Engine) {
		r.POST("/api/deposit/", CreateDeposit)
		r.GET("/api/deposit/status", CheckDepositStatus)
	})
	resp := doJSON(t, r, http.MethodPost, "/api/deposit/", gin.H{"uuid": gateway.UUID, "amount": "100"})
	require.True(t, resp.Success, resp.Message)

	var created struct {
		TradeNo string            `json:"trade_no"`
		Payment *types.PayRequest `json:"payment"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	require.NotEmpty(t, created.TradeNo)
	assert.Equal(t, types.PayTypeRedirect, created.Payment.Type)

	stub.notify = types.NewNotify(created.TradeNo, "GW-1", types.NotifyStatusSuccess)
	stub.notify.Amount = decimal.NewFromInt(100)

	callback := newTestEngine(nil, func(r *gin.Engine) {
		r.Any("/api/payment/notify/:uuid", PaymentCallback)
	})
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/payment/notify/"+gateway.UUID+"?trade_no="+created.TradeNo,
			strings.NewReader("status=paid"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		callback.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "success", w.Body.String())
	}

	reloaded, err := model.GetUserById(user.Id, false)
	require.NoError(t, err)
	assert.True(t, reloaded.DepositWallet.Equal(decimal.NewFromInt(100)), reloaded.DepositWallet.String())

	status := doJSON(t, r, http.MethodGet, "/api/deposit/status?trade_no="+created.TradeNo, nil)
	require.True(t, status.Success)
	assert.Contains(t, string(status.Data), `"status":"success"`)
}

func TestPaymentCallbackRejections(t *testing.T) {
	setupControllerTest(t)
	gateway, stub := createStubGateway(t)

	r := newTestEngine(nil, func(r *gin.Engine) {
		r.Any("/api/payment/notify/:uuid", PaymentCallback)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/payment/notify/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	stub.err = types.SignatureError("stub")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/payment/notify/"+gateway.UUID+"?trade_no=X", strings.NewReader("{}")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "fail", w.Body.String())
}

func TestPaymentCallbackDisabledGateway(t *testing.T) {
	setupControllerTest(t)
	gateway, stub := createStubGateway(t)
	user := createUser(t, "payer", config.RoleCommonUser)

	r := newTestEngine(user, func(r *gin.Engine) {
		r.POST("/api/deposit/", CreateDeposit)
		r.Any("/api/payment/notify/:uuid", PaymentCallback)
	})
	resp := doJSON(t, r, http.MethodPost, "/api/deposit/", gin.H{"uuid": gateway.UUID, "amount": "100"})
	require.True(t, resp.Success, resp.Message)
	var created struct {
		TradeNo string `json:"trade_no"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &created))

	// 充值进行中时管理员停用了网关
	require.NoError(t, model.DB.Model(&model.Gateway{}).Where("id = ?", gateway.ID).Update("enable", false).Error)
	assert.False(t, doJSON(t, r, http.MethodPost, "/api/deposit/", gin.H{"uuid": gateway.UUID, "amount": "100"}).Success)

	stub.notify = types.NewNotify(created.TradeNo, "GW-1", types.NotifyStatusSuccess)
	stub.notify.Amount = decimal.NewFromInt(100)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/payment/notify/"+gateway.UUID+"?trade_no="+created.TradeNo, strings.NewReader("{}")))
	assert.Equal(t, http.StatusOK, w.Code)

	reloaded, err := model.GetUserById(user.Id, false)
	require.NoError(t, err)
	assert.True(t, reloaded.DepositWallet.Equal(decimal.NewFromInt(100)), reloaded.DepositWallet.String())
}

func TestPaymentCallbackIgnoredNotice(t *testing.T) {
	setupControllerTest(t)
	gateway, stub := createStubGateway(t)

	r := newTestEngine(nil, func(r *gin.Engine) {
		r.Any("/api/payment/notify/:uuid", PaymentCallback)
	})
	// 未知单号的退款通知也直接应答
	stub.notify = types.NewNotify("UNKNOWN", "GW-REFUND", types.NotifyStatusIgnored)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/payment/notify/"+gateway.UUID, strings.NewReader("{}")))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", w.Body.String())
}

func TestCreateDepositRejectsInvalidAmount(t *testing.T) {
	setupControllerTest(t)
	gateway, _ := createStubGateway(t)
	user := createUser(t, "payer", config.RoleCommonUser)

	r := newTestEngine(user, func(r *gin.Engine) {
		r.POST("/api/deposit/", CreateDeposit)
	})
	assert.False(t, doJSON(t, r, http.MethodPost, "/api/deposit/", gin.H{"uuid": gateway.UUID, "amount": "-1"}).Success)
	assert.False(t, doJSON(t, r, http.MethodPost, "/api/deposit/", gin.H{"uuid": gateway.UUID, "amount": "5"}).Success)
	assert.False(t, doJSON(t, r, http.MethodPost, "/api/deposit/", gin.H{"uuid": "missing", "amount": "50"}).Success)
}

func TestInvestFromDepositWallet(t *testing.T) {
	setupControllerTest(t)
	user := createUser(t, "investor", config.RoleCommonUser)
	_, err := model.AdjustBalance(user.Id, config.WalletDeposit, decimal.NewFromInt(200), true, "seed")
	require.NoError(t, err)

	plan := &model.Plan{
		Name:          "Starter",
		MinAmount:     decimal.NewFromInt(50),
		MaxAmount:     decimal.NewFromInt(500),
		Interest:      decimal.NewFromInt(2),
		InterestType:  model.InterestTypePercent,
		IntervalHours: 24,
		RepeatTimes:   10,
	}
	require.NoError(t, plan.Insert())

	r := newTestEngine(user, func(r *gin.Engine) {
		r.POST("/api/invest/", Invest)
	})
	resp := doJSON(t, r, http.MethodPost, "/api/invest/", gin.H{"plan_id": plan.ID, "amount": "150"})
	require.True(t, resp.Success, resp.Message)

	resp = doJSON(t, r, http.MethodPost, "/api/invest/", gin.H{"plan_id": plan.ID, "amount": "100"})
	assert.False(t, resp.Success)
	assert.Equal(t, model.ErrInsufficientBalance.Error(), resp.Message)

	resp = doJSON(t, r, http.MethodPost, "/api/invest/", gin.H{"plan_id": plan.ID, "amount": "10", "wallet": "bogus"})
	assert.False(t, resp.Success)

	reloaded, err := model.GetUserById(user.Id, false)
	require.NoError(t, err)
	assert.True(t, reloaded.DepositWallet.Equal(decimal.NewFromInt(50)), reloaded.DepositWallet.String())
}

func TestRequestWithdrawWithTwoFA(t *testing.T) {
	setupControllerTest(t)
	user := createUser(t, "earner", config.RoleCommonUser)
	_, err := model.AdjustBalance(user.Id, config.WalletInterest, decimal.NewFromInt(100), true, "seed")
	require.NoError(t, err)

	method := &model.WithdrawMethod{
		Name:      "USDT",
		MinAmount: decimal.NewFromInt(10),
		Rate:      decimal.NewFromInt(1),
		Currency:  "USDT",
	}
	require.NoError(t, method.Insert())

	secret, _, err := common.GenerateTOTPSecret(user.Username)
	require.NoError(t, err)
	require.NoError(t, model.SetTwoFA(user.Id, secret, true))

	r := newTestEngine(user, func(r *gin.Engine) {
		r.POST("/api/withdraw/", RequestWithdraw)
	})
	body := gin.H{"method_id": method.ID, "amount": "40"}
	resp := doJSON(t, r, http.MethodPost, "/api/withdraw/", body)
	assert.False(t, resp.Success)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	body["code"] = code
	resp = doJSON(t, r, http.MethodPost, "/api/withdraw/", body)
	require.True(t, resp.Success, resp.Message)

	reloaded, err := model.GetUserById(user.Id, false)
	require.NoError(t, err)
	assert.True(t, reloaded.InterestWallet.Equal(decimal.NewFromInt(60)), reloaded.InterestWallet.String())
}

func TestReviewWithdrawReject(t *testing.T) {
	setupControllerTest(t)
	admin := createUser(t, "admin", config.RoleAdminUser)
	user := createUser(t, "earner", config.RoleCommonUser)
	_, err := model.AdjustBalance(user.Id, config.WalletInterest, decimal.NewFromInt(100), true, "seed")
	require.NoError(t, err)
	method := &model.WithdrawMethod{Name: "Bank", MinAmount: decimal.NewFromInt(1), Rate: decimal.NewFromInt(1)}
	require.NoError(t, method.Insert())
	withdrawal, err := model.RequestWithdrawal(user.Id, method.ID, decimal.NewFromInt(30), nil)
	require.NoError(t, err)

	r := newTestEngine(admin, func(r *gin.Engine) {
		r.POST("/api/withdraw/:id/:action", ReviewWithdraw)
	})
	resp := doJSON(t, r, http.MethodPost, "/api/withdraw/"+strconv.Itoa(withdrawal.ID)+"/reject", gin.H{"feedback": "bad address"})
	require.True(t, resp.Success, resp.Message)

	resp = doJSON(t, r, http.MethodPost, "/api/withdraw/"+strconv.Itoa(withdrawal.ID)+"/approve", nil)
	assert.False(t, resp.Success)

	reloaded, err := model.GetUserById(user.Id, false)
	require.NoError(t, err)
	assert.True(t, reloaded.InterestWallet.Equal(decimal.NewFromInt(100)), reloaded.InterestWallet.String())
}

func TestLoginRequiresTwoFACode(t *testing.T) {
	setupControllerTest(t)
	user := createUser(t, "secure", config.RoleCommonUser)
	secret, _, err := common.GenerateTOTPSecret(user.Username)
	require.NoError(t, err)
	require.NoError(t, model.SetTwoFA(user.Id, secret, true))

	r := newTestEngine(nil, func(r *gin.Engine) {
		r.POST("/api/user/login", Login)
	})
	resp := doJSON(t, r, http.MethodPost, "/api/user/login", gin.H{"username": "secure", "password": "password123"})
	assert.False(t, resp.Success)
	assert.Contains(t, string(resp.Data), "two_fa_required")

	resp = doJSON(t, r, http.MethodPost, "/api/user/login", gin.H{"username": "secure", "password": "password123", "code": "000000"})
	assert.False(t, resp.Success)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	resp = doJSON(t, r, http.MethodPost, "/api/user/login", gin.H{"username": "secure", "password": "password123", "code": code})
	require.True(t, resp.Success, resp.Message)
	assert.NotContains(t, string(resp.Data), secret)
}

func TestRegisterWithReferralCode(t *testing.T) {
	setupControllerTest(t)
	inviter := createUser(t, "inviter", config.RoleCommonUser)
	inviter, err := model.GetUserById(inviter.Id, false)
	require.NoError(t, err)
	require.NotEmpty(t, inviter.AffCode)

	r := newTestEngine(nil, func(r *gin.Engine) {
		r.POST("/api/user/register", Register)
	})
	resp := doJSON(t, r, http.MethodPost, "/api/user/register?ref="+inviter.AffCode,
		gin.H{"username": "invitee", "password": "password123"})
	require.True(t, resp.Success, resp.Message)

	invitee, err := model.FindUserByField("username", "invitee")
	require.NoError(t, err)
	require.NotNil(t, invitee)
	assert.Equal(t, inviter.Id, invitee.RefBy)
}

func TestAdjustUserBalance(t *testing.T) {
	setupControllerTest(t)
	admin := createUser(t, "admin", config.RoleAdminUser)
	user := createUser(t, "member", config.RoleCommonUser)

	r := newTestEngine(admin, func(r *gin.Engine) {
		r.POST("/api/user/balance", AdjustUserBalance)
	})
	resp := doJSON(t, r, http.MethodPost, "/api/user/balance",
		gin.H{"user_id": user.Id, "wallet": config.WalletDeposit, "amount": "25", "type": "add"})
	require.True(t, resp.Success, resp.Message)

	resp = doJSON(t, r, http.MethodPost, "/api/user/balance",
		gin.H{"user_id": user.Id, "wallet": config.WalletDeposit, "amount": "30", "type": "subtract"})
	assert.False(t, resp.Success)

	// 管理员不能调整同级用户
	other := createUser(t, "admin2", config.RoleAdminUser)
	resp = doJSON(t, r, http.MethodPost, "/api/user/balance",
		gin.H{"user_id": other.Id, "wallet": config.WalletDeposit, "amount": "1", "type": "add"})
	assert.False(t, resp.Success)

	reloaded, err := model.GetUserById(user.Id, false)
	require.NoError(t, err)
	assert.True(t, reloaded.DepositWallet.Equal(decimal.NewFromInt(25)), reloaded.DepositWallet.String())
}

func TestUpdateOptionValidation(t *testing.T) {
	setupControllerTest(t)
	model.InitOptionMap()
	root := createUser(t, "rootish", config.RoleRootUser)

	r := newTestEngine(root, func(r *gin.Engine) {
		r.PUT("/api/option/", UpdateOption)
	})
	resp := doJSON(t, r, http.MethodPut, "/api/option/", gin.H{"key": "DepositExpireHours", "value": "0"})
	assert.False(t, resp.Success)

	resp = doJSON(t, r, http.MethodPut, "/api/option/", gin.H{"key": "DepositExpireHours", "value": "6"})
	require.True(t, resp.Success, resp.Message)
	assert.Equal(t, 6, config.DepositExpireHours)
	config.DepositExpireHours = 3
}

func TestResetPasswordWithToken(t *testing.T) {
	setupControllerTest(t)
	user := &model.User{
		Username: "forgetful",
		Password: "password123",
		Email:    "forgetful@example.com",
		Role:     config.RoleCommonUser,
		Status:   config.UserStatusEnabled,
	}
	require.NoError(t, user.Insert(0))

	r := newTestEngine(nil, func(r *gin.Engine) {
		r.POST("/api/user/reset", ResetPassword)
	})
	resp := doJSON(t, r, http.MethodPost, "/api/user/reset",
		gin.H{"email": user.Email, "token": "wrong-token", "password": "newpassword1"})
	assert.False(t, resp.Success)

	common.RegisterVerificationCodeWithKey(user.Email, "reset-token", common.PasswordResetPurpose)
	resp = doJSON(t, r, http.MethodPost, "/api/user/reset",
		gin.H{"email": user.Email, "token": "reset-token", "password": "short"})
	assert.False(t, resp.Success)

	resp = doJSON(t, r, http.MethodPost, "/api/user/reset",
		gin.H{"email": user.Email, "token": "reset-token", "password": "newpassword1"})
	require.True(t, resp.Success, resp.Message)

	login := &model.User{Username: "forgetful", Password: "newpassword1"}
	assert.NoError(t, login.ValidateAndFill())
	// 令牌只能使用一次
	assert.False(t, common.VerifyCodeWithKey(user.Email, "reset-token", common.PasswordResetPurpose))
}
