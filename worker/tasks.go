package worker

import (
	"context"
	"errors"
	"fmt"

	"blackcnote/common/logger"
	"blackcnote/common/stmp"
	"blackcnote/model"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	TaskDepositCompleted = "deposit:completed"
	TaskInvestCreated    = "invest:created"
	TaskInterestPaid     = "interest:paid"
	TaskWithdrawStatus   = "withdraw:status"
)

type PayloadDepositCompleted struct {
	DepositId int `json:"deposit_id"`
}

type PayloadInvestCreated struct {
	InvestId int `json:"invest_id"`
}

type PayloadInterestPaid struct {
	UserId int             `json:"user_id"`
	Trx    string          `json:"trx"`
	Amount decimal.Decimal `json:"amount"`
}

type PayloadWithdrawStatus struct {
	WithdrawalId int    `json:"withdrawal_id"`
	Status       string `json:"status"`
}

func notify(ctx context.Context, send func() error) {
	if !stmp.Enabled() {
		return
	}
	if err := send(); err != nil && !errors.Is(err, stmp.ErrSMTPNotConfigured) {
		// 邮件失败不影响入账与返佣，只记录
		logger.LogWarn(ctx, "failed to send notification email", zap.Error(err))
	}
}

// HandleDepositCompleted 充值入账后的后续处理：通知邮件与充值返佣
func HandleDepositCompleted(ctx context.Context, payload *PayloadDepositCompleted) error {
	deposit, err := model.GetDepositByID(payload.DepositId)
	if err != nil {
		return fmt.Errorf("load deposit #%d: %w", payload.DepositId, err)
	}
	if deposit.Status != model.DepositStatusSuccess {
		return nil
	}

	if _, err = model.PayReferralCommission(deposit.UserId, model.CommissionTypeDeposit, deposit.Amount, deposit.TradeNo); err != nil {
		return fmt.Errorf("deposit commission: %w", err)
	}

	user, err := model.GetUserById(deposit.UserId, false)
	if err == nil && user.Email != "" {
		notify(ctx, func() error {
			return stmp.SendDepositSuccessEmail(user.Email, user.DisplayName, deposit.TradeNo, deposit.Amount.StringFixed(2), deposit.GatewayType)
		})
	}
	return nil
}

// HandleInvestCreated 投资返佣
func HandleInvestCreated(ctx context.Context, payload *PayloadInvestCreated) error {
	var invest model.Invest
	if err := model.DB.First(&invest, payload.InvestId).Error; err != nil {
		return fmt.Errorf("load invest #%d: %w", payload.InvestId, err)
	}
	_, err := model.PayReferralCommission(invest.UserId, model.CommissionTypeInvest, invest.Amount, invest.Trx)
	return err
}

// HandleInterestPaid 收益返佣
func HandleInterestPaid(ctx context.Context, payload *PayloadInterestPaid) error {
	_, err := model.PayReferralCommission(payload.UserId, model.CommissionTypeInterest, payload.Amount, payload.Trx)
	return err
}

// HandleWithdrawStatus 提现审核结果通知
func HandleWithdrawStatus(ctx context.Context, payload *PayloadWithdrawStatus) error {
	withdrawal, err := model.GetWithdrawalByID(payload.WithdrawalId)
	if err != nil {
		return fmt.Errorf("load withdrawal #%d: %w", payload.WithdrawalId, err)
	}
	user, err := model.GetUserById(withdrawal.UserId, false)
	if err != nil || user.Email == "" {
		return nil
	}
	notify(ctx, func() error {
		return stmp.SendWithdrawStatusEmail(user.Email, user.DisplayName, withdrawal.Trx,
			withdrawal.Amount.StringFixed(2), withdrawal.Status, withdrawal.AdminFeedback)
	})
	return nil
}
