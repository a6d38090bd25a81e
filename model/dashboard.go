package model

import (
	"blackcnote/common/config"

	"github.com/shopspring/decimal"
)

// UserDashboard 用户面板汇总
type UserDashboard struct {
	DepositWallet      decimal.Decimal `json:"deposit_wallet"`
	InterestWallet     decimal.Decimal `json:"interest_wallet"`
	TotalDeposit       decimal.Decimal `json:"total_deposit"`
	TotalWithdraw      decimal.Decimal `json:"total_withdraw"`
	TotalInvest        decimal.Decimal `json:"total_invest"`
	TotalInterest      decimal.Decimal `json:"total_interest"`
	TotalReferral      decimal.Decimal `json:"total_referral"`
	RunningInvests     int64           `json:"running_invests"`
	ReferralCount      int64           `json:"referral_count"`
	AffCode            string          `json:"aff_code"`
	Currency           string          `json:"currency"`
	RecentTransactions []*Transaction  `json:"recent_transactions"`
}

func GetUserDashboard(userId int) (*UserDashboard, error) {
	user, err := GetUserById(userId, false)
	if err != nil {
		return nil, err
	}
	dashboard := &UserDashboard{
		DepositWallet:  user.DepositWallet,
		InterestWallet: user.InterestWallet,
		AffCode:        user.AffCode,
		Currency:       config.CurrencyText,
		RunningInvests: CountRunningInvests(userId),
	}

	sums := []struct {
		target  *decimal.Decimal
		remark  string
		trxType string
	}{
		{&dashboard.TotalDeposit, RemarkDeposit, TrxTypePlus},
		{&dashboard.TotalWithdraw, RemarkWithdraw, TrxTypeMinus},
		{&dashboard.TotalInvest, RemarkInvest, TrxTypeMinus},
		{&dashboard.TotalInterest, RemarkInterest, TrxTypePlus},
		{&dashboard.TotalReferral, RemarkReferralCommission, TrxTypePlus},
	}
	for _, s := range sums {
		if *s.target, err = SumTransactions(userId, s.remark, s.trxType); err != nil {
			return nil, err
		}
	}
	// 被拒绝的提现已退回，不计入
	refunded, err := SumTransactions(userId, RemarkWithdrawReject, TrxTypePlus)
	if err != nil {
		return nil, err
	}
	dashboard.TotalWithdraw = dashboard.TotalWithdraw.Sub(refunded)

	DB.Model(&User{}).Where("ref_by = ?", userId).Count(&dashboard.ReferralCount)

	if dashboard.RecentTransactions, err = GetRecentTransactions(userId, 10); err != nil {
		return nil, err
	}
	return dashboard, nil
}

// AdminDashboard 管理端汇总
type AdminDashboard struct {
	TotalUsers         int64                `json:"total_users"`
	PendingDeposits    int64                `json:"pending_deposits"`
	PendingWithdrawals int64                `json:"pending_withdrawals"`
	RunningInvests     int64                `json:"running_invests"`
	Deposits           []*DepositStatistics `json:"deposits"`
}

func GetAdminDashboard() (*AdminDashboard, error) {
	dashboard := &AdminDashboard{}
	DB.Model(&User{}).Count(&dashboard.TotalUsers)
	DB.Model(&Deposit{}).Where("status = ?", DepositStatusPending).Count(&dashboard.PendingDeposits)
	DB.Model(&Withdrawal{}).Where("status = ?", WithdrawStatusPending).Count(&dashboard.PendingWithdrawals)
	DB.Model(&Invest{}).Where("status = ?", InvestStatusRunning).Count(&dashboard.RunningInvests)

	var err error
	dashboard.Deposits, err = GetStatisticsDeposit()
	return dashboard, err
}
