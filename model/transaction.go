package model

import (
	"errors"
	"fmt"

	"blackcnote/common/config"
	"blackcnote/common/utils"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrInsufficientBalance = errors.New("余额不足")
	ErrInvalidAmount       = errors.New("金额无效")
	ErrInvalidWallet       = errors.New("钱包类型无效")
)

const (
	TrxTypePlus  = "+"
	TrxTypeMinus = "-"
)

// 流水备注，用于分类统计
const (
	RemarkDeposit            = "deposit"
	RemarkInvest             = "invest"
	RemarkInterest           = "interest"
	RemarkCapitalReturn      = "capital_return"
	RemarkWithdraw           = "withdraw"
	RemarkWithdrawReject     = "withdraw_reject"
	RemarkReferralCommission = "referral_commission"
	RemarkBalanceAdjust      = "balance_adjust"
)

// Transaction 账务流水表，每次余额变动对应一条
type Transaction struct {
	// ID 主键自增ID
	ID int `json:"id" gorm:"comment:主键ID"`
	// UserId 用户ID
	UserId int `json:"user_id" gorm:"index;comment:用户ID"`
	// Amount 变动金额（正数）
	Amount decimal.Decimal `json:"amount" gorm:"type:decimal(28,8);default:0;comment:变动金额"`
	// Charge 手续费
	Charge decimal.Decimal `json:"charge" gorm:"type:decimal(28,8);default:0;comment:手续费"`
	// PostBalance 变动后钱包余额
	PostBalance decimal.Decimal `json:"post_balance" gorm:"type:decimal(28,8);default:0;comment:变动后余额"`
	// TrxType 方向（+ 入账 / - 出账）
	TrxType string `json:"trx_type" gorm:"type:varchar(1);comment:方向"`
	// Trx 关联交易号
	Trx string `json:"trx" gorm:"type:varchar(50);index;comment:交易号"`
	// Wallet 钱包类型（deposit_wallet/interest_wallet）
	Wallet string `json:"wallet" gorm:"type:varchar(32);comment:钱包类型"`
	// Remark 分类备注
	Remark string `json:"remark" gorm:"type:varchar(40);index;comment:分类备注"`
	// Details 描述
	Details string `json:"details" gorm:"type:varchar(255);comment:描述"`
	// CreatedAt 创建时间（Unix 秒）
	CreatedAt int64 `json:"created_at" gorm:"bigint;index;comment:创建时间(Unix秒)"`
}

// WalletChange 一次钱包变动的描述
type WalletChange struct {
	UserId  int
	Wallet  string
	Amount  decimal.Decimal
	Charge  decimal.Decimal
	Trx     string
	Remark  string
	Details string
}

func checkWallet(wallet string) error {
	if wallet != config.WalletDeposit && wallet != config.WalletInterest {
		return ErrInvalidWallet
	}
	return nil
}

// CreditWalletTx 入账并写流水，必须在事务内调用
func CreditWalletTx(tx *gorm.DB, change *WalletChange) (*Transaction, error) {
	if err := checkWallet(change.Wallet); err != nil {
		return nil, err
	}
	if !change.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	result := tx.Model(&User{}).Where("id = ?", change.UserId).
		Update(change.Wallet, gorm.Expr(fmt.Sprintf("%s + ?", change.Wallet), change.Amount))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return writeLedger(tx, change, TrxTypePlus)
}

// DebitWalletTx 条件扣款（余额不足时不更新）并写流水，必须在事务内调用
func DebitWalletTx(tx *gorm.DB, change *WalletChange) (*Transaction, error) {
	if err := checkWallet(change.Wallet); err != nil {
		return nil, err
	}
	if !change.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	result := tx.Model(&User{}).
		Where(fmt.Sprintf("id = ? AND %s >= ?", change.Wallet), change.UserId, change.Amount).
		Update(change.Wallet, gorm.Expr(fmt.Sprintf("%s - ?", change.Wallet), change.Amount))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrInsufficientBalance
	}
	return writeLedger(tx, change, TrxTypeMinus)
}

func writeLedger(tx *gorm.DB, change *WalletChange, trxType string) (*Transaction, error) {
	var balance decimal.Decimal
	if err := tx.Model(&User{}).Where("id = ?", change.UserId).Select(change.Wallet).Row().Scan(&balance); err != nil {
		return nil, err
	}
	trx := change.Trx
	if trx == "" {
		trx = utils.GenerateTrx()
	}
	record := &Transaction{
		UserId:      change.UserId,
		Amount:      change.Amount,
		Charge:      change.Charge,
		PostBalance: balance,
		TrxType:     trxType,
		Trx:         trx,
		Wallet:      change.Wallet,
		Remark:      change.Remark,
		Details:     change.Details,
		CreatedAt:   utils.GetTimestamp(),
	}
	if err := tx.Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// AdjustBalance 管理员调整余额
func AdjustBalance(userId int, wallet string, amount decimal.Decimal, plus bool, details string) (*Transaction, error) {
	var record *Transaction
	err := DB.Transaction(func(tx *gorm.DB) error {
		change := &WalletChange{
			UserId:  userId,
			Wallet:  wallet,
			Amount:  amount,
			Remark:  RemarkBalanceAdjust,
			Details: details,
		}
		var err error
		if plus {
			record, err = CreditWalletTx(tx, change)
		} else {
			record, err = DebitWalletTx(tx, change)
		}
		return err
	})
	return record, err
}

var allowedTransactionOrderFields = map[string]bool{
	"id":         true,
	"amount":     true,
	"remark":     true,
	"created_at": true,
}

type SearchTransactionParams struct {
	UserId         int    `form:"user_id"`
	Trx            string `form:"trx"`
	Remark         string `form:"remark"`
	Wallet         string `form:"wallet"`
	TrxType        string `form:"trx_type"`
	StartTimestamp int64  `form:"start_timestamp"`
	EndTimestamp   int64  `form:"end_timestamp"`
	PaginationParams
}

func GetTransactionList(params *SearchTransactionParams) (*DataResult[Transaction], error) {
	var transactions []*Transaction
	db := DB
	if params.UserId != 0 {
		db = db.Where("user_id = ?", params.UserId)
	}
	if params.Trx != "" {
		db = db.Where("trx = ?", params.Trx)
	}
	if params.Remark != "" {
		db = db.Where("remark = ?", params.Remark)
	}
	if params.Wallet != "" {
		db = db.Where("wallet = ?", params.Wallet)
	}
	if params.TrxType != "" {
		db = db.Where("trx_type = ?", params.TrxType)
	}
	if params.StartTimestamp != 0 {
		db = db.Where("created_at >= ?", params.StartTimestamp)
	}
	if params.EndTimestamp != 0 {
		db = db.Where("created_at <= ?", params.EndTimestamp)
	}
	return PaginateAndOrder(db, &params.PaginationParams, &transactions, allowedTransactionOrderFields)
}

func GetRecentTransactions(userId int, limit int) ([]*Transaction, error) {
	var transactions []*Transaction
	err := DB.Where("user_id = ?", userId).Order("id DESC").Limit(limit).Find(&transactions).Error
	return transactions, err
}

// SumTransactions 按备注与方向汇总用户流水金额
func SumTransactions(userId int, remark string, trxType string) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := DB.Model(&Transaction{}).Select("sum(amount)").
		Where("user_id = ? AND remark = ? AND trx_type = ?", userId, remark, trxType).
		Row().Scan(&total)
	if err != nil || !total.Valid {
		return decimal.Zero, err
	}
	return total.Decimal, nil
}
