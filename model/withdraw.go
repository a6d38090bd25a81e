package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"blackcnote/common/config"
	"blackcnote/common/utils"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	WithdrawStatusPending  = "pending"
	WithdrawStatusSuccess  = "success"
	WithdrawStatusRejected = "rejected"
)

var (
	ErrWithdrawMethodUnavailable = errors.New("提现方式不存在或已停用")
	ErrWithdrawNotPending        = errors.New("提现记录已处理")
	ErrWithdrawFieldMissing      = errors.New("缺少提现信息")
)

// WithdrawMethod 提现方式
type WithdrawMethod struct {
	// ID 主键自增ID
	ID int `json:"id" gorm:"comment:主键ID"`
	// Name 名称
	Name string `json:"name" gorm:"type:varchar(100);not null;comment:名称" validate:"required,max=100"`
	// Image 图标URL
	Image string `json:"image" gorm:"type:varchar(300);comment:图标URL"`
	// MinAmount 最小提现金额
	MinAmount decimal.Decimal `json:"min_amount" gorm:"type:decimal(28,8);default:0;comment:最小金额"`
	// MaxAmount 最大提现金额（0 表示不限制）
	MaxAmount decimal.Decimal `json:"max_amount" gorm:"type:decimal(28,8);default:0;comment:最大金额"`
	// FixedCharge 固定手续费
	FixedCharge decimal.Decimal `json:"fixed_charge" gorm:"type:decimal(28,8);default:0;comment:固定手续费"`
	// PercentCharge 百分比手续费
	PercentCharge decimal.Decimal `json:"percent_charge" gorm:"type:decimal(10,4);default:0;comment:百分比手续费"`
	// Rate 站内币种到提现币种的汇率
	Rate decimal.Decimal `json:"rate" gorm:"type:decimal(28,8);default:1;comment:汇率"`
	// Currency 提现币种
	Currency string `json:"currency" gorm:"type:varchar(10);comment:提现币种"`
	// Description 说明
	Description string `json:"description" gorm:"type:text;comment:说明"`
	// UserFields 用户需要填写的字段名，逗号分隔（如 wallet_address,network）
	UserFields string `json:"user_fields" gorm:"type:varchar(500);comment:用户填写字段"`
	// Enable 是否启用
	Enable *bool `json:"enable" gorm:"default:true;comment:是否启用"`
	// CreatedAt 创建时间（Unix 秒）
	CreatedAt int64 `json:"created_at" gorm:"bigint;comment:创建时间(Unix秒)"`
	// DeletedAt 软删除（索引）
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index;comment:软删除时间"`
}

func (m *WithdrawMethod) RequiredFields() []string {
	var fields []string
	for _, f := range strings.Split(m.UserFields, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

func (m *WithdrawMethod) Charge(amount decimal.Decimal) decimal.Decimal {
	return m.FixedCharge.Add(amount.Mul(m.PercentCharge).Div(decimal.NewFromInt(100))).Round(8)
}

func (m *WithdrawMethod) Insert() error {
	if !m.Rate.IsPositive() {
		m.Rate = decimal.NewFromInt(1)
	}
	m.CreatedAt = utils.GetTimestamp()
	return DB.Create(m).Error
}

func (m *WithdrawMethod) Update() error {
	return DB.Model(m).Select("*").Omit("created_at").Updates(m).Error
}

func (m *WithdrawMethod) Delete() error {
	return DB.Delete(m).Error
}

func GetWithdrawMethodByID(id int) (*WithdrawMethod, error) {
	var method WithdrawMethod
	err := DB.First(&method, id).Error
	return &method, err
}

func GetWithdrawMethods(onlyEnabled bool) ([]*WithdrawMethod, error) {
	var methods []*WithdrawMethod
	db := DB.Order("id ASC")
	if onlyEnabled {
		db = db.Where("enable = ?", true)
	}
	err := db.Find(&methods).Error
	return methods, err
}

// Withdrawal 提现记录
type Withdrawal struct {
	// ID 主键自增ID
	ID int `json:"id" gorm:"comment:主键ID"`
	// UserId 用户ID
	UserId int `json:"user_id" gorm:"index;comment:用户ID"`
	// MethodId 提现方式ID
	MethodId int `json:"method_id" gorm:"index;comment:提现方式ID"`
	// MethodName 提现方式名称快照
	MethodName string `json:"method_name" gorm:"type:varchar(100);comment:提现方式名称"`
	// Trx 提现单号
	Trx string `json:"trx" gorm:"type:varchar(50);uniqueIndex;comment:提现单号"`
	// Amount 提现金额（含手续费，从收益钱包扣除）
	Amount decimal.Decimal `json:"amount" gorm:"type:decimal(28,8);default:0;comment:提现金额"`
	// Charge 手续费
	Charge decimal.Decimal `json:"charge" gorm:"type:decimal(28,8);default:0;comment:手续费"`
	// AfterCharge 扣除手续费后金额
	AfterCharge decimal.Decimal `json:"after_charge" gorm:"type:decimal(28,8);default:0;comment:到账金额(站内币种)"`
	// Rate 汇率
	Rate decimal.Decimal `json:"rate" gorm:"type:decimal(28,8);default:1;comment:汇率"`
	// FinalAmount 到账金额（提现币种）
	FinalAmount decimal.Decimal `json:"final_amount" gorm:"type:decimal(28,8);default:0;comment:到账金额"`
	// Currency 提现币种
	Currency string `json:"currency" gorm:"type:varchar(10);comment:提现币种"`
	// Detail 用户填写信息（JSON）
	Detail string `json:"detail" gorm:"type:text;comment:用户填写信息"`
	// Status 状态（pending/success/rejected）
	Status string `json:"status" gorm:"type:varchar(16);index;comment:状态"`
	// AdminFeedback 管理员备注
	AdminFeedback string `json:"admin_feedback" gorm:"type:varchar(255);comment:管理员备注"`
	// CreatedAt 创建时间（Unix 秒）
	CreatedAt int64 `json:"created_at" gorm:"bigint;index;comment:创建时间(Unix秒)"`
	// UpdatedAt 更新时间（Unix 秒）
	UpdatedAt int64 `json:"updated_at" gorm:"bigint;comment:更新时间(Unix秒)"`
}

// RequestWithdrawal 校验限额与必填信息后从收益钱包扣款并创建待审核提现
func RequestWithdrawal(userId int, methodId int, amount decimal.Decimal, detail map[string]string) (*Withdrawal, error) {
	method, err := GetWithdrawMethodByID(methodId)
	if err != nil || method.Enable == nil || !*method.Enable {
		return nil, ErrWithdrawMethodUnavailable
	}
	if !amount.IsPositive() || amount.LessThan(method.MinAmount) {
		return nil, ErrInvalidAmount
	}
	if method.MaxAmount.IsPositive() && amount.GreaterThan(method.MaxAmount) {
		return nil, ErrInvalidAmount
	}
	for _, field := range method.RequiredFields() {
		if strings.TrimSpace(detail[field]) == "" {
			return nil, fmt.Errorf("%w: %s", ErrWithdrawFieldMissing, field)
		}
	}

	charge := method.Charge(amount)
	afterCharge := amount.Sub(charge)
	if !afterCharge.IsPositive() {
		return nil, ErrInvalidAmount
	}
	rate := method.Rate
	if !rate.IsPositive() {
		rate = decimal.NewFromInt(1)
	}
	detailJSON, err := json.Marshal(detail)
	if err != nil {
		return nil, err
	}

	now := utils.GetTimestamp()
	withdrawal := &Withdrawal{
		UserId:      userId,
		MethodId:    method.ID,
		MethodName:  method.Name,
		Trx:         utils.GenerateTrx(),
		Amount:      amount,
		Charge:      charge,
		AfterCharge: afterCharge,
		Rate:        rate,
		FinalAmount: afterCharge.Mul(rate).Round(8),
		Currency:    method.Currency,
		Detail:      string(detailJSON),
		Status:      WithdrawStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = DB.Transaction(func(tx *gorm.DB) error {
		if _, err := DebitWalletTx(tx, &WalletChange{
			UserId:  userId,
			Wallet:  config.WalletInterest,
			Amount:  amount,
			Charge:  charge,
			Trx:     withdrawal.Trx,
			Remark:  RemarkWithdraw,
			Details: fmt.Sprintf("Withdraw via %s", method.Name),
		}); err != nil {
			return err
		}
		return tx.Create(withdrawal).Error
	})
	if err != nil {
		return nil, err
	}
	return withdrawal, nil
}

func GetWithdrawalByID(id int) (*Withdrawal, error) {
	var withdrawal Withdrawal
	err := DB.First(&withdrawal, id).Error
	return &withdrawal, err
}

// ApproveWithdrawal 管理员确认已打款
func ApproveWithdrawal(id int, feedback string) (*Withdrawal, error) {
	result := DB.Model(&Withdrawal{}).
		Where("id = ? AND status = ?", id, WithdrawStatusPending).
		Updates(map[string]any{
			"status":         WithdrawStatusSuccess,
			"admin_feedback": feedback,
			"updated_at":     utils.GetTimestamp(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrWithdrawNotPending
	}
	return GetWithdrawalByID(id)
}

// RejectWithdrawal 管理员拒绝提现，金额退回收益钱包
func RejectWithdrawal(id int, feedback string) (*Withdrawal, error) {
	withdrawal := &Withdrawal{}
	err := DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&Withdrawal{}).
			Where("id = ? AND status = ?", id, WithdrawStatusPending).
			Updates(map[string]any{
				"status":         WithdrawStatusRejected,
				"admin_feedback": feedback,
				"updated_at":     utils.GetTimestamp(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrWithdrawNotPending
		}
		if err := tx.First(withdrawal, id).Error; err != nil {
			return err
		}
		_, err := CreditWalletTx(tx, &WalletChange{
			UserId:  withdrawal.UserId,
			Wallet:  config.WalletInterest,
			Amount:  withdrawal.Amount,
			Trx:     withdrawal.Trx,
			Remark:  RemarkWithdrawReject,
			Details: fmt.Sprintf("Refunded for withdrawal rejection via %s", withdrawal.MethodName),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return withdrawal, nil
}

var allowedWithdrawalOrderFields = map[string]bool{
	"id":         true,
	"amount":     true,
	"status":     true,
	"created_at": true,
}

type SearchWithdrawalParams struct {
	UserId   int    `form:"user_id"`
	MethodId int    `form:"method_id"`
	Trx      string `form:"trx"`
	Status   string `form:"status"`
	PaginationParams
}

func GetWithdrawalList(params *SearchWithdrawalParams) (*DataResult[Withdrawal], error) {
	var withdrawals []*Withdrawal
	db := DB
	if params.UserId != 0 {
		db = db.Where("user_id = ?", params.UserId)
	}
	if params.MethodId != 0 {
		db = db.Where("method_id = ?", params.MethodId)
	}
	if params.Trx != "" {
		db = db.Where("trx = ?", params.Trx)
	}
	if params.Status != "" {
		db = db.Where("status = ?", params.Status)
	}
	return PaginateAndOrder(db, &params.PaginationParams, &withdrawals, allowedWithdrawalOrderFields)
}
