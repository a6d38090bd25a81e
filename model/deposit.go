package model

import (
	"errors"
	"time"

	"blackcnote/common/config"
	"blackcnote/common/utils"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DepositStatus string

const (
	DepositStatusInitiated DepositStatus = "initiated"
	DepositStatusPending   DepositStatus = "pending"
	DepositStatusSuccess   DepositStatus = "success"
	DepositStatusFailed    DepositStatus = "failed"
	DepositStatusRejected  DepositStatus = "rejected"
	DepositStatusClosed    DepositStatus = "closed"
)

// 可被入账的状态；closed 为超时关闭，渠道确认付款后仍应入账
var creditableDepositStatuses = []DepositStatus{
	DepositStatusInitiated,
	DepositStatusPending,
	DepositStatusClosed,
}

var (
	ErrDepositNotFound   = errors.New("充值记录不存在")
	ErrDepositNotPending = errors.New("充值记录状态不允许此操作")
)

// Deposit 充值记录（网关支付或人工转账）
type Deposit struct {
	// ID 主键自增ID
	ID int `json:"id" gorm:"comment:主键ID"`
	// UserId 充值用户ID
	UserId int `json:"user_id" gorm:"index;comment:充值用户ID"`
	// GatewayId 支付网关ID（关联 Gateway.ID）
	GatewayId int `json:"gateway_id" gorm:"index;comment:支付网关ID"`
	// GatewayType 网关别名快照
	GatewayType string `json:"gateway_type" gorm:"type:varchar(32);comment:网关别名"`
	// TradeNo 站内充值单号（唯一）
	TradeNo string `json:"trade_no" gorm:"type:varchar(50);uniqueIndex;comment:站内单号"`
	// GatewayNo 第三方支付渠道返回的订单号/流水号
	GatewayNo string `json:"gateway_no" gorm:"type:varchar(191);index;comment:第三方订单号"`
	// Amount 充值金额（站内币种，入账金额）
	Amount decimal.Decimal `json:"amount" gorm:"type:decimal(28,8);default:0;comment:充值金额"`
	// Charge 手续费（站内币种）
	Charge decimal.Decimal `json:"charge" gorm:"type:decimal(28,8);default:0;comment:手续费"`
	// Rate 下单时的汇率
	Rate decimal.Decimal `json:"rate" gorm:"type:decimal(28,8);default:1;comment:汇率"`
	// FinalAmount 实付金额（网关币种）
	FinalAmount decimal.Decimal `json:"final_amount" gorm:"type:decimal(28,8);default:0;comment:实付金额"`
	// MethodCurrency 网关币种
	MethodCurrency string `json:"method_currency" gorm:"type:varchar(10);comment:网关币种"`
	// Status 状态（initiated/pending/success/failed/rejected/closed）
	Status DepositStatus `json:"status" gorm:"type:varchar(16);index;comment:状态"`
	// Detail 人工充值凭证（JSON）
	Detail string `json:"detail" gorm:"type:text;comment:人工充值凭证"`
	// AdminFeedback 管理员审核意见
	AdminFeedback string `json:"admin_feedback" gorm:"type:varchar(255);comment:审核意见"`
	// CreatedAt 创建时间（Unix 秒）
	CreatedAt int64 `json:"created_at" gorm:"bigint;index;comment:创建时间(Unix秒)"`
	// UpdatedAt 更新时间（Unix 秒）
	UpdatedAt int64 `json:"updated_at" gorm:"bigint;comment:更新时间(Unix秒)"`
	// DeletedAt 软删除（索引）
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index;comment:软删除时间"`
}

func (d *Deposit) Insert() error {
	if d.TradeNo == "" {
		d.TradeNo = utils.GenerateTrx()
	}
	if d.Status == "" {
		d.Status = DepositStatusInitiated
	}
	d.CreatedAt = utils.GetTimestamp()
	d.UpdatedAt = d.CreatedAt
	return DB.Create(d).Error
}

// SetGatewayNo 记录渠道侧单号
func (d *Deposit) SetGatewayNo(gatewayNo string) error {
	if gatewayNo == "" {
		return nil
	}
	d.GatewayNo = gatewayNo
	return DB.Model(&Deposit{}).Where("id = ?", d.ID).Update("gateway_no", gatewayNo).Error
}

// IsFinal 已入账或已终结
func (d *Deposit) IsFinal() bool {
	return d.Status == DepositStatusSuccess || d.Status == DepositStatusFailed || d.Status == DepositStatusRejected
}

func GetDepositByTradeNo(tradeNo string) (*Deposit, error) {
	var deposit Deposit
	err := DB.Where("trade_no = ?", tradeNo).First(&deposit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDepositNotFound
	}
	return &deposit, err
}

// GetDepositByGatewayNo 部分渠道回调只携带渠道单号
func GetDepositByGatewayNo(gatewayId int, gatewayNo string) (*Deposit, error) {
	var deposit Deposit
	err := DB.Where("gateway_id = ? AND gateway_no = ?", gatewayId, gatewayNo).First(&deposit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDepositNotFound
	}
	return &deposit, err
}

func GetUserDeposit(userId int, tradeNo string) (*Deposit, error) {
	var deposit Deposit
	err := DB.Where("user_id = ? AND trade_no = ?", userId, tradeNo).First(&deposit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDepositNotFound
	}
	return &deposit, err
}

func GetDepositByID(id int) (*Deposit, error) {
	var deposit Deposit
	err := DB.First(&deposit, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDepositNotFound
	}
	return &deposit, err
}

// CompleteDeposit 将充值标记为成功并入账充值钱包
// 条件更新保证同一笔充值最多入账一次，重复回调返回 credited=false
func CompleteDeposit(tradeNo string, gatewayNo string, details string) (deposit *Deposit, credited bool, err error) {
	err = DB.Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":     DepositStatusSuccess,
			"updated_at": utils.GetTimestamp(),
		}
		if gatewayNo != "" {
			updates["gateway_no"] = gatewayNo
		}
		result := tx.Model(&Deposit{}).
			Where("trade_no = ? AND status IN ?", tradeNo, creditableDepositStatuses).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}

		deposit = &Deposit{}
		if err := tx.Where("trade_no = ?", tradeNo).First(deposit).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDepositNotFound
			}
			return err
		}
		if result.RowsAffected == 0 {
			return nil
		}

		_, err := CreditWalletTx(tx, &WalletChange{
			UserId:  deposit.UserId,
			Wallet:  config.WalletDeposit,
			Amount:  deposit.Amount,
			Charge:  deposit.Charge,
			Trx:     deposit.TradeNo,
			Remark:  RemarkDeposit,
			Details: details,
		})
		if err != nil {
			return err
		}
		credited = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return deposit, credited, nil
}

func updateOpenDeposit(where *gorm.DB, status DepositStatus, extra map[string]any) error {
	updates := map[string]any{
		"status":     status,
		"updated_at": utils.GetTimestamp(),
	}
	for k, v := range extra {
		updates[k] = v
	}
	result := where.Where("status IN ?", []DepositStatus{DepositStatusInitiated, DepositStatusPending}).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDepositNotPending
	}
	return nil
}

// FailDeposit 渠道通知支付失败
func FailDeposit(tradeNo string) error {
	return updateOpenDeposit(DB.Model(&Deposit{}).Where("trade_no = ?", tradeNo), DepositStatusFailed, nil)
}

// MarkDepositPending 渠道已受理但尚未确认
func MarkDepositPending(tradeNo string) error {
	result := DB.Model(&Deposit{}).
		Where("trade_no = ? AND status = ?", tradeNo, DepositStatusInitiated).
		Updates(map[string]any{"status": DepositStatusPending, "updated_at": utils.GetTimestamp()})
	return result.Error
}

// SubmitManualDeposit 用户提交人工转账凭证，等待管理员审核
func SubmitManualDeposit(userId int, tradeNo string, detail string) error {
	result := DB.Model(&Deposit{}).
		Where("user_id = ? AND trade_no = ? AND status = ?", userId, tradeNo, DepositStatusInitiated).
		Updates(map[string]any{
			"status":     DepositStatusPending,
			"detail":     detail,
			"updated_at": utils.GetTimestamp(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDepositNotPending
	}
	return nil
}

// RejectDeposit 管理员拒绝人工充值
func RejectDeposit(id int, feedback string) error {
	return updateOpenDeposit(DB.Model(&Deposit{}).Where("id = ?", id), DepositStatusRejected, map[string]any{
		"admin_feedback": feedback,
	})
}

// CloseExpiredDeposits 关闭超过指定时长仍未支付的充值
func CloseExpiredDeposits(expireHours int) (int64, error) {
	if expireHours <= 0 {
		expireHours = 3
	}
	unixTime := time.Now().Unix() - int64(expireHours)*3600
	result := DB.Model(&Deposit{}).
		Where("status = ? AND created_at < ?", DepositStatusInitiated, unixTime).
		Updates(map[string]any{"status": DepositStatusClosed, "updated_at": utils.GetTimestamp()})
	return result.RowsAffected, result.Error
}

var allowedDepositOrderFields = map[string]bool{
	"id":         true,
	"gateway_id": true,
	"user_id":    true,
	"amount":     true,
	"status":     true,
	"created_at": true,
}

type SearchDepositParams struct {
	UserId         int    `form:"user_id"`
	GatewayId      int    `form:"gateway_id"`
	TradeNo        string `form:"trade_no"`
	GatewayNo      string `form:"gateway_no"`
	Status         string `form:"status"`
	StartTimestamp int64  `form:"start_timestamp"`
	EndTimestamp   int64  `form:"end_timestamp"`
	PaginationParams
}

func GetDepositList(params *SearchDepositParams) (*DataResult[Deposit], error) {
	var deposits []*Deposit

	db := DB
	if params.GatewayId != 0 {
		db = db.Where("gateway_id = ?", params.GatewayId)
	}
	if params.UserId != 0 {
		db = db.Where("user_id = ?", params.UserId)
	}

	if params.TradeNo != "" {
		db = db.Where("trade_no = ?", params.TradeNo)
	}

	if params.GatewayNo != "" {
		db = db.Where("gateway_no = ?", params.GatewayNo)
	}

	if params.Status != "" {
		db = db.Where("status = ?", params.Status)
	}

	if params.StartTimestamp != 0 {
		db = db.Where("created_at >= ?", params.StartTimestamp)
	}
	if params.EndTimestamp != 0 {
		db = db.Where("created_at <= ?", params.EndTimestamp)
	}

	return PaginateAndOrder(db, &params.PaginationParams, &deposits, allowedDepositOrderFields)
}

type DepositStatistics struct {
	Count          int64           `json:"count"`
	Amount         decimal.Decimal `json:"amount"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
	MethodCurrency string          `json:"method_currency"`
}

func GetStatisticsDeposit() (depositStatistics []*DepositStatistics, err error) {
	err = DB.Model(&Deposit{}).
		Select("count(*) as count, sum(amount) as amount, sum(final_amount) as final_amount, method_currency").
		Where("status = ?", DepositStatusSuccess).
		Group("method_currency").
		Scan(&depositStatistics).Error
	return depositStatistics, err
}

type DepositStatisticsGroup struct {
	Date           string          `json:"date"`
	Count          int64           `json:"count"`
	Amount         decimal.Decimal `json:"amount"`
	MethodCurrency string          `json:"method_currency"`
}

func GetStatisticsDepositByPeriod(startTimestamp, endTimestamp int64) (depositStatistics []*DepositStatisticsGroup, err error) {
	groupSelect := getTimestampGroupsSelect("created_at", "day", "date")

	err = DB.Raw(`
		SELECT `+groupSelect+`,
		count(*) as count,
		sum(amount) as amount,
		method_currency
		FROM deposits
		WHERE status = ?
		AND created_at BETWEEN ? AND ?
		GROUP BY date, method_currency
		ORDER BY date, method_currency
	`, DepositStatusSuccess, startTimestamp, endTimestamp).Scan(&depositStatistics).Error

	return depositStatistics, err
}
