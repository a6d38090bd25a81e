package model

import (
	"fmt"

	"blackcnote/common/config"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	CommissionTypeDeposit  = "deposit"
	CommissionTypeInvest   = "invest"
	CommissionTypeInterest = "interest"
)

// ReferralLevel 多级推荐返佣比例
type ReferralLevel struct {
	// ID 主键自增ID
	ID int `json:"id" gorm:"comment:主键ID"`
	// CommissionType 返佣类型（deposit/invest/interest）
	CommissionType string `json:"commission_type" gorm:"type:varchar(16);uniqueIndex:idx_commission_level;comment:返佣类型"`
	// Level 层级（从 1 开始）
	Level int `json:"level" gorm:"uniqueIndex:idx_commission_level;comment:层级"`
	// Percent 返佣百分比
	Percent decimal.Decimal `json:"percent" gorm:"type:decimal(10,4);default:0;comment:返佣百分比"`
}

func IsValidCommissionType(commissionType string) bool {
	switch commissionType {
	case CommissionTypeDeposit, CommissionTypeInvest, CommissionTypeInterest:
		return true
	}
	return false
}

// CommissionEnabled 对应类型的返佣开关
func CommissionEnabled(commissionType string) bool {
	switch commissionType {
	case CommissionTypeDeposit:
		return config.DepositCommissionEnabled
	case CommissionTypeInvest:
		return config.InvestCommissionEnabled
	case CommissionTypeInterest:
		return config.InterestCommissionEnabled
	}
	return false
}

func GetReferralLevels(commissionType string) ([]*ReferralLevel, error) {
	var levels []*ReferralLevel
	db := DB.Order("commission_type ASC, level ASC")
	if commissionType != "" {
		db = db.Where("commission_type = ?", commissionType)
	}
	err := db.Find(&levels).Error
	return levels, err
}

// SetReferralLevels 整体替换某类型的返佣层级，percents[i] 为第 i+1 级
func SetReferralLevels(commissionType string, percents []decimal.Decimal) error {
	if !IsValidCommissionType(commissionType) {
		return fmt.Errorf("invalid commission type: %s", commissionType)
	}
	return DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("commission_type = ?", commissionType).Delete(&ReferralLevel{}).Error; err != nil {
			return err
		}
		for i, percent := range percents {
			if percent.IsNegative() {
				return ErrInvalidAmount
			}
			level := &ReferralLevel{
				CommissionType: commissionType,
				Level:          i + 1,
				Percent:        percent,
			}
			if err := tx.Create(level).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// PayReferralCommission 沿推荐链逐级发放返佣到收益钱包
// 同一来源单号对同一用户只发放一次，任务重试时不会重复入账
func PayReferralCommission(fromUserId int, commissionType string, amount decimal.Decimal, sourceTrx string) ([]*Transaction, error) {
	if !CommissionEnabled(commissionType) || !amount.IsPositive() {
		return nil, nil
	}
	levels, err := GetReferralLevels(commissionType)
	if err != nil || len(levels) == 0 {
		return nil, err
	}

	var records []*Transaction
	err = DB.Transaction(func(tx *gorm.DB) error {
		var from User
		if err := tx.Select("id, username, ref_by").First(&from, fromUserId).Error; err != nil {
			return err
		}
		current := from
		visited := map[int]bool{from.Id: true}
		for _, level := range levels {
			if current.RefBy == 0 || visited[current.RefBy] {
				break
			}
			var referrer User
			if err := tx.Select("id, username, ref_by, status").First(&referrer, current.RefBy).Error; err != nil {
				break
			}
			visited[referrer.Id] = true
			current = referrer

			commission := amount.Mul(level.Percent).Div(decimal.NewFromInt(100)).Round(8)
			if !commission.IsPositive() || referrer.Status != config.UserStatusEnabled {
				continue
			}
			var paid int64
			if err := tx.Model(&Transaction{}).
				Where("user_id = ? AND remark = ? AND trx = ?", referrer.Id, RemarkReferralCommission, sourceTrx).
				Count(&paid).Error; err != nil {
				return err
			}
			if paid > 0 {
				continue
			}
			record, err := CreditWalletTx(tx, &WalletChange{
				UserId:  referrer.Id,
				Wallet:  config.WalletInterest,
				Amount:  commission,
				Trx:     sourceTrx,
				Remark:  RemarkReferralCommission,
				Details: fmt.Sprintf("Level %d %s commission from %s", level.Level, commissionType, from.Username),
			})
			if err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	return records, err
}
