package model

import (
	"fmt"
	"time"

	"blackcnote/common/config"
	"blackcnote/common/logger"
	"blackcnote/common/utils"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	InvestStatusRunning   = "running"
	InvestStatusCompleted = "completed"
)

// Invest 用户投资记录
type Invest struct {
	// ID 主键自增ID
	ID int `json:"id" gorm:"comment:主键ID"`
	// UserId 用户ID
	UserId int `json:"user_id" gorm:"index;comment:用户ID"`
	// PlanId 投资计划ID
	PlanId int `json:"plan_id" gorm:"index;comment:计划ID"`
	// PlanName 计划名称快照
	PlanName string `json:"plan_name" gorm:"type:varchar(100);comment:计划名称"`
	// Trx 投资单号
	Trx string `json:"trx" gorm:"type:varchar(50);uniqueIndex;comment:投资单号"`
	// Amount 投资本金
	Amount decimal.Decimal `json:"amount" gorm:"type:decimal(28,8);default:0;comment:投资本金"`
	// Interest 每期收益
	Interest decimal.Decimal `json:"interest" gorm:"type:decimal(28,8);default:0;comment:每期收益"`
	// Wallet 扣款钱包
	Wallet string `json:"wallet" gorm:"type:varchar(32);comment:扣款钱包"`
	// IntervalHours 派息间隔（小时）
	IntervalHours int `json:"interval_hours" gorm:"comment:派息间隔(小时)"`
	// RepeatTimes 派息总次数（0 表示终身）
	RepeatTimes int `json:"repeat_times" gorm:"comment:派息总次数"`
	// ReturnedTimes 已派息次数
	ReturnedTimes int `json:"returned_times" gorm:"default:0;comment:已派息次数"`
	// TotalPaid 累计派息
	TotalPaid decimal.Decimal `json:"total_paid" gorm:"type:decimal(28,8);default:0;comment:累计派息"`
	// CapitalBack 到期是否返还本金
	CapitalBack bool `json:"capital_back" gorm:"comment:到期返还本金"`
	// CapitalReturned 本金是否已返还
	CapitalReturned bool `json:"capital_returned" gorm:"default:false;comment:本金已返还"`
	// Status 状态（running/completed）
	Status string `json:"status" gorm:"type:varchar(16);index;comment:状态"`
	// NextTime 下次派息时间（Unix 秒）
	NextTime int64 `json:"next_time" gorm:"bigint;index;comment:下次派息时间"`
	// LastTime 上次派息时间（Unix 秒）
	LastTime int64 `json:"last_time" gorm:"bigint;default:0;comment:上次派息时间"`
	// CreatedAt 创建时间（Unix 秒）
	CreatedAt int64 `json:"created_at" gorm:"bigint;comment:创建时间(Unix秒)"`
}

// InvestInPlan 从指定钱包扣款并创建投资
func InvestInPlan(userId int, planId int, amount decimal.Decimal, wallet string) (*Invest, error) {
	plan, err := GetEnabledPlan(planId)
	if err != nil {
		return nil, err
	}
	if err = plan.ValidateAmount(amount); err != nil {
		return nil, err
	}
	if err = checkWallet(wallet); err != nil {
		return nil, err
	}

	now := utils.GetTimestamp()
	invest := &Invest{
		UserId:        userId,
		PlanId:        plan.ID,
		PlanName:      plan.Name,
		Trx:           utils.GenerateTrx(),
		Amount:        amount,
		Interest:      plan.InterestFor(amount),
		Wallet:        wallet,
		IntervalHours: plan.IntervalHours,
		RepeatTimes:   plan.RepeatTimes,
		CapitalBack:   plan.CapitalBack,
		Status:        InvestStatusRunning,
		NextTime:      now + int64(plan.IntervalHours)*3600,
		CreatedAt:     now,
	}

	err = DB.Transaction(func(tx *gorm.DB) error {
		if _, err := DebitWalletTx(tx, &WalletChange{
			UserId:  userId,
			Wallet:  wallet,
			Amount:  amount,
			Trx:     invest.Trx,
			Remark:  RemarkInvest,
			Details: fmt.Sprintf("Invested on %s", plan.Name),
		}); err != nil {
			return err
		}
		return tx.Create(invest).Error
	})
	if err != nil {
		return nil, err
	}
	return invest, nil
}

// InterestPayout 一次派息结果
type InterestPayout struct {
	InvestId int
	UserId   int
	Trx      string
	Amount   decimal.Decimal
	Capital  decimal.Decimal
}

func getDueInvests(now int64, limit int) ([]*Invest, error) {
	var invests []*Invest
	err := DB.Where("status = ? AND next_time <= ?", InvestStatusRunning, now).
		Order("next_time ASC").Limit(limit).Find(&invests).Error
	return invests, err
}

// PayDueInterest 为到期的投资派发一期收益，返回本次完成的派息
func PayDueInterest(now time.Time, batchSize int) ([]*InterestPayout, error) {
	if batchSize <= 0 {
		batchSize = 200
	}
	invests, err := getDueInvests(now.Unix(), batchSize)
	if err != nil {
		return nil, err
	}

	payouts := make([]*InterestPayout, 0, len(invests))
	for _, invest := range invests {
		payout, err := payInterest(invest, now.Unix())
		if err != nil {
			logger.SysError(fmt.Sprintf("pay interest for invest #%d failed: %s", invest.ID, err.Error()))
			continue
		}
		if payout != nil {
			payouts = append(payouts, payout)
		}
	}
	return payouts, nil
}

func payInterest(invest *Invest, now int64) (*InterestPayout, error) {
	var payout *InterestPayout
	err := DB.Transaction(func(tx *gorm.DB) error {
		returned := invest.ReturnedTimes + 1
		completed := invest.RepeatTimes > 0 && returned >= invest.RepeatTimes
		status := InvestStatusRunning
		if completed {
			status = InvestStatusCompleted
		}

		// 以 next_time 作为乐观锁，避免多节点重复派息
		result := tx.Model(&Invest{}).
			Where("id = ? AND status = ? AND next_time = ?", invest.ID, InvestStatusRunning, invest.NextTime).
			Updates(map[string]any{
				"returned_times":   returned,
				"total_paid":       invest.TotalPaid.Add(invest.Interest),
				"last_time":        now,
				"next_time":        invest.NextTime + int64(invest.IntervalHours)*3600,
				"status":           status,
				"capital_returned": completed && invest.CapitalBack,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		trx := utils.GenerateTrx()
		payout = &InterestPayout{
			InvestId: invest.ID,
			UserId:   invest.UserId,
			Trx:      trx,
			Amount:   invest.Interest,
			Capital:  decimal.Zero,
		}
		if invest.Interest.IsPositive() {
			if _, err := CreditWalletTx(tx, &WalletChange{
				UserId:  invest.UserId,
				Wallet:  config.WalletInterest,
				Amount:  invest.Interest,
				Trx:     trx,
				Remark:  RemarkInterest,
				Details: fmt.Sprintf("%s interest from %s", invest.Interest.StringFixed(2), invest.PlanName),
			}); err != nil {
				return err
			}
		}
		if completed && invest.CapitalBack {
			if _, err := CreditWalletTx(tx, &WalletChange{
				UserId:  invest.UserId,
				Wallet:  config.WalletInterest,
				Amount:  invest.Amount,
				Trx:     invest.Trx,
				Remark:  RemarkCapitalReturn,
				Details: fmt.Sprintf("Capital returned from %s", invest.PlanName),
			}); err != nil {
				return err
			}
			payout.Capital = invest.Amount
		}
		return nil
	})
	return payout, err
}

var allowedInvestOrderFields = map[string]bool{
	"id":         true,
	"amount":     true,
	"status":     true,
	"next_time":  true,
	"created_at": true,
}

type SearchInvestParams struct {
	UserId int    `form:"user_id"`
	PlanId int    `form:"plan_id"`
	Status string `form:"status"`
	PaginationParams
}

func GetInvestList(params *SearchInvestParams) (*DataResult[Invest], error) {
	var invests []*Invest
	db := DB
	if params.UserId != 0 {
		db = db.Where("user_id = ?", params.UserId)
	}
	if params.PlanId != 0 {
		db = db.Where("plan_id = ?", params.PlanId)
	}
	if params.Status != "" {
		db = db.Where("status = ?", params.Status)
	}
	return PaginateAndOrder(db, &params.PaginationParams, &invests, allowedInvestOrderFields)
}

func CountRunningInvests(userId int) int64 {
	var count int64
	DB.Model(&Invest{}).Where("user_id = ? AND status = ?", userId, InvestStatusRunning).Count(&count)
	return count
}
