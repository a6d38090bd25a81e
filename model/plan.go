package model

import (
	"errors"

	"blackcnote/common/utils"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	InterestTypePercent = "percent"
	InterestTypeFixed   = "fixed"
)

var ErrPlanUnavailable = errors.New("投资计划不存在或已停用")

// Plan 投资计划
type Plan struct {
	// ID 主键自增ID
	ID int `json:"id" gorm:"comment:主键ID"`
	// Name 计划名称
	Name string `json:"name" gorm:"type:varchar(100);not null;comment:计划名称" validate:"required,max=100"`
	// MinAmount 最小投资金额（与 MaxAmount 相同即为固定金额）
	MinAmount decimal.Decimal `json:"min_amount" gorm:"type:decimal(28,8);default:0;comment:最小金额"`
	// MaxAmount 最大投资金额
	MaxAmount decimal.Decimal `json:"max_amount" gorm:"type:decimal(28,8);default:0;comment:最大金额"`
	// Interest 每期收益（百分比或固定金额）
	Interest decimal.Decimal `json:"interest" gorm:"type:decimal(28,8);default:0;comment:每期收益"`
	// InterestType 收益类型（percent/fixed）
	InterestType string `json:"interest_type" gorm:"type:varchar(10);default:'percent';comment:收益类型" validate:"omitempty,oneof=percent fixed"`
	// IntervalHours 派息间隔（小时）
	IntervalHours int `json:"interval_hours" gorm:"default:24;comment:派息间隔(小时)" validate:"gte=1"`
	// RepeatTimes 派息次数（0 表示终身）
	RepeatTimes int `json:"repeat_times" gorm:"default:0;comment:派息次数" validate:"gte=0"`
	// CapitalBack 到期是否返还本金
	CapitalBack bool `json:"capital_back" gorm:"default:false;comment:到期返还本金"`
	// Featured 是否推荐
	Featured bool `json:"featured" gorm:"default:false;comment:是否推荐"`
	// Description 描述
	Description string `json:"description" gorm:"type:text;comment:描述"`
	// Sort 排序（数字越小越靠前）
	Sort int `json:"sort" gorm:"default:1;comment:排序"`
	// Enable 是否启用
	Enable *bool `json:"enable" gorm:"default:true;comment:是否启用"`
	// CreatedAt 创建时间（Unix 秒）
	CreatedAt int64 `json:"created_at" gorm:"bigint;comment:创建时间(Unix秒)"`
	// DeletedAt 软删除（索引）
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index;comment:软删除时间"`
}

func (p *Plan) IsFixedAmount() bool {
	return p.MinAmount.Equal(p.MaxAmount)
}

// InterestFor 按投资金额计算每期收益
func (p *Plan) InterestFor(amount decimal.Decimal) decimal.Decimal {
	if p.InterestType == InterestTypeFixed {
		return p.Interest
	}
	return amount.Mul(p.Interest).Div(decimal.NewFromInt(100)).Round(8)
}

// ValidateAmount 校验投资金额是否在计划范围内
func (p *Plan) ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if p.IsFixedAmount() {
		if !amount.Equal(p.MinAmount) {
			return ErrInvalidAmount
		}
		return nil
	}
	if amount.LessThan(p.MinAmount) {
		return ErrInvalidAmount
	}
	if p.MaxAmount.IsPositive() && amount.GreaterThan(p.MaxAmount) {
		return ErrInvalidAmount
	}
	return nil
}

func GetEnabledPlan(id int) (*Plan, error) {
	var plan Plan
	err := DB.Where("id = ? AND enable = ?", id, true).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlanUnavailable
	}
	return &plan, err
}

func GetEnabledPlans() ([]*Plan, error) {
	var plans []*Plan
	err := DB.Where("enable = ?", true).Order("sort ASC, id ASC").Find(&plans).Error
	return plans, err
}

var allowedPlanOrderFields = map[string]bool{
	"id":         true,
	"name":       true,
	"sort":       true,
	"created_at": true,
}

func GetPlanList(params *GenericParams) (*DataResult[Plan], error) {
	var plans []*Plan
	db := DB
	if params.Keyword != "" {
		db = db.Where("name LIKE ?", params.Keyword+"%")
	}
	return PaginateAndOrder(db, &params.PaginationParams, &plans, allowedPlanOrderFields)
}

func (p *Plan) Insert() error {
	if p.InterestType == "" {
		p.InterestType = InterestTypePercent
	}
	p.CreatedAt = utils.GetTimestamp()
	return DB.Create(p).Error
}

func (p *Plan) Update() error {
	return DB.Model(p).Select("*").Omit("created_at").Updates(p).Error
}

func (p *Plan) Delete() error {
	return DB.Delete(p).Error
}
