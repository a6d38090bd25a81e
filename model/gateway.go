package model

import (
	"blackcnote/common/encrypt"
	"blackcnote/common/utils"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

// Gateway 支付网关配置，Type 为网关别名，Config 为该网关的 JSON 凭据
type Gateway struct {
	// ID 主键自增ID
	ID int `json:"id" gorm:"comment:主键ID"`
	// Type 网关别名（如 stripe/paypal/perfectmoney 等）
	Type string `json:"type" form:"type" gorm:"type:varchar(32);index;comment:网关别名"`
	// UUID 网关唯一标识（用于回调识别），系统生成
	UUID string `json:"uuid" form:"uuid" gorm:"type:char(32);uniqueIndex;comment:网关唯一标识"`
	// Name 网关名称（展示使用）
	Name string `json:"name" form:"name" gorm:"type:varchar(255);not null;comment:网关名称"`
	// Icon 图标URL（前端展示）
	Icon string `json:"icon" form:"icon" gorm:"type:varchar(300);comment:图标URL"`
	// NotifyDomain 回调域名（如需外网回调，配置对外可访问域名）
	NotifyDomain string `json:"notify_domain" form:"notify_domain" gorm:"type:varchar(300);comment:回调域名"`
	// FixedCharge 固定手续费（站内币种）
	FixedCharge decimal.Decimal `json:"fixed_charge" form:"fixed_charge" gorm:"type:decimal(28,8);default:0;comment:固定手续费"`
	// PercentCharge 百分比手续费（5 表示 5%）
	PercentCharge decimal.Decimal `json:"percent_charge" form:"percent_charge" gorm:"type:decimal(10,4);default:0;comment:百分比手续费"`
	// MinAmount 单笔最小充值金额
	MinAmount decimal.Decimal `json:"min_amount" form:"min_amount" gorm:"type:decimal(28,8);default:0;comment:最小金额"`
	// MaxAmount 单笔最大充值金额（0 表示不限制）
	MaxAmount decimal.Decimal `json:"max_amount" form:"max_amount" gorm:"type:decimal(28,8);default:0;comment:最大金额"`
	// Rate 站内币种到网关币种的汇率
	Rate decimal.Decimal `json:"rate" form:"rate" gorm:"type:decimal(28,8);default:1;comment:汇率"`
	// Currency 网关结算币种（USD/EUR/BTC/NGN 等）
	Currency string `json:"currency" form:"currency" gorm:"type:varchar(10);comment:网关币种"`
	// Config 网关配置（JSON 文本，按网关类型定义，落库时加密）
	Config string `json:"config" form:"config" gorm:"type:text;comment:网关配置JSON"`
	// Sort 排序（数字越小越靠前）
	Sort int `json:"sort" form:"sort" gorm:"default:1;comment:排序"`
	// Enable 是否启用
	Enable *bool `json:"enable" form:"enable" gorm:"default:true;comment:是否启用"`
	// CreatedAt 创建时间（Unix 秒）
	CreatedAt int64 `json:"created_at" gorm:"bigint;autoCreateTime;comment:创建时间(Unix秒)"`
	// UpdatedAt 更新时间（Unix 秒）
	UpdatedAt int64 `json:"-" gorm:"bigint;autoUpdateTime;comment:更新时间(Unix秒)"`
	// DeletedAt 软删除（索引）
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index;comment:软删除时间"`
}

func gatewaySecret() string {
	return viper.GetString("gateway_secret")
}

func (g *Gateway) BeforeSave(tx *gorm.DB) error {
	sealed, err := encrypt.Seal(g.Config, gatewaySecret())
	if err != nil {
		return err
	}
	g.Config = sealed
	return nil
}

func (g *Gateway) AfterSave(tx *gorm.DB) error {
	return g.openConfig()
}

func (g *Gateway) AfterFind(tx *gorm.DB) error {
	return g.openConfig()
}

func (g *Gateway) openConfig() error {
	if !encrypt.IsSealed(g.Config) {
		return nil
	}
	plain, err := encrypt.Open(g.Config, gatewaySecret())
	if err != nil {
		return err
	}
	g.Config = plain
	return nil
}

// Charge 计算手续费：固定 + 金额 × 百分比
func (g *Gateway) Charge(amount decimal.Decimal) decimal.Decimal {
	return g.FixedCharge.Add(amount.Mul(g.PercentCharge).Div(decimal.NewFromInt(100))).Round(8)
}

// EffectiveRate 汇率未设置时按 1 处理
func (g *Gateway) EffectiveRate() decimal.Decimal {
	if !g.Rate.IsPositive() {
		return decimal.NewFromInt(1)
	}
	return g.Rate
}

func GetGatewayByID(id int) (*Gateway, error) {
	var gateway Gateway
	err := DB.First(&gateway, id).Error
	return &gateway, err
}

// GetGatewayByUUID enabledOnly 为 false 时包含已停用的网关，用于接收在途充值的回调
func GetGatewayByUUID(uuid string, enabledOnly bool) (*Gateway, error) {
	var gateway Gateway
	query := DB.Where("uuid = ?", uuid)
	if enabledOnly {
		query = query.Where("enable = ?", true)
	}
	err := query.First(&gateway).Error
	return &gateway, err
}

var allowedGatewayOrderFields = map[string]bool{
	"id":         true,
	"uuid":       true,
	"name":       true,
	"type":       true,
	"sort":       true,
	"enable":     true,
	"created_at": true,
}

type SearchGatewayParams struct {
	Type     string `form:"type"`
	Name     string `form:"name"`
	UUID     string `form:"uuid"`
	Currency string `form:"currency"`
	PaginationParams
}

func GetGatewayList(params *SearchGatewayParams) (*DataResult[Gateway], error) {
	var gateways []*Gateway

	db := DB

	if params.Type != "" {
		db = db.Where("type = ?", params.Type)
	}

	if params.Name != "" {
		db = db.Where("name LIKE ?", params.Name+"%")
	}

	if params.UUID != "" {
		db = db.Where("uuid = ?", params.UUID)
	}

	if params.Currency != "" {
		db = db.Where("currency = ?", params.Currency)
	}

	return PaginateAndOrder(db, &params.PaginationParams, &gateways, allowedGatewayOrderFields)
}

// GetUserGatewayList 返回启用的网关，不包含凭据
func GetUserGatewayList() ([]*Gateway, error) {
	var gateways []*Gateway
	err := DB.Model(&Gateway{}).
		Select("uuid, type, name, icon, fixed_charge, percent_charge, min_amount, max_amount, rate, currency, sort").
		Where("enable = ?", true).Order("sort ASC, id ASC").Find(&gateways).Error
	return gateways, err
}

func (g *Gateway) Insert() error {
	g.UUID = utils.GetUUID()
	if !g.Rate.IsPositive() {
		g.Rate = decimal.NewFromInt(1)
	}
	return DB.Create(g).Error
}

func (g *Gateway) Update(overwrite bool) error {
	var err error

	if overwrite {
		err = DB.Model(g).Select("*").Omit("uuid", "created_at").Updates(g).Error
	} else {
		err = DB.Model(g).Omit("uuid").Updates(g).Error
	}

	return err
}

// UpdateConfig 单独更新网关凭据（如 Stripe 创建 webhook 后回写签名密钥）
func (g *Gateway) UpdateConfig(cfg string) error {
	g.Config = cfg
	return DB.Model(g).Select("config").Updates(g).Error
}

func (g *Gateway) Delete() error {
	return DB.Delete(g).Error
}
