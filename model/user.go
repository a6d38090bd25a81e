package model

import (
	"errors"
	"fmt"
	"strings"

	"blackcnote/common"
	"blackcnote/common/config"
	"blackcnote/common/utils"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// User if you add sensitive fields, don't forget to clean them in setupLogin function.
// Otherwise, the sensitive information will be saved on local storage in plain text!
// User 用户表（登录/权限/账号状态等）
type User struct {
	// Id 主键自增ID
	Id int `json:"id" gorm:"comment:主键ID"`
	// Username 用户名（唯一，用于登录），最大12字符
	Username string `json:"username" gorm:"uniqueIndex;type:varchar(64);comment:用户名" validate:"required,max=12"`
	// Password 密码（加密存储，最小8、最大20字符）
	Password string `json:"password" gorm:"not null;type:varchar(255);comment:密码Hash" validate:"min=8,max=20"`
	// DisplayName 显示名称（可搜索）
	DisplayName string `json:"display_name" gorm:"index;type:varchar(64);comment:显示名称" validate:"max=20"`
	// Role 角色（0访客/1普通/10管理员/100超管）
	Role int `json:"role" gorm:"type:int;default:1;comment:角色(0访客/1普通/10管理员/100超管)"`
	// Status 状态（1启用/2禁用）
	Status int `json:"status" gorm:"type:int;default:1;comment:状态(1启用/2禁用)"`
	// Email 邮箱（可选，用于找回密码/通知）
	Email string `json:"email" gorm:"index;type:varchar(100);comment:邮箱" validate:"max=50"`
	// AvatarUrl 头像地址（可选）
	AvatarUrl string `json:"avatar_url" gorm:"type:varchar(500);column:avatar_url;default:'';comment:头像URL"`
	// OidcId OIDC Subject ID（开启 OIDC 登录时回填）
	OidcId string `json:"oidc_id" gorm:"column:oidc_id;index;type:varchar(255);comment:OIDC Subject ID"`
	// AccessToken 用户访问令牌（无 Session 时用于 API 鉴权，唯一）
	AccessToken string `json:"access_token" gorm:"type:char(32);column:access_token;uniqueIndex;comment:访问令牌"`
	// VerificationCode 非持久化字段：注册/绑定时的验证码
	VerificationCode string `json:"verification_code" gorm:"-:all"`
	// DepositWallet 充值钱包余额（充值入账，可用于投资）
	DepositWallet decimal.Decimal `json:"deposit_wallet" gorm:"type:decimal(28,8);default:0;comment:充值钱包"`
	// InterestWallet 收益钱包余额（利息与返佣入账，可提现）
	InterestWallet decimal.Decimal `json:"interest_wallet" gorm:"type:decimal(28,8);default:0;comment:收益钱包"`
	// RefBy 推荐人用户ID（0 表示无推荐人）
	RefBy int `json:"ref_by" gorm:"index;default:0;comment:推荐人ID"`
	// AffCode 推荐码（由用户ID编码生成）
	AffCode string `json:"aff_code" gorm:"type:varchar(32);index;comment:推荐码"`
	// TwoFASecret TOTP 密钥，不对外返回
	TwoFASecret string `json:"-" gorm:"type:varchar(64);column:two_fa_secret;comment:TOTP密钥"`
	// TwoFAEnabled 是否已启用两步验证
	TwoFAEnabled bool `json:"two_fa_enabled" gorm:"column:two_fa_enabled;default:false;comment:是否启用两步验证"`
	// LastLoginTime 最近登录时间（Unix 秒）
	LastLoginTime int64 `json:"last_login_time" gorm:"bigint;default:0;comment:最近登录时间(Unix秒)"`
	// CreatedTime 账户创建时间（Unix 秒）
	CreatedTime int64 `json:"created_time" gorm:"bigint;comment:创建时间(Unix秒)"`
	// DeletedAt 软删除时间（用于软删除）
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index;comment:软删除时间"`
}

type UserUpdates func(*User)

var allowedUserOrderFields = map[string]bool{
	"id":           true,
	"username":     true,
	"role":         true,
	"status":       true,
	"created_time": true,
}

func GetUsersList(params *GenericParams) (*DataResult[User], error) {
	var users []*User
	db := DB.Omit("password")
	if params.Keyword != "" {
		db = db.Where("id = ? or username LIKE ? or email LIKE ? or display_name LIKE ?",
			utils.String2Int(params.Keyword),
			params.Keyword+"%", params.Keyword+"%", params.Keyword+"%",
		)
	}

	return PaginateAndOrder[User](db, &params.PaginationParams, &users, allowedUserOrderFields)
}

func GetUserById(id int, selectAll bool) (*User, error) {
	if id == 0 {
		return nil, errors.New("id 为空！")
	}
	user := User{Id: id}
	var err error = nil
	if selectAll {
		err = DB.First(&user, "id = ?", id).Error
	} else {
		err = DB.Omit("password").First(&user, "id = ?", id).Error
	}
	return &user, err
}

func (user *User) Insert(inviterId int) error {
	return DB.Transaction(func(tx *gorm.DB) error {
		return user.InsertWithTx(tx, inviterId)
	})
}

// InsertWithTx 在指定事务中创建用户，并生成推荐码
func (user *User) InsertWithTx(tx *gorm.DB, inviterId int) error {
	if strings.TrimSpace(user.Username) == "" {
		return errors.New("用户名不能为空！")
	}
	if RecordExistsWithTx(tx, &User{}, "username", user.Username, nil) {
		return errors.New("用户名已存在！")
	}

	// 如果提供了邮箱，进行严格验证
	if user.Email != "" {
		if err := common.ValidateEmailStrict(user.Email); err != nil {
			return errors.New("邮箱格式不符合要求")
		}
	}
	var err error
	if user.Password != "" {
		user.Password, err = common.Password2Hash(user.Password)
		if err != nil {
			return err
		}
	}
	if inviterId > 0 && RecordExistsWithTx(tx, &User{}, "id", inviterId, nil) {
		user.RefBy = inviterId
	}
	user.AccessToken = utils.GetUUID()
	user.CreatedTime = utils.GetTimestamp()
	if err = tx.Create(user).Error; err != nil {
		return err
	}

	user.AffCode, err = utils.EncodeReferralCode(user.Id)
	if err != nil {
		return err
	}
	return tx.Model(user).Update("aff_code", user.AffCode).Error
}

func (user *User) Update(updatePassword bool) error {
	var err error
	// 余额只能通过账务流水变更
	omitFields := []string{"deposit_wallet", "interest_wallet", "two_fa_secret", "ref_by", "aff_code"}

	if updatePassword {
		user.Password, err = common.Password2Hash(user.Password)
		if err != nil {
			return err
		}
	} else {
		omitFields = append(omitFields, "password")
	}

	return DB.Model(user).Omit(omitFields...).Updates(user).Error
}

func UpdateUser(id int, fields map[string]interface{}) error {
	err := DB.Model(&User{}).Where("id = ?", id).Updates(fields).Error
	if err != nil {
		return err
	}

	return nil
}

func (user *User) Delete() error {
	if user.Id == 0 {
		return errors.New("id 为空！")
	}

	// 不改变当前数据库索引，通过更改用户名来删除用户
	user.Username = user.Username + "_del_" + utils.GetRandomString(6)
	err := user.Update(false)
	if err != nil {
		return err
	}

	err = DB.Delete(user).Error
	return err
}

// ValidateAndFill check password & user status
func (user *User) ValidateAndFill() (err error) {
	// When querying with struct, GORM will only query with non-zero fields,
	// that means if your field's value is 0, '', false or other zero values,
	// it won't be used to build query conditions
	password := user.Password
	if strings.TrimSpace(user.Username) == "" || strings.TrimSpace(password) == "" {
		return errors.New("用户名或密码为空")
	}
	err = DB.Where("username = ?", user.Username).First(user).Error
	if err != nil {
		// we must make sure check username firstly
		// consider this case: a malicious user set his username as other's email
		err := DB.Where("email = ?", user.Username).First(user).Error
		if err != nil {
			return errors.New("用户名或密码错误，或用户已被封禁")
		}
	}
	okay := common.ValidatePasswordAndHash(password, user.Password)
	if !okay || user.Status != config.UserStatusEnabled {
		return errors.New("用户名或密码错误，或用户已被封禁")
	}
	return nil
}

func (user *User) FillUserByEmail() error {
	if user.Email == "" {
		return errors.New("email 为空！")
	}

	result := DB.Where(User{Email: user.Email}).First(user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return errors.New("没有找到用户！")
		}
		return result.Error
	}
	return nil
}

func FindUserByField(field string, value any) (*User, error) {
	user := &User{}
	err := DB.Where(fmt.Sprintf("%s = ?", field), value).First(user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	return user, err
}

func IsFieldAlreadyTaken(field string, value any) bool {
	var count int64
	DB.Model(&User{}).Where(fmt.Sprintf("%s = ?", field), value).Limit(1).Count(&count)
	return count > 0
}

func IsUsernameAlreadyTaken(username string) bool {
	return IsFieldAlreadyTaken("username", username)
}

func IsEmailAlreadyTaken(email string) bool {
	return IsFieldAlreadyTaken("email", email)
}

func ResetUserPasswordByEmail(email string, password string) error {
	if email == "" || password == "" {
		return errors.New("邮箱地址或密码为空！")
	}
	hashedPassword, err := common.Password2Hash(password)
	if err != nil {
		return err
	}
	err = DB.Model(&User{}).Where("email = ?", email).Update("password", hashedPassword).Error
	return err
}

func ValidateAccessToken(token string) (user *User) {
	if token == "" {
		return nil
	}
	token = strings.TrimPrefix(token, "Bearer ")
	user = &User{}
	if DB.Where("access_token = ?", token).First(user).RowsAffected == 1 {
		return user
	}
	return nil
}

// GetInviterIdByCode 解析推荐码，推荐码无效或用户不存在时返回 0
func GetInviterIdByCode(code string) int {
	id := utils.DecodeReferralCode(strings.TrimSpace(code))
	if id == 0 {
		return 0
	}
	var count int64
	DB.Model(&User{}).Where("id = ? AND status = ?", id, config.UserStatusEnabled).Count(&count)
	if count == 0 {
		return 0
	}
	return id
}

type ReferralUser struct {
	Id          int    `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	CreatedTime int64  `json:"created_time"`
}

// GetReferrals 返回直接下线
func GetReferrals(userId int) ([]*ReferralUser, error) {
	var users []*ReferralUser
	err := DB.Model(&User{}).Select("id, username, display_name, created_time").
		Where("ref_by = ?", userId).Order("id DESC").Find(&users).Error
	return users, err
}

// SetTwoFA 保存或清除用户的 TOTP 密钥
func SetTwoFA(userId int, secret string, enabled bool) error {
	return DB.Model(&User{}).Where("id = ?", userId).Updates(map[string]any{
		"two_fa_secret":  secret,
		"two_fa_enabled": enabled,
	}).Error
}
