package model

import (
	"fmt"
	"strings"
	"time"

	"blackcnote/common"
	"blackcnote/common/config"
	"blackcnote/common/logger"
	"blackcnote/common/utils"

	"github.com/spf13/viper"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

var UsingSQLite = false
var UsingPostgreSQL = false

func createRootAccountIfNeed() error {
	var user User
	if err := DB.First(&user).Error; err != nil {
		logger.SysLog("no user exists, create a root user for you: username is root, password is 12345678")
		hashedPassword, err := common.Password2Hash("12345678")
		if err != nil {
			return err
		}
		rootUser := User{
			Username:    "root",
			Password:    hashedPassword,
			Role:        config.RoleRootUser,
			Status:      config.UserStatusEnabled,
			DisplayName: "Root User",
			AccessToken: utils.GetUUID(),
			CreatedTime: utils.GetTimestamp(),
		}
		if err := DB.Create(&rootUser).Error; err != nil {
			return err
		}
	}
	return nil
}

func chooseDB() (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		PrepareStmt: true,
		Logger:      gormlogger.Default.LogMode(gormlogger.Silent),
	}
	if config.Debug {
		gormConfig.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	dsn := viper.GetString("sql_dsn")
	if dsn != "" {
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			logger.SysLog("using PostgreSQL as database")
			UsingPostgreSQL = true
			return gorm.Open(postgres.New(postgres.Config{
				DSN:                  dsn,
				PreferSimpleProtocol: true,
			}), gormConfig)
		}
		logger.SysLog("using MySQL as database")
		return gorm.Open(mysql.Open(dsn), gormConfig)
	}
	// Use SQLite
	logger.SysLog("SQL_DSN not set, using SQLite as database")
	UsingSQLite = true
	sqlitePath := viper.GetString("sqlite_path")
	dsn = fmt.Sprintf("%s?_busy_timeout=%d", sqlitePath, utils.GetOrDefault("sqlite_busy_timeout", 3000))
	return gorm.Open(sqlite.Open(dsn), gormConfig)
}

func InitDB() (err error) {
	db, err := chooseDB()
	if err != nil {
		return err
	}
	DB = db
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxIdleConns(utils.GetOrDefault("sql_max_idle_conns", 100))
	sqlDB.SetMaxOpenConns(utils.GetOrDefault("sql_max_open_conns", 1000))
	sqlDB.SetConnMaxLifetime(time.Second * time.Duration(utils.GetOrDefault("sql_max_lifetime", 60)))

	if !config.IsMasterNode {
		return nil
	}
	logger.SysLog("database migration started")
	if err = migrate(DB); err != nil {
		return err
	}
	logger.SysLog("database migrated")
	return createRootAccountIfNeed()
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Option{},
		&User{},
		&Gateway{},
		&Deposit{},
		&Transaction{},
		&Plan{},
		&Invest{},
		&WithdrawMethod{},
		&Withdrawal{},
		&ReferralLevel{},
	)
}

// SetupDB 初始化数据库，失败直接退出
func SetupDB() {
	if err := InitDB(); err != nil {
		logger.FatalLog("failed to initialize database: " + err.Error())
	}
}

// SetupTestDB 使用独立的内存 SQLite 库，供各包测试使用
func SetupTestDB(name string) error {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.NewReplacer("/", "_", " ", "_").Replace(name))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(1)
	DB = db
	UsingSQLite = true
	UsingPostgreSQL = false
	return migrate(db)
}

func CloseDB() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
