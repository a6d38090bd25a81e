package config

import (
	"strings"

	"github.com/spf13/viper"
)

func InitConf() {
	defaultConfig()
	setEnv()

	if viper.GetBool("debug") {
		Debug = true
	}

	if secret := viper.GetString("session_secret"); secret != "" {
		SessionSecret = secret
	}

	IsMasterNode = viper.GetString("node_type") != "slave"

	if address := viper.GetString("server_address"); address != "" {
		ServerAddress = strings.TrimSuffix(address, "/")
	}

	// 数据库中的 DepositExpireHours 选项加载后会覆盖该初始值
	if hours := viper.GetInt("deposit.expire_hours"); hours > 0 {
		DepositExpireHours = hours
	}
}

func setEnv() {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	configFile := viper.GetString("config")
	if configFile == "" {
		configFile = "config.yaml"
	}
	viper.SetConfigFile(configFile)
	// 配置文件可选，缺失时仅使用环境变量与默认值
	_ = viper.ReadInConfig()
}

func defaultConfig() {
	viper.SetDefault("port", "3000")
	viper.SetDefault("gin_mode", "release")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_dir", "./logs")
	viper.SetDefault("sqlite_path", "blackcnote.db")
	viper.SetDefault("sqlite_busy_timeout", 3000)
	viper.SetDefault("sync_frequency", 600)
	viper.SetDefault("node_type", "master")
	viper.SetDefault("snowflake_node", 1)

	viper.SetDefault("tls_handshake_timeout", 30)
	viper.SetDefault("response_header_timeout", 60)
	viper.SetDefault("gateway_request_timeout", 30)

	viper.SetDefault("rate_limit.api", "480-M")
	viper.SetDefault("rate_limit.web", "240-M")
	viper.SetDefault("rate_limit.critical", "20-M")
	viper.SetDefault("rate_limit.callback", "120-M")

	viper.SetDefault("worker.concurrency", 5)
	viper.SetDefault("invest.batch_size", 200)
	viper.SetDefault("swagger_enabled", true)
}
