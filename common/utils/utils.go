package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

const keyChars = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

func GetUUID() string {
	code := uuid.New().String()
	code = strings.Replace(code, "-", "", -1)
	return code
}

func GetRandomString(length int) string {
	key := make([]byte, length)
	max := big.NewInt(int64(len(keyChars)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand 不可用时退化为时间戳取模
			n = big.NewInt(time.Now().UnixNano() % int64(len(keyChars)))
		}
		key[i] = keyChars[n.Int64()]
	}
	return string(key)
}

func GetTimestamp() int64 {
	return time.Now().Unix()
}

func String2Int(str string) int {
	num, err := strconv.Atoi(str)
	if err != nil {
		return 0
	}
	return num
}

func GetOrDefault[T any](key string, defaultValue T) T {
	if !viper.IsSet(key) {
		return defaultValue
	}
	// 环境变量读出的均为字符串，按默认值类型转换
	var value any
	switch any(defaultValue).(type) {
	case int:
		value = viper.GetInt(key)
	case int64:
		value = viper.GetInt64(key)
	case float64:
		value = viper.GetFloat64(key)
	case bool:
		value = viper.GetBool(key)
	case string:
		value = viper.GetString(key)
	default:
		value = viper.Get(key)
	}
	v, ok := value.(T)
	if !ok {
		return defaultValue
	}
	return v
}

func MessageWithRequestId(message string, id string) string {
	return fmt.Sprintf("%s (request id: %s)", message, id)
}

// FirstNonEmpty 返回第一个非空字符串
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
