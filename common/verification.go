package common

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"blackcnote/common/redis"

	"github.com/google/uuid"
)

type verificationValue struct {
	code string
	time time.Time
}

const (
	EmailVerificationPurpose = "v"
	PasswordResetPurpose     = "r"
)

var verificationMutex sync.Mutex
var verificationMap map[string]verificationValue
var verificationMapMaxSize = 10
var VerificationValidMinutes = 10

func init() {
	verificationMap = make(map[string]verificationValue)
}

func GenerateVerificationCode(length int) string {
	code := uuid.New().String()
	code = strings.Replace(code, "-", "", -1)
	if length == 0 {
		return code
	}
	return code[:length]
}

func verificationKey(key, purpose string) string {
	return fmt.Sprintf("verification:%s:%s", purpose, key)
}

func RegisterVerificationCodeWithKey(key string, code string, purpose string) {
	if redis.RedisEnabled {
		_ = redis.RedisSet(verificationKey(key, purpose), code, time.Duration(VerificationValidMinutes)*time.Minute)
		return
	}
	verificationMutex.Lock()
	defer verificationMutex.Unlock()
	verificationMap[purpose+key] = verificationValue{
		code: code,
		time: time.Now(),
	}
	if len(verificationMap) > verificationMapMaxSize {
		removeExpiredPairs()
	}
}

func VerifyCodeWithKey(key string, code string, purpose string) bool {
	if code == "" {
		return false
	}
	if redis.RedisEnabled {
		stored, err := redis.RedisGet(verificationKey(key, purpose))
		return err == nil && stored == code
	}
	verificationMutex.Lock()
	defer verificationMutex.Unlock()
	value, okay := verificationMap[purpose+key]
	now := time.Now()
	if !okay || int(now.Sub(value.time).Seconds()) >= VerificationValidMinutes*60 {
		return false
	}
	return code == value.code
}

func DeleteKey(key string, purpose string) {
	if redis.RedisEnabled {
		_ = redis.RedisDel(verificationKey(key, purpose))
		return
	}
	verificationMutex.Lock()
	defer verificationMutex.Unlock()
	delete(verificationMap, purpose+key)
}

// no lock inside, so the caller must lock the verificationMap before calling!
func removeExpiredPairs() {
	now := time.Now()
	for key := range verificationMap {
		if int(now.Sub(verificationMap[key].time).Seconds()) >= VerificationValidMinutes*60 {
			delete(verificationMap, key)
		}
	}
}
