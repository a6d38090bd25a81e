package utils

import (
	"errors"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/spf13/viper"
	"github.com/sqids/sqids-go"
)

var (
	trxNode     *snowflake.Node
	trxNodeOnce sync.Once

	refCoder     *sqids.Sqids
	refCoderOnce sync.Once
)

const refAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func node() *snowflake.Node {
	trxNodeOnce.Do(func() {
		n, err := snowflake.NewNode(viper.GetInt64("snowflake_node"))
		if err != nil {
			n, _ = snowflake.NewNode(1)
		}
		trxNode = n
	})
	return trxNode
}

// GenerateTrx 生成站内交易号（充值单号、流水号、提现单号共用）
// 纯数字，满足各支付渠道对订单号只允许字母数字的限制
func GenerateTrx() string {
	return node().Generate().String()
}

func refEncoder() *sqids.Sqids {
	refCoderOnce.Do(func() {
		s, err := sqids.New(sqids.Options{
			Alphabet:  refAlphabet,
			MinLength: 8,
		})
		if err != nil {
			panic(err)
		}
		refCoder = s
	})
	return refCoder
}

// EncodeReferralCode 将用户 ID 编码为推荐码
func EncodeReferralCode(userId int) (string, error) {
	if userId <= 0 {
		return "", errors.New("invalid user id")
	}
	return refEncoder().Encode([]uint64{uint64(userId)})
}

// DecodeReferralCode 从推荐码解析用户 ID，非法推荐码返回 0
func DecodeReferralCode(code string) int {
	if code == "" {
		return 0
	}
	ids := refEncoder().Decode(code)
	if len(ids) != 1 {
		return 0
	}
	// 防止同一 ID 的多种编码
	canonical, err := refEncoder().Encode(ids)
	if err != nil || canonical != code {
		return 0
	}
	return int(ids[0])
}
