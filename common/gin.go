package common

import (
	"bytes"
	"io"

	"blackcnote/common/config"

	"github.com/gin-gonic/gin"
)

// GetRequestBody 读取并缓存原始请求体，签名校验需要逐字节一致的原文
func GetRequestBody(c *gin.Context) ([]byte, error) {
	if cached, ok := c.Get(config.GinRequestBodyKey); ok {
		if body, ok := cached.([]byte); ok {
			return body, nil
		}
	}
	if c.Request.Body == nil {
		return nil, nil
	}
	requestBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	_ = c.Request.Body.Close()
	c.Set(config.GinRequestBodyKey, requestBody)
	c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
	return requestBody, nil
}

func APIRespondWithError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{
		"success": false,
		"message": err.Error(),
	})
}

func APIRespondWithData(c *gin.Context, data any) {
	c.JSON(200, gin.H{
		"success": true,
		"message": "",
		"data":    data,
	})
}
