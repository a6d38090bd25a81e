package middleware

import (
	"net/http"
	"strings"

	"blackcnote/common/config"
	"blackcnote/model"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// identityFromRequest 优先取会话中的用户 id，其次取 Authorization 头或路由参数中的 access token
func identityFromRequest(c *gin.Context) (*model.User, string) {
	session := sessions.Default(c)
	if id, ok := session.Get("id").(int); ok && id > 0 {
		user, err := model.GetUserById(id, false)
		if err != nil {
			session.Clear()
			_ = session.Save()
			return nil, "登录已失效，请重新登录"
		}
		return user, ""
	}

	token := strings.TrimSpace(c.GetHeader("Authorization"))
	if token == "" {
		token = c.Param("accessToken")
	}
	if token == "" {
		return nil, "无权进行此操作，未登录且未提供 access token"
	}
	if !strings.HasPrefix(token, "Bearer ") {
		token = "Bearer " + token
	}
	user := model.ValidateAccessToken(token)
	if user == nil || user.Username == "" {
		return nil, "无权进行此操作，access token 无效"
	}
	return user, ""
}

// authHelper 每次请求都从数据库读取状态与角色，封禁或降权立即生效
func authHelper(c *gin.Context, minRole int) {
	user, reason := identityFromRequest(c)
	if user == nil {
		abortWithMessage(c, http.StatusUnauthorized, reason)
		return
	}
	if user.Status != config.UserStatusEnabled {
		abortWithMessage(c, http.StatusForbidden, "用户已被封禁")
		return
	}
	if user.Role < minRole {
		abortWithMessage(c, http.StatusForbidden, "无权进行此操作，权限不足")
		return
	}
	c.Set("id", user.Id)
	c.Set("username", user.Username)
	c.Set("role", user.Role)
	c.Next()
}

func UserAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHelper(c, config.RoleCommonUser)
	}
}

func AdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHelper(c, config.RoleAdminUser)
	}
}

func RootAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHelper(c, config.RoleRootUser)
	}
}
