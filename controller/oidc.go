package controller

import (
	"fmt"
	"net/http"
	"strings"

	"blackcnote/common/config"
	"blackcnote/common/logger"
	"blackcnote/common/oidc"
	"blackcnote/common/utils"
	"blackcnote/model"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OIDCEndpoint godoc
// @Summary Get OIDC login URL
// @Description 返回 OIDC 登录跳转地址
// @Tags OIDC
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /oauth/endpoint [get]
func OIDCEndpoint(c *gin.Context) {
	if !config.OIDCAuthEnabled {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "未启用OIDC"})
		return
	}
	cfg, err := oidc.GetOIDCConfigInstance()
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": err.Error()})
		return
	}

	state := utils.GetRandomString(16)
	session := sessions.Default(c)
	session.Set("oidc_state", state)
	// 推荐码随 state 一起保存，回调时用于新用户归属
	if ref := c.Query("ref"); ref != "" {
		session.Set("oidc_ref", ref)
	}
	_ = session.Save()

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "", "data": cfg.LoginURL(state)})
}

func claimString(claims map[string]any, keys ...string) string {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if v, ok := claims[key]; ok && v != nil {
			if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
				return s
			}
		}
	}
	return ""
}

// OIDCAuth godoc
// @Summary OIDC callback
// @Description OIDC 回调：校验 state，交换授权码并校验 ID Token，然后登录或创建用户
// @Tags OIDC
// @Produce json
// @Param state query string true "state"
// @Param code  query string true "授权码"
// @Success 200 {object} map[string]interface{}
// @Router /oauth/oidc [get]
func OIDCAuth(c *gin.Context) {
	if !config.OIDCAuthEnabled {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "未启用OIDC"})
		return
	}
	cfg, err := oidc.GetOIDCConfigInstance()
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": err.Error()})
		return
	}

	session := sessions.Default(c)
	stateInSession, _ := session.Get("oidc_state").(string)
	ref, _ := session.Get("oidc_ref").(string)
	state := c.Query("state")
	if state == "" || stateInSession == "" || state != stateInSession {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "非法的回调请求"})
		return
	}
	session.Delete("oidc_state")
	session.Delete("oidc_ref")

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "缺少授权码"})
		return
	}

	ctx := c.Request.Context()
	token, err := cfg.OAuth2Config.Exchange(ctx, code)
	if err != nil {
		logger.LogWarn(ctx, "oidc code exchange failed", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "授权失败: " + err.Error()})
		return
	}
	rawIDToken, _ := token.Extra("id_token").(string)
	if rawIDToken == "" {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "授权失败：缺少ID Token"})
		return
	}
	idToken, err := cfg.Verifier.Verify(ctx, rawIDToken)
	if err != nil {
		logger.LogWarn(ctx, "oidc id token rejected", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "ID Token 验证失败: " + err.Error()})
		return
	}
	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "解析ID Token失败: " + err.Error()})
		return
	}

	sub := claimString(claims, "sub")
	email := claimString(claims, "email")

	var user *model.User
	if sub != "" {
		if u, err := model.FindUserByField("oidc_id", sub); err == nil && u != nil {
			user = u
		}
	}
	if user == nil && email != "" {
		if u, err := model.FindUserByField("email", email); err == nil && u != nil {
			user = u
		}
	}

	if user == nil {
		if !config.RegisterEnabled {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "管理员关闭了新用户注册"})
			return
		}
		username := claimString(claims, strings.TrimSpace(config.OIDCUsernameClaims), "preferred_username", "email", "sub")
		// 用户名最长 12 字符且唯一
		if len(username) > 12 || username == "" || model.IsUsernameAlreadyTaken(username) {
			username = "oidc_" + utils.GetRandomString(7)
		}
		newUser := model.User{
			Username:    username,
			Password:    utils.GetRandomString(16),
			DisplayName: username,
			OidcId:      sub,
			Email:       email,
			Status:      config.UserStatusEnabled,
		}
		if err := newUser.Insert(model.GetInviterIdByCode(ref)); err != nil {
			logger.LogError(ctx, "oidc user creation failed", zap.String("sub", sub), zap.Error(err))
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "创建用户失败"})
			return
		}
		user = &newUser
	} else {
		if user.Status != config.UserStatusEnabled {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "用户已被封禁"})
			return
		}
		if user.OidcId == "" && sub != "" {
			if err := model.UpdateUser(user.Id, map[string]any{"oidc_id": sub}); err != nil {
				logger.LogWarn(ctx, "failed to bind oidc id", zap.Int("user_id", user.Id), zap.Error(err))
			}
		}
	}

	setupLogin(user, c)
}
