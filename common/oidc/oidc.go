package oidc

import (
	"context"
	"errors"
	"strings"
	"sync"

	"blackcnote/common/config"
	"blackcnote/common/logger"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

var ErrOIDCNotConfigured = errors.New("OIDC 未配置")

type OIDCConfig struct {
	Provider     *gooidc.Provider
	Verifier     *gooidc.IDTokenVerifier
	OAuth2Config *oauth2.Config
	issuer       string
	clientId     string
	secret       string
	scopes       string
}

var (
	instance *OIDCConfig
	mu       sync.Mutex
)

func (c *OIDCConfig) LoginURL(state string) string {
	return c.OAuth2Config.AuthCodeURL(state)
}

func (c *OIDCConfig) stale() bool {
	return c.issuer != config.OIDCIssuer || c.clientId != config.OIDCClientId ||
		c.secret != config.OIDCClientSecret || c.scopes != config.OIDCScopes
}

func scopes() []string {
	list := []string{gooidc.ScopeOpenID}
	for _, scope := range strings.FieldsFunc(config.OIDCScopes, func(r rune) bool { return r == ',' || r == ' ' }) {
		if scope != gooidc.ScopeOpenID {
			list = append(list, scope)
		}
	}
	return list
}

func build(ctx context.Context) (*OIDCConfig, error) {
	if config.OIDCIssuer == "" || config.OIDCClientId == "" || config.OIDCClientSecret == "" {
		return nil, ErrOIDCNotConfigured
	}
	provider, err := gooidc.NewProvider(ctx, config.OIDCIssuer)
	if err != nil {
		return nil, err
	}
	return &OIDCConfig{
		Provider: provider,
		Verifier: provider.Verifier(&gooidc.Config{ClientID: config.OIDCClientId}),
		OAuth2Config: &oauth2.Config{
			ClientID:     config.OIDCClientId,
			ClientSecret: config.OIDCClientSecret,
			RedirectURL:  config.ServerAddress + "/api/oauth/oidc",
			Endpoint:     provider.Endpoint(),
			Scopes:       scopes(),
		},
		issuer:   config.OIDCIssuer,
		clientId: config.OIDCClientId,
		secret:   config.OIDCClientSecret,
		scopes:   config.OIDCScopes,
	}, nil
}

// GetOIDCConfigInstance 返回当前配置对应的实例，后台修改配置后自动重建
func GetOIDCConfigInstance() (*OIDCConfig, error) {
	mu.Lock()
	defer mu.Unlock()
	if instance != nil && !instance.stale() {
		return instance, nil
	}
	cfg, err := build(context.Background())
	if err != nil {
		return nil, err
	}
	instance = cfg
	return instance, nil
}

func InitOIDCConfig() {
	if !config.OIDCAuthEnabled {
		return
	}
	if _, err := GetOIDCConfigInstance(); err != nil {
		logger.SysError("failed to init OIDC: " + err.Error())
		return
	}
	logger.SysLog("OIDC login enabled")
}
