package requester

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"blackcnote/common/logger"
	"blackcnote/common/utils"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/proxy"
)

var HTTPClient *http.Client
var gatewayRequestTimeout = 30 * time.Second
var initOnce sync.Once

func InitHttpClient() {
	initOnce.Do(initHttpClient)
}

func initHttpClient() {
	// TLS 握手超时配置，默认 30 秒
	tlsHandshakeSeconds := utils.GetOrDefault("tls_handshake_timeout", 30)
	tlsHandshakeTimeout := time.Duration(tlsHandshakeSeconds) * time.Second
	// 响应头超时配置，默认 60 秒，支付渠道接口不应长时间无响应
	responseHeaderSeconds := utils.GetOrDefault("response_header_timeout", 60)
	responseHeaderTimeout := time.Duration(responseHeaderSeconds) * time.Second

	trans := &http.Transport{
		Proxy: http.ProxyFromEnvironment,

		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     60 * time.Second,

		TLSHandshakeTimeout:   tlsHandshakeTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: responseHeaderTimeout,

		DisableKeepAlives:  false,
		DisableCompression: false,
		ForceAttemptHTTP2:  true,
	}

	proxyAddr := utils.GetOrDefault("proxy", "")
	if proxyAddr != "" {
		if err := applyProxy(trans, proxyAddr); err != nil {
			logger.SysError("invalid proxy, outbound requests go direct: " + err.Error())
		}
	}

	requestTimeout := utils.GetOrDefault("gateway_request_timeout", 30)
	if requestTimeout > 0 {
		gatewayRequestTimeout = time.Duration(requestTimeout) * time.Second
	}

	HTTPClient = &http.Client{
		Transport: trans,
		Timeout:   gatewayRequestTimeout,
	}

	logger.SysLog(fmt.Sprintf("HTTP Client: gateway_request_timeout=%ds, response_header_timeout=%ds, tls_handshake_timeout=%ds",
		requestTimeout, responseHeaderSeconds, tlsHandshakeSeconds))
}

func applyProxy(trans *http.Transport, proxyAddr string) error {
	u, err := url.Parse(proxyAddr)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "http", "https":
		trans.Proxy = http.ProxyURL(u)
		return nil
	case "socks5", "socks5h":
		dialer, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return err
		}
		trans.Proxy = nil
		if contextDialer, ok := dialer.(proxy.ContextDialer); ok {
			trans.DialContext = contextDialer.DialContext
		} else {
			trans.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported proxy scheme: %s", u.Scheme)
	}
}

// NewRestyClient 返回共享连接池的 resty 客户端，各支付渠道的 API 调用统一经过此处
func NewRestyClient(baseURL string) *resty.Client {
	InitHttpClient()
	client := resty.NewWithClient(HTTPClient).
		SetTimeout(gatewayRequestTimeout).
		SetHeader("User-Agent", "BlackCnote/1.0")
	if baseURL != "" {
		client.SetBaseURL(baseURL)
	}
	return client
}
