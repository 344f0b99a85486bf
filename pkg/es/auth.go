package es

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"

	"cogsearch-go/internal/config"
	"cogsearch-go/pkg/log"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// AuthModeClientCredentials 表示通过 client id / secret 换取 Bearer 令牌访问集群。
const AuthModeClientCredentials = "client_credentials"

const defaultTokenURLFormat = "https://login.microsoftonline.com/%s/oauth2/v2.0/token"

// newTransport 构造访问集群使用的 RoundTripper。
// client_credentials 模式下令牌由 oauth2 缓存，过期前不会重复申请。
func newTransport(cfg config.SearchConfig) (http.RoundTripper, error) {
	base := &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify},
	}
	if cfg.Auth.Mode != AuthModeClientCredentials {
		return base, nil
	}

	source, err := newTokenSource(cfg.Auth, &http.Client{Transport: base})
	if err != nil {
		return nil, err
	}
	log.Infof("[ES] 使用 client_credentials 方式认证, client_id: %s", cfg.Auth.ClientID)
	return &oauth2.Transport{Source: source, Base: base}, nil
}

// newTokenSource 创建进程级的令牌来源。
func newTokenSource(auth config.SearchAuthConfig, httpClient *http.Client) (oauth2.TokenSource, error) {
	if auth.ClientID == "" || auth.ClientSecret == "" {
		return nil, fmt.Errorf("client_credentials auth requires client_id and client_secret")
	}
	tokenURL := auth.TokenURL
	if tokenURL == "" {
		tokenURL = defaultTokenURLFormat
	}
	// token_url 可以是带租户占位符的模板
	if strings.Contains(tokenURL, "%s") {
		if auth.TenantID == "" {
			return nil, fmt.Errorf("client_credentials auth requires tenant_id for token url %s", tokenURL)
		}
		tokenURL = fmt.Sprintf(tokenURL, auth.TenantID)
	}

	cc := &clientcredentials.Config{
		ClientID:     auth.ClientID,
		ClientSecret: auth.ClientSecret,
		TokenURL:     tokenURL,
		Scopes:       auth.Scopes,
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
	return cc.TokenSource(ctx), nil
}
