// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// APIEndpointGuard は外部APIへの接続先を制限する。
// 起動時のベースURL検証と、DNS解決後のIPを検証するHTTPクライアントの生成を行う。
type APIEndpointGuard struct {
	schemes []string
	ports   []int
}

// NewAPIEndpointGuard はhttp/httpsと80/443番ポートのみを許可するガードを生成する。
func NewAPIEndpointGuard() *APIEndpointGuard {
	return &APIEndpointGuard{
		schemes: []string{"http", "https"},
		ports:   []int{80, 443},
	}
}

// 内部ネットワーク宛てとみなすアドレス範囲。
// 169.254.0.0/16 はクラウドのメタデータIPを含む。
var internalPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

var errEmptyBaseURL = errors.New("empty base URL")

// Client はbaseURLを検証した上で、接続先を制限したHTTPクライアントを返す。
func (g *APIEndpointGuard) Client(baseURL string, timeout time.Duration) (*http.Client, error) {
	if err := g.CheckBaseURL(baseURL); err != nil {
		return nil, err
	}
	cfg := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(g.schemes...).
		SetAllowedPorts(g.ports...).
		Build()
	return safeurl.Client(cfg).Client, nil
}

// CheckBaseURL はDNS解決なしでベースURLを静的に検証する。
// 認証情報付きのURL、許可外のスキーム、内部アドレスのリテラルとlocalhostを拒否する。
func (g *APIEndpointGuard) CheckBaseURL(baseURL string) error {
	if baseURL == "" {
		return errEmptyBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if !g.schemeAllowed(u.Scheme) {
		return fmt.Errorf("disallowed scheme %q", u.Scheme)
	}
	if u.User != nil {
		return fmt.Errorf("base URL must not carry credentials")
	}

	host := u.Hostname()
	switch {
	case host == "":
		return fmt.Errorf("base URL has no host")
	case strings.EqualFold(host, "localhost"):
		return fmt.Errorf("blocked host %s", host)
	}
	if addr, err := netip.ParseAddr(host); err == nil && isInternal(addr) {
		return fmt.Errorf("blocked address %s", addr)
	}
	return nil
}

func (g *APIEndpointGuard) schemeAllowed(scheme string) bool {
	for _, s := range g.schemes {
		if strings.EqualFold(s, scheme) {
			return true
		}
	}
	return false
}

func isInternal(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range internalPrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
