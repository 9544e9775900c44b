package security

import (
	"net/http"
	"time"

	"github.com/doyensec/safeurl"
)

// NewOutboundClient はIdPなど外部APIを呼び出すためのHTTPクライアントを生成する。
// 接続先はhttpsの443番ポートに限り、プライベートIP・ループバック・リンクローカル・
// メタデータIPへの接続はsafeurlがDNS解決後に拒否する。
func NewOutboundClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("https").
		SetAllowedPorts(443).
		Build()

	return safeurl.Client(config).Client
}
