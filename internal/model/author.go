package model

import "time"

// Author はブログの著者を表す。
// このブログでは著者は最大1人で、メールアドレスで外部IdPの利用者と紐付く。
type Author struct {
	ID        int64
	Email     string
	Name      string
	CreatedAt time.Time
}

// Session は署名済みセッショントークンと、その持ち主の著者IDを表す。
// サーバー側には保存せず、Cookieそのものが状態を保持する。
type Session struct {
	AuthorID  int64
	Token     string
	ExpiresAt time.Time
}
