// Package model はドメインモデルを定義する。
package model

import "time"

// Post はブログ記事（launchesテーブルの1行）を表す。
// Dateは作成時に設定され、以後更新されない。
type Post struct {
	ID       int64
	Location string
	Date     time.Time
}
