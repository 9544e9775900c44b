// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/launchlog/internal/model"
)

// PostRepository は記事データの永続化インターフェース。
type PostRepository interface {
	// List は全記事をdate降順（同時刻はid降順）で返す。記事がない場合は空スライスを返す。
	List(ctx context.Context) ([]*model.Post, error)

	// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Post, error)

	// Create は記事を1トランザクションで作成し、採番されたIDをpost.IDに設定する。
	Create(ctx context.Context, post *model.Post) error

	// UpdateLocation は記事のlocationのみを1トランザクションで更新する。
	// dateは変更しない。対象が存在しない場合はnilを返す。
	UpdateLocation(ctx context.Context, id int64, location string) (*model.Post, error)
}

// AuthorRepository は著者データの永続化インターフェース。
// authorsテーブルは最大1行に制限されている。
type AuthorRepository interface {
	// ResolveSole はメールアドレスに対応する著者を返す。
	// 該当がなく著者が1人もいない場合は新規作成して返す。
	// 別の著者が既に存在する場合はnilを返す。
	// 判定と作成はテーブルロックを取得した1トランザクション内で行う。
	ResolveSole(ctx context.Context, email, name string) (*model.Author, error)
}
