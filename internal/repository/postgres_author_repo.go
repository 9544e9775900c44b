package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/launchlog/internal/model"
)

// PostgresAuthorRepo はPostgreSQLを使用した著者リポジトリ。
type PostgresAuthorRepo struct {
	db *sql.DB
}

// NewPostgresAuthorRepo はPostgresAuthorRepoを生成する。
func NewPostgresAuthorRepo(db *sql.DB) *PostgresAuthorRepo {
	return &PostgresAuthorRepo{db: db}
}

// ResolveSole はメールアドレスに対応する著者を返し、著者がいなければ作成する。
// 別の著者が既に存在する場合はnilを返す。
func (r *PostgresAuthorRepo) ResolveSole(ctx context.Context, email, name string) (*model.Author, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 初回ログインが同時に発生しても1人しか作成されないよう、書き込みを直列化する
	if _, err := tx.ExecContext(ctx, `LOCK TABLE authors IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return nil, fmt.Errorf("failed to lock authors: %w", err)
	}

	author, err := scanAuthor(tx.QueryRowContext(ctx,
		`SELECT id, email, name, created_at FROM authors WHERE email = $1`,
		email,
	))
	if err != nil {
		return nil, err
	}
	if author != nil {
		return author, nil
	}

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM authors)`,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check authors: %w", err)
	}
	if exists {
		return nil, nil
	}

	author = &model.Author{Email: email, Name: name}
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO authors (email, name) VALUES ($1, $2) RETURNING id, created_at`,
		email, name,
	).Scan(&author.ID, &author.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert author: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return author, nil
}

// scanAuthor は1行を著者として読み取る。行がない場合はnilを返す。
func scanAuthor(row *sql.Row) (*model.Author, error) {
	author := &model.Author{}
	err := row.Scan(&author.ID, &author.Email, &author.Name, &author.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find author: %w", err)
	}
	return author, nil
}

// compile-time interface check
var _ AuthorRepository = (*PostgresAuthorRepo)(nil)
