package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/launchlog/internal/model"
)

// PostgresPostRepo はPostgreSQLを使用した記事リポジトリ。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

// List は全記事をdate降順で返す。
func (r *PostgresPostRepo) List(ctx context.Context) ([]*model.Post, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, location, date FROM launches ORDER BY date DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	posts := make([]*model.Post, 0)
	for rows.Next() {
		post := &model.Post{}
		if err := rows.Scan(&post.ID, &post.Location, &post.Date); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}

	return posts, nil
}

// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id int64) (*model.Post, error) {
	post := &model.Post{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, location, date FROM launches WHERE id = $1`,
		id,
	).Scan(&post.ID, &post.Location, &post.Date)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post by ID: %w", err)
	}

	return post, nil
}

// Create は記事を作成し、採番されたIDをpost.IDに設定する。
func (r *PostgresPostRepo) Create(ctx context.Context, post *model.Post) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO launches (location, date) VALUES ($1, $2) RETURNING id`,
		post.Location, post.Date,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	post.ID = id
	return nil
}

// UpdateLocation は記事のlocationを更新する。対象が存在しない場合はnilを返す。
func (r *PostgresPostRepo) UpdateLocation(ctx context.Context, id int64, location string) (*model.Post, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 同時更新に備えて行ロックを取得する
	post := &model.Post{}
	err = tx.QueryRowContext(ctx,
		`SELECT id, location, date FROM launches WHERE id = $1 FOR UPDATE`,
		id,
	).Scan(&post.ID, &post.Location, &post.Date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock post: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE launches SET location = $1 WHERE id = $2`,
		location, id,
	); err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	post.Location = location
	return post, nil
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
