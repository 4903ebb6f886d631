package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hitoshi/minishop/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーディレクトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// ResolveOrCreate はopenidのユーザーを返し、存在しなければ作成する。
// INSERT ... ON CONFLICT DO NOTHING で一意制約に判定を委ね、
// 行が返らなかった場合は先行する（または並行する）作成者の行を読み直す。
func (r *PostgresUserRepo) ResolveOrCreate(ctx context.Context, openID string, defaults model.Profile) (*model.User, bool, error) {
	if openID == "" {
		return nil, false, errEmptyOpenID
	}

	for attempt := 1; attempt <= maxResolveAttempts; attempt++ {
		user, err := scanPostgresUser(r.db.QueryRowContext(ctx,
			`INSERT INTO users (openid, avatar_url, nickname, phone, shop_info)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (openid) DO NOTHING
			 RETURNING `+userColumns,
			openID, defaults.AvatarURL, defaults.Nickname, defaults.Phone, defaults.ShopInfo,
		))
		if err == nil {
			return user, true, nil
		}
		if !errors.Is(err, sql.ErrNoRows) && !isUniqueViolation(err) {
			return nil, false, fmt.Errorf("failed to insert user: %w", err)
		}

		existing, err := r.FindByOpenID(ctx, openID)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return existing, false, nil
		}
	}

	return nil, false, fmt.Errorf("failed to resolve user after %d attempts", maxResolveAttempts)
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := scanPostgresUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByOpenID はopenidでユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByOpenID(ctx context.Context, openID string) (*model.User, error) {
	user, err := scanPostgresUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE openid = $1`,
		openID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by openid: %w", err)
	}
	return user, nil
}

// UpdateProfile はプロフィールを部分更新し、updated_atを現在時刻にする。
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, id int64, update model.ProfileUpdate) (*model.User, error) {
	cols, args := profileAssignments(update)
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", model.ErrInvalidRequest)
	}

	sets := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", col, i+1)
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE users SET %s, updated_at = now() WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), userColumns)

	user, err := scanPostgresUser(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id=%d", model.ErrUserNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// DeleteByID は指定IDのユーザーを削除する。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: id=%d", model.ErrUserNotFound, id)
	}
	return nil
}

// Ping はデータベースへの疎通を確認する。
func (r *PostgresUserRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func scanPostgresUser(row rowScanner) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(&user.ID, &user.OpenID, &user.AvatarURL, &user.Nickname,
		&user.Phone, &user.ShopInfo, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
