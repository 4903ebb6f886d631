package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/minishop/internal/model"
)

// SQLiteUserRepo はSQLiteを使用したユーザーディレクトリ。
// ローカル開発と単体テスト向けで、時刻はUTCのミリ秒で保存する。
type SQLiteUserRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteUserRepo はSQLiteUserRepoを生成する。
func NewSQLiteUserRepo(db *sql.DB) *SQLiteUserRepo {
	return &SQLiteUserRepo{db: db, now: time.Now}
}

// ResolveOrCreate はopenidのユーザーを返し、存在しなければ作成する。
func (r *SQLiteUserRepo) ResolveOrCreate(ctx context.Context, openID string, defaults model.Profile) (*model.User, bool, error) {
	if openID == "" {
		return nil, false, errEmptyOpenID
	}

	for attempt := 1; attempt <= maxResolveAttempts; attempt++ {
		now := toMillis(r.now())
		user, err := scanSQLiteUser(r.db.QueryRowContext(ctx,
			`INSERT INTO users (openid, avatar_url, nickname, phone, shop_info, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (openid) DO NOTHING
			 RETURNING `+userColumns,
			openID, defaults.AvatarURL, defaults.Nickname, defaults.Phone, defaults.ShopInfo, now, now,
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
func (r *SQLiteUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := scanSQLiteUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByOpenID はopenidでユーザーを取得する。見つからない場合はnilを返す。
func (r *SQLiteUserRepo) FindByOpenID(ctx context.Context, openID string) (*model.User, error) {
	user, err := scanSQLiteUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE openid = ?`, openID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by openid: %w", err)
	}
	return user, nil
}

// UpdateProfile はプロフィールを部分更新し、updated_atを現在時刻にする。
func (r *SQLiteUserRepo) UpdateProfile(ctx context.Context, id int64, update model.ProfileUpdate) (*model.User, error) {
	cols, args := profileAssignments(update)
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", model.ErrInvalidRequest)
	}

	sets := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = col + " = ?"
	}
	args = append(args, toMillis(r.now()), id)

	query := fmt.Sprintf(`UPDATE users SET %s, updated_at = ? WHERE id = ? RETURNING %s`,
		strings.Join(sets, ", "), userColumns)

	user, err := scanSQLiteUser(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id=%d", model.ErrUserNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// DeleteByID は指定IDのユーザーを削除する。
func (r *SQLiteUserRepo) DeleteByID(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
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
func (r *SQLiteUserRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func scanSQLiteUser(row rowScanner) (*model.User, error) {
	user := &model.User{}
	var createdAt, updatedAt int64
	err := row.Scan(&user.ID, &user.OpenID, &user.AvatarURL, &user.Nickname,
		&user.Phone, &user.ShopInfo, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	user.CreatedAt = fromMillis(createdAt)
	user.UpdatedAt = fromMillis(updatedAt)
	return user, nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// compile-time interface check
var _ UserRepository = (*SQLiteUserRepo)(nil)
