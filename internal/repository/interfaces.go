// Package repository はデータ永続化のインターフェースと実装を提供する。
package repository

import (
	"context"

	"github.com/hitoshi/minishop/internal/model"
)

// UserRepository はユーザーディレクトリの永続化インターフェース。
// ユーザー行の作成はResolveOrCreateのみが行う。
type UserRepository interface {
	// ResolveOrCreate はopenidに対応するユーザーを返し、存在しなければ作成する。
	// 同じopenidで並行に呼ばれても作成される行は1つだけで、全呼び出し元が同じIDを観測する。
	// 2番目の戻り値は今回の呼び出しで行を作成した場合にtrueとなる。
	// 既存行のプロフィールは変更しない。
	ResolveOrCreate(ctx context.Context, openID string, defaults model.Profile) (*model.User, bool, error)

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// FindByOpenID はopenidでユーザーを取得する。見つからない場合はnilを返す。
	FindByOpenID(ctx context.Context, openID string) (*model.User, error)

	// UpdateProfile はプロフィールを部分更新し、更新後のユーザーを返す。
	// 見つからない場合はmodel.ErrUserNotFoundを返す。
	UpdateProfile(ctx context.Context, id int64, update model.ProfileUpdate) (*model.User, error)

	// DeleteByID は指定IDのユーザーを削除する。
	// 見つからない場合はmodel.ErrUserNotFoundを返す。
	DeleteByID(ctx context.Context, id int64) error

	// Ping はストレージへの疎通を確認する。
	Ping(ctx context.Context) error
}
