// Package model はドメインモデルを定義する。
package model

import "time"

// User はローカルのユーザーレコードを表す。
// OpenIDは作成時に一度だけ設定され、以後変更されない。
type User struct {
	ID        int64
	OpenID    string
	AvatarURL string
	Nickname  string
	Phone     string
	ShopInfo  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Profile は新規ユーザー作成時に適用するプロフィールの初期値。
type Profile struct {
	AvatarURL string
	Nickname  string
	Phone     string
	ShopInfo  string
}

// ProfileUpdate はプロフィールの部分更新を表す。
// nilのフィールドは更新しない。
type ProfileUpdate struct {
	AvatarURL *string
	Nickname  *string
	Phone     *string
	ShopInfo  *string
}

// IsEmpty は更新対象のフィールドが1つもない場合にtrueを返す。
func (u ProfileUpdate) IsEmpty() bool {
	return u.AvatarURL == nil && u.Nickname == nil && u.Phone == nil && u.ShopInfo == nil
}

// AuthContext はトークン検証を通過したリクエストに付与される認証情報。
// リクエスト処理の間だけ有効。
type AuthContext struct {
	ID     int64
	OpenID string
}
