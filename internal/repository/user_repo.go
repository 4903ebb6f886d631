package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hitoshi/minishop/internal/model"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// maxResolveAttempts はINSERTと再読込を繰り返す上限。
// 再読込の直前に並行して行が削除された場合のみ2回目以降に進む。
const maxResolveAttempts = 3

// pqUniqueViolation はPostgreSQLのunique_violationのSQLSTATE。
const pqUniqueViolation = "23505"

const userColumns = `id, openid, avatar_url, nickname, phone, shop_info, created_at, updated_at`

// errEmptyOpenID はopenidなしでディレクトリが呼ばれた場合のエラー。
var errEmptyOpenID = fmt.Errorf("%w: openid is required", model.ErrInvalidRequest)

// rowScanner は*sql.Rowと*sql.Rowsの共通部分。
type rowScanner interface {
	Scan(dest ...any) error
}

// isUniqueViolation はドライバのエラーが一意制約違反かどうかを判定する。
// ON CONFLICT DO NOTHINGでは通常発生しないが、同じ扱い（既存行の再読込）にする。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
		return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT &&
			strings.Contains(sqliteErr.Error(), "UNIQUE")
	}

	return false
}

// profileAssignments はProfileUpdateから更新対象のカラムと値を取り出す。
// カラム順は固定で、placeholderの採番は呼び出し側が行う。
func profileAssignments(update model.ProfileUpdate) ([]string, []any) {
	var cols []string
	var args []any

	if update.AvatarURL != nil {
		cols = append(cols, "avatar_url")
		args = append(args, *update.AvatarURL)
	}
	if update.Nickname != nil {
		cols = append(cols, "nickname")
		args = append(args, *update.Nickname)
	}
	if update.Phone != nil {
		cols = append(cols, "phone")
		args = append(args, *update.Phone)
	}
	if update.ShopInfo != nil {
		cols = append(cols, "shop_info")
		args = append(args, *update.ShopInfo)
	}

	return cols, args
}
