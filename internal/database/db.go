package database

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// サポートするドライバ名
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const sqliteScheme = "sqlite://"

// DriverName はデータベースURLのスキームからドライバ名を判定する。
// postgres:// と postgresql:// はPostgreSQL、sqlite:// はSQLiteとして扱う。
func DriverName(databaseURL string) (string, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return DriverPostgres, nil
	case strings.HasPrefix(databaseURL, sqliteScheme):
		return DriverSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database URL scheme: %q", maskURL(databaseURL))
	}
}

// Open はデータベース接続プールを開く。
// sql.Openは接続を試行しないため、実際の接続確認にはdb.Ping()を使用すること。
//
// SQLiteは単一ライターのため接続数を1に制限する。
func Open(databaseURL string) (*sql.DB, error) {
	driver, err := DriverName(databaseURL)
	if err != nil {
		return nil, err
	}

	switch driver {
	case DriverSQLite:
		db, err := sql.Open(DriverSQLite, sqliteDSN(databaseURL))
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		db.SetMaxOpenConns(1)
		return db, nil
	default:
		db, err := sql.Open(DriverPostgres, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return db, nil
	}
}

// sqliteDSN はsqlite://形式のURLをmodernc.org/sqliteのDSNに変換する。
func sqliteDSN(databaseURL string) string {
	path := strings.TrimPrefix(databaseURL, sqliteScheme)
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
}

// maskURL はURLの認証情報をログやエラーに出さないようにマスクする。
func maskURL(url string) string {
	if i := strings.Index(url, "://"); i >= 0 {
		return url[:i+3] + "***"
	}
	return "***"
}
