package app

// Command はminishopバイナリのサブコマンド。
type Command string

const (
	// CommandServe はログインAPIとプロフィールAPIを提供するHTTPサーバーを起動する。
	CommandServe Command = "serve"
	// CommandMigrate はDATABASE_URLのスキーム（postgres/sqlite）に対応する
	// usersテーブルのマイグレーションを適用して終了する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は起動中のserveの /health を叩いて終了する。
	// distrolessイメージのHEALTHCHECKから呼ばれる。
	CommandHealthcheck Command = "healthcheck"
)

var commands = map[string]Command{
	string(CommandServe):       CommandServe,
	string(CommandMigrate):     CommandMigrate,
	string(CommandHealthcheck): CommandHealthcheck,
}

// ParseCommand は先頭の引数をサブコマンドとして解釈する。
// 2番目以降の引数は無視し、引数なしや未知の値はserveとして扱う。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}
	if cmd, ok := commands[args[0]]; ok {
		return cmd
	}
	return CommandServe
}
