package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はWebhookサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker は期限切れ会話状態のクリーンアップワーカーを起動することを示す。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch cmd := Command(args[0]); cmd {
	case CommandServe, CommandWorker, CommandMigrate, CommandHealthcheck:
		return cmd
	default:
		return CommandServe
	}
}

// RequiresDatabase はコマンドの実行にDATABASE_URLが必須かを返す。
// serveはDATABASE_URL未設定時にインメモリストアで動作する。
func (c Command) RequiresDatabase() bool {
	return c == CommandWorker || c == CommandMigrate
}
