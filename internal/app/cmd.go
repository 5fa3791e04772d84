package app

import "strconv"

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモード。
	CommandServe Command = "serve"
	// CommandWorker は交流数の再集計と論理削除行の物理削除を行うワーカーモード。
	CommandWorker Command = "worker"
	// CommandMigrate は未適用のマイグレーションをすべて適用する。
	CommandMigrate Command = "migrate"
	// CommandRollback はマイグレーションを指定数だけ戻す。
	CommandRollback Command = "rollback"
	// CommandHealthcheck はdistroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// Invocation は解析済みのコマンドライン引数。
type Invocation struct {
	Command Command
	// Steps はrollbackで戻すマイグレーション数。
	Steps int
}

var knownCommands = map[string]Command{
	string(CommandServe):       CommandServe,
	string(CommandWorker):      CommandWorker,
	string(CommandMigrate):     CommandMigrate,
	string(CommandRollback):    CommandRollback,
	string(CommandHealthcheck): CommandHealthcheck,
}

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	return ParseArgs(args).Command
}

// ParseArgs はサブコマンドとその引数を解析する。
// rollbackの戻す数は2番目の引数で指定し、省略時や不正な値の場合は1とする。
func ParseArgs(args []string) Invocation {
	inv := Invocation{Command: CommandServe}
	if len(args) == 0 {
		return inv
	}
	if cmd, ok := knownCommands[args[0]]; ok {
		inv.Command = cmd
	}
	if inv.Command == CommandRollback {
		inv.Steps = 1
		if len(args) > 1 {
			if n, err := strconv.Atoi(args[1]); err == nil && n > 0 {
				inv.Steps = n
			}
		}
	}
	return inv
}
