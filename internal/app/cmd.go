package app

import (
	"errors"
	"fmt"
	"strings"
)

// Command は mathlovers バイナリのサブコマンド。
type Command string

const (
	// CommandServe はQ&A APIサーバーを起動する。引数なしの場合もこれになる。
	CommandServe Command = "serve"
	// CommandWorker は孤立した回答といいねを定期削除するワーカーを起動する。
	CommandWorker Command = "worker"
	// CommandMigrate はPostgreSQLのマイグレーション、またはMongoDBのインデックス作成を行う。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は起動中のサーバーの /health を叩く。
	// distrolessイメージのDocker HEALTHCHECK から呼ばれる。
	CommandHealthcheck Command = "healthcheck"
)

// commands は受け付けるサブコマンドの一覧。usage表示の順序を兼ねる。
var commands = []Command{CommandServe, CommandWorker, CommandMigrate, CommandHealthcheck}

// ErrUnknownCommand は未定義のサブコマンドが指定されたことを表す。
var ErrUnknownCommand = errors.New("unknown command")

// ParseCommand は os.Args[1:] の先頭からサブコマンドを決定する。
// 引数がなければ serve。未定義の名前は設定ミスとみなし ErrUnknownCommand を返す。
func ParseCommand(args []string) (Command, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return CommandServe, nil
	}

	name := Command(strings.ToLower(strings.TrimSpace(args[0])))
	for _, c := range commands {
		if c == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w %q (available: %s)", ErrUnknownCommand, args[0], usage())
}

func usage() string {
	names := make([]string, len(commands))
	for i, c := range commands {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
