// fraudnode — распределённый скоринг транзакций поверх внешней
// HTTP-очереди.
//
// Использование:
//
//	fraudnode [--env FILE] [--json] <command> [flags]
//
// Команды:
//
//	node    Один процесс группы (rank 0 — orchestrator)
//	local   Orchestrator и N worker'ов в одном процессе
//	model   Проверка артефакта модели
//	config  Итоговая конфигурация
package main

import (
	"fmt"
	"os"

	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	if err := cli.NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
