// Package cli реализует команду fraudnode.
//
// # Команды
//
//   - node — один процесс группы; rank и size берутся из флагов или
//     из переменных launcher'а (OMPI_COMM_WORLD_*, PMI_*, FRAUD_*).
//     Процессы группы координируются через RabbitMQ.
//   - local — orchestrator и N worker'ов в одном процессе.
//   - model inspect, model score — проверка артефакта модели.
//   - config show — итоговая конфигурация.
//
// # Output
//
// Данные выводятся в stdout таблицей (text/tabwriter) или JSON
// с флагом --json, сообщения выводятся в stderr:
//
//	fraudnode model inspect fraud_model.json --json | jq .trees
//
// Каждая команда создаётся фабричной функцией, получающей globalOpts:
// конфигурация и Output создаются лениво, после парсинга PersistentFlags.
package cli
