// Package mq — транспорт координации группы процессов через RabbitMQ.
//
// Структура:
//   - connection.go — соединение с брокером (reconnect, graceful shutdown)
//   - topology.go   — exchanges и очереди слотов, control queue процесса
//   - publisher.go  — конверт Message и публикация
//   - consumer.go   — чтение очереди с восстановлением подписки
//
// Типы сообщений:
//   - task.dispatch — orchestrator → worker, task текущего раунда
//   - task.stop     — orchestrator → worker, завершение
//   - task.result   — worker → orchestrator, result
//   - group.abort   — любой процесс → все, аварийная остановка группы
package mq
