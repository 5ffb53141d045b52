// Package coord — координация группы процессов: роли, каналы
// orchestrator ↔ worker и аварийная остановка группы.
//
// Роль процесса определяется только его rank и размером группы
// (см. RoleFor). Group собирается при старте и передаётся в
// конструкторы ролей явно.
//
// Транспорты:
//   - local.go — буферизованные каналы внутри одного процесса ОС
//   - amqp.go  — очереди слотов в RabbitMQ (пакет mq)
//
// На каждый отправленный KindTask worker отвечает ровно одним Reply
// с тем же RoundID. KindStop ответа не требует.
package coord
