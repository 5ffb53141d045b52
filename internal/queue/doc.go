// Package queue — клиент внешнего сервиса очередей (HTTP).
//
// Эндпоинты:
//   - GET  /pull-n?queue-name=<name>&count=<k> — long poll, 200 + массив JSON-строк или 204
//   - POST /push-n {queue_name, messages} — 201 успех, 409 очередь переполнена
//
// Клиент не различает ошибки для вызывающего кода: пустой pull
// означает "задач нет", false от push — "batch потерян".
package queue
