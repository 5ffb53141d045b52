// Package telemetry обеспечивает наблюдаемость процесса.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики раундов и скоринга
//
// Все роли используют единый формат логирования
// и экспортируют метрики на /metrics endpoint.
package telemetry
