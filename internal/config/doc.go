// Package config загружает конфигурацию процесса из окружения
// (опционально из .env файла) и определяет его место в группе.
package config
