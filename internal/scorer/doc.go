// Package scorer загружает модель и выдаёт предсказания.
//
// Модель хранится в артефакте (JSON или YAML) и загружается один раз
// при старте процесса. Ошибка загрузки фатальна: без модели worker
// не может выдавать осмысленные Result, поэтому вся группа процессов
// завершается (см. cmd/fraudnode).
//
// Поддерживаемые модели:
//   - random_forest — ансамбль деревьев, экспортированный из обучения
//   - logistic — логистическая регрессия
package scorer
