// Package domain содержит типы данных конвейера скоринга.
//
//   - Task — транзакция из очереди transactions
//   - FeatureVector — признаки для модели
//   - Result — результат скоринга для очереди results
package domain
