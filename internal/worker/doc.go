// Package worker обрабатывает tasks одного слота группы.
//
// # Обзор
//
// Worker получает от orchestrator'а ровно одну задачу за раунд,
// считает признаки (пакет features), вызывает модель (пакет scorer)
// и отвечает ровно одним Result с RoundID раунда.
//
//	exec := worker.NewExecutor(worker.ExecutorConfig{Scorer: model, Logger: logger})
//	w := worker.New(worker.Config{
//	    Endpoint: endpoint,
//	    Executor: exec,
//	    Logger:   logger,
//	})
//	if err := w.Run(ctx); err != nil {
//	    // связь со слотом потеряна
//	}
//
// # Деградированные результаты
//
// Ошибка по конкретной задаче не останавливает worker:
//
//   - ошибка transform → {is_fraudulent: -1, confidence: 0}
//   - ошибка модели → то же плюс поле error с текстом
//
// Executor переиспользуется standalone-циклом, поэтому правила
// одинаковы для обоих режимов.
package worker
