// Package orchestrator раздаёт задачи worker-слотам и собирает results.
//
// Один раунд:
//   - POLLING     — pull(W) из внешней очереди, W = число слотов
//   - DISPATCHING — задача i → слот i+1, с RoundID раунда
//   - COLLECTING  — по одному ответу от каждого слота, строго по порядку
//   - PUSHING     — один push всех results раунда
//
// На каждую отправленную задачу приходится ровно один Result: если
// слот не ответил, orchestrator подставляет
// {is_fraudulent: -1, error: "Failed to receive result from worker <n>"}.
//
// Orchestrator не хранит задачи между перезапусками и не повторяет
// отклонённый push.
package orchestrator
