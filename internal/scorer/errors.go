package scorer

import "errors"

// Ошибки scorer'а.
var (
	// ErrArtifact — артефакт модели не загружен. Фатальная ошибка.
	ErrArtifact = errors.New("model artifact load failed")

	// ErrUnknownModelKind — в артефакте неизвестный kind.
	ErrUnknownModelKind = errors.New("unknown model kind")

	// ErrPrediction — модель не смогла выдать предсказание для вектора.
	ErrPrediction = errors.New("prediction failed")
)
