package domain

// StatusCode — числовой код статуса транзакции.
type StatusCode int

// Коды статусов. Порядок совпадает с порядком при обучении модели.
const (
	StatusUnknown   StatusCode = -1
	StatusSubmitted StatusCode = 0
	StatusAccepted  StatusCode = 1
	StatusRejected  StatusCode = 2
)

// FeatureNames — порядок признаков во FeatureVector.
var FeatureNames = []string{"timestamp", "status", "vendor_id", "amount"}

// FeatureVector — признаки одной транзакции в фиксированном порядке.
//
// StatusUnknown — допустимое значение: такой вектор всё равно
// отправляется в scorer.
type FeatureVector struct {
	TimestampUnix float64
	Status        StatusCode
	VendorID      int64
	Amount        float64
}

// Values возвращает признаки в порядке FeatureNames.
func (v FeatureVector) Values() []float64 {
	return []float64{
		v.TimestampUnix,
		float64(v.Status),
		float64(v.VendorID),
		v.Amount,
	}
}
