package features

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/domain"
)

// statusCodes — маппинг статуса транзакции в код (ключи в нижнем регистре).
var statusCodes = map[string]domain.StatusCode{
	"submitted": domain.StatusSubmitted,
	"accepted":  domain.StatusAccepted,
	"rejected":  domain.StatusRejected,
}

// timestampLayouts — допустимые формы ISO-8601.
// Дробные секунды Go принимает и без явного указания в layout.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Transformer превращает Task в FeatureVector и пишет предупреждения в лог.
type Transformer struct {
	logger *slog.Logger
}

// NewTransformer создаёт Transformer. logger может быть nil.
func NewTransformer(logger *slog.Logger) *Transformer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transformer{logger: logger}
}

// Transform вычисляет признаки и логирует неизвестный статус.
func (t *Transformer) Transform(task domain.Task) (domain.FeatureVector, error) {
	v, err := Extract(task)
	if err != nil {
		return domain.FeatureVector{}, err
	}

	if v.Status == domain.StatusUnknown {
		t.logger.Warn("unknown transaction status, using -1",
			"transaction_id", task.ID.OrUnknown(),
			"status", task.Status,
		)
	}

	return v, nil
}

// Extract — чистая функция Task → FeatureVector.
//
// Неизвестный статус не ошибка: он кодируется как StatusUnknown.
// Ошибкой (ErrTransform) считается только то, что нельзя привести
// к числу: timestamp, vendor_id, amount.
func Extract(task domain.Task) (domain.FeatureVector, error) {
	ts, err := ParseTimestamp(task.Timestamp)
	if err != nil {
		return domain.FeatureVector{}, err
	}

	vendorID, err := coerceInt(task.VendorID)
	if err != nil {
		return domain.FeatureVector{}, fmt.Errorf("%w: vendor_id: %v", ErrTransform, err)
	}

	amount, err := coerceFloat(task.Amount)
	if err != nil {
		return domain.FeatureVector{}, fmt.Errorf("%w: amount: %v", ErrTransform, err)
	}

	return domain.FeatureVector{
		TimestampUnix: ts,
		Status:        StatusCode(task.Status),
		VendorID:      vendorID,
		Amount:        amount,
	}, nil
}

// StatusCode возвращает код статуса (без учёта регистра), либо StatusUnknown.
func StatusCode(status string) domain.StatusCode {
	code, ok := statusCodes[strings.ToLower(strings.TrimSpace(status))]
	if !ok {
		return domain.StatusUnknown
	}
	return code
}

// ParseTimestamp разбирает ISO-8601 строку в Unix время (секунды, float).
// Время без зоны считается UTC.
func ParseTimestamp(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty timestamp", ErrTransform)
	}

	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return float64(t.UnixNano()) / float64(time.Second), nil
		}
	}

	return 0, fmt.Errorf("%w: invalid timestamp %q", ErrTransform, s)
}

// coerceInt приводит JSON-значение к целому. Отсутствие и null дают 0.
// Дробные значения и значения вне int64 — ошибка.
func coerceInt(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}

	// Целые читаются точно, без прохода через float64.
	text := string(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		text = strings.TrimSpace(s)
	}
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n, nil
	}

	f, err := coerceFloat(raw)
	if err != nil {
		return 0, err
	}
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0):
		return 0, fmt.Errorf("not a finite number")
	case f != math.Trunc(f):
		return 0, fmt.Errorf("%v is not an integer", f)
	case f < math.MinInt64 || f >= math.MaxInt64:
		return 0, fmt.Errorf("%v is out of int64 range", f)
	}
	return int64(f), nil
}

// coerceFloat приводит число, числовую строку или bool к float64.
func coerceFloat(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, err
	}

	switch x := v.(type) {
	case float64:
		return x, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("not numeric: %q", x)
		}
		return f, nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}
