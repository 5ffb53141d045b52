package domain

import (
	"bytes"
	"encoding/json"
	"log/slog"
)

// TransactionID — идентификатор транзакции.
//
// Очередь присылает id числом, но формально тип не зафиксирован,
// поэтому принимаем и число, и строку. При сериализации id пишется
// в той же форме, в какой пришёл: "123" остаётся строкой, 123 числом.
type TransactionID struct {
	value   string
	numeric bool
}

// UnknownTransactionID — подставляется, если у task нет id.
var UnknownTransactionID = StringID("N/A")

// StringID создаёт строковый id.
func StringID(s string) TransactionID {
	return TransactionID{value: s}
}

// NumberID создаёт числовой id. s должен быть JSON-числом.
func NumberID(s string) TransactionID {
	return TransactionID{value: s, numeric: true}
}

// UnmarshalJSON принимает число, строку или null.
func (id *TransactionID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = TransactionID{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = StringID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = NumberID(n.String())
	return nil
}

// MarshalJSON пишет id в исходной форме.
func (id TransactionID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	if id.numeric {
		return []byte(id.value), nil
	}
	return json.Marshal(id.value)
}

// IsZero — id не задан.
func (id TransactionID) IsZero() bool {
	return id.value == ""
}

// IsNumber — id пришёл JSON-числом.
func (id TransactionID) IsNumber() bool {
	return id.numeric
}

// OrUnknown возвращает id или "N/A", если он пустой.
func (id TransactionID) OrUnknown() TransactionID {
	if id.IsZero() {
		return UnknownTransactionID
	}
	return id
}

// String возвращает строковое представление.
func (id TransactionID) String() string {
	return id.value
}

// LogValue пишет id в лог строкой.
func (id TransactionID) LogValue() slog.Value {
	return slog.StringValue(id.value)
}

// Task — одна транзакция для скоринга.
//
// Task приходит из внешней очереди и после pull не меняется.
// Пока по нему не получен Result, им владеет ровно один worker.
//
// VendorID и Amount хранятся как сырой JSON: приведение типов
// выполняет Feature Transform, и ошибка приведения должна стать
// деградированным Result, а не отказом всего batch'а.
type Task struct {
	// ID — идентификатор транзакции.
	ID TransactionID `json:"id"`

	// CustomerID — клиент (в features не участвует, пробрасывается как есть).
	CustomerID json.RawMessage `json:"customer_id,omitempty"`

	// VendorID — продавец, целое число (0, если поля нет).
	VendorID json.RawMessage `json:"vendor_id,omitempty"`

	// Timestamp — время транзакции в ISO-8601.
	Timestamp string `json:"timestamp"`

	// Status — submitted / accepted / rejected (регистр не важен).
	Status string `json:"status"`

	// Amount — сумма, число или числовая строка (0.0, если поля нет).
	Amount json.RawMessage `json:"amount,omitempty"`
}

// DecodeTask декодирует task из JSON-строки, как её хранит очередь.
func DecodeTask(raw string) (Task, error) {
	var t Task
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return Task{}, err
	}
	return t, nil
}
