package features

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/domain"
)

func newTask(status, ts string, vendor, amount string) domain.Task {
	t := domain.Task{ID: domain.StringID("1"), Status: status, Timestamp: ts}
	if vendor != "" {
		t.VendorID = json.RawMessage(vendor)
	}
	if amount != "" {
		t.Amount = json.RawMessage(amount)
	}
	return t
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		status string
		want   domain.StatusCode
	}{
		{"submitted", domain.StatusSubmitted},
		{"accepted", domain.StatusAccepted},
		{"ACCEPTED", domain.StatusAccepted},
		{"Rejected", domain.StatusRejected},
		{"UNKNOWN", domain.StatusUnknown},
		{"pending", domain.StatusUnknown},
		{"", domain.StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.status))
		})
	}
}

func TestExtract_Accepted(t *testing.T) {
	v, err := Extract(newTask("accepted", "2023-01-01T12:00:00Z", "7", "100.5"))
	require.NoError(t, err)

	assert.Equal(t, 1672574400.0, v.TimestampUnix)
	assert.Equal(t, domain.StatusAccepted, v.Status)
	assert.Equal(t, int64(7), v.VendorID)
	assert.Equal(t, 100.5, v.Amount)
}

func TestExtract_UnknownStatusIsNotAnError(t *testing.T) {
	tr := NewTransformer(nil)

	v, err := tr.Transform(newTask("UNKNOWN", "2023-01-01T12:00:00Z", "1", "1"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnknown, v.Status)
}

func TestExtract_Defaults(t *testing.T) {
	v, err := Extract(newTask("submitted", "2023-01-01T12:00:00Z", "", ""))
	require.NoError(t, err)

	assert.Equal(t, int64(0), v.VendorID)
	assert.Equal(t, 0.0, v.Amount)

	v, err = Extract(newTask("submitted", "2023-01-01T12:00:00Z", "null", "null"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), v.VendorID)
	assert.Equal(t, 0.0, v.Amount)
}

func TestExtract_IntegralVendorForms(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
	}{
		{`42`, 42},
		{`"42"`, 42},
		{`3.0`, 3},
		{`1e3`, 1000},
		{`9223372036854775807`, 9223372036854775807},
		{`-9223372036854775808`, -9223372036854775808},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v, err := Extract(newTask("accepted", "2023-01-01T12:00:00Z", tt.raw, "1"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.VendorID)
		})
	}
}

func TestExtract_NumericLikeAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{`12`, 12},
		{`12.25`, 12.25},
		{`"12.25"`, 12.25},
		{`" 3 "`, 3},
		{`true`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v, err := Extract(newTask("accepted", "2023-01-01T12:00:00Z", "1", tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Amount)
		})
	}
}

func TestExtract_Errors(t *testing.T) {
	tests := []struct {
		name string
		task domain.Task
	}{
		{"bad timestamp", newTask("accepted", "yesterday", "1", "1")},
		{"empty timestamp", newTask("accepted", "", "1", "1")},
		{"bad amount", newTask("accepted", "2023-01-01T12:00:00Z", "1", `"abc"`)},
		{"bad vendor", newTask("accepted", "2023-01-01T12:00:00Z", `{"x":1}`, "1")},
		{"fractional vendor", newTask("accepted", "2023-01-01T12:00:00Z", "1.7", "1")},
		{"fractional vendor string", newTask("accepted", "2023-01-01T12:00:00Z", `"2.5"`, "1")},
		{"vendor above int64", newTask("accepted", "2023-01-01T12:00:00Z", "1e19", "1")},
		{"vendor below int64", newTask("accepted", "2023-01-01T12:00:00Z", "-1e19", "1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.task)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrTransform)
		})
	}
}

func TestParseTimestamp_Forms(t *testing.T) {
	forms := []string{
		"2023-01-01T12:00:00Z",
		"2023-01-01T12:00:00+00:00",
		"2023-01-01T12:00:00.000Z",
		"2023-01-01T12:00:00",
		"2023-01-01 12:00:00",
		"2023-01-01T14:00:00+02:00",
	}

	for _, s := range forms {
		t.Run(s, func(t *testing.T) {
			ts, err := ParseTimestamp(s)
			require.NoError(t, err)
			assert.Equal(t, 1672574400.0, ts)
		})
	}
}

func TestExtract_Deterministic(t *testing.T) {
	task := newTask("Rejected", "2024-05-06T07:08:09.123456Z", `"42"`, `"19.99"`)

	a, err := Extract(task)
	require.NoError(t, err)
	b, err := Extract(task)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}
