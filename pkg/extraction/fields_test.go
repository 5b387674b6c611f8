package extraction

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/dukex/idpflow/pkg/models"
)

func TestFormatFieldKey(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in   string
		want string
	}{
		{"invoice_number", "Invoice Number"},
		{"total_amount", "Total Amount"},
		{"Invoice Number", "Invoice Number"},
		{"vat", "Vat"},
		{"iban_2nd_line", "Iban 2nd Line"},
		{"already_Capitalized", "Already Capitalized"},
		{"due-date", "Due-Date"},
		{"", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, FormatFieldKey(tc.in))
		})
	}
}

func TestFormatFieldKey_Idempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		key := rapid.StringMatching(`[a-zA-Z0-9_ \-]{0,40}`).Draw(rt, "key")

		once := FormatFieldKey(key)
		twice := FormatFieldKey(once)

		if once != twice {
			rt.Fatalf("FormatFieldKey not idempotent: %q -> %q -> %q", key, once, twice)
		}
	})
}

func TestMapExtractedData(t *testing.T) {
	t.Parallel()

	fields, err := MapExtractedData(json.RawMessage(`{"invoice_number": "INV-001", "total_amount": 100}`))
	require.NoError(t, err)

	assert.Equal(t, []models.Field{
		{ID: "1", Key: "Invoice Number", Value: "INV-001", Confidence: 0.85, PageReference: 1},
		{ID: "2", Key: "Total Amount", Value: "100", Confidence: 0.85, PageReference: 1},
	}, fields)
}

func TestMapExtractedData_KeepsBackendOrder(t *testing.T) {
	t.Parallel()

	fields, err := MapExtractedData(json.RawMessage(`{"zeta": "z", "alpha": "a", "mid": "m"}`))
	require.NoError(t, err)
	require.Len(t, fields, 3)

	assert.Equal(t, "Zeta", fields[0].Key)
	assert.Equal(t, "Alpha", fields[1].Key)
	assert.Equal(t, "Mid", fields[2].Key)
}

func TestMapExtractedData_Values(t *testing.T) {
	t.Parallel()

	raw := `{
		"skipped": null,
		"amount": 1234567.5,
		"large": 100000000000,
		"paid": true,
		"lines": [{"sku": "A1", "qty": 2}],
		"buyer": {"name": "Acme"},
		"iban": {"value": "DE89", "confidence": 0.97, "page": 2}
	}`

	fields, err := MapExtractedData(json.RawMessage(raw))
	require.NoError(t, err)
	require.Len(t, fields, 6)

	byKey := make(map[string]models.Field)
	for _, f := range fields {
		byKey[f.Key] = f
	}

	assert.NotContains(t, byKey, "Skipped")
	assert.Equal(t, "1234567.5", byKey["Amount"].Value)
	assert.Equal(t, "100000000000", byKey["Large"].Value)
	assert.Equal(t, "true", byKey["Paid"].Value)
	assert.JSONEq(t, `[{"sku":"A1","qty":2}]`, byKey["Lines"].Value)
	assert.JSONEq(t, `{"name":"Acme"}`, byKey["Buyer"].Value)
	assert.InDelta(t, 0.85, byKey["Buyer"].Confidence, 1e-9)

	assert.Equal(t, "DE89", byKey["Iban"].Value)
	assert.InDelta(t, 0.97, byKey["Iban"].Confidence, 1e-9)
	assert.Equal(t, 2, byKey["Iban"].PageReference)

	assert.Equal(t, "1", fields[0].ID)
	assert.Equal(t, "6", fields[5].ID)
}

func TestMapExtractedData_Empty(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "null", "{}"} {
		fields, err := MapExtractedData(json.RawMessage(raw))
		require.NoError(t, err, raw)
		assert.Empty(t, fields, raw)
	}

	_, err := MapExtractedData(json.RawMessage(`["a"]`))
	assert.Error(t, err)
}
