package utils

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON_TrailingMalformed(t *testing.T) {
	v, err := ParseJSON(`{name: "x", value: 1,`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "x", "value": float64(1)}, v)

	assert.Equal(t, `{"name": "x", "value": 1}`, RepairJSON(`{name: "x", value: 1,`))
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"unclosed object", `{"a":1`, `{"a":1}`},
		{"unclosed nested", `{"a":[1,2,{"b":3`, `{"a":[1,2,{"b":3}]}`},
		{"trailing comma object", `{"a":1,}`, `{"a":1}`},
		{"trailing comma array", `[1,2, ]`, `[1,2 ]`},
		{"bare keys", `{a: 1, b_2: "x"}`, `{"a": 1, "b_2": "x"}`},
		{"unterminated string", `{"q":"wea`, `{"q":"wea"}`},
		{"dangling colon", `{"q":`, `{"q":null}`},
		{"comma inside string kept", `{"a":"x,}"`, `{"a":"x,}"}`},
		{"brace inside string ignored", `{"a":"{[`, `{"a":"{["}`},
		{"escaped quote inside string", `{"a":"say \"hi`, `{"a":"say \"hi"}`},
		{"bare literal values untouched", `{ok: true, v: null`, `{"ok": true, "v": null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RepairJSON(tt.input)
			assert.Equal(t, tt.want, got)
			assert.True(t, json.Valid([]byte(got)), "repaired output should be valid JSON: %s", got)
		})
	}
}

func TestRepairJSON_ValidInputUnchanged(t *testing.T) {
	inputs := []string{
		`{}`,
		`{"a": [1, 2, {"b": null}], "c": "x,}"}`,
		`[1,2,3]`,
		`"just a string"`,
		`42`,
	}
	for _, in := range inputs {
		assert.Equal(t, in, RepairJSON(in))
	}
}

func TestRepairJSON_Idempotent(t *testing.T) {
	inputs := []string{
		`{name: "x", value: 1,`,
		`{"a":[1,2,{"b":3`,
		`{"q":"wea`,
		`[1,2,`,
		`{a: {b: [1,`,
	}
	for _, in := range inputs {
		once := RepairJSON(in)
		require.True(t, json.Valid([]byte(once)), "input %q should repair in one pass", in)
		assert.Equal(t, once, RepairJSON(once))
	}
}

func TestParseJSON_Irrecoverable(t *testing.T) {
	input := `{"a": ]]] nonsense` + strings.Repeat("z", 200)
	_, err := ParseJSON(input)
	require.Error(t, err)

	var perr *JSONParseError
	require.True(t, errors.As(err, &perr))
	assert.LessOrEqual(t, len([]rune(perr.Preview)), 100)
	assert.True(t, strings.HasSuffix(perr.Preview, "..."))
	assert.NotEmpty(t, perr.Message)
	assert.NotNil(t, perr.Cause)
}

func TestParseJSON_ShortPreviewNotCut(t *testing.T) {
	_, err := ParseJSON(`{]`)
	var perr *JSONParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, `{]`, perr.Preview)
}

func TestParseJSONObject(t *testing.T) {
	obj, err := ParseJSONObject("")
	require.NoError(t, err)
	assert.Empty(t, obj)

	obj, err = ParseJSONObject(`{"q":"weather"}`)
	require.NoError(t, err)
	assert.Equal(t, "weather", obj["q"])

	_, err = ParseJSONObject(`[1,2]`)
	var perr *JSONParseError
	assert.True(t, errors.As(err, &perr))
}
