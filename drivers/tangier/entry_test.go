package tangier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pinmux-go/errcode"
)

func TestParseEntry(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want PinConfigEntry
		code errcode.Code
	}{
		{
			name: "minimal",
			rec:  Record{"pad-offset": 37, "mode-func": 5},
			want: PinConfigEntry{Pin: 37, Mode: 5},
		},
		{
			name: "protected",
			rec:  Record{"pad-offset": 101, "mode-func": 2, "protected": true},
			want: PinConfigEntry{Pin: 101, Mode: 2, Protected: true},
		},
		{
			name: "protected explicit false",
			rec:  Record{"pad-offset": 101, "mode-func": 2, "protected": false},
			want: PinConfigEntry{Pin: 101, Mode: 2},
		},
		{
			name: "protected empty property",
			rec:  Record{"pad-offset": 101, "mode-func": 2, "protected": nil},
			want: PinConfigEntry{Pin: 101, Mode: 2, Protected: true},
		},
		{
			name: "json numbers",
			rec:  Record{"pad-offset": float64(40), "mode-func": float64(1)},
			want: PinConfigEntry{Pin: 40, Mode: 1},
		},
		{
			name: "hex strings",
			rec:  Record{"pad-offset": "0x65", "mode-func": "0x3"},
			want: PinConfigEntry{Pin: 0x65, Mode: 3},
		},
		{
			name: "leading zero is decimal",
			rec:  Record{"pad-offset": "037", "mode-func": "05"},
			want: PinConfigEntry{Pin: 37, Mode: 5},
		},
		{
			name: "octal prefix rejected",
			rec:  Record{"pad-offset": "0o45", "mode-func": 1},
			code: errcode.InvalidConfig,
		},
		{
			name: "sized ints",
			rec:  Record{"pad-offset": uint16(50), "mode-func": int8(7)},
			want: PinConfigEntry{Pin: 50, Mode: 7},
		},
		{
			name: "missing pad-offset",
			rec:  Record{"mode-func": 1},
			code: errcode.InvalidConfig,
		},
		{
			name: "missing mode-func",
			rec:  Record{"pad-offset": 37},
			code: errcode.InvalidConfig,
		},
		{
			name: "nil pad-offset",
			rec:  Record{"pad-offset": nil, "mode-func": 1},
			code: errcode.InvalidConfig,
		},
		{
			name: "non integer pad-offset",
			rec:  Record{"pad-offset": "sdio", "mode-func": 1},
			code: errcode.InvalidConfig,
		},
		{
			name: "fractional mode",
			rec:  Record{"pad-offset": 37, "mode-func": 1.5},
			code: errcode.InvalidConfig,
		},
		{
			name: "protected not bool",
			rec:  Record{"pad-offset": 37, "mode-func": 1, "protected": "yes"},
			code: errcode.InvalidConfig,
		},
		{
			name: "mode 8",
			rec:  Record{"pad-offset": 37, "mode-func": 8},
			code: errcode.UnsupportedMode,
		},
		{
			name: "negative mode",
			rec:  Record{"pad-offset": 37, "mode-func": -2},
			code: errcode.UnsupportedMode,
		},
		{
			name: "mode checked before protected",
			rec:  Record{"pad-offset": 37, "mode-func": 9, "protected": "yes"},
			code: errcode.UnsupportedMode,
		},
		{
			name: "empty",
			rec:  Record{},
			code: errcode.InvalidConfig,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEntry(tt.rec)
			if tt.code != "" {
				require.Error(t, err)
				assert.Equal(t, tt.code, errcode.Of(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEntry_KeepsPinOnError(t *testing.T) {
	e, err := ParseEntry(Record{"pad-offset": 38, "mode-func": 8})
	assert.ErrorIs(t, err, errcode.UnsupportedMode)
	assert.Equal(t, 38, e.Pin)

	e, err = ParseEntry(Record{"pad-offset": "0x28"})
	assert.ErrorIs(t, err, errcode.InvalidConfig)
	assert.Equal(t, 40, e.Pin)

	e, err = ParseEntry(Record{"mode-func": 1})
	assert.ErrorIs(t, err, errcode.InvalidConfig)
	assert.Equal(t, -1, e.Pin)
}
