package evm

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *big.Int
		wantErr  bool
	}{
		{"empty_is_zero", "", big.NewInt(0), false},
		{"decimal", "1000000000000000000", big.NewInt(1e18), false},
		{"hex", "0xde0b6b3a7640000", big.NewInt(1e18), false},
		{"garbage", "not-a-number", nil, true},
		{"bad_hex", "0xzz", nil, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			value, err := parseValue(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Zero(t, tt.expected.Cmp(value))
		})
	}
}

func TestParseData(t *testing.T) {
	data, err := parseData("")
	require.NoError(t, err)
	require.Nil(t, data)

	data, err = parseData("0x")
	require.NoError(t, err)
	require.Nil(t, data)

	data, err = parseData("0xdeadbeef")
	require.NoError(t, err)
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, data)

	_, err = parseData("deadbeef")
	require.Error(t, err)
}

func TestEndpoints(t *testing.T) {
	endpoints := NewEndpoints(map[int64]string{8453: "https://base.example"})

	require.Equal(t, "https://base.example", endpoints.Get(8453))
	require.Empty(t, endpoints.Get(1))

	endpoints.Add(1, "https://eth.example")
	require.Equal(t, "https://eth.example", endpoints.Get(1))

	endpoints.Remove(1)
	require.Empty(t, endpoints.Get(1))
}
