package logx_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"trip_sentinel/pkg/logx"
)

func TestSensitiveDataMaskerMask(t *testing.T) {
	rq := require.New(t)

	masker := logx.NewSensitiveDataMasker()

	testCases := []struct {
		name   string
		input  []byte
		output []byte
	}{
		{
			name:   "Password",
			input:  []byte(`{"hello":"world","password":"abc123"}`),
			output: []byte(`{"hello":"world","password":"[MASKED]"}`),
		},
		{
			name:   "Payment token",
			input:  []byte(`{"dealId":"d-1","paymentToken":"tok_4eC39HqLyjWDarjtT1zdp7dc"}`),
			output: []byte(`{"dealId":"d-1","paymentToken":"[MASKED]"}`),
		},
		{
			name:   "Card and account numbers",
			input:  []byte(`{"cardNumber": "4242424242424242", "accountNumber": "40817810000000000001"}`),
			output: []byte(`{"cardNumber": "[MASKED]", "accountNumber": "[MASKED]"}`),
		},
		{
			name:   "Access token and email",
			input:  []byte(`{"accessToken":"eyJhbGciOiJFUzI1NiIsInR5cC","email":"john@doe.com"}`),
			output: []byte(`{"accessToken":"[MASKED]","email":"[MASKED]"}`),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(*testing.T) {
			output := masker.Mask(tc.input)

			rq.Equal(tc.output, output, "%s vs %s", tc.output, output)
		})
	}
}
