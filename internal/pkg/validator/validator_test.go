package validator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type depositRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
	Phone  string          `json:"phone" validate:"required,min=10"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		req     depositRequest
		wantErr string
	}{
		{
			name: "valid",
			req:  depositRequest{Amount: decimal.NewFromInt(100), Phone: "254712345678"},
		},
		{
			name:    "zero amount",
			req:     depositRequest{Amount: decimal.Zero, Phone: "254712345678"},
			wantErr: "amount must be greater than 0",
		},
		{
			name:    "negative amount and missing phone",
			req:     depositRequest{Amount: decimal.NewFromInt(-5)},
			wantErr: "amount must be greater than 0; phone is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.req)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}
