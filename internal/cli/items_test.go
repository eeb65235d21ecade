package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLineItems(t *testing.T) {
	data := `Amount, Description, Quantity
350.00,Room Charge,
"$1,250.00",Laptop,2
18.02,GST,1
`
	items, err := ReadLineItems(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "Room Charge", items[0].Description)
	assert.Equal(t, "350", items[0].Amount.String())
	assert.Equal(t, 1, items[0].Quantity)

	assert.Equal(t, "1250", items[1].Amount.String())
	assert.Equal(t, 2, items[1].Quantity)
}

func TestReadLineItems_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantMsg string
	}{
		{"empty", "", "no line items"},
		{"header only", "description,amount\n", "no line items"},
		{"missing amount column", "description\nRoom\n", `missing "amount" column`},
		{"missing description column", "amount\n5\n", `missing "description" column`},
		{"bad amount", "description,amount\nRoom,abc\n", "line 2: invalid amount"},
		{"zero amount", "description,amount\nRoom,0\n", "line 2"},
		{"blank description", "description,amount\n ,5\n", "line 2"},
		{"bad quantity", "description,amount,quantity\nRoom,5,many\n", "invalid quantity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadLineItems(strings.NewReader(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "142.52", want: "142.52"},
		{in: " $1,000.10 ", want: "1000.1"},
		{in: "-5", want: "-5"},
		{in: "", wantErr: true},
		{in: "12..5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}
