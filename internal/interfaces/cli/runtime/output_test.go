package runtime

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID       uint   `json:"id" yaml:"id"`
	OwnerKey string `json:"owner_key" yaml:"owner_key"`
}

func TestPrinter(t *testing.T) {
	v := []row{{ID: 1, OwnerKey: "acme"}}
	table := Table{Header: []string{"ID", "OWNER"}, Rows: [][]string{{"1", "acme"}}}

	tests := []struct {
		format string
		want   string
	}{
		{FormatJSON, "[\n  {\n    \"id\": 1,\n    \"owner_key\": \"acme\"\n  }\n]\n"},
		{FormatYAML, "- id: 1\n  owner_key: acme\n"},
		{FormatTable, "ID  OWNER\n1   acme\n"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			p, err := NewPrinter(tt.format, &buf)
			require.NoError(t, err)
			require.NoError(t, p.Print(v, table))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestNewPrinter_RejectsUnknownFormat(t *testing.T) {
	_, err := NewPrinter("xml", &bytes.Buffer{})
	assert.Error(t, err)
}
