package product

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

func TestProduct_Multiplier(t *testing.T) {
	tests := []struct {
		name       string
		multiplier *int64
		want       int64
		wantErr    bool
	}{
		{"absent defaults to one", nil, 1, false},
		{"explicit", ptr(2), 2, false},
		{"zero rejected", ptr(0), 0, true},
		{"negative rejected", ptr(-3), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProduct("rhel", "RHEL", tt.multiplier, nil)
			require.NoError(t, err)

			got, err := p.Multiplier()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMultiplier)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewProduct_RequiresID(t *testing.T) {
	_, err := NewProduct("", "nameless", nil, nil)
	assert.Error(t, err)
}

func TestProduct_AttributesAreCopied(t *testing.T) {
	attrs := map[string]string{AttrVirtOnly: "true"}
	p, err := NewProduct("virt", "", nil, attrs)
	require.NoError(t, err)

	attrs[AttrVirtOnly] = "false"
	v, ok := p.Attribute(AttrVirtOnly)
	assert.True(t, ok)
	assert.Equal(t, "true", v)
	assert.Equal(t, "virt", p.Name())
}
