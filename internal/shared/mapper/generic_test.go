package mapper

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapSlice(t *testing.T) {
	assert.Nil(t, MapSlice[int, string](nil, strconv.Itoa))
	assert.Equal(t, []string{"1", "2"}, MapSlice([]int{1, 2}, strconv.Itoa))
}

func TestMapSliceWithError(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		want    []int
		wantErr bool
	}{
		{"nil input", nil, nil, false},
		{"all valid", []string{"1", "2", "3"}, []int{1, 2, 3}, false},
		{"stops on error", []string{"1", "x", "3"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MapSliceWithError(tt.input, strconv.Atoi)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type row struct {
	id  uint
	bad bool
}

type entity struct{ id uint }

func TestMapSlicePtrWithID(t *testing.T) {
	toEntity := func(r *row) (*entity, error) {
		if r.bad {
			return nil, errors.New("corrupt row")
		}
		if r.id == 0 {
			return nil, nil
		}
		return &entity{id: r.id}, nil
	}
	getID := func(r *row) uint { return r.id }

	got, err := MapSlicePtrWithID([]*row{{id: 1}, nil, {id: 0}, {id: 3}}, toEntity, getID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint(3), got[1].id)

	_, err = MapSlicePtrWithID([]*row{{id: 1}, {id: 7, bad: true}}, toEntity, getID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to map item ID 7")
}
