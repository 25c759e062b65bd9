package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPaginationRoundsUpTotalPages(t *testing.T) {
	p := NewPagination(12, 2, 5)

	assert.Equal(t, 12, p.Total)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 5, p.Limit)
	assert.Equal(t, 3, p.TotalPages)
}

func TestNewPaginationExactFit(t *testing.T) {
	p := NewPagination(10, 1, 5)
	assert.Equal(t, 2, p.TotalPages)
}

func TestNewPaginationDefaults(t *testing.T) {
	p := NewPagination(0, 0, 0)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.Limit)
	assert.Equal(t, 0, p.TotalPages)
}
