package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/garyjia/expense-requirement/internal/domain/entity"
)

func TestNewPresidentPolicy(t *testing.T) {
	policy := NewPresidentPolicy([]int{7}, []entity.Kind{entity.KindAdvance})

	tests := []struct {
		name string
		dept int
		kind entity.Kind
		want bool
	}{
		{"listed department", 7, entity.KindReimburse, true},
		{"listed kind", 3, entity.KindAdvance, true},
		{"neither", 3, entity.KindReimburse, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &entity.Requirement{DepartmentID: tt.dept, Kind: tt.kind}
			assert.Equal(t, tt.want, policy(req))
		})
	}

	empty := NewPresidentPolicy(nil, nil)
	assert.False(t, empty(&entity.Requirement{DepartmentID: 7, Kind: entity.KindAdvance}))
}
