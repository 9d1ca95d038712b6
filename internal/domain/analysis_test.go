package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseChangeType(t *testing.T) {
	tests := []struct {
		in   string
		want ChangeType
	}{
		{"FEATURE", TypeFeature},
		{"bug", TypeBug},
		{" docs ", TypeDocs},
		{"Refactor", TypeRefactor},
		{"bugfix", TypeBug},
		{"fixes auth", TypeBug},
		{"new feature work", TypeFeature},
		{"documentation", TypeDocs},
		{"unit tests", TypeTest},
		{"code style", TypeStyle},
		{"refactoring", TypeRefactor},
		{"", TypeChore},
		{"something else entirely", TypeChore},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseChangeType(tt.in))
		})
	}
}
