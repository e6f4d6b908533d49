package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGradePointThresholds(t *testing.T) {
	cases := []struct {
		score  int
		point  float64
		letter string
	}{
		{100, 4.0, "A"},
		{90, 4.0, "A"},
		{89, 3.7, "A-"},
		{85, 3.7, "A-"},
		{84, 3.3, "B+"},
		{80, 3.3, "B+"},
		{75, 3.0, "B"},
		{70, 2.7, "B-"},
		{65, 2.3, "C+"},
		{60, 2.0, "C"},
		{55, 1.7, "C-"},
		{50, 1.0, "D"},
		{49, 0.0, "F"},
		{0, 0.0, "F"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.point, GradePointFor(tc.score), "score %d", tc.score)
		assert.Equal(t, tc.letter, LetterFor(tc.score), "score %d", tc.score)
	}
}

func TestGradeDetailDerive(t *testing.T) {
	detail := GradeDetail{Score: 77}
	detail.Derive()
	assert.Equal(t, "B", detail.Letter)
	assert.Equal(t, 3.0, detail.GradePoint)
}

func TestCourseLimited(t *testing.T) {
	unlimited := 0
	limited := 25
	assert.False(t, (&Course{}).Limited())
	assert.False(t, (&Course{Capacity: &unlimited}).Limited())
	assert.True(t, (&Course{Capacity: &limited}).Limited())
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleInstructor.Valid())
	assert.True(t, RoleStudent.Valid())
	assert.False(t, Role("SUPERUSER").Valid())
	assert.False(t, Role("").Valid())
}
