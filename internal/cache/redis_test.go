package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limaJavier/schooltimetable/pkg/model"
)

func TestKey(t *testing.T) {
	input := model.ModelInput{
		Classes: []model.Class{{Name: "9A", Lessons: map[string]int{"Math": 4, "Art": 2, "PE": 1}}},
		Config:  model.Config{Mode: model.ModeClass, HoursPerDay: 8},
	}

	first, err := Key(input, "embedded")
	require.NoError(t, err)
	second, err := Key(input, "embedded")
	require.NoError(t, err)
	other, err := Key(input, "postponed")
	require.NoError(t, err)

	assert.Len(t, first, 64)
	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
}

func TestKeyRejectsUnencodableParts(t *testing.T) {
	_, err := Key(func() {})
	assert.Error(t, err)
}
