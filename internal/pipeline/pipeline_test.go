// internal/pipeline/pipeline_test.go
package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"devsprint-service/internal/model"
)

func TestAdvance(t *testing.T) {
	t.Run("walks the full pipeline one state at a time", func(t *testing.T) {
		s := model.TaskTodo

		s, ok := Advance(s)
		assert.True(t, ok)
		assert.Equal(t, model.TaskInProgress, s)

		s, ok = Advance(s)
		assert.True(t, ok)
		assert.Equal(t, model.TaskCodeReview, s)

		s, ok = Advance(s)
		assert.True(t, ok)
		assert.Equal(t, model.TaskDone, s)
	})

	t.Run("is a no-op on the terminal state", func(t *testing.T) {
		s, ok := Advance(model.TaskDone)
		assert.False(t, ok)
		assert.Equal(t, model.TaskDone, s)
	})
}

func TestForceCodeReview(t *testing.T) {
	tests := []struct {
		name    string
		in      model.TaskStatus
		want    model.TaskStatus
		changed bool
	}{
		{"from TODO", model.TaskTodo, model.TaskCodeReview, true},
		{"from IN_PROGRESS", model.TaskInProgress, model.TaskCodeReview, true},
		{"already in review", model.TaskCodeReview, model.TaskCodeReview, false},
		{"never moves backwards from DONE", model.TaskDone, model.TaskDone, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := ForceCodeReview(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.changed, changed)
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(model.TaskDone))
	assert.False(t, IsTerminal(model.TaskTodo))
	assert.False(t, IsTerminal(model.TaskInProgress))
	assert.False(t, IsTerminal(model.TaskCodeReview))
}

func TestBefore(t *testing.T) {
	assert.True(t, Before(model.TaskTodo, model.TaskInProgress))
	assert.True(t, Before(model.TaskInProgress, model.TaskCodeReview))
	assert.False(t, Before(model.TaskCodeReview, model.TaskCodeReview))
	assert.False(t, Before(model.TaskDone, model.TaskTodo))
}
