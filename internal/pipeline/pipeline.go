// internal/pipeline/pipeline.go

// Package pipeline is the pure task-state machine. It knows nothing
// about persistence or time; both the simulation engine and the
// activity correlator drive it and persist the results themselves.
package pipeline

import "devsprint-service/internal/model"

// rank orders pipeline states. Transitions may only increase rank.
var rank = map[model.TaskStatus]int{
	model.TaskTodo:       0,
	model.TaskInProgress: 1,
	model.TaskCodeReview: 2,
	model.TaskDone:       3,
}

// next maps each non-terminal state to its successor.
var next = map[model.TaskStatus]model.TaskStatus{
	model.TaskTodo:       model.TaskInProgress,
	model.TaskInProgress: model.TaskCodeReview,
	model.TaskCodeReview: model.TaskDone,
}

// IsTerminal reports whether s is the terminal DONE state.
func IsTerminal(s model.TaskStatus) bool {
	return s == model.TaskDone
}

// Advance moves a status exactly one state forward. The second return
// is false when the status is already terminal and nothing changed.
func Advance(s model.TaskStatus) (model.TaskStatus, bool) {
	n, ok := next[s]
	if !ok {
		return s, false
	}
	return n, true
}

// ForceCodeReview jumps a status directly to CODE_REVIEW when its
// current state precedes it. Statuses already at or past CODE_REVIEW
// are left untouched and false is returned.
func ForceCodeReview(s model.TaskStatus) (model.TaskStatus, bool) {
	if rank[s] >= rank[model.TaskCodeReview] {
		return s, false
	}
	return model.TaskCodeReview, true
}

// Before reports whether a precedes b in pipeline order.
func Before(a, b model.TaskStatus) bool {
	return rank[a] < rank[b]
}
