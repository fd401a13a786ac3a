package logger

import (
	"sync"
	"time"
)

// StageTimer logs the start, steps and outcome of a multi-stage run
type StageTimer struct {
	logger    Logger
	operation string
	startTime time.Time
	stageTime time.Time

	mu     sync.Mutex
	stages []StageDuration
}

// StageDuration records how long one named stage took
type StageDuration struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
}

// NewStageTimer starts timing an operation
func NewStageTimer(operation string, logger Logger) *StageTimer {
	if logger == nil {
		logger = GetGlobalLogger()
	}

	now := time.Now()
	st := &StageTimer{
		logger:    logger.WithComponent("stage").WithField("operation", operation),
		operation: operation,
		startTime: now,
		stageTime: now,
	}
	st.logger.Debug("Starting operation")
	return st
}

// Step closes the current stage under the given name
func (st *StageTimer) Step(stage string, fields Fields) {
	st.mu.Lock()
	now := time.Now()
	elapsed := now.Sub(st.stageTime)
	st.stageTime = now
	st.stages = append(st.stages, StageDuration{Stage: stage, Duration: elapsed})
	st.mu.Unlock()

	entry := st.logger.WithField("stage", stage).WithField("elapsed", elapsed.String())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Info("Stage completed")
}

// Stages returns the stages recorded so far
func (st *StageTimer) Stages() []StageDuration {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]StageDuration, len(st.stages))
	copy(out, st.stages)
	return out
}

// Done logs the total duration; err selects the error level
func (st *StageTimer) Done(err error) time.Duration {
	total := time.Since(st.startTime)
	entry := st.logger.WithField("duration", total.String())
	if err != nil {
		entry.WithError(err).Error("Operation failed")
	} else {
		entry.Info("Operation completed")
	}
	return total
}

// TimedOperation executes fn and logs its outcome with timing
func TimedOperation(operation string, logger Logger, fn func() error) error {
	st := NewStageTimer(operation, logger)
	err := fn()
	st.Done(err)
	return err
}
