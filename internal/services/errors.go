package services

import (
	"errors"
	"fmt"

	"hivelog/internal/models"
	"hivelog/internal/store"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrStateConflict   = errors.New("post is not in the required stage")
	ErrDepthLimit      = errors.New("maximum comment nesting depth reached")
	ErrNothingToUpdate = errors.New("no new high-quality comments to update the wiki with")
	ErrSynthesisFailed = errors.New("wiki synthesis failed")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidInput    = errors.New("invalid input")
)

// StateError 帖子阶段不符合操作要求
type StateError struct {
	PostID   uint
	Actual   models.Stage
	Expected models.Stage
}

func (e *StateError) Error() string {
	return fmt.Sprintf("post %d is in stage %q, expected %q", e.PostID, e.Actual, e.Expected)
}

func (e *StateError) Is(target error) bool {
	return target == ErrStateConflict
}

// SynthesisError AI 调用失败、超时或返回内容不合法
type SynthesisError struct {
	PostID uint
	Stage  string // generate | update
	Err    error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("wiki synthesis failed for post %d (%s): %v", e.PostID, e.Stage, e.Err)
}

func (e *SynthesisError) Is(target error) bool {
	return target == ErrSynthesisFailed
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// translate 把存储层的错误映射到服务层
func translate(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
