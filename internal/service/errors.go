package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRegistrationFailed   = errors.New("registration failed: username or email already exists")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidCoordinates   = errors.New("coordinates outside of canvas")
	ErrInvalidColor         = errors.New("color index out of range")
	ErrForbidden            = errors.New("forbidden")
	ErrCooldownActive       = errors.New("cooldown still active")
	ErrInternalServer       = errors.New("internal server error")
)

// CooldownError 表示用户冷却尚未结束, Wait 为剩余时间。
type CooldownError struct {
	Wait time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown still active: %.1fs remaining", e.Wait.Seconds())
}

// Is 使 errors.Is(err, ErrCooldownActive) 成立
func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldownActive
}
