package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err: &AppError{
				Code:    ErrCodeNotFound,
				Message: "job not found",
			},
			want: "job not found",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeInternal,
				Message: "Code generation failed",
				Cause:   errors.New("LLM service is not available"),
			},
			want: "Code generation failed: LLM service is not available",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &AppError{
		Code:    ErrCodeInternal,
		Message: "wrapped error",
		Cause:   cause,
	}

	if unwrapped := err.Unwrap(); !errors.Is(unwrapped, cause) {
		t.Errorf("AppError.Unwrap() = %v, want %v", unwrapped, cause)
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		code ErrorCode
		msg  string
	}{
		{"invalid argument", InvalidArgument("Prompt is required"), ErrCodeInvalidArgument, "Prompt is required"},
		{"resource exhausted", ResourceExhausted("Rate limit exceeded", time.Second), ErrCodeResourceExhausted, "Rate limit exceeded"},
		{"deadline exceeded", DeadlineExceeded("Code generation timed out"), ErrCodeDeadlineExceeded, "Code generation timed out"},
		{"not found", NotFound("job not found"), ErrCodeNotFound, "job not found"},
		{"not found formatted", NotFoundf("job %s not found", "abc"), ErrCodeNotFound, "job abc not found"},
		{"internal", Internal("boom"), ErrCodeInternal, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.code)
			}
			if tt.err.Message != tt.msg {
				t.Errorf("Message = %q, want %q", tt.err.Message, tt.msg)
			}
		})
	}
}

func TestInvalidArgumentField(t *testing.T) {
	err := InvalidArgumentField("target", "Invalid target")
	if GetField(err) != "target" {
		t.Errorf("GetField() = %q, want target", GetField(err))
	}
	if !IsInvalidArgument(err) {
		t.Errorf("IsInvalidArgument() = false, want true")
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	tests := []struct {
		name  string
		after time.Duration
		want  int
	}{
		{"zero", 0, 0},
		{"negative", -time.Second, 0},
		{"exact", 3 * time.Second, 3},
		{"rounds up", 2*time.Second + time.Millisecond, 3},
		{"sub second", 10 * time.Millisecond, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ResourceExhausted("Rate limit exceeded", tt.after)
			if got := err.RetryAfterSeconds(); got != tt.want {
				t.Errorf("RetryAfterSeconds() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, ErrCodeInternal, "ignored") != nil {
		t.Errorf("Wrap(nil) should return nil")
	}

	cause := errors.New("timeout talking to endpoint")
	err := Wrapf(cause, ErrCodeInternal, "Code generation %s", "failed")
	if err.Error() != "Code generation failed: timeout talking to endpoint" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Errorf("wrapped error should match cause")
	}
}

func TestPredicatesThroughWrapping(t *testing.T) {
	base := DeadlineExceeded("Code generation timed out")
	wrapped := fmt.Errorf("generate: %w", base)

	if !IsDeadlineExceeded(wrapped) {
		t.Errorf("IsDeadlineExceeded() = false, want true")
	}
	if IsInternal(wrapped) || IsNotFound(wrapped) || IsResourceExhausted(wrapped) {
		t.Errorf("unexpected predicate match for %v", wrapped)
	}
	if GetCode(wrapped) != ErrCodeDeadlineExceeded {
		t.Errorf("GetCode() = %v, want %v", GetCode(wrapped), ErrCodeDeadlineExceeded)
	}
	if GetCode(errors.New("plain")) != "" {
		t.Errorf("GetCode() on plain error should be empty")
	}
}
