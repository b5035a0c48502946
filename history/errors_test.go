package history

import (
	"errors"
	"strings"
	"testing"
)

func TestClassifyError_PatternMatching(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"access denied", errors.New("AccessDenied: forbidden"), ErrAccessDenied},
		{"permission denied", errors.New("permission denied: EACCES"), ErrPermissionDenied},
		{"not found", errors.New("no such file or directory"), ErrNotFound},
		{"disk full", errors.New("no space left on device"), ErrDiskFull},
		{"timeout", errors.New("operation timed out"), ErrTimeout},
		{"throttled", errors.New("SlowDown: rate exceeded"), ErrThrottled},
		{"auth", errors.New("InvalidAccessKeyId"), ErrAuth},
		{"network", errors.New("dial tcp: connection refused"), ErrNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyError(tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("classifyError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassifyError_AccessDeniedNotShadowedByPermissionDenied(t *testing.T) {
	got := classifyError(errors.New("403 Forbidden"))
	if !errors.Is(got, ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied, got %v", got)
	}
}

func TestWrapWriteError_NilIsNil(t *testing.T) {
	if WrapWriteError(nil, "path") != nil {
		t.Error("WrapWriteError(nil, ...) should return nil")
	}
}

func TestWrapWriteError_PreservesChain(t *testing.T) {
	cause := errors.New("no such file or directory")
	wrapped := WrapWriteError(cause, "some/path")

	var se *StorageError
	if !errors.As(wrapped, &se) {
		t.Fatalf("expected *StorageError, got %T", wrapped)
	}
	if se.Op != "write" || se.Path != "some/path" {
		t.Errorf("got Op=%q Path=%q", se.Op, se.Path)
	}
	if !errors.Is(wrapped, ErrNotFound) {
		t.Error("wrapped error should satisfy errors.Is(ErrNotFound)")
	}
	if !errors.Is(wrapped, cause) {
		t.Error("wrapped error should unwrap to the original cause")
	}
}

func TestStorageError_ErrorStringIncludesPath(t *testing.T) {
	se := NewStorageError(ErrNotFound, "read", "a/b/c", errors.New("boom"))
	msg := se.Error()
	if !strings.Contains(msg, "a/b/c") || !strings.Contains(msg, "read") {
		t.Errorf("Error() = %q, missing op/path", msg)
	}
}
