package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{Fault, "fault"},
		{NotFound, "not found"},
		{NotExecutable, "not executable"},
		{OutOfMemory, "out of memory"},
		{InvalidArgument, "invalid argument"},
		{Permission, "permission denied"},
		{Internal, "internal error"},
		{Kind(999), "unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.expected {
				t.Errorf("Kind.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestKind_Errno(t *testing.T) {
	tests := []struct {
		kind Kind
		want int32
	}{
		{Fault, -1},
		{NotFound, -2},
		{NotExecutable, -3},
		{OutOfMemory, -4},
		{InvalidArgument, -5},
		{Permission, -6},
		{Internal, -1},
	}
	for _, tt := range tests {
		if got := tt.kind.Errno(); got != tt.want {
			t.Errorf("%v.Errno() = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestKernelError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *KernelError
		want string
	}{
		{"nil", nil, "<nil>"},
		{"kind only", New(NotFound, "open", ""), "open: not found"},
		{"with subject", WrapWithSubject(nil, Fault, "read", "drive0"), "drive0: read: fault"},
		{
			"with wrapped err",
			Wrap(fmt.Errorf("boom"), Internal, "schedule"),
			"schedule: internal error: boom",
		},
		{
			"with detail",
			WrapWithDetail(nil, InvalidArgument, "exec", "argc out of range"),
			"exec: argc out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKernelError_Is(t *testing.T) {
	e1 := New(NotFound, "load", "")
	e2 := New(NotFound, "open", "")
	e3 := New(Fault, "read", "")

	if !errors.Is(e1, e2) {
		t.Error("expected same-kind errors to match via errors.Is")
	}
	if errors.Is(e1, e3) {
		t.Error("expected different-kind errors not to match")
	}
}

func TestIsKindAndGetKind(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", New(Permission, "kill", ""))

	if !IsKind(wrapped, Permission) {
		t.Error("IsKind should unwrap to find the KernelError")
	}
	kind, ok := GetKind(wrapped)
	if !ok || kind != Permission {
		t.Errorf("GetKind() = (%v, %v), want (Permission, true)", kind, ok)
	}

	if _, ok := GetKind(fmt.Errorf("plain")); ok {
		t.Error("GetKind should report false for a non-KernelError")
	}
}

func TestErrno(t *testing.T) {
	if got := Errno(nil); got != 0 {
		t.Errorf("Errno(nil) = %d, want 0", got)
	}
	if got := Errno(New(OutOfMemory, "alloc", "")); got != -4 {
		t.Errorf("Errno(OutOfMemory) = %d, want -4", got)
	}
	if got := Errno(fmt.Errorf("unclassified")); got != -1 {
		t.Errorf("Errno(unclassified) = %d, want -1 (fault)", got)
	}
}
