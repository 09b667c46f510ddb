package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestUsageError(t *testing.T) {
	t.Run("formats message", func(t *testing.T) {
		err := NewUsageError("--as", "")
		if err.Error() != "usage error: --as is required" {
			t.Errorf("unexpected message: %s", err.Error())
		}

		err = NewUsageError("--account-id", "not found in arguments or state files")
		expected := "usage error: --account-id: not found in arguments or state files"
		if err.Error() != expected {
			t.Errorf("expected '%s', got '%s'", expected, err.Error())
		}
	})

	t.Run("matches sentinel", func(t *testing.T) {
		err := NewUsageError("--as", "")
		if !errors.Is(err, ErrMissingParameter) {
			t.Error("expected usage error to match ErrMissingParameter")
		}
		if !IsUsage(err) {
			t.Error("expected IsUsage to report true")
		}
		if IsPrecondition(err) {
			t.Error("usage error must not match precondition sentinel")
		}
	})
}

func TestPreconditionError(t *testing.T) {
	err := NewPreconditionError([]string{"/work/ca.crt", "/work/as.key"})

	if !errors.Is(err, ErrMissingFiles) {
		t.Error("expected precondition error to match ErrMissingFiles")
	}
	if !IsPrecondition(err) {
		t.Error("expected IsPrecondition to report true")
	}

	msg := err.Error()
	for _, path := range []string{"/work/ca.crt", "/work/as.key"} {
		if !strings.Contains(msg, path) {
			t.Errorf("expected message to list %s, got: %s", path, msg)
		}
	}
}

func TestStepError(t *testing.T) {
	cause := errors.New("apt-get exited with status 100")
	err := NewStepError("openvpn-package", "install failed", cause)

	expected := "step openvpn-package failed: install failed: apt-get exited with status 100"
	if err.Error() != expected {
		t.Errorf("expected '%s', got '%s'", expected, err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("expected step error to wrap its cause")
	}
}

func TestRenderError(t *testing.T) {
	err := NewRenderError("/work/server.conf.tmpl", []string{"_PORT_", "_SUBNET_"})
	msg := err.Error()
	if !strings.Contains(msg, "_PORT_") || !strings.Contains(msg, "_SUBNET_") {
		t.Errorf("expected unresolved tokens in message, got: %s", msg)
	}
}
