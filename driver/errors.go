package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
)

// ErrTimeout indicates a driver call ran past its deadline.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("driver timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrDisconnected indicates the browser connection or page went away.
type ErrDisconnected struct {
	Err error
}

func (e ErrDisconnected) Error() string {
	return fmt.Errorf("driver disconnected: %w", e.Err).Error()
}

func (e ErrDisconnected) Unwrap() error {
	return e.Err
}

// Classify wraps a raw driver failure into ErrTimeout or ErrDisconnected.
// Errors that are already classified, nil and context cancellation pass
// through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var timeout ErrTimeout
	var disconnected ErrDisconnected
	if errors.As(err, &timeout) || errors.As(err, &disconnected) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return ErrDisconnected{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrDisconnected{Err: err}
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "websocket") || strings.Contains(msg, "target closed") ||
		strings.Contains(msg, "context destroyed") || strings.Contains(msg, "closed connection") {
		return ErrDisconnected{Err: err}
	}

	return err
}

// ErrorTypeLabel returns the metrics label for a driver error.
func ErrorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var disconnected ErrDisconnected
	if errors.As(err, &disconnected) {
		return "disconnected"
	}
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}
	return "other"
}
