package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

var (
	// ErrUnreachable means nothing answered at the configured endpoint
	ErrUnreachable = errors.New("cannot connect to the model server; make sure it is running (start it with \"ollama serve\")")

	// ErrTimeout means the request or stream exceeded its deadline
	ErrTimeout = errors.New("request timed out; the model may be large or the server slow, please try again")

	// ErrModelNotFound is returned for HTTP 404 on generation
	ErrModelNotFound = errors.New("model not found; verify it is installed")

	// ErrServerBusy is returned for HTTP 500, usually while a model is loading
	ErrServerBusy = errors.New("model server error; the model may still be loading, retry in a few seconds")

	// ErrEmptyResponse is returned when a non-streaming call yields no text
	ErrEmptyResponse = errors.New("empty response from the model server; the model may still be loading")
)

// StatusError is a non-2xx response that has no dedicated sentinel
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("model server returned status %d", e.Code)
	}
	return fmt.Sprintf("model server returned status %d: %s", e.Code, e.Body)
}

// classifyStatus maps a non-2xx status of a generation call into the taxonomy
func classifyStatus(code int, body, model string) error {
	switch code {
	case http.StatusNotFound:
		return fmt.Errorf("model %q: %w", model, ErrModelNotFound)
	case http.StatusInternalServerError:
		return ErrServerBusy
	default:
		return &StatusError{Code: code, Body: body}
	}
}

// classifyTransport maps transport failures into the taxonomy. Cancellation
// is passed through untouched so callers can tell it apart.
func classifyTransport(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if isTimeout(err) {
		return fmt.Errorf("%w (%v)", ErrTimeout, err)
	}
	if isUnreachable(err) {
		return fmt.Errorf("%w (%v)", ErrUnreachable, err)
	}
	return err
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isUnreachable(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ENETUNREACH) || errors.Is(err, syscall.EHOSTUNREACH) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
