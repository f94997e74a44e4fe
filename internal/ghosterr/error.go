// Package ghosterr defines the error taxonomy shared by the render and
// cache services, and the status code each kind maps to at the HTTP
// boundary.
package ghosterr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind identifies a class of failure. Two errors with the same Kind carry
// the same HTTP status code, except RenderFailed, whose status is that of
// the error it wraps; the message may still differ per instance.
type Kind int

const (
	KindSpeedTooFast Kind = iota
	KindSpeedTooSlow
	KindEncoder
	KindEncoderExitCode
	KindCannotReadGif
	KindCannotWriteGif
	KindCacheDB
	KindDBQuery
	KindGifServiceOffline
	KindEncodingJobExited
	KindInvalidUTF8
	KindClockWentBackwards
	KindDirSetup
	KindCollectGarbage
	KindRenderFailed
)

func (k Kind) String() string {
	switch k {
	case KindSpeedTooFast:
		return "speed_too_fast"
	case KindSpeedTooSlow:
		return "speed_too_slow"
	case KindEncoder:
		return "encoder"
	case KindEncoderExitCode:
		return "encoder_exit_code"
	case KindCannotReadGif:
		return "cannot_read_gif"
	case KindCannotWriteGif:
		return "cannot_write_gif"
	case KindCacheDB:
		return "cache_db"
	case KindDBQuery:
		return "db_query"
	case KindGifServiceOffline:
		return "gif_service_offline"
	case KindEncodingJobExited:
		return "encoding_job_exited"
	case KindInvalidUTF8:
		return "invalid_utf8"
	case KindClockWentBackwards:
		return "clock_went_backwards"
	case KindDirSetup:
		return "dir_setup"
	case KindCollectGarbage:
		return "collect_garbage"
	case KindRenderFailed:
		return "render_failed"
	default:
		return "unknown"
	}
}

// Error is the taxonomy's error value. It is always constructed through one
// of the constructor functions below so that Kind and message stay in sync.
type Error struct {
	Kind    Kind
	Message string
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Wrapped)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// StatusCode maps the error's Kind to an HTTP status. A RenderFailed
// error delegates to the wrapped error's own status, which is how a
// coalesced waiter inherits a 400-class verdict instead of a generic 500.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindSpeedTooFast, KindSpeedTooSlow:
		return http.StatusBadRequest
	case KindRenderFailed:
		if inner, ok := e.Wrapped.(*Error); ok {
			return inner.StatusCode()
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage returns the text that should reach the client. For a
// RenderFailed error whose cause is a 400-class mistake, this is the
// inner error's message; for any other RenderFailed error it's the
// wrapper's own message alone, without the inner error's detail. Every
// other kind returns Error().
func (e *Error) UserMessage() string {
	if e.Kind == KindRenderFailed {
		if inner, ok := e.Wrapped.(*Error); ok && inner.StatusCode() == http.StatusBadRequest {
			return inner.Error()
		}
		return e.Message
	}
	return e.Error()
}

func SpeedTooFast() *Error {
	return &Error{Kind: KindSpeedTooFast, Message: "Hat Kid got incarcerated for speeding on a highway."}
}

func SpeedTooSlow() *Error {
	return &Error{Kind: KindSpeedTooSlow, Message: "yawn…"}
}

func Encoder(err error) *Error {
	return &Error{Kind: KindEncoder, Message: "error while handling GIF encoding process", Wrapped: err}
}

func EncoderExitCode(exitCode int, stderr string) *Error {
	msg := fmt.Sprintf("GIF encoder finished with a non-zero exit code (%d)", exitCode)
	var wrapped error
	if trimmed := strings.TrimSpace(stderr); trimmed != "" {
		wrapped = errors.New(trimmed)
	}
	return &Error{Kind: KindEncoderExitCode, Message: msg, Wrapped: wrapped}
}

func CannotReadGif(err error) *Error {
	return &Error{Kind: KindCannotReadGif, Message: "cannot read rendered GIF", Wrapped: err}
}

func CannotWriteGif(err error) *Error {
	return &Error{Kind: KindCannotWriteGif, Message: "cannot write rendered GIF", Wrapped: err}
}

func CacheDB(err error) *Error {
	return &Error{Kind: KindCacheDB, Message: "cache database error", Wrapped: err}
}

func DBQuery(err error) *Error {
	return &Error{Kind: KindDBQuery, Message: "database query failed", Wrapped: err}
}

func GifServiceOffline() *Error {
	return &Error{Kind: KindGifServiceOffline, Message: "cannot send request to render service because it is offline"}
}

func EncodingJobExited() *Error {
	return &Error{Kind: KindEncodingJobExited, Message: "internal encoding job failure (did not receive rendered GIF)"}
}

func InvalidUTF8() *Error {
	return &Error{Kind: KindInvalidUTF8, Message: "invalid UTF-8"}
}

func ClockWentBackwards() *Error {
	return &Error{Kind: KindClockWentBackwards, Message: "system clock went backwards"}
}

func DirSetup(err error) *Error {
	return &Error{Kind: KindDirSetup, Message: "directory cannot be set up", Wrapped: err}
}

func CollectGarbage(err error) *Error {
	return &Error{Kind: KindCollectGarbage, Message: "cache garbage collection I/O error", Wrapped: err}
}

// RenderFailed wraps a failure delivered to a secondary waiter of a
// coalesced render. inner is the same *Error pointer handed to every
// waiter of that render, so a single encoder failure is reported
// identically to all of them instead of being reconstructed per waiter.
func RenderFailed(inner *Error) *Error {
	return &Error{Kind: KindRenderFailed, Message: "render failed", Wrapped: inner}
}
