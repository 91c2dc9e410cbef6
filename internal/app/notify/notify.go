/*
Package notify defines the user-visible notification sink the session layer reports to.

Notifications are fire-and-forget: the sink returns nothing and must not block.
*/
package notify

import (
	"sync"

	"github.com/rs/zerolog"

	"hzpresence/internal/pkg/logx"
)

// Sink receives user-facing success and error messages.
type Sink interface {
	Success(message string)
	Error(message string)
}

// LogSink writes notifications to a zerolog logger. It is the sink of headless clients.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink returns a sink logging under the "notify" component.
func NewLogSink() *LogSink {
	return &LogSink{logger: logx.Component("notify")}
}

func (s *LogSink) Success(message string) {
	s.logger.Info().Str("kind", "success").Msg(message)
}

func (s *LogSink) Error(message string) {
	s.logger.Warn().Str("kind", "error").Msg(message)
}

// Kind distinguishes recorded notifications.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notification is one recorded message.
type Notification struct {
	Kind    Kind
	Message string
}

// Recorder keeps every notification in order. It is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Success(message string) {
	r.add(KindSuccess, message)
}

func (r *Recorder) Error(message string) {
	r.add(KindError, message)
}

func (r *Recorder) add(kind Kind, message string) {
	r.mu.Lock()
	r.items = append(r.items, Notification{Kind: kind, Message: message})
	r.mu.Unlock()
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Errors returns the recorded error messages.
func (r *Recorder) Errors() []string {
	return r.messages(KindError)
}

// Successes returns the recorded success messages.
func (r *Recorder) Successes() []string {
	return r.messages(KindSuccess)
}

func (r *Recorder) messages(kind Kind) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.items {
		if n.Kind == kind {
			out = append(out, n.Message)
		}
	}
	return out
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.items = nil
	r.mu.Unlock()
}
