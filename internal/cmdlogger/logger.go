/*
	Copyright 2023 Google Inc.

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

		https://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

// Package cmdlogger provides the slog handler used by the runetrie command.
//
// Records are written one per line as the message followed by any attributes
// in key=value form.  Errors go to stderr and everything else to stdout,
// unless SendEverythingToStderr has been called.
package cmdlogger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// state is shared between a Handler and the handlers derived from it with
// WithAttrs and WithGroup.
type state struct {
	mu                 sync.Mutex
	stdout, stderr     io.Writer
	everythingToStderr bool
	hasErrored         bool
	level              slog.LevelVar
}

// Handler is a slog.Handler for command line output.
type Handler struct {
	s *state
	// Attributes added with WithAttrs, already qualified by their group.
	attrs []slog.Attr
	group string
}

var _ slog.Handler = &Handler{}

// New returns a Handler writing to stdout and stderr at level info.
func New(stdout, stderr io.Writer) *Handler {
	return &Handler{s: &state{stdout: stdout, stderr: stderr}}
}

// SendEverythingToStderr tells the handler to send all logs to stderr
// regardless of their level.
//
// This is useful when stdout carries the command's results, which should not
// be mixed with log output.
func (h *Handler) SendEverythingToStderr() {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	h.s.everythingToStderr = true
}

// SetLevel sets the minimum level of records that are written.
func (h *Handler) SetLevel(level slog.Level) {
	h.s.level.Set(level)
}

// HasErrored returns true if a record at level error or above has been
// handled.
func (h *Handler) HasErrored() bool {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	return h.s.hasErrored
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.s.level.Level()
}

func (h *Handler) Handle(_ context.Context, record slog.Record) error {
	var sb strings.Builder
	sb.WriteString(record.Message)
	for _, a := range h.attrs {
		writeAttr(&sb, "", a)
	}
	record.Attrs(func(a slog.Attr) bool {
		writeAttr(&sb, h.group, a)
		return true
	})
	sb.WriteByte('\n')

	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	w := h.s.stdout
	if record.Level >= slog.LevelError {
		h.s.hasErrored = true
		w = h.s.stderr
	} else if h.s.everythingToStderr {
		w = h.s.stderr
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	ret := *h
	ret.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		ret.attrs = append(ret.attrs, qualify(h.group, a))
	}
	return &ret
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	ret := *h
	ret.group = qualifiedKey(h.group, name)
	return &ret
}

func qualifiedKey(group, key string) string {
	if group == "" {
		return key
	}
	return group + "." + key
}

func qualify(group string, a slog.Attr) slog.Attr {
	a.Key = qualifiedKey(group, a.Key)
	return a
}

func writeAttr(sb *strings.Builder, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(sb, qualifiedKey(group, a.Key), ga)
		}
		return
	}
	fmt.Fprintf(sb, " %s=", qualifiedKey(group, a.Key))
	if s := a.Value.String(); strings.ContainsAny(s, " \t\n\"=") || s == "" {
		fmt.Fprintf(sb, "%q", s)
	} else {
		sb.WriteString(s)
	}
}

var levels = []string{
	"error",
	"warn",
	"info",
	"debug",
}

// Levels returns the names accepted by ParseLevel.
func Levels() []string {
	return levels
}

// ParseLevel returns the level named by text.
func ParseLevel(text string) (slog.Level, error) {
	switch text {
	case "error":
		return slog.LevelError, nil
	case "warn":
		return slog.LevelWarn, nil
	case "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid verbosity level %q - must be one of: %s", text, strings.Join(Levels(), ", "))
	}
}

// Debugf logs a formatted message at level debug through the default logger.
func Debugf(msg string, args ...any) {
	slog.Debug(fmt.Sprintf(msg, args...))
}

// Infof logs a formatted message at level info through the default logger.
func Infof(msg string, args ...any) {
	slog.Info(fmt.Sprintf(msg, args...))
}

// Warnf logs a formatted message at level warn through the default logger.
func Warnf(msg string, args ...any) {
	slog.Warn(fmt.Sprintf(msg, args...))
}

// Errorf logs a formatted message at level error through the default logger.
func Errorf(msg string, args ...any) {
	slog.Error(fmt.Sprintf(msg, args...))
}
