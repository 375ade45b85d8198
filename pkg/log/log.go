// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/walteh/sb3fetch/pkg/status"
)

// 🎯 Logger prints job progress for humans and mirrors it to zerolog.
// It is a status.Sink.
type Logger struct {
	zlog      zerolog.Logger
	console   io.Writer
	formatter status.Formatter
	mu        sync.Mutex
	assets    bool
}

// 🏭 New creates a new logger writing lines to console and records to zlog
func New(console io.Writer, zlog zerolog.Logger) *Logger {
	return &Logger{
		zlog:      zlog,
		console:   console,
		formatter: status.NewDefaultFormatter(),
	}
}

// ShowAssets prints one line per stored asset instead of only logging it.
func (l *Logger) ShowAssets(show bool) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.assets = show
	return l
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// 📝 Handle prints an event and records it
func (l *Logger) Handle(e status.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.Type != status.EventAsset || l.assets {
		fmt.Fprintln(l.console, l.formatter.FormatEvent(e))
	}

	var ev *zerolog.Event
	switch {
	case e.Type == status.EventAsset:
		ev = l.zlog.Debug()
	case e.Type == status.EventWarning:
		ev = l.zlog.Warn()
	case e.Stage == status.StageFailed:
		ev = l.zlog.Error().Err(e.Err)
	case e.Stage == status.StageCanceled:
		ev = l.zlog.Warn().Err(e.Err)
	default:
		ev = l.zlog.Info()
	}
	ev.Int("job", e.Job).
		Str("locator", e.Label).
		Str("type", e.Type.String()).
		Str("stage", e.Stage.String()).
		Str("detail", e.Detail).
		Time("at", e.At).
		Msg("job event")
}

// 📝 Progress prints the finished/total counter
func (l *Logger) Progress(finished, total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console, l.formatter.FormatProgress(finished, total))
}

// 📝 LogNewline logs a newline
func (l *Logger) LogNewline() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console)
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("sb3fetch")
	fmt.Fprintf(l.console, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...any) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...any) {
	l.Warning(fmt.Sprintf(format, args...))
}

// 📝 Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...any) {
	l.Error(fmt.Sprintf(format, args...))
}

// 📝 Successf logs a formatted success message
func (l *Logger) Successf(format string, args ...any) {
	l.Success(fmt.Sprintf(format, args...))
}
