package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

type ctxKey struct{}

type Logger struct {
	out     io.Writer
	err     io.Writer
	json    bool
	quiet   bool
	verbose bool
}

func DefaultLogger() Logger {
	return Logger{
		out: os.Stdout,
		err: os.Stderr,
	}
}

func NewLogger(out, err io.Writer, json, quiet, verbose bool) Logger {
	return Logger{
		out:     out,
		err:     err,
		json:    json,
		quiet:   quiet,
		verbose: verbose,
	}
}

// Ctx returns the logger set for the current context.
// If no logger is set, a logger that writes to the standard streams is returned.
func Ctx(ctx context.Context) Logger {
	logger, ok := ctx.Value(ctxKey{}).(Logger)
	if !ok {
		return DefaultLogger()
	}
	return logger
}

// WithContext returns a new context with this logger associated with it.
func (l Logger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// Out prints command output to stdout.
// When json mode is set, the formatted string is wrapped as a json object
// so output remains machine parsable.
func (l *Logger) Out(f string, args ...interface{}) {
	str := fmt.Sprintf(f, args...)
	if l.json {
		serial, _ := json.Marshal(map[string]string{"output": str})
		fmt.Fprintf(l.out, "%s\n", serial)
		return
	}
	fmt.Fprintf(l.out, "%s\n", str)
}

// OutRaw prints a preformatted string to stdout with no decoration at all.
func (l *Logger) OutRaw(s string) {
	fmt.Fprintf(l.out, "%s", s)
}

func (l *Logger) Info(tag string, f string, args ...interface{}) {
	if l.quiet {
		return
	}
	l.print(color.New(color.FgHiGreen), tag, f, args...)
}

func (l *Logger) Debug(tag string, f string, args ...interface{}) {
	if l.verbose && !l.quiet {
		l.print(color.New(color.FgGreen), tag, f, args...)
	}
}

func (l *Logger) Warn(tag string, f string, args ...interface{}) {
	l.print(color.New(color.FgHiYellow), tag, f, args...)
}

func (l *Logger) print(tagColor *color.Color, tag, f string, args ...interface{}) {
	str := fmt.Sprintf(f, args...)
	for _, line := range strings.Split(str, "\n") {
		fmt.Fprintf(l.err, "%s  %s\n",
			tagColor.Sprint(tag),
			color.WhiteString(line))
	}
}
