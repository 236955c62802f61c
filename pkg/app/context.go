package app

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Context holds application-wide configuration and state
type Context struct {
	context.Context

	// Output preferences
	OutputFormat string
	Verbose      bool
	Quiet        bool

	// Logger receives diagnostics; commands and the filesystem handle share it
	Logger *logrus.Logger

	// Out receives command output
	Out io.Writer

	// Common timeouts
	DefaultTimeout time.Duration

	// Progress reporting
	ProgressCallback func(update ProgressUpdate)
}

// NewContext creates a new application context
func NewContext() *Context {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)

	return &Context{
		Context:        context.Background(),
		OutputFormat:   "table",
		Logger:         logger,
		Out:            os.Stdout,
		DefaultTimeout: 30 * time.Second,
	}
}

// WithTimeout creates a context with timeout
func (c *Context) WithTimeout(timeout time.Duration) (*Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(c.Context, timeout)
	newCtx := *c
	newCtx.Context = ctx
	return &newCtx, cancel
}

// WithCancel creates a cancellable context
func (c *Context) WithCancel() (*Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(c.Context)
	newCtx := *c
	newCtx.Context = ctx
	return &newCtx, cancel
}

// SetLogLevel applies a level name such as "debug" or "warn". Verbose and
// Quiet take precedence over the name.
func (c *Context) SetLogLevel(name string) error {
	level := logrus.WarnLevel
	if name != "" {
		parsed, err := logrus.ParseLevel(name)
		if err != nil {
			return NewError(ErrCodeInvalidInput, "invalid log level", err)
		}
		level = parsed
	}
	switch {
	case c.Quiet:
		level = logrus.ErrorLevel
	case c.Verbose:
		level = logrus.DebugLevel
	}
	c.Logger.SetLevel(level)
	return nil
}

// SetProgress sets the progress callback function
func (c *Context) SetProgress(callback func(ProgressUpdate)) {
	c.ProgressCallback = callback
}

// Progress reports progress if callback is set
func (c *Context) Progress(update ProgressUpdate) {
	if c.ProgressCallback != nil {
		c.ProgressCallback(update)
	}
}

// Log outputs a message based on verbosity settings
func (c *Context) Log(message string) {
	if !c.Quiet && c.Verbose {
		c.Logger.Info(message)
	}
}

// Error outputs an error message unless quiet
func (c *Context) Error(message string) {
	if !c.Quiet {
		c.Logger.Error(message)
	}
}
