package logger

import (
	"io"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation settings for file output.
const (
	maxFileSizeMB  = 128
	maxFileAgeDays = 28
	maxBackups     = 7
)

type options struct {
	writer io.Writer
	file   string
}

// Option configures Init.
type Option func(*options)

// WithWriter replaces stdout as the primary destination.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.writer = w
		}
	}
}

// WithFile additionally writes to path, rotated and gzip-compressed.
func WithFile(path string) Option {
	return func(o *options) {
		o.file = path
	}
}

func newRotatingFile(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxFileSizeMB,
		MaxAge:     maxFileAgeDays,
		MaxBackups: maxBackups,
		Compress:   true,
	}
}
