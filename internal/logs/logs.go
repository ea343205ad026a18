package logs

import (
	"fmt"
	"io"
	"log"
	"os"
)

type Loggers struct {
	Info     *log.Logger
	Warn     *log.Logger
	Error    *log.Logger
	Critical *log.Logger

	file *os.File
}

// New appends to the named file. An empty name logs to stderr.
func New(logName string) (*Loggers, error) {
	if logName == "" {
		return NewWriter(os.Stderr), nil
	}
	lf, err := os.OpenFile(logName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("unable to open log file: %w", err)
	}
	l := NewWriter(lf)
	l.file = lf
	return l, nil
}

// Close closes the log file opened by New. It is a no-op for writers.
func (l *Loggers) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func NewWriter(w io.Writer) *Loggers {
	l := Loggers{}
	l.Info = log.New(w, "INFO: ", log.LstdFlags)
	l.Warn = log.New(w, "WARN: ", log.LstdFlags)
	l.Error = log.New(w, "ERROR: ", log.LstdFlags)
	l.Critical = log.New(w, "CRIT: ", log.LstdFlags)
	return &l
}

func Discard() *Loggers {
	return NewWriter(io.Discard)
}
