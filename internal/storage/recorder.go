package storage

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/san-kum/heatloop/internal/sim"
)

// Recorder streams time,output,temp rows as samples arrive. It implements
// sim.Observer.
type Recorder struct {
	w      *csv.Writer
	closer io.Closer
}

func NewRecorder(w io.Writer) (*Recorder, error) {
	r := &Recorder{w: csv.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		r.closer = c
	}
	if err := r.w.Write([]string{"time", "output", "temp"}); err != nil {
		return nil, err
	}
	return r, nil
}

// CreateRecorder truncates path and records into it.
func CreateRecorder(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	r, err := NewRecorder(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func (r *Recorder) OnSample(s sim.Sample) error {
	return r.w.Write([]string{
		strconv.FormatInt(s.Time, 10),
		strconv.FormatInt(int64(s.Output), 10),
		strconv.FormatFloat(s.Temperature, 'f', -1, 64),
	})
}

// Close flushes buffered rows and closes the underlying writer if it is
// an io.Closer.
func (r *Recorder) Close() error {
	r.w.Flush()
	err := r.w.Error()
	if r.closer != nil {
		if cerr := r.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
