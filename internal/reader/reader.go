// README: Tag reader; one card read per call from a line-oriented RFID device.
package reader

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"time"

	"farebox/internal/modules/location"
	"farebox/internal/types"
)

var (
	ErrTimeout  = errors.New("no card presented")
	ErrEmptyTag = errors.New("empty tag")
)

const DefaultTimeout = 30 * time.Second

// LineSource yields one line per card read. location.ReaderSource satisfies it.
type LineSource interface {
	ReadLine(ctx context.Context) (string, error)
}

type Reader struct {
	src     LineSource
	timeout time.Duration
}

func New(src LineSource, timeout time.Duration) *Reader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Reader{src: src, timeout: timeout}
}

// NewFromReader wraps a keyboard-wedge device or pipe that prints each tag
// followed by a newline.
func NewFromReader(r io.Reader, timeout time.Duration) *Reader {
	return New(location.NewReaderSource(r), timeout)
}

// ReadOnce waits for a single card. Cancelling ctx returns ctx.Err(); running
// out of time returns ErrTimeout.
func (r *Reader) ReadOnce(ctx context.Context) (types.ID, error) {
	readCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	line, err := r.src.ReadLine(readCtx)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		return "", err
	}
	id := strings.TrimSpace(line)
	if id == "" {
		return "", ErrEmptyTag
	}
	log.Printf("card read tag=%s", id)
	return types.ID(id), nil
}
