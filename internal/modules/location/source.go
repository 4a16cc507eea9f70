package location

import (
	"bufio"
	"context"
	"errors"
	"io"
	"sync"
)

// ErrSourceClosed is returned once the underlying reader is exhausted.
var ErrSourceClosed = errors.New("location source closed")

// ReaderSource turns a blocking line reader (card reader, console, file) into
// a Source whose reads can be abandoned through ctx. A single goroutine owns
// the reader; lines are handed over one at a time and none are dropped. Use
// LatestSource for a receiver that keeps talking between reads.
type ReaderSource struct {
	lines chan string
	done  chan struct{}

	mu  sync.Mutex
	err error
}

func NewReaderSource(r io.Reader) *ReaderSource {
	s := &ReaderSource{
		lines: make(chan string),
		done:  make(chan struct{}),
	}
	go s.scan(r)
	return s
}

func (s *ReaderSource) scan(r io.Reader) {
	defer close(s.done)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		s.lines <- sc.Text()
	}
	s.mu.Lock()
	s.err = sc.Err()
	s.mu.Unlock()
}

func (s *ReaderSource) ReadLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line := <-s.lines:
		return line, nil
	case <-s.done:
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.err != nil {
			return "", s.err
		}
		return "", ErrSourceClosed
	}
}

// LatestSource drains a free-running receiver and keeps only the newest line.
// ReadLine returns a line that arrived after the call started, so a fix read
// at a tap is never one that sat in a buffer since the previous tap. Lines
// rejected by keep are dropped without waking readers.
type LatestSource struct {
	keep func(string) bool
	done chan struct{}

	mu   sync.Mutex
	seq  uint64
	line string
	wake chan struct{}
	err  error
}

func NewLatestSource(r io.Reader, keep func(string) bool) *LatestSource {
	s := &LatestSource{
		keep: keep,
		done: make(chan struct{}),
		wake: make(chan struct{}),
	}
	go s.scan(r)
	return s
}

func (s *LatestSource) scan(r io.Reader) {
	defer close(s.done)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if s.keep != nil && !s.keep(line) {
			continue
		}
		s.mu.Lock()
		s.seq++
		s.line = line
		close(s.wake)
		s.wake = make(chan struct{})
		s.mu.Unlock()
	}
	s.mu.Lock()
	s.err = sc.Err()
	s.mu.Unlock()
}

func (s *LatestSource) ReadLine(ctx context.Context) (string, error) {
	s.mu.Lock()
	since := s.seq
	s.mu.Unlock()
	for {
		s.mu.Lock()
		if s.seq > since {
			line := s.line
			s.mu.Unlock()
			return line, nil
		}
		wake := s.wake
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-wake:
		case <-s.done:
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.seq > since {
				return s.line, nil
			}
			if s.err != nil {
				return "", s.err
			}
			return "", ErrSourceClosed
		}
	}
}
