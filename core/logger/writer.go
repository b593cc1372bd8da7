package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

var errWriterClosed = errors.New("logger: writer closed")

// lineSink receives complete, newline terminated log lines.
type lineSink interface {
	Write(line []byte) error
}

// asyncWriter moves line formatting off the sink: lines are queued and a
// single goroutine copies them to every sink, flushing when the queue drains.
type asyncWriter struct {
	buf   *bufio.Writer
	lines chan []byte
	flush chan chan error
	done  chan struct{}

	mu     sync.RWMutex
	closed bool

	errMu sync.Mutex
	err   error
}

func newAsyncWriter(sinks []io.Writer) *asyncWriter {
	w := &asyncWriter{
		buf:   bufio.NewWriterSize(io.MultiWriter(sinks...), 64*1024),
		lines: make(chan []byte, 512),
		flush: make(chan chan error),
		done:  make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *asyncWriter) loop() {
	defer close(w.done)
	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				w.record(w.buf.Flush())
				return
			}
			_, err := w.buf.Write(line)
			w.record(err)
			if len(w.lines) == 0 {
				w.record(w.buf.Flush())
			}
		case ack := <-w.flush:
			ack <- w.buf.Flush()
		}
	}
}

// Write queues a copy of line. It blocks while the queue is full.
func (w *asyncWriter) Write(line []byte) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	if err := w.firstErr(); err != nil {
		return err
	}
	w.lines <- append([]byte(nil), line...)
	return nil
}

// Flush waits until every queued line reached the sinks.
func (w *asyncWriter) Flush() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	ack := make(chan error, 1)
	w.flush <- ack
	return <-ack
}

// Close drains the queue and returns the first write error.
func (w *asyncWriter) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.lines)
	}
	w.mu.Unlock()
	<-w.done
	return w.firstErr()
}

func (w *asyncWriter) record(err error) {
	if err == nil {
		return
	}
	w.errMu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.errMu.Unlock()
}

func (w *asyncWriter) firstErr() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}
