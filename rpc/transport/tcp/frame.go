package tcp

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport")

// deadlineReader is implemented by connections that support read deadlines
type deadlineReader interface {
	SetReadDeadline(t time.Time) error
}

// flusher is implemented by buffered writers
type flusher interface {
	Flush() error
}

// Write writes the whole message and flushes the writer if it is buffered
func Write(w io.Writer, msg []byte) error {
	for written := 0; written < len(msg); {
		n, err := w.Write(msg[written:])
		if err != nil {
			return fmt.Errorf("failed to write message: %w", err)
		}
		written += n
	}

	if f, ok := w.(flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("failed to flush message: %w", err)
		}
	}
	return nil
}

// Read reads one message in chunks of chunkSize bytes. The message ends with the
// first chunk that is shorter than chunkSize.
//
// If r supports read deadlines, the reader waits at most grace for the chunk
// following a full one. A timeout there ends the message. The first chunk is read
// without a deadline, an idle connection blocks until data or EOF arrives.
//
// io.EOF is returned only if the stream ended before any byte of the message was read.
func Read(r io.Reader, chunkSize int, grace time.Duration) ([]byte, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("invalid chunk size %d", chunkSize)
	}

	dr, canDeadline := r.(deadlineReader)
	canDeadline = canDeadline && grace > 0
	armed := false

	// reset removes the continuation deadline so the next message starts unbounded
	reset := func() error {
		if !armed {
			return nil
		}
		armed = false
		if err := dr.SetReadDeadline(time.Time{}); err != nil {
			return fmt.Errorf("failed to reset read deadline: %w", err)
		}
		return nil
	}

	var msg []byte
	chunk := make([]byte, chunkSize)

	for {
		n, err := r.Read(chunk)
		msg = append(msg, chunk[:n]...)

		if err != nil {
			switch {
			case armed && isTimeout(err):
				// no continuation within the grace period
				return msg, reset()
			case errors.Is(err, io.EOF) && len(msg) > 0:
				// the peer closed after its last message, the next Read reports EOF
				return msg, nil
			case errors.Is(err, io.EOF):
				return nil, io.EOF
			default:
				return nil, err
			}
		}

		if n < chunkSize {
			return msg, reset()
		}

		if canDeadline {
			if err := dr.SetReadDeadline(time.Now().Add(grace)); err != nil {
				return nil, fmt.Errorf("failed to set read deadline: %w", err)
			}
			armed = true
		}
	}
}

// isTimeout reports whether err is a deadline expiry
func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
