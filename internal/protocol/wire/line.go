package wire

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// MaxLineLen bounds a single line including its CRLF terminator.
const MaxLineLen = 4096

// CRLF terminates every line.
const CRLF = "\r\n"

var (
	ErrProtocol      = errors.New("wire: protocol error")
	ErrLimitExceeded = errors.New("wire: limit exceeded")
)

// ReadLine reads one CRLF-terminated line and returns it without the
// terminator. Lines longer than MaxLineLen fail with ErrLimitExceeded
// instead of being truncated.
func ReadLine(r *bufio.Reader) (string, error) {
	return readLine(r, MaxLineLen)
}

func readLine(r *bufio.Reader, maxLen int) (string, error) {
	var buf []byte
	for {
		frag, err := r.ReadSlice('\n')
		if err == nil {
			buf = append(buf, frag...)
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			buf = append(buf, frag...)
			if len(buf) > maxLen {
				return "", fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, maxLen)
			}
			continue
		}
		return "", err
	}

	if len(buf) > maxLen {
		return "", fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, maxLen)
	}
	if len(buf) < 2 || !bytes.HasSuffix(buf, []byte(CRLF)) {
		return "", fmt.Errorf("%w: missing CRLF", ErrProtocol)
	}
	return string(buf[:len(buf)-2]), nil
}

// WriteLine writes s followed by CRLF. The caller flushes.
func WriteLine(w *bufio.Writer, s string) error {
	if strings.ContainsAny(s, "\r\n") {
		return fmt.Errorf("%w: embedded line break", ErrProtocol)
	}
	if len(s)+len(CRLF) > MaxLineLen {
		return fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, MaxLineLen)
	}
	if _, err := w.WriteString(s); err != nil {
		return err
	}
	_, err := w.WriteString(CRLF)
	return err
}

// IsProtocolError reports whether err came from malformed input rather
// than from the transport.
func IsProtocolError(err error) bool {
	return errors.Is(err, ErrProtocol) || errors.Is(err, ErrLimitExceeded)
}
