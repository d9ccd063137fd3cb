package wire

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aalvaropc/headline/internal/domain"
)

// Limits bounds how much ReadHead will consume. Zero fields take defaults.
type Limits struct {
	MaxLineBytes         int
	MaxHeaders           int
	MaxLeadingBlankLines int
}

func DefaultLimits() Limits {
	return Limits{
		MaxLineBytes:         8 * 1024,
		MaxHeaders:           100,
		MaxLeadingBlankLines: 8,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxLineBytes <= 0 {
		l.MaxLineBytes = d.MaxLineBytes
	}
	if l.MaxHeaders <= 0 {
		l.MaxHeaders = d.MaxHeaders
	}
	if l.MaxLeadingBlankLines <= 0 {
		l.MaxLeadingBlankLines = d.MaxLeadingBlankLines
	}
	return l
}

// ReadHead reads a status line and its header block from r, stopping after the
// empty line that ends the head. The body, if any, is left unread in r.
func ReadHead(r *bufio.Reader, lim Limits) (domain.ResponseHead, error) {
	lim = lim.withDefaults()

	var head domain.ResponseHead
	for blanks := 0; ; blanks++ {
		if blanks > lim.MaxLeadingBlankLines {
			return domain.ResponseHead{}, headError("wire.read_status",
				fmt.Errorf("%w: %d blank lines before status line", domain.ErrMalformedStatusLine, blanks))
		}

		line, err := readLine(r, lim.MaxLineBytes)
		if err != nil {
			return domain.ResponseHead{}, headError("wire.read_status", err)
		}

		status, ok, err := ParseStatusLine(line)
		if err != nil {
			return domain.ResponseHead{}, headError("wire.read_status", err)
		}
		if ok {
			head.Status = status
			break
		}
	}

	for {
		line, err := readLine(r, lim.MaxLineBytes)
		if err != nil {
			return domain.ResponseHead{}, headError("wire.read_headers", err)
		}
		if line == "" {
			return head, nil
		}
		if len(head.Headers) >= lim.MaxHeaders {
			return domain.ResponseHead{}, headError("wire.read_headers",
				fmt.Errorf("%w: more than %d headers", domain.ErrHeadTooLarge, lim.MaxHeaders))
		}

		h, err := ParseHeader(line)
		if err != nil {
			return domain.ResponseHead{}, headError("wire.read_headers", err)
		}
		head.Headers = append(head.Headers, h)
	}
}

// FormatHead renders head the way it appears on the wire, including the final empty line.
func FormatHead(head domain.ResponseHead) string {
	var b strings.Builder
	b.WriteString(head.Status.String())
	b.WriteString("\r\n")
	for _, h := range head.Headers {
		b.WriteString(h.Name)
		b.WriteString(": ")
		b.WriteString(h.Value)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	return b.String()
}

// readLine returns the next line without its LF or CRLF terminator.
func readLine(r *bufio.Reader, maxBytes int) (string, error) {
	var buf []byte
	for {
		frag, err := r.ReadSlice('\n')
		buf = append(buf, frag...)
		if len(buf) > maxBytes+2 {
			return "", fmt.Errorf("%w: line exceeds %d bytes", domain.ErrHeadTooLarge, maxBytes)
		}
		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}

	buf = bytes.TrimSuffix(buf, []byte("\n"))
	buf = bytes.TrimSuffix(buf, []byte("\r"))
	return string(buf), nil
}

func headError(op string, err error) error {
	return &domain.OpError{
		Op:   op,
		Kind: domain.KindMalformedHead,
		Err:  err,
	}
}
