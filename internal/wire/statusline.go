package wire

import (
	"strings"

	"github.com/aalvaropc/headline/internal/domain"
)

const (
	httpPrefix = "HTTP/1."
	icyPrefix  = "ICY "
	codeDigits = 3
)

// ParseStatusLine decodes a response status line such as "HTTP/1.1 200 OK".
//
// An empty line yields ok=false and a nil error: some servers send blank lines
// before the real status line and callers skip them. Any other input that is not
// "HTTP/1.0 ", "HTTP/1.1 " or "ICY " followed by a 3-digit code, and optionally a
// single space and a reason phrase, fails with a *domain.ParseError matching
// domain.ErrMalformedStatusLine.
func ParseStatusLine(line string) (status domain.StatusLine, ok bool, err error) {
	if line == "" {
		return domain.StatusLine{}, false, nil
	}

	var proto domain.Protocol
	var codeStart int

	switch {
	case strings.HasPrefix(line, httpPrefix):
		if len(line) < len(httpPrefix)+2 || line[8] != ' ' {
			return domain.StatusLine{}, false, malformedStatus(line)
		}
		switch line[7] {
		case '0':
			proto = domain.ProtocolHTTP10
		case '1':
			proto = domain.ProtocolHTTP11
		default:
			return domain.StatusLine{}, false, malformedStatus(line)
		}
		codeStart = 9
	case strings.HasPrefix(line, icyPrefix):
		// Shoutcast-style servers answer "ICY 200 OK" in place of an HTTP/1.0 line.
		proto = domain.ProtocolHTTP10
		codeStart = len(icyPrefix)
	default:
		return domain.StatusLine{}, false, malformedStatus(line)
	}

	codeEnd := codeStart + codeDigits
	if len(line) < codeEnd {
		return domain.StatusLine{}, false, malformedStatus(line)
	}

	code := 0
	for i := codeStart; i < codeEnd; i++ {
		c := line[i]
		if c < '0' || c > '9' {
			return domain.StatusLine{}, false, malformedStatus(line)
		}
		code = code*10 + int(c-'0')
	}

	message := ""
	if len(line) > codeEnd {
		if line[codeEnd] != ' ' {
			return domain.StatusLine{}, false, malformedStatus(line)
		}
		message = line[codeEnd+1:]
	}

	return domain.StatusLine{Protocol: proto, Code: code, Message: message}, true, nil
}

func malformedStatus(line string) error {
	return &domain.ParseError{Kind: domain.KindMalformedStatusLine, Line: line}
}
