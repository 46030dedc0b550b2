package nlu

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/capitalize-ai/event-concierge/internal/llm"
)

type streamState int

const (
	streamDetect streamState = iota
	streamFence
	streamPlain
	streamSeekKey
	streamSeekColon
	streamSeekQuote
	streamValue
	streamDone
)

const responseKey = `"response"`

// replyStream sits between the provider stream and the caller's token
// callback. When the model answers with {"response": "..."} only the
// decoded string value is forwarded; plain text passes through. Leading
// and trailing whitespace is held back so the forwarded tokens join to
// the same text ParseReply returns.
type replyStream struct {
	onToken llm.StreamCallback
	index   int

	state  streamState
	fenced bool
	key    strings.Builder

	escape    bool
	hex       []byte
	inHex     bool
	surrogate rune

	started bool
	held    strings.Builder
	out     strings.Builder
}

func newReplyStream(onToken llm.StreamCallback) *replyStream {
	return &replyStream{onToken: onToken}
}

// Write consumes one provider delta. It satisfies llm.StreamCallback.
func (s *replyStream) Write(delta string, _ int) error {
	if s.onToken == nil {
		return nil
	}
	s.out.Reset()
	for _, r := range delta {
		s.consume(r)
	}
	if s.out.Len() == 0 {
		return nil
	}
	err := s.onToken(s.out.String(), s.index)
	s.index++
	return err
}

func (s *replyStream) consume(r rune) {
	switch s.state {
	case streamDetect:
		switch {
		case unicode.IsSpace(r):
		case r == '{':
			s.seekKey()
		case r == '`' && !s.fenced:
			s.fenced = true
			s.state = streamFence
		default:
			s.state = streamPlain
			s.emit(r)
		}
	case streamFence:
		switch r {
		case '{':
			s.seekKey()
		case '\n':
			s.state = streamDetect
		}
	case streamPlain:
		s.emit(r)
	case streamSeekKey:
		s.key.WriteRune(r)
		if strings.HasSuffix(s.key.String(), responseKey) {
			s.state = streamSeekColon
		} else if s.key.Len() > 64 {
			tail := s.key.String()[s.key.Len()-len(responseKey):]
			s.key.Reset()
			s.key.WriteString(tail)
		}
	case streamSeekColon:
		switch {
		case r == ':':
			s.state = streamSeekQuote
		case !unicode.IsSpace(r):
			s.seekKey()
		}
	case streamSeekQuote:
		switch {
		case r == '"':
			s.state = streamValue
		case !unicode.IsSpace(r):
			s.seekKey()
		}
	case streamValue:
		s.value(r)
	}
}

func (s *replyStream) seekKey() {
	s.key.Reset()
	s.state = streamSeekKey
}

func (s *replyStream) value(r rune) {
	switch {
	case s.inHex:
		s.hex = append(s.hex, byte(r))
		if len(s.hex) < 4 {
			return
		}
		s.inHex = false
		v, err := strconv.ParseUint(string(s.hex), 16, 32)
		s.hex = s.hex[:0]
		if err != nil {
			s.emit(unicode.ReplacementChar)
			return
		}
		s.unicodeEscape(rune(v))
	case s.escape:
		s.escape = false
		switch r {
		case 'n':
			s.emit('\n')
		case 't':
			s.emit('\t')
		case 'r':
			s.emit('\r')
		case 'b':
			s.emit('\b')
		case 'f':
			s.emit('\f')
		case 'u':
			s.inHex = true
		default:
			s.emit(r)
		}
	case r == '\\':
		s.escape = true
	case r == '"':
		s.state = streamDone
	default:
		s.emit(r)
	}
}

func (s *replyStream) unicodeEscape(v rune) {
	if s.surrogate != 0 {
		high := s.surrogate
		s.surrogate = 0
		s.emit(utf16.DecodeRune(high, v))
		return
	}
	if utf16.IsSurrogate(v) {
		s.surrogate = v
		return
	}
	s.emit(v)
}

// emit forwards r, holding whitespace (and closing fence backticks) until
// something printable follows it.
func (s *replyStream) emit(r rune) {
	if unicode.IsSpace(r) || (s.fenced && r == '`') {
		if s.started {
			s.held.WriteRune(r)
		}
		return
	}
	s.out.WriteString(s.held.String())
	s.held.Reset()
	s.out.WriteRune(r)
	s.started = true
}
