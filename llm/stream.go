package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const streamReadSize = 4096

// Stream yields the text fragments of a newline-delimited JSON generation
// body in arrival order. It is single-use and not safe for concurrent use.
//
//	for s.Next() {
//		fmt.Print(s.Text())
//	}
//	if err := s.Err(); err != nil { ... }
//
// Cancelling the context the stream was opened with ends the sequence at the
// next read or line boundary; Err then reports nil.
type Stream struct {
	ctx    context.Context
	body   io.ReadCloser
	logger *zap.Logger

	dec     lineDecoder
	buf     []byte
	pending []string

	text    string
	err     error
	eof     bool
	ended   bool
	closed  bool
	lastHit bool
}

// NewStream wraps an NDJSON generation body. The stream owns body and closes
// it when the sequence ends.
func NewStream(ctx context.Context, body io.ReadCloser, logger *zap.Logger) *Stream {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stream{
		ctx:    ctx,
		body:   body,
		logger: logger,
		dec:    newLineDecoder(),
		buf:    make([]byte, streamReadSize),
	}
}

// Next advances to the next fragment. It returns false once the stream
// completed, was cancelled or failed.
func (s *Stream) Next() bool {
	s.text = ""
	for {
		if s.ended {
			return false
		}

		// A fragment carried by the completion object was handed out on the
		// previous call.
		if s.lastHit {
			s.finish(nil)
			return false
		}

		for len(s.pending) > 0 {
			if s.ctx.Err() != nil {
				s.finish(nil)
				return false
			}
			line := s.pending[0]
			s.pending = s.pending[1:]

			chunk, ok := parseLine(line)
			if !ok {
				s.logger.Debug("skipping unparsable stream line", zap.Int("length", len(line)))
				continue
			}
			if chunk.Done {
				if chunk.Response != "" {
					s.text = chunk.Response
					s.lastHit = true
					return true
				}
				s.finish(nil)
				return false
			}
			if chunk.Response != "" {
				s.text = chunk.Response
				return true
			}
		}

		if s.eof {
			return s.flushRemainder()
		}

		if s.ctx.Err() != nil {
			s.finish(nil)
			return false
		}

		n, err := s.body.Read(s.buf)
		if n > 0 {
			s.pending = append(s.pending, s.dec.feed(s.buf[:n])...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.eof = true
				continue
			}
			if s.ctx.Err() != nil {
				s.finish(nil)
				return false
			}
			s.finish(classifyTransport(err))
			return false
		}
	}
}

// flushRemainder parses a trailing line the peer never terminated
func (s *Stream) flushRemainder() bool {
	rest := strings.TrimSpace(s.dec.flush())
	s.finish(nil)
	if rest == "" || s.ctx.Err() != nil {
		return false
	}
	chunk, ok := parseLine(rest)
	if !ok || chunk.Response == "" {
		return false
	}
	s.text = chunk.Response
	return true
}

// Text returns the fragment produced by the last successful call to Next
func (s *Stream) Text() string {
	return s.text
}

// Err returns the classified failure that ended the stream, if any.
// Completion and cancellation both report nil.
func (s *Stream) Err() error {
	return s.err
}

// Close releases the underlying connection. It is safe to call more than once.
func (s *Stream) Close() error {
	s.ended = true
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}

func (s *Stream) finish(err error) {
	if s.err == nil {
		s.err = err
	}
	_ = s.Close()
}

func parseLine(line string) (GenerateResponse, bool) {
	var chunk GenerateResponse
	line = strings.TrimSpace(line)
	if line == "" {
		return chunk, false
	}
	if err := json.Unmarshal([]byte(line), &chunk); err != nil {
		return chunk, false
	}
	return chunk, true
}

// lineDecoder turns raw body reads into complete lines. It carries two pieces
// of state between reads: bytes of a UTF-8 sequence that is not complete yet,
// and decoded text after the last newline.
type lineDecoder struct {
	utf8    transform.Transformer
	tail    []byte
	partial string
}

func newLineDecoder() lineDecoder {
	return lineDecoder{utf8: unicode.UTF8.NewDecoder()}
}

// feed decodes p and returns every line it completes, without terminators
func (d *lineDecoder) feed(p []byte) []string {
	text := d.decode(p, false)
	if text == "" {
		return nil
	}
	lines := strings.Split(d.partial+text, "\n")
	d.partial = lines[len(lines)-1]
	return lines[:len(lines)-1]
}

// flush returns whatever is left once the body is exhausted
func (d *lineDecoder) flush() string {
	rest := d.partial + d.decode(nil, true)
	d.partial = ""
	return rest
}

func (d *lineDecoder) decode(p []byte, atEOF bool) string {
	src := append(d.tail, p...)
	if len(src) == 0 {
		return ""
	}
	dst := make([]byte, 3*len(src)+utf8.UTFMax)
	nDst, nSrc, err := d.utf8.Transform(dst, src, atEOF)
	if err != nil && !errors.Is(err, transform.ErrShortSrc) {
		// The destination is sized for the worst case, so only a short source
		// is expected here.
		nSrc = len(src)
	}
	d.tail = append([]byte(nil), src[nSrc:]...)
	return string(dst[:nDst])
}
