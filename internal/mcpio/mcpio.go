// Package mcpio frames JSON-RPC messages on a byte stream. Messages are
// Content-Length framed; a peer that sends bare JSON lines is answered in
// the same style.
package mcpio

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// MaxMessageSize bounds a single message body.
const MaxMessageSize = 10 << 20

var ErrTooLarge = errors.New("mcpio: message exceeds size limit")

type Framing int

const (
	// FramingUnknown means nothing has been read yet.
	FramingUnknown Framing = iota
	FramingHeaders
	FramingLines
)

// Codec reads and writes framed messages. Writes are serialized so handlers
// may reply from several goroutines.
type Codec struct {
	r *bufio.Reader

	mu      sync.Mutex
	w       io.Writer
	framing Framing
}

func NewCodec(r io.Reader, w io.Writer) *Codec {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReaderSize(r, 64<<10)
	}
	return &Codec{r: br, w: w}
}

// Framing reports the style detected on the first read.
func (c *Codec) Framing() Framing {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.framing
}

// Read returns the next message body. io.EOF means the peer closed the
// stream between messages.
func (c *Codec) Read() ([]byte, error) {
	for {
		b, err := c.r.Peek(1)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, err
		}
		switch b[0] {
		case '\r', '\n', ' ', '\t':
			_, _ = c.r.ReadByte()
			continue
		case '{', '[':
			c.setFraming(FramingLines)
			return readLine(c.r)
		default:
			c.setFraming(FramingHeaders)
			return ReadMessage(c.r)
		}
	}
}

func (c *Codec) setFraming(f Framing) {
	c.mu.Lock()
	if c.framing == FramingUnknown {
		c.framing = f
	}
	c.mu.Unlock()
}

// Write sends payload framed the way the peer framed its first message.
func (c *Codec) Write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.framing == FramingLines {
		line := append(bytes.TrimSpace(payload), '\n')
		_, err := c.w.Write(line)
		return err
	}
	return WriteMessage(c.w, payload)
}

func readLine(r *bufio.Reader) ([]byte, error) {
	var buf []byte
	for {
		chunk, err := r.ReadSlice('\n')
		buf = append(buf, chunk...)
		if len(buf) > MaxMessageSize {
			return nil, ErrTooLarge
		}
		if err == nil || (errors.Is(err, io.EOF) && len(buf) > 0) {
			return bytes.TrimSpace(buf), nil
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return nil, err
		}
	}
}

// ReadMessage reads one Content-Length framed body. Other headers are
// ignored.
func ReadMessage(r *bufio.Reader) ([]byte, error) {
	length := -1
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) && line == "" && length < 0 {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("read header: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "content-length") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid Content-Length %q", strings.TrimSpace(value))
		}
		if n > MaxMessageSize {
			return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, n)
		}
		length = n
	}
	if length < 0 {
		return nil, errors.New("missing Content-Length header")
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func WriteMessage(w io.Writer, payload []byte) error {
	var buf bytes.Buffer
	buf.Grow(len(payload) + 32)
	fmt.Fprintf(&buf, "Content-Length: %d\r\n\r\n", len(payload))
	buf.Write(payload)
	_, err := w.Write(buf.Bytes())
	return err
}
