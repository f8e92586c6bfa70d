package mcpio

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestReadWriteMessage_BackToBack(t *testing.T) {
	msg1 := []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	msg2 := []byte(`{"jsonrpc":"2.0","id":2,"method":"initialize","params":{}}`)

	var buf bytes.Buffer
	if err := WriteMessage(&buf, msg1); err != nil {
		t.Fatalf("write msg1: %v", err)
	}
	if err := WriteMessage(&buf, msg2); err != nil {
		t.Fatalf("write msg2: %v", err)
	}

	reader := bufio.NewReader(&buf)
	for i, want := range [][]byte{msg1, msg2} {
		got, err := ReadMessage(reader)
		if err != nil {
			t.Fatalf("read msg%d: %v", i+1, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("msg%d = %s", i+1, got)
		}
	}
	if _, err := ReadMessage(reader); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestReadMessageErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing length", "Content-Type: application/json\r\n\r\n{}"},
		{"bad length", "Content-Length: ten\r\n\r\n{}"},
		{"too large", "Content-Length: 99999999999\r\n\r\n{}"},
		{"short body", "Content-Length: 10\r\n\r\n{}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadMessage(bufio.NewReader(strings.NewReader(tt.input)))
			if err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestCodecDetectsFraming(t *testing.T) {
	t.Run("headers", func(t *testing.T) {
		var in, out bytes.Buffer
		_ = WriteMessage(&in, []byte(`{"id":1}`))
		c := NewCodec(&in, &out)
		got, err := c.Read()
		if err != nil || string(got) != `{"id":1}` {
			t.Fatalf("Read = %s, %v", got, err)
		}
		if c.Framing() != FramingHeaders {
			t.Fatalf("framing = %v", c.Framing())
		}
		if err := c.Write([]byte(`{"ok":true}`)); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if !strings.HasPrefix(out.String(), "Content-Length: 11\r\n\r\n") {
			t.Fatalf("out = %q", out.String())
		}
	})

	t.Run("lines", func(t *testing.T) {
		in := strings.NewReader("\n{\"id\":1}\n{\"id\":2}")
		var out bytes.Buffer
		c := NewCodec(in, &out)
		for _, want := range []string{`{"id":1}`, `{"id":2}`} {
			got, err := c.Read()
			if err != nil || string(got) != want {
				t.Fatalf("Read = %s, %v", got, err)
			}
		}
		if _, err := c.Read(); !errors.Is(err, io.EOF) {
			t.Fatalf("expected EOF, got %v", err)
		}
		_ = c.Write([]byte(`{"ok":true}`))
		if out.String() != "{\"ok\":true}\n" {
			t.Fatalf("out = %q", out.String())
		}
	})
}
