// Package transport abstracts the duplex byte stream a JSON-RPC endpoint
// runs over. The protocol core only assumes whole frames arrive intact;
// how a frame is delimited on the wire is a transport concern kept out of
// pkg/rpcendpoint and pkg/jsonrpc entirely.
package transport

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
)

// Framer reads and writes one complete JSON-RPC frame at a time from/to a
// duplex stream. Implementations must be safe for one concurrent reader
// plus any number of concurrent writers: an endpoint's outbound calls and
// its replies to inbound requests write from different goroutines.
type Framer interface {
	ReadFrame() ([]byte, error)
	WriteFrame(frame []byte) error
	Close() error
}

// LengthPrefixedFramer frames messages with a 4-byte little-endian length
// prefix, the framing Chrome Native Messaging hosts use on stdin/stdout.
type LengthPrefixedFramer struct {
	r       io.Reader
	w       io.Writer
	c       io.Closer
	writeMu sync.Mutex
}

// NewLengthPrefixedFramer wraps a duplex stream. If r also implements
// io.Closer, Close() closes it; otherwise Close() is a no-op.
func NewLengthPrefixedFramer(r io.Reader, w io.Writer) *LengthPrefixedFramer {
	f := &LengthPrefixedFramer{r: r, w: w}
	if c, ok := r.(io.Closer); ok {
		f.c = c
	}
	return f
}

func (f *LengthPrefixedFramer) ReadFrame() ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(f.r, header[:]); err != nil {
		return nil, err
	}
	length := binary.LittleEndian.Uint32(header[:])
	body := make([]byte, length)
	if _, err := io.ReadFull(f.r, body); err != nil {
		return nil, err
	}
	return body, nil
}

func (f *LengthPrefixedFramer) WriteFrame(frame []byte) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(frame)))
	if _, err := f.w.Write(header[:]); err != nil {
		return err
	}
	_, err := f.w.Write(frame)
	return err
}

func (f *LengthPrefixedFramer) Close() error {
	if f.c != nil {
		return f.c.Close()
	}
	return nil
}

// LineFramer frames messages as newline-delimited JSON, the framing most
// stdio JSON-RPC peers in the wild actually use.
type LineFramer struct {
	scanner *bufio.Scanner
	w       io.Writer
	c       io.Closer
	writeMu sync.Mutex
}

// MaxLineLength bounds a single frame to guard against unbounded buffering
// on a misbehaving peer.
const MaxLineLength = 10 * 1024 * 1024

// NewLineFramer wraps a duplex stream with newline-delimited framing.
func NewLineFramer(r io.Reader, w io.Writer) *LineFramer {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineLength)
	f := &LineFramer{scanner: scanner, w: w}
	if c, ok := r.(io.Closer); ok {
		f.c = c
	}
	return f
}

func (f *LineFramer) ReadFrame() ([]byte, error) {
	if !f.scanner.Scan() {
		if err := f.scanner.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	line := f.scanner.Bytes()
	out := make([]byte, len(line))
	copy(out, line)
	return out, nil
}

func (f *LineFramer) WriteFrame(frame []byte) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	if _, err := f.w.Write(frame); err != nil {
		return err
	}
	_, err := f.w.Write([]byte("\n"))
	return err
}

func (f *LineFramer) Close() error {
	if f.c != nil {
		return f.c.Close()
	}
	return nil
}

// ErrClosed is returned by a PipeFramer once Close has been called.
var ErrClosed = fmt.Errorf("transport: framer closed")
