// Package linecodec frames a byte stream into newline-delimited UTF-8
// messages and back.
package linecodec

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// ErrInvalidUTF8 is wrapped by a DecodeError when a line is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("linecodec: line is not valid UTF-8")

// DecodeError reports a single undecodable line. The stream itself is still
// usable: the next Decode resumes after the offending line.
type DecodeError struct {
	// Line is the 1-based index of the line within the stream.
	Line int
	Err  error
}

func (e *DecodeError) Error() string {
	return errors.Wrapf(e.Err, "line %d", e.Line).Error()
}

// IsDecodeError reports whether err is a per-line decode error.
func IsDecodeError(err error) bool {
	_, ok := errors.Cause(err).(*DecodeError)
	return ok
}

// Decoder reads lines from an input stream.
type Decoder struct {
	r     *bufio.Reader
	line  int
	nread int64
	eof   bool
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Decode returns the next line without its terminator ("\n" or "\r\n").
// An unterminated final line is returned as is before io.EOF.
func (d *Decoder) Decode() (string, error) {
	if d.eof {
		return "", io.EOF
	}
	buf, err := d.r.ReadBytes('\n')
	d.nread += int64(len(buf))
	if err != nil {
		if err != io.EOF {
			return "", err
		}
		d.eof = true
		if len(buf) == 0 {
			return "", io.EOF
		}
	}
	d.line++

	buf = bytes.TrimSuffix(buf, []byte{'\n'})
	buf = bytes.TrimSuffix(buf, []byte{'\r'})
	if !utf8.Valid(buf) {
		return "", &DecodeError{Line: d.line, Err: ErrInvalidUTF8}
	}
	return string(buf), nil
}

// BytesRead returns the number of bytes consumed from the stream so far.
func (d *Decoder) BytesRead() int64 {
	return d.nread
}

// Encoder writes lines to an output stream.
type Encoder struct {
	w   io.Writer
	buf []byte
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes msg followed by "\n" in a single Write.
func (e *Encoder) Encode(msg string) error {
	e.buf = append(append(e.buf[:0], msg...), '\n')
	_, err := e.w.Write(e.buf)
	return err
}
