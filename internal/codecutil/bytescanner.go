/*
DESCRIPTION
  bytescanner.go implements a small buffered byte scanner used by media
  format readers (decode/mjpeg) to split a byte stream on marker bytes
  without pulling in a general parser library.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package codecutil provides low level helpers shared by media format
// readers.
package codecutil

import "io"

// ByteScanner is a buffered byte scanner that additionally tracks how many
// bytes it has delivered, so callers can record byte offsets of the markers
// they find (decode/mjpeg uses this to index JPEG frame boundaries for
// seeking).
type ByteScanner struct {
	buf []byte
	off int

	// delivered counts bytes returned by ReadByte/ScanUntil so far.
	delivered int64

	r io.Reader
}

// NewByteScanner returns a scanner initialised with an io.Reader and a read
// buffer.
func NewByteScanner(r io.Reader, buf []byte) *ByteScanner {
	return &ByteScanner{r: r, buf: buf[:0]}
}

// ScanUntil scans the scanner's underlying io.Reader until a delim byte has
// been read, appending all read bytes to dst. It returns the resulting
// appended data, the last read byte, and whether the last read byte was the
// delimiter.
func (c *ByteScanner) ScanUntil(dst []byte, delim byte) (res []byte, b byte, err error) {
outer:
	for {
		var i int
		for i, b = range c.buf[c.off:] {
			if b != delim {
				continue
			}
			dst = append(dst, c.buf[c.off:c.off+i+1]...)
			c.delivered += int64(i + 1)
			c.off += i + 1
			break outer
		}
		dst = append(dst, c.buf[c.off:]...)
		c.delivered += int64(len(c.buf) - c.off)
		c.off = len(c.buf)
		err = c.reload()
		if err != nil {
			break
		}
	}
	return dst, b, err
}

// ReadByte returns the next byte of the stream.
func (c *ByteScanner) ReadByte() (byte, error) {
	if c.off >= len(c.buf) {
		if err := c.reload(); err != nil {
			return 0, err
		}
	}
	b := c.buf[c.off]
	c.off++
	c.delivered++
	return b, nil
}

// Offset reports the number of bytes delivered so far, i.e. the byte offset
// of the next ReadByte/ScanUntil result within the original stream.
func (c *ByteScanner) Offset() int64 { return c.delivered }

// reload re-fills the scanner's buffer.
func (c *ByteScanner) reload() error {
	n, err := c.r.Read(c.buf[:cap(c.buf)])
	c.buf = c.buf[:n]
	c.off = 0
	if err != nil {
		if err != io.EOF {
			return err
		}
		if n == 0 {
			return io.EOF
		}
	}
	return nil
}
