package wire

import (
	"bufio"
	"io"
)

// Scanner reads fixed-size frames from a byte stream, resynchronising on the
// header sentinel after garbled input. Byte streams (serial, replay files)
// always carry the 32-byte battery form; BLE notifications arrive already
// framed and do not use the scanner.
type Scanner struct {
	r *bufio.Reader
}

// NewScanner wraps a byte stream in a frame scanner.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReader(r)}
}

// Next returns the next candidate frame. It skips bytes until the header
// sentinel pair is found, then reads the remainder of a 32-byte frame. The
// returned frame has not been validated; callers still run Decode on it so
// checksum failures are counted in one place. io.EOF is returned at end of
// stream.
func (s *Scanner) Next() ([]byte, error) {
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b != header0 {
			continue
		}
		peek, err := s.r.Peek(1)
		if err != nil {
			return nil, err
		}
		if peek[0] != header1 {
			continue
		}

		frame := make([]byte, FrameSizeWithBattery)
		frame[0] = header0
		if _, err := io.ReadFull(s.r, frame[1:]); err != nil {
			if err == io.ErrUnexpectedEOF {
				return nil, io.EOF
			}
			return nil, err
		}
		return frame, nil
	}
}
