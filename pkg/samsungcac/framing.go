package samsungcac

import "bytes"

// LineDecoder splits a byte stream into newline terminated frames.
// Lines that do not start with '<' after trimming are dropped. A partial
// line stays buffered until the next Feed. The buffer is unbounded.
type LineDecoder struct {
	buf     []byte
	dropped int
}

// Feed appends p to the buffer and returns every complete XML line.
func (d *LineDecoder) Feed(p []byte) [][]byte {
	d.buf = append(d.buf, p...)

	var frames [][]byte
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimSpace(d.buf[:i+1])
		d.buf = d.buf[i+1:]

		if len(line) == 0 || line[0] != '<' {
			if len(line) > 0 {
				d.dropped++
			}
			continue
		}
		frame := make([]byte, len(line))
		copy(frame, line)
		frames = append(frames, frame)
	}

	if len(d.buf) == 0 {
		d.buf = nil
	}
	return frames
}

// Buffered returns the number of bytes waiting for a line terminator.
func (d *LineDecoder) Buffered() int {
	return len(d.buf)
}

// Dropped returns how many non-empty, non-XML lines were discarded.
func (d *LineDecoder) Dropped() int {
	return d.dropped
}
