// Package bridge contains the serial-side pieces of the STM32 telemetry
// bridge: splitting the raw byte stream into delimited frames and forwarding
// each frame to the server over HTTP or MQTT.
package bridge

import "bytes"

// maxFrameBytes bounds how much the framer will buffer while waiting for a
// closing delimiter before giving up on the current frame.
const maxFrameBytes = 4096

// Framer reassembles <...> frames from an arbitrary chunked byte stream.
// Bytes outside delimiters (boot noise, line endings) are discarded.
type Framer struct {
	buf []byte
}

func NewFramer() *Framer {
	return &Framer{}
}

// Push appends a chunk read from the serial port and returns every complete
// frame now available, delimiters included.
func (f *Framer) Push(chunk []byte) [][]byte {
	f.buf = append(f.buf, chunk...)

	var frames [][]byte
	for {
		start := bytes.IndexByte(f.buf, '<')
		if start < 0 {
			f.buf = f.buf[:0]
			return frames
		}
		end := bytes.IndexByte(f.buf[start:], '>')
		if end < 0 {
			// Keep the partial frame for the next chunk, unless it has grown
			// past any plausible frame size.
			f.buf = append(f.buf[:0], f.buf[start:]...)
			if len(f.buf) > maxFrameBytes {
				f.buf = f.buf[:0]
			}
			return frames
		}
		end += start
		frame := make([]byte, end-start+1)
		copy(frame, f.buf[start:end+1])
		frames = append(frames, frame)
		f.buf = append(f.buf[:0], f.buf[end+1:]...)
	}
}
