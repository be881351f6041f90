package buffer

import (
	"encoding/binary"
	"io"
	"net"

	"github.com/pkg/errors"
)

// frameHeaderSize is 8 bytes stream id + 8 bytes request id + 4 bytes length
const frameHeaderSize = 20

// WriteFrame writes a sequence as one frame with the format:
// - 8 bytes: streamID (uint64, big endian)
// - 8 bytes: requestID (uint64, big endian)
// - 4 bytes: data length (uint32, big endian)
// - N bytes: data payload
//
// The segments of the sequence are written as they are, without flattening.
func WriteFrame(w io.Writer, streamID uint64, requestID uint64, seq Sequence) error {
	header := make([]byte, frameHeaderSize)
	binary.BigEndian.PutUint64(header[:8], streamID)
	binary.BigEndian.PutUint64(header[8:16], requestID)
	binary.BigEndian.PutUint32(header[16:20], uint32(seq.Len()))

	bufs := seq.buffers(net.Buffers{header})
	_, err := bufs.WriteTo(w)
	return err
}

// ReadFrame reads a frame written by WriteFrame using the provided buffer.
// If the buffer is too small a new one is allocated for the payload.
func ReadFrame(r io.Reader, buf []byte) (uint64, uint64, []byte, error) {
	if len(buf) < frameHeaderSize {
		buf = make([]byte, frameHeaderSize)
	}

	if _, err := io.ReadFull(r, buf[:frameHeaderSize]); err != nil {
		return 0, 0, nil, err
	}

	streamID := binary.BigEndian.Uint64(buf[:8])
	requestID := binary.BigEndian.Uint64(buf[8:16])
	contentLength := binary.BigEndian.Uint32(buf[16:20])

	if contentLength == 0 {
		return streamID, requestID, []byte{}, nil
	}

	if len(buf) < int(contentLength) {
		buf = make([]byte, contentLength)
	}

	if _, err := io.ReadFull(r, buf[:contentLength]); err != nil {
		return 0, 0, nil, errors.Wrapf(err, "reading %d byte frame payload", contentLength)
	}

	return streamID, requestID, buf[:contentLength], nil
}
