package transport

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// DefaultMaxMessageSize bounds a single framed message.
const DefaultMaxMessageSize = 64 << 20

// WriteMessage writes payload prefixed with its length as an unsigned
// base-128 varint.
func WriteMessage(w io.Writer, payload []byte) error {
	buf := make([]byte, 0, binary.MaxVarintLen64+len(payload))
	buf = binary.AppendUvarint(buf, uint64(len(payload)))
	buf = append(buf, payload...)
	_, err := w.Write(buf)
	return err
}

// ReadMessage reads one length-prefixed message. It returns io.EOF only
// when the stream ends cleanly between messages.
func ReadMessage(r *bufio.Reader, limit int) ([]byte, error) {
	size, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	if limit > 0 && size > uint64(limit) {
		return nil, fmt.Errorf("message of %d bytes exceeds limit of %d", size, limit)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return payload, nil
}
