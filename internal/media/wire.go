package media

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Message is one framed IPC message
type Message struct {
	Type    MessageType
	Flags   MessageFlags
	PTS     int64
	Payload []byte
}

// ReadMessage reads one message from r. header must be HeaderSize bytes
// and is reused between calls.
func ReadMessage(r io.Reader, header []byte) (Message, error) {
	if _, err := io.ReadFull(r, header[:HeaderSize]); err != nil {
		return Message{}, err
	}

	msg := Message{
		Type:  MessageType(header[0]),
		Flags: MessageFlags(header[1]),
		PTS:   int64(binary.LittleEndian.Uint64(header[2:10])),
	}
	length := binary.LittleEndian.Uint32(header[10:14])

	// Sanity check on length
	if length > MaxPayloadSize {
		return Message{}, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, length)
	}

	msg.Payload = make([]byte, length)
	if _, err := io.ReadFull(r, msg.Payload); err != nil {
		return Message{}, fmt.Errorf("payload read: %w", err)
	}
	return msg, nil
}

// WriteMessage writes msg to w as a header followed by the payload.
func WriteMessage(w io.Writer, msg Message) error {
	if len(msg.Payload) > MaxPayloadSize {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(msg.Payload))
	}

	var header [HeaderSize]byte
	header[0] = byte(msg.Type)
	header[1] = byte(msg.Flags)
	binary.LittleEndian.PutUint64(header[2:10], uint64(msg.PTS))
	binary.LittleEndian.PutUint32(header[10:14], uint32(len(msg.Payload)))

	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	if len(msg.Payload) == 0 {
		return nil
	}
	_, err := w.Write(msg.Payload)
	return err
}
