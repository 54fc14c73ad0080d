package media

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MessageType identifies an IPC message
type MessageType byte

const (
	MessageCaps  MessageType = 0x01
	MessageFrame MessageType = 0x02
	MessageEOS   MessageType = 0x03
)

// MessageFlags contains frame metadata flags
type MessageFlags byte

const (
	// FlagDiscont marks the first frame after a gap in the stream
	FlagDiscont MessageFlags = 0x01
)

// HeaderSize is the size of the IPC message header in bytes
// Type(1) + Flags(1) + PTS(8) + Length(4) = 14
const HeaderSize = 14

// MaxPayloadSize bounds a single message; 64 MiB covers NV12 up to 8K.
const MaxPayloadSize = 64 << 20

const capsPayloadSize = 8

var (
	ErrPayloadTooLarge = errors.New("media: payload too large")
	ErrMalformedCaps   = errors.New("media: malformed caps payload")
)

// RawFrame is one uncompressed NV12 frame
type RawFrame struct {
	PTS   int64 // presentation timestamp in microseconds
	Flags MessageFlags
	Data  []byte // luma plane followed by interleaved UV plane
}

func (t MessageType) String() string {
	switch t {
	case MessageCaps:
		return "Caps"
	case MessageFrame:
		return "NV12"
	case MessageEOS:
		return "EOS"
	default:
		return "Unknown"
	}
}

// EncodeCaps builds the payload of a caps message
func EncodeCaps(width, height int) []byte {
	payload := make([]byte, capsPayloadSize)
	binary.LittleEndian.PutUint32(payload[0:4], uint32(width))
	binary.LittleEndian.PutUint32(payload[4:8], uint32(height))
	return payload
}

// DecodeCaps parses the payload of a caps message
func DecodeCaps(payload []byte) (width, height int, err error) {
	if len(payload) != capsPayloadSize {
		return 0, 0, fmt.Errorf("%w: %d bytes", ErrMalformedCaps, len(payload))
	}
	width = int(binary.LittleEndian.Uint32(payload[0:4]))
	height = int(binary.LittleEndian.Uint32(payload[4:8]))
	return width, height, nil
}
