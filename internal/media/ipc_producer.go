package media

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const dialTimeout = 2 * time.Second

// IPCProducer writes raw frames to a downstream consumer socket. It dials
// lazily and, after a reconnect, repeats the last caps before any frame so
// the consumer always knows the geometry.
type IPCProducer struct {
	socketPath string
	log        zerolog.Logger

	mu       sync.Mutex
	conn     net.Conn
	caps     []byte
	capsSent bool
}

// NewIPCProducer creates a producer for socketPath. No connection is made
// until the first write or an explicit Dial.
func NewIPCProducer(socketPath string, log zerolog.Logger) *IPCProducer {
	return &IPCProducer{
		socketPath: socketPath,
		log:        log.With().Str("component", "ipc_producer").Str("socket", socketPath).Logger(),
	}
}

// Dial connects to the downstream socket if not already connected.
func (p *IPCProducer) Dial() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dialLocked()
}

func (p *IPCProducer) dialLocked() error {
	if p.conn != nil {
		return nil
	}
	conn, err := net.DialTimeout("unix", p.socketPath, dialTimeout)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", p.socketPath, err)
	}
	p.conn = conn
	p.capsSent = false
	p.log.Info().Msg("IPC downstream connected")
	return nil
}

// WriteCaps sends the stream geometry downstream.
func (p *IPCProducer) WriteCaps(width, height int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.caps = EncodeCaps(width, height)
	p.capsSent = false
	return p.writeLocked(Message{Type: MessageCaps, Payload: p.caps})
}

// WriteFrame sends one frame downstream. The frame data is not retained.
func (p *IPCProducer) WriteFrame(frame *RawFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.writeLocked(Message{
		Type:    MessageFrame,
		Flags:   frame.Flags,
		PTS:     frame.PTS,
		Payload: frame.Data,
	})
}

// WriteEOS signals end of stream downstream.
func (p *IPCProducer) WriteEOS() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.writeLocked(Message{Type: MessageEOS})
}

func (p *IPCProducer) writeLocked(msg Message) error {
	if err := p.dialLocked(); err != nil {
		return err
	}

	if msg.Type != MessageCaps && !p.capsSent && p.caps != nil {
		if err := WriteMessage(p.conn, Message{Type: MessageCaps, Payload: p.caps}); err != nil {
			p.dropLocked(err)
			return err
		}
		p.capsSent = true
	}

	if err := WriteMessage(p.conn, msg); err != nil {
		p.dropLocked(err)
		return err
	}
	if msg.Type == MessageCaps {
		p.capsSent = true
	}
	return nil
}

func (p *IPCProducer) dropLocked(err error) {
	p.log.Warn().Err(err).Msg("IPC downstream write failed, reconnecting on next write")
	p.conn.Close()
	p.conn = nil
}

// Close closes the downstream connection.
func (p *IPCProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}
