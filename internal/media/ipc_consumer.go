package media

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Handler receives stream events in arrival order. Calls are synchronous:
// the frame buffer belongs to the handler only until HandleFrame returns.
type Handler interface {
	HandleCaps(width, height int) error
	HandleFrame(frame *RawFrame) error
	HandleEOS() error
}

// IPCConsumer listens for raw frames from the capture service and hands
// them to a Handler. Producers are served one at a time in accept order: a
// second producer waits in the listen backlog until the current one
// disconnects, so Handler calls never interleave.
type IPCConsumer struct {
	socketPath string
	handler    Handler
	log        zerolog.Logger

	mu       sync.Mutex
	listener net.Listener
	conn     net.Conn
	running  bool
	stopChan chan struct{}
	done     chan struct{}
}

// NewIPCConsumer creates a new IPC consumer
func NewIPCConsumer(socketPath string, handler Handler, log zerolog.Logger) *IPCConsumer {
	return &IPCConsumer{
		socketPath: socketPath,
		handler:    handler,
		log:        log.With().Str("component", "ipc_consumer").Str("socket", socketPath).Logger(),
	}
}

// Start begins listening for connections and reading frames. A stopped
// consumer may be started again.
func (c *IPCConsumer) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return fmt.Errorf("already running")
	}

	// A stale socket file from a previous run blocks Listen
	os.Remove(c.socketPath)

	listener, err := net.Listen("unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", c.socketPath, err)
	}

	c.listener = listener
	c.running = true
	c.stopChan = make(chan struct{})
	c.done = make(chan struct{})

	c.log.Info().Msg("IPC listening")
	go c.acceptLoop(listener, c.stopChan, c.done)

	return nil
}

func (c *IPCConsumer) acceptLoop(listener net.Listener, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-stop:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			c.log.Warn().Err(err).Msg("IPC accept error")
			continue
		}

		// Track the connection so Stop can interrupt a blocked read.
		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()

		c.handleConnection(conn, stop)
	}
}

func (c *IPCConsumer) handleConnection(conn net.Conn, stop <-chan struct{}) {
	log := c.log.With().Str("conn_id", uuid.NewString()).Logger()
	log.Info().Msg("IPC producer connected")

	header := make([]byte, HeaderSize)
	frameCount := 0
	failedCount := 0

	defer func() {
		conn.Close()
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		log.Info().Int("frames", frameCount).Int("failed", failedCount).Msg("IPC producer disconnected")
	}()

	for {
		select {
		case <-stop:
			return
		default:
		}

		msg, err := ReadMessage(conn, header)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Warn().Err(err).Msg("IPC read error")
			}
			return
		}

		switch msg.Type {
		case MessageCaps:
			width, height, err := DecodeCaps(msg.Payload)
			if err != nil {
				log.Warn().Err(err).Msg("IPC caps ignored")
				continue
			}
			if err := c.handler.HandleCaps(width, height); err != nil {
				log.Error().Err(err).Int("width", width).Int("height", height).Msg("caps rejected")
			}

		case MessageFrame:
			frame := RawFrame{PTS: msg.PTS, Flags: msg.Flags, Data: msg.Payload}
			frameCount++
			if err := c.handler.HandleFrame(&frame); err != nil {
				failedCount++
				log.Debug().Err(err).Int64("pts", msg.PTS).Msg("frame not forwarded")
			}
			// Log periodically
			if frameCount%300 == 0 {
				log.Info().Int("frames", frameCount).Int("failed", failedCount).
					Int("bytes", len(msg.Payload)).Msg("IPC frames received")
			}

		case MessageEOS:
			if err := c.handler.HandleEOS(); err != nil {
				log.Warn().Err(err).Msg("EOS not forwarded")
			}

		default:
			log.Warn().Uint8("type", uint8(msg.Type)).Msg("IPC unknown message type")
		}
	}
}

// Stop closes the listener and the current connection, waits for the
// in-flight frame to finish, and removes the socket file.
func (c *IPCConsumer) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}

	c.running = false
	close(c.stopChan)
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.listener.Close()
	c.listener = nil
	done := c.done
	c.mu.Unlock()

	<-done
	os.Remove(c.socketPath)

	c.log.Info().Msg("IPC consumer stopped")
	return nil
}

// IsRunning returns whether the consumer is running
func (c *IPCConsumer) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
