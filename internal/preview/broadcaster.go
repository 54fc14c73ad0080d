// Package preview serves the masked stream to browsers over WebRTC.
//
// One VP8 sample track is shared by every viewer; each viewer gets its own
// PeerConnection, created from an SDP offer and identified by a session id.
package preview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog"
)

var (
	ErrClosed          = errors.New("preview broadcaster closed")
	ErrSessionNotFound = errors.New("preview session not found")
)

// Options configures the broadcaster.
type Options struct {
	// ICEServers are STUN/TURN URLs offered to every PeerConnection.
	ICEServers []string
}

// Broadcaster fans one encoded track out to many viewers.
type Broadcaster struct {
	config webrtc.Configuration
	track  *webrtc.TrackLocalStaticSample
	log    zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*webrtc.PeerConnection
	closed   bool
}

// NewBroadcaster creates the shared VP8 track.
func NewBroadcaster(opts Options, log zerolog.Logger) (*Broadcaster, error) {
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
		"video",
		"mask-preview",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create preview track: %w", err)
	}

	config := webrtc.Configuration{}
	if len(opts.ICEServers) > 0 {
		config.ICEServers = []webrtc.ICEServer{{URLs: opts.ICEServers}}
	}

	return &Broadcaster{
		config:   config,
		track:    track,
		log:      log.With().Str("component", "preview").Logger(),
		sessions: make(map[string]*webrtc.PeerConnection),
	}, nil
}

// HandleOffer answers a viewer's offer. The answer carries all gathered ICE
// candidates, so no trickle exchange is needed.
func (b *Broadcaster) HandleOffer(ctx context.Context, offer webrtc.SessionDescription) (webrtc.SessionDescription, string, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return webrtc.SessionDescription{}, "", ErrClosed
	}

	pc, err := webrtc.NewPeerConnection(b.config)
	if err != nil {
		return webrtc.SessionDescription{}, "", fmt.Errorf("failed to create peer connection: %w", err)
	}

	answer, err := b.negotiate(ctx, pc, offer)
	if err != nil {
		pc.Close()
		return webrtc.SessionDescription{}, "", err
	}

	id := uuid.NewString()
	log := b.log.With().Str("session_id", id).Logger()

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Debug().Str("state", state.String()).Msg("peer connection state changed")
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			b.CloseSession(id)
		}
	})

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		pc.Close()
		return webrtc.SessionDescription{}, "", ErrClosed
	}
	b.sessions[id] = pc
	count := len(b.sessions)
	b.mu.Unlock()

	log.Info().Int("viewers", count).Msg("preview session opened")
	return answer, id, nil
}

func (b *Broadcaster) negotiate(ctx context.Context, pc *webrtc.PeerConnection, offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	sender, err := pc.AddTrack(b.track)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("failed to add track: %w", err)
	}

	// Drain RTCP so interceptors keep working
	go func() {
		buf := make([]byte, 1500)
		for {
			if _, _, err := sender.Read(buf); err != nil {
				return
			}
		}
	}()

	if err := pc.SetRemoteDescription(offer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("invalid offer: %w", err)
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("failed to create answer: %w", err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("failed to set local description: %w", err)
	}

	select {
	case <-gatherComplete:
	case <-ctx.Done():
		return webrtc.SessionDescription{}, ctx.Err()
	}

	return *pc.LocalDescription(), nil
}

// WriteSample sends one encoded frame to every connected viewer.
func (b *Broadcaster) WriteSample(data []byte, duration time.Duration) error {
	return b.track.WriteSample(media.Sample{Data: data, Duration: duration})
}

// CloseSession closes one viewer's connection.
func (b *Broadcaster) CloseSession(id string) error {
	b.mu.Lock()
	pc, ok := b.sessions[id]
	delete(b.sessions, id)
	count := len(b.sessions)
	b.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	b.log.Info().Str("session_id", id).Int("viewers", count).Msg("preview session closed")
	return pc.Close()
}

// Sessions returns the number of open viewer sessions.
func (b *Broadcaster) Sessions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

// Close closes every session. Further offers fail with ErrClosed.
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	b.closed = true
	sessions := b.sessions
	b.sessions = make(map[string]*webrtc.PeerConnection)
	b.mu.Unlock()

	var errs []error
	for _, pc := range sessions {
		if err := pc.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
