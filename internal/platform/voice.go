package platform

import (
	"sync"

	"github.com/bwmarrin/discordgo"

	"voxdesk/internal/audio"
)

// packetBuffer holds about three seconds of 20 ms frames.
const packetBuffer = 3 * 1000 / 20

// VoiceLink wraps one live voice connection: it pumps received opus packets
// into a channel for the recorder, tracks SSRC-to-user mapping from speaking
// updates and exposes the outbound frame sink for the player.
type VoiceLink struct {
	vc      *discordgo.VoiceConnection
	packets chan *audio.Packet

	mu       sync.RWMutex
	ssrcUser map[uint32]string
}

func newVoiceLink(vc *discordgo.VoiceConnection) *VoiceLink {
	l := &VoiceLink{
		vc:       vc,
		packets:  make(chan *audio.Packet, packetBuffer),
		ssrcUser: make(map[uint32]string),
	}
	vc.AddHandler(l.onSpeakingUpdate)
	go l.pump()
	return l
}

func (l *VoiceLink) pump() {
	for pkt := range l.vc.OpusRecv {
		select {
		case l.packets <- &audio.Packet{SSRC: pkt.SSRC, Opus: pkt.Opus}:
		default:
			// recorder not draining; drop rather than stall the gateway
		}
	}
	close(l.packets)
}

func (l *VoiceLink) onSpeakingUpdate(_ *discordgo.VoiceConnection, v *discordgo.VoiceSpeakingUpdate) {
	l.mu.Lock()
	l.ssrcUser[uint32(v.SSRC)] = v.UserID
	l.mu.Unlock()
}

// Packets is the inbound packet stream, all speakers mixed.
func (l *VoiceLink) Packets() <-chan *audio.Packet { return l.packets }

// AcceptUser returns a filter passing only userID's stream. Packets with an
// SSRC not yet mapped by a speaking update pass too, so the first utterance
// is not lost.
func (l *VoiceLink) AcceptUser(userID string) func(uint32) bool {
	return func(ssrc uint32) bool {
		l.mu.RLock()
		owner, known := l.ssrcUser[ssrc]
		l.mu.RUnlock()
		return !known || owner == userID
	}
}

// Speaking toggles the bot's speaking indicator.
func (l *VoiceLink) Speaking(b bool) error { return l.vc.Speaking(b) }

// Frames is the outbound opus frame sink.
func (l *VoiceLink) Frames() chan<- []byte { return l.vc.OpusSend }

// Disconnect releases the voice connection.
func (l *VoiceLink) Disconnect() error { return l.vc.Disconnect() }
