package player

import "sync"

// GuildQueue is the playback session of one guild.
type GuildQueue struct {
	GuildID        string
	TextChannelID  string
	VoiceChannelID string

	// Volume and Playing are recorded but not used by playback.
	Volume  int
	Playing bool

	mu     sync.Mutex
	songs  []entry
	closed bool // set once teardown has begun

	conn Connection
	// player is owned by the guild's event loop goroutine.
	player *AudioPlayer

	interrupt chan struct{}
	ended     chan *AudioPlayer
	done      chan struct{}
}

func newGuildQueue(guildID, voiceChannelID, textChannelID string, first entry) *GuildQueue {
	return &GuildQueue{
		GuildID:        guildID,
		TextChannelID:  textChannelID,
		VoiceChannelID: voiceChannelID,
		Volume:         DefaultVolume,
		Playing:        true,
		songs:          []entry{first},
		interrupt:      make(chan struct{}, 1),
		ended:          make(chan *AudioPlayer, 1),
		done:           make(chan struct{}),
	}
}

// signal asks the event loop to stop the active player.
func (gq *GuildQueue) signal() {
	select {
	case gq.interrupt <- struct{}{}:
	default:
	}
}

func (gq *GuildQueue) head() (entry, bool) {
	gq.mu.Lock()
	defer gq.mu.Unlock()
	if len(gq.songs) == 0 {
		return entry{}, false
	}
	return gq.songs[0], true
}

func (gq *GuildQueue) isHead(seq uint64) bool {
	gq.mu.Lock()
	defer gq.mu.Unlock()
	return len(gq.songs) > 0 && gq.songs[0].seq == seq
}

// dropHead removes the head if it is still the entry with seq.
func (gq *GuildQueue) dropHead(seq uint64) {
	gq.mu.Lock()
	defer gq.mu.Unlock()
	if len(gq.songs) > 0 && gq.songs[0].seq == seq {
		gq.songs = gq.songs[1:]
	}
}

// closeIfEmpty marks the queue closed when no songs remain. A closed queue
// accepts no more tracks.
func (gq *GuildQueue) closeIfEmpty() bool {
	gq.mu.Lock()
	defer gq.mu.Unlock()
	if len(gq.songs) > 0 {
		return false
	}
	gq.closed = true
	gq.Playing = false
	return true
}

func (gq *GuildQueue) tracks() []Track {
	gq.mu.Lock()
	defer gq.mu.Unlock()
	if gq.closed || len(gq.songs) == 0 {
		return nil
	}
	out := make([]Track, len(gq.songs))
	for i, e := range gq.songs {
		out[i] = e.Track
	}
	return out
}
