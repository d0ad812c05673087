package radio

import "sync"

// Player is the audio back end the radio commands drive.
type Player interface {
	Play()
	Stop()
	Next()
	Previous()
	// SetIndex selects a source; false when i is out of range.
	SetIndex(i int) bool
	Index() int
	// Source returns the URL or path of the selected source.
	Source() string
	// Sources lists every selectable source in order.
	Sources() []string
	Volume() float64 // 0..1
	SetVolume(v float64)
	Active() bool
}

// Playlist is an in-memory Player over a fixed list of stations. It
// tracks state only; nothing is decoded.
type Playlist struct {
	mu       sync.Mutex
	stations []string
	idx      int
	volume   float64
	playing  bool
}

// NewPlaylist returns a stopped playlist at the first station with
// volume at one half.
func NewPlaylist(stations ...string) *Playlist {
	return &Playlist{stations: stations, volume: 0.5}
}

func (p *Playlist) Play() {
	p.mu.Lock()
	p.playing = len(p.stations) > 0
	p.mu.Unlock()
}

func (p *Playlist) Stop() {
	p.mu.Lock()
	p.playing = false
	p.mu.Unlock()
}

func (p *Playlist) Next()     { p.step(1) }
func (p *Playlist) Previous() { p.step(-1) }

func (p *Playlist) step(d int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.stations); n > 0 {
		p.idx = ((p.idx+d)%n + n) % n
	}
}

func (p *Playlist) SetIndex(i int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.stations) {
		return false
	}
	p.idx = i
	return true
}

func (p *Playlist) Index() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idx
}

func (p *Playlist) Source() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.stations) == 0 {
		return ""
	}
	return p.stations[p.idx]
}

func (p *Playlist) Sources() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.stations...)
}

func (p *Playlist) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

func (p *Playlist) SetVolume(v float64) {
	p.mu.Lock()
	p.volume = min(max(v, 0), 1)
	p.mu.Unlock()
}

func (p *Playlist) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}
