// Package game implements a falling-fruit game driven by hand boxes.
package game

import (
	"image"
	"sync"
	"time"
)

// Kind is a fruit variety.
type Kind string

const (
	Apple      Kind = "apple"
	Banana     Kind = "banana"
	Orange     Kind = "orange"
	Pear       Kind = "pear"
	Watermelon Kind = "watermelon"
)

// Kinds lists every fruit variety in spawn order.
var Kinds = []Kind{Apple, Banana, Orange, Pear, Watermelon}

// Fruit is one falling fruit. X and Y are the centre in display pixels.
type Fruit struct {
	Kind  Kind `json:"kind"`
	X     int  `json:"x"`
	Y     int  `json:"y"`
	Speed int  `json:"speed"`
	Size  int  `json:"size"`
	Cut   bool `json:"cut"`
}

// Box returns the fruit's collision box.
func (f Fruit) Box() image.Rectangle {
	half := f.Size / 2
	return image.Rect(f.X-half, f.Y-half, f.X-half+f.Size, f.Y-half+f.Size)
}

// Config holds game options.
type Config struct {
	Width       int
	Height      int
	SpawnDelay  time.Duration
	Speed       int
	FruitSize   int
	SpawnMargin int
}

// DefaultConfig returns the settings for a 1280x720 display.
func DefaultConfig() Config {
	return Config{
		Width:       1280,
		Height:      720,
		SpawnDelay:  2 * time.Second,
		Speed:       5,
		FruitSize:   60,
		SpawnMargin: 50,
	}
}

// Rand is the random source used for spawning; *rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

// State is a copy of the game for rendering and status.
type State struct {
	Fruits []Fruit `json:"fruits"`
	Score  int     `json:"score"`
	Missed int     `json:"missed"`
}

// Game holds the fruits in play and the score.
type Game struct {
	config    Config
	rng       Rand
	mu        sync.Mutex
	fruits    []Fruit
	lastSpawn time.Time
	score     int
	missed    int
}

// New creates a game. Call Start before the first Update.
func New(config Config, rng Rand) *Game {
	return &Game{config: config, rng: rng}
}

// Start clears the board and starts the spawn timer at now.
func (g *Game) Start(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.fruits = nil
	g.score = 0
	g.missed = 0
	g.lastSpawn = now
}

// Update advances the game by one tick: spawn, move, collide, then remove
// fruits that fell off the bottom edge.
func (g *Game) Update(now time.Time, hands []image.Rectangle) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if now.Sub(g.lastSpawn) >= g.config.SpawnDelay {
		g.spawn()
		g.lastSpawn = now
	}

	kept := g.fruits[:0]
	for _, f := range g.fruits {
		f.Y += f.Speed

		if !f.Cut && collides(f.Box(), hands) {
			f.Cut = true
			g.score++
		}

		if f.Box().Min.Y > g.config.Height {
			if !f.Cut {
				g.missed++
			}
			continue
		}
		kept = append(kept, f)
	}
	g.fruits = kept
}

func (g *Game) spawn() {
	lo := g.config.SpawnMargin
	hi := g.config.Width - g.config.SpawnMargin
	x := lo
	if hi > lo {
		x = lo + g.rng.Intn(hi-lo+1)
	}

	g.fruits = append(g.fruits, Fruit{
		Kind:  Kinds[g.rng.Intn(len(Kinds))],
		X:     x,
		Y:     0,
		Speed: g.config.Speed,
		Size:  g.config.FruitSize,
	})
}

func collides(box image.Rectangle, hands []image.Rectangle) bool {
	for _, h := range hands {
		if box.Overlaps(h) {
			return true
		}
	}
	return false
}

// State returns a copy of the current game.
func (g *Game) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()

	return State{
		Fruits: append([]Fruit(nil), g.fruits...),
		Score:  g.score,
		Missed: g.missed,
	}
}
