package chapters

import "sync"

// params are the model call parameters that follow config reloads.
type params struct {
	mu              sync.RWMutex
	maxContextChars int
	temperature     float64
}

func (p *params) init(cfg Config) {
	p.SetMaxContextChars(cfg.MaxContextChars)
	p.SetTemperature(*cfg.Temperature)
}

// SetMaxContextChars changes the character budget for book text sent to the
// model. Values <= 0 restore DefaultMaxContextChars.
func (p *params) SetMaxContextChars(n int) {
	if n <= 0 {
		n = DefaultMaxContextChars
	}
	p.mu.Lock()
	p.maxContextChars = n
	p.mu.Unlock()
}

// SetTemperature changes the sampling temperature. Zero is kept; negative
// values restore DefaultTemperature.
func (p *params) SetTemperature(v float64) {
	if v < 0 {
		v = DefaultTemperature
	}
	p.mu.Lock()
	p.temperature = v
	p.mu.Unlock()
}

func (p *params) current() (maxContextChars int, temperature float64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.maxContextChars, p.temperature
}
