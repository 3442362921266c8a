// Package fake provides a scripted biometric.Gate for tests.
package fake

import (
	"context"
	"sync"

	"github.com/jrsteele09/moneyguard/biometric"
)

// Result is one scripted challenge outcome.
type Result struct {
	OK  bool
	Err error
}

// Gate returns fixed capabilities and replays scripted challenge results.
// When the script runs out every further challenge succeeds.
type Gate struct {
	mu        sync.Mutex
	Caps      biometric.Capabilities
	CapsErr   error
	CapsCalls int
	Prompts   []string
	script    []Result
}

var _ biometric.Gate = (*Gate)(nil)

// Enrolled returns a gate with fingerprint hardware enrolled.
func Enrolled(results ...Result) *Gate {
	return &Gate{
		Caps: biometric.Capabilities{
			HasHardware: true,
			IsEnrolled:  true,
			Kinds:       []biometric.AuthKind{biometric.Fingerprint},
		},
		script: results,
	}
}

// NotEnrolled returns a gate with hardware but nothing enrolled.
func NotEnrolled() *Gate {
	return &Gate{Caps: biometric.Capabilities{HasHardware: true}}
}

// NoHardware returns a gate on a device without biometric hardware.
func NoHardware() *Gate {
	return &Gate{}
}

func (g *Gate) Capabilities(ctx context.Context) (biometric.Capabilities, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.CapsCalls++
	return g.Caps, g.CapsErr
}

func (g *Gate) Challenge(ctx context.Context, prompt string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Prompts = append(g.Prompts, prompt)
	if len(g.script) == 0 {
		return true, nil
	}
	r := g.script[0]
	g.script = g.script[1:]
	return r.OK, r.Err
}

// Challenges returns how many challenges were presented.
func (g *Gate) Challenges() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Prompts)
}
