// Package passes hosts design-to-design transformations that run
// before emission.
package passes

import (
	"fmt"

	"netfir/internal/rtl"
)

// Pass is a named transformation over a whole design.
type Pass interface {
	Name() string
	Run(design *rtl.Design) error
}

// Manager runs a sequence of passes in registration order.
type Manager struct {
	passes []Pass
}

// NewManager returns an empty pass manager.
func NewManager() *Manager {
	return &Manager{}
}

// Add appends a pass to the pipeline.
func (m *Manager) Add(p Pass) {
	m.passes = append(m.passes, p)
}

// Run executes the pipeline, stopping at the first failing pass.
func (m *Manager) Run(design *rtl.Design) error {
	if design == nil {
		return fmt.Errorf("passes: design is nil")
	}
	for _, p := range m.passes {
		if err := p.Run(design); err != nil {
			return fmt.Errorf("passes: %s: %w", p.Name(), err)
		}
	}
	return nil
}
