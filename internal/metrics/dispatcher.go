package metrics

import (
	"log/slog"
	"sync"

	"github.com/speedsleuth/speed-sleuth/internal/models"
)

// Dispatcher distributes run records to all output modules
type Dispatcher struct {
	outputs []Output
	mu      sync.RWMutex
}

// Output is an interface for run-record output modules
type Output interface {
	// Write sends a run record to the output
	Write(record *models.RunRecord) error

	// Name returns the output module name
	Name() string
}

// NewDispatcher creates a new record dispatcher
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		outputs: make([]Output, 0),
	}
}

// RegisterOutput adds an output module to the dispatcher
func (d *Dispatcher) RegisterOutput(output Output) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outputs = append(d.outputs, output)
}

// Dispatch sends a record to all registered outputs.
// Outputs are called in parallel so one slow sink cannot block the rest.
func (d *Dispatcher) Dispatch(record *models.RunRecord) {
	d.mu.RLock()
	outputs := make([]Output, len(d.outputs))
	copy(outputs, d.outputs)
	d.mu.RUnlock()

	var wg sync.WaitGroup
	for _, output := range outputs {
		wg.Add(1)
		go func(o Output) {
			defer wg.Done()
			if err := o.Write(record); err != nil {
				// A failing output must not fail the dispatch
				slog.Warn("Output write failed", "output", o.Name(), "error", err)
			}
		}(output)
	}

	wg.Wait()
}
