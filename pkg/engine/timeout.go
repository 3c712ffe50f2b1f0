package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/chazu/trilat/pkg/scene"
)

// DefaultEvalTimeout is the limit for a single evaluation unless the
// engine is built WithTimeout.
const DefaultEvalTimeout = 5 * time.Second

var (
	// ErrTimeout reports an evaluation that ran past the engine's limit.
	ErrTimeout = errors.New("evaluation timed out")
	// ErrSuperseded reports a result dropped because a later Evaluate call
	// started before it finished.
	ErrSuperseded = errors.New("evaluation superseded by newer request")
)

// outcome is what the evaluation goroutine hands back to Evaluate.
type outcome struct {
	scene  *scene.Scene
	errors []EvalError
	err    error
}

// begin starts a new generation and returns its number.
func (e *Engine) begin() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.generation++
	return e.generation
}

func (e *Engine) latest() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

// await blocks for the outcome of generation gen. A goroutine still running
// after the limit is abandoned; whatever it sends later lands in the
// buffered channel and is never read.
func (e *Engine) await(ch <-chan outcome, gen uint64) (*scene.Scene, []EvalError, error) {
	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
	case out := <-ch:
		if gen != e.latest() {
			return nil, nil, ErrSuperseded
		}
		return out.scene, out.errors, out.err
	}
}
