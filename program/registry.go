package program

import (
	"fmt"
	"sync"

	"github.com/tos-network/r1vault/common"
)

// Program is implemented by every executable registered with a host.
type Program interface {
	ID() common.Address
	Execute(ctx *Context, data []byte) error
}

// Registry maps program IDs to their implementation.
type Registry struct {
	mu       sync.RWMutex
	programs map[common.Address]Program
}

// DefaultRegistry is the process-wide program registry. Program packages add
// themselves to it from init.
var DefaultRegistry = NewRegistry()

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{programs: make(map[common.Address]Program)}
}

// Register adds a program to the registry.
func (r *Registry) Register(p Program) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := p.ID()
	if _, ok := r.programs[id]; ok {
		return fmt.Errorf("%w: %s", ErrProgramRegistered, id)
	}
	r.programs[id] = p
	return nil
}

// MustRegister is like Register but panics on duplicates.
func (r *Registry) MustRegister(p Program) {
	if err := r.Register(p); err != nil {
		panic(err)
	}
}

// Lookup returns the program registered under id.
func (r *Registry) Lookup(id common.Address) (Program, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.programs[id]
	return p, ok
}

// Programs returns the IDs of all registered programs.
func (r *Registry) Programs() []common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]common.Address, 0, len(r.programs))
	for id := range r.programs {
		ids = append(ids, id)
	}
	return ids
}

// Execute dispatches data to the program named by ctx.ProgramID.
func (r *Registry) Execute(ctx *Context, data []byte) error {
	p, ok := r.Lookup(ctx.ProgramID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProgram, ctx.ProgramID)
	}
	return p.Execute(ctx, data)
}

// ErrorCode maps a failure of the program at id to its custom error code.
func (r *Registry) ErrorCode(id common.Address, err error) (uint32, bool) {
	p, ok := r.Lookup(id)
	if !ok {
		return 0, false
	}
	coder, ok := p.(ErrorCoder)
	if !ok {
		return 0, false
	}
	return coder.ErrorCode(err)
}

// Precompile is a program whose instructions the host checks before any
// instruction of the batch executes.
type Precompile interface {
	Program
	Verify(data []byte) error
	SignatureCount(data []byte) int
}

// ErrorCoder is implemented by programs that map their failures to stable
// custom error codes.
type ErrorCoder interface {
	ErrorCode(err error) (uint32, bool)
}
