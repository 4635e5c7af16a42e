// Package inmemfake is an in-process reasonerclient.Reasoner used by
// tests and local development: it never leaves the process, answers
// solves from a caller-configured table, and exercises the same
// registration-dedup path a real sidecar client would.
package inmemfake

import (
	"context"
	"fmt"
	"sync"

	"github.com/antigravity-dev/ember/internal/canon"
	"github.com/antigravity-dev/ember/internal/reasonerclient"
	"golang.org/x/sync/singleflight"
)

// Responder answers one Solve call for a given payload.
type Responder func(reasonerclient.SolvePayload) (reasonerclient.SolveResult, error)

// Reasoner is the in-memory fake.
type Reasoner struct {
	mu           sync.Mutex
	nonce        uint64
	initialized  bool
	destroyed    bool
	registered   map[string]reasonerclient.Declaration
	defaultReply reasonerclient.SolveResult
	responders   map[string]Responder // keyed by "<item>:<strategy>"

	group singleflight.Group
}

// New constructs a Reasoner that reports unsolved by default until a
// responder is registered via OnSolve.
func New() *Reasoner {
	return &Reasoner{
		registered:   make(map[string]reasonerclient.Declaration),
		responders:   make(map[string]Responder),
		defaultReply: reasonerclient.SolveResult{SolutionFound: false},
	}
}

// OnSolve registers a canned responder for payload.Item/payload.Strategy.
func (r *Reasoner) OnSolve(item, strategy string, fn Responder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responders[item+":"+strategy] = fn
}

func (r *Reasoner) IsAvailable(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initialized && !r.destroyed
}

func (r *Reasoner) ConnectionNonce() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nonce
}

func (r *Reasoner) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initialized = true
	r.destroyed = false
	r.nonce++
	return nil
}

func (r *Reasoner) Destroy(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destroyed = true
	r.initialized = false
	return nil
}

// RegisterDomainDeclaration dedupes concurrent registrations for the
// same solver/nonce pair via singleflight, so a burst of identical
// registration calls hits the bookkeeping exactly once.
func (r *Reasoner) RegisterDomainDeclaration(ctx context.Context, decl reasonerclient.Declaration, digest canon.Hash) (reasonerclient.RegisterResult, error) {
	nonce := r.ConnectionNonce()
	key := fmt.Sprintf("%s:%d", decl.SolverID, nonce)

	v, err, _ := r.group.Do(key, func() (any, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if !r.initialized {
			return reasonerclient.RegisterResult{Success: false, Error: "reasoner not initialized"}, nil
		}
		r.registered[decl.SolverID] = decl
		return reasonerclient.RegisterResult{Success: true}, nil
	})
	if err != nil {
		return reasonerclient.RegisterResult{}, err
	}
	return v.(reasonerclient.RegisterResult), nil
}

// Solve dispatches to a registered responder for payload.Item/Strategy,
// or returns the default unsolved reply.
func (r *Reasoner) Solve(ctx context.Context, payload reasonerclient.SolvePayload, onStep func(reasonerclient.StepEvent)) (reasonerclient.SolveResult, error) {
	r.mu.Lock()
	fn, ok := r.responders[payload.Item+":"+payload.Strategy]
	def := r.defaultReply
	r.mu.Unlock()

	if !ok {
		return def, nil
	}
	return fn(payload)
}
