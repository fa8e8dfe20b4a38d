// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package algebra

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/vk/optalg/internal/moderr"
)

// Container owns the namespace of declared symbols. It is the sole
// authority for name uniqueness, the keeper of the dirty set the execution
// bridge consults, and the owner of the expression arena. Symbols live as
// long as their container; disposal closes whatever engine connection the
// bridge attached, never individual symbols.
type Container struct {
	mu sync.Mutex

	symbols map[string]Symbol
	order   []string
	models  map[string]*Model
	dirty   map[string]struct{}
	queue   []Assignment

	universe *Set
	arena    *arena
	strict   bool

	closer func() error
}

// Option configures a container at construction.
type Option func(*Container)

// WithStrictRelations makes the container reject relations whose left
// operand is an unwrapped numeric literal. Recommended for
// equilibrium-class models where operand order carries meaning.
func WithStrictRelations() Option {
	return func(c *Container) { c.strict = true }
}

// New creates an empty container with its universe set declared.
func New(opts ...Option) *Container {
	c := &Container{
		symbols: make(map[string]Symbol),
		models:  make(map[string]*Model),
		dirty:   make(map[string]struct{}),
		arena:   &arena{},
	}
	for _, opt := range opts {
		opt(c)
	}
	u := &Set{symbolBase: symbolBase{c: c, name: "*"}, universe: true, ordinals: map[string]int{}}
	c.universe = u
	c.symbols["*"] = u
	return c
}

// Universe returns the wildcard set: a domain position declared over it
// accepts any label.
func (c *Container) Universe() *Set { return c.universe }

// Strict reports whether strict relational mode is on.
func (c *Container) Strict() bool { return c.strict }

// autoName generates a collision-free synthetic name for anonymous
// declarations.
func autoName(kind Kind) string {
	return strings.ToLower(kind.String()) + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// lookup returns the existing symbol when name re-declares it compatibly.
// Identity is preserved: the same object comes back, marked dirty, and the
// caller overwrites records (update semantics). Incompatible kind or
// domain fails.
func (c *Container) lookup(name string, kind Kind, domain []SetLike) (Symbol, error) {
	existing, ok := c.symbols[name]
	if !ok {
		return nil, nil
	}
	if existing.Kind() != kind {
		return nil, &moderr.SymbolRedefinitionError{
			Name:   name,
			Detail: "declared as " + existing.Kind().String() + ", redeclared as " + kind.String(),
		}
	}
	if !sameDomain(existing.Domain(), domain) {
		return nil, &moderr.SymbolRedefinitionError{
			Name:   name,
			Detail: "declared over " + domainNames(existing.Domain()) + ", redeclared over " + domainNames(domain),
		}
	}
	c.markDirtyLocked(name)
	return existing, nil
}

func (c *Container) install(name string, sym Symbol) {
	c.symbols[name] = sym
	c.order = append(c.order, name)
	c.markDirtyLocked(name)
}

// AddSet declares a set. An empty name draws a synthetic one. domain lists
// parent sets for a domain-checked subset; nil means the universe.
// Re-declaring with the same kind and domain returns the existing set.
func (c *Container) AddSet(name string, domain []SetLike, elements ...string) (*Set, error) {
	if name == "" {
		name = autoName(KindSet)
	}
	c.mu.Lock()
	existing, err := c.lookup(name, KindSet, domain)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	var s *Set
	if existing != nil {
		s = existing.(*Set)
	} else {
		s = &Set{
			symbolBase: symbolBase{c: c, name: name, domain: domain},
			ordinals:   make(map[string]int),
		}
		c.install(name, s)
	}
	c.mu.Unlock()
	if err := s.AddElements(elements...); err != nil {
		return nil, err
	}
	return s, nil
}

// AddAlias binds a new name to an existing set's element list and
// ordinals.
func (c *Container) AddAlias(name string, of SetLike) (*Alias, error) {
	if name == "" {
		name = autoName(KindAlias)
	}
	target := of.baseSet()
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.symbols[name]; ok {
		if a, isAlias := existing.(*Alias); isAlias && a.of == target {
			c.markDirtyLocked(name)
			return a, nil
		}
		return nil, &moderr.SymbolRedefinitionError{Name: name, Detail: "name already in use"}
	}
	a := &Alias{symbolBase: symbolBase{c: c, name: name}, of: target}
	c.install(name, a)
	return a, nil
}

// AddParameter declares a parameter over the given domain.
func (c *Container) AddParameter(name string, domain ...SetLike) (*Parameter, error) {
	if name == "" {
		name = autoName(KindParameter)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, err := c.lookup(name, KindParameter, domain); err != nil {
		return nil, err
	} else if existing != nil {
		return existing.(*Parameter), nil
	}
	p := &Parameter{
		symbolBase: symbolBase{c: c, name: name, domain: domain},
		records:    make(map[string]float64),
	}
	c.install(name, p)
	return p, nil
}

// AddVariable declares a variable of the given type over the given domain.
func (c *Container) AddVariable(name string, vtype VarType, domain ...SetLike) (*Variable, error) {
	if name == "" {
		name = autoName(KindVariable)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, err := c.lookup(name, KindVariable, domain); err != nil {
		return nil, err
	} else if existing != nil {
		v := existing.(*Variable)
		if v.vtype != vtype {
			return nil, &moderr.SymbolRedefinitionError{
				Name:   name,
				Detail: "declared as " + v.vtype.String() + " variable, redeclared as " + vtype.String(),
			}
		}
		return v, nil
	}
	v := &Variable{
		symbolBase: symbolBase{c: c, name: name, domain: domain},
		vtype:      vtype,
		records:    make(map[string]Attributes),
	}
	c.install(name, v)
	return v, nil
}

// AddEquation declares an equation of the given type over the given
// domain. Its definition comes later via Define.
func (c *Container) AddEquation(name string, etype EqType, domain ...SetLike) (*Equation, error) {
	if name == "" {
		name = autoName(KindEquation)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, err := c.lookup(name, KindEquation, domain); err != nil {
		return nil, err
	} else if existing != nil {
		q := existing.(*Equation)
		if q.etype != etype {
			return nil, &moderr.SymbolRedefinitionError{
				Name:   name,
				Detail: "declared as " + q.etype.String() + " equation, redeclared as " + etype.String(),
			}
		}
		return q, nil
	}
	q := &Equation{
		symbolBase: symbolBase{c: c, name: name, domain: domain},
		etype:      etype,
		records:    make(map[string]Attributes),
	}
	c.install(name, q)
	return q, nil
}

// AddModel aggregates equations into a named model. Model names are
// unique per container, shared with the symbol namespace.
func (c *Container) AddModel(name string, problem Problem, sense Sense, objective *Variable, equations ...*Equation) (*Model, error) {
	return c.addModel(name, problem, sense, objective, equations, nil)
}

// AddMatchModel builds a complementarity model from equation-variable
// pairs.
func (c *Container) AddMatchModel(name string, problem Problem, matches ...Match) (*Model, error) {
	return c.addModel(name, problem, SenseFeasibility, nil, nil, matches)
}

func (c *Container) addModel(name string, problem Problem, sense Sense, objective *Variable, equations []*Equation, matches []Match) (*Model, error) {
	if name == "" {
		name = "model_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	if err := validateModel(name, objective, sense, equations, matches); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.models[name]; ok {
		return nil, &moderr.SymbolRedefinitionError{Name: name, Detail: "model name already in use"}
	}
	if _, ok := c.symbols[name]; ok {
		return nil, &moderr.SymbolRedefinitionError{Name: name, Detail: "model name collides with a symbol"}
	}
	m := &Model{
		c: c, name: name, problem: problem, sense: sense,
		objective: objective, equations: equations, matches: matches,
	}
	c.models[name] = m
	return m, nil
}

// Symbol returns a declared symbol by name.
func (c *Container) Symbol(name string) (Symbol, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.symbols[name]
	return s, ok
}

// Symbols lists every declared symbol in declaration order, universe
// excluded.
func (c *Container) Symbols() []Symbol {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Symbol, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.symbols[name])
	}
	return out
}

// Model returns a declared model by name.
func (c *Container) Model(name string) (*Model, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.models[name]
	return m, ok
}

// markDirtyLocked records that a symbol's in-memory records diverged from
// what the engine last saw. Caller holds the container lock.
func (c *Container) markDirtyLocked(name string) {
	c.dirty[name] = struct{}{}
}

// MarkDirty records a symbol as out of sync.
func (c *Container) MarkDirty(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markDirtyLocked(name)
}

// DirtySymbols lists out-of-sync symbols in declaration order. The bridge
// consults this to avoid resending unchanged symbols.
func (c *Container) DirtySymbols() []Symbol {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Symbol, 0, len(c.dirty))
	for _, name := range c.order {
		if _, ok := c.dirty[name]; ok {
			out = append(out, c.symbols[name])
		}
	}
	return out
}

// ClearDirty removes names from the dirty set after a successful sync.
func (c *Container) ClearDirty(names ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range names {
		delete(c.dirty, n)
	}
}

// Assignment is one queued statement target: target[index](.attr) = value.
type Assignment struct {
	Target  Symbol
	Index   CanonicalIndex
	Attr    Attr
	HasAttr bool
	Value   Expr
}

func (c *Container) enqueueAssignment(a Assignment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, a)
	c.markDirtyLocked(a.Target.Name())
}

// PendingAssignments returns the queued assignments without draining
// them. The queue survives until the bridge confirms the engine applied
// the statements; see ClearAssignments.
func (c *Container) PendingAssignments() []Assignment {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Assignment, len(c.queue))
	copy(out, c.queue)
	return out
}

// ClearAssignments drops the first n queued assignments after a
// successful engine round-trip. Assignments enqueued while a solve was in
// flight stay queued.
func (c *Container) ClearAssignments(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n >= len(c.queue) {
		c.queue = nil
		return
	}
	c.queue = append([]Assignment(nil), c.queue[n:]...)
}

// MergeResultRecord folds one engine result record into the named
// symbol's store. Values carry one element for parameters and the five
// attribute fields for variables and equations. The merge does not mark
// the symbol dirty: after a readback, host and engine agree.
func (c *Container) MergeResultRecord(name string, keys []string, values []float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	sym, ok := c.symbols[name]
	if !ok {
		return &moderr.DomainViolationError{Symbol: name, Detail: "engine reported records for an undeclared symbol"}
	}
	switch s := sym.(type) {
	case *Parameter:
		if len(values) < 1 {
			return &moderr.DimensionalityError{Symbol: name, Want: 1, Got: len(values)}
		}
		return s.mergeRecord(keys, values[0])
	case *Variable:
		if len(values) < 5 {
			return &moderr.DimensionalityError{Symbol: name, Want: 5, Got: len(values)}
		}
		return s.mergeRecord(keys, Attributes{Level: values[0], Marginal: values[1], Lower: values[2], Upper: values[3], Scale: values[4]})
	case *Equation:
		if len(values) < 5 {
			return &moderr.DimensionalityError{Symbol: name, Want: 5, Got: len(values)}
		}
		return s.mergeRecord(keys, Attributes{Level: values[0], Marginal: values[1], Lower: values[2], Upper: values[3], Scale: values[4]})
	case *Set:
		if len(keys) != 1 {
			return &moderr.DimensionalityError{Symbol: name, Want: 1, Got: len(keys)}
		}
		if !s.membersLocked(keys[0]) {
			s.elements = append(s.elements, keys[0])
			s.ordinals[keys[0]] = len(s.elements)
		}
		return nil
	}
	return &moderr.DomainViolationError{Symbol: name, Detail: "symbol kind cannot receive result records"}
}

// AttachCloser registers the engine-connection shutdown hook the bridge
// installs. The container owns the connection lifecycle: open when the
// bridge binds, closed exactly once on Close.
func (c *Container) AttachCloser(fn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closer = fn
}

// Close disposes the container's engine connection, if any. Symbols stay
// readable after Close; only engine interaction ends.
func (c *Container) Close() error {
	c.mu.Lock()
	fn := c.closer
	c.closer = nil
	c.mu.Unlock()
	if fn != nil {
		return fn()
	}
	return nil
}
