package eson

import (
	"reflect"
	"sort"
	"strings"
	"sync"
)

// TagHandler converts the inner value of a tag into the decoded result.
type TagHandler func(inner *Value) (*Value, error)

// Namespace is a registry entry holding child entries. A non-empty
// Namespace is installed as a whole subtree.
type Namespace map[string]Entry

// Entry is a TagHandler or a Namespace.
type Entry interface {
	isEntry()
}

func (TagHandler) isEntry() {}
func (Namespace) isEntry()  {}

// TagEncoder converts an application object into an ESON value, usually
// a tag built with NewTag.
type TagEncoder func(v any) (*Value, error)

// TagMarshaler is implemented by types that know their own tag form.
type TagMarshaler interface {
	MarshalESONTag() (*Value, error)
}

// CoreNamespace is reserved for the tags bundled with ESON.
const CoreNamespace = "core"

const (
	rootIndex int32 = 0
	noIndex   int32 = -1
)

// node is one slot of the registry arena. children is non-nil exactly
// for namespaces.
type node struct {
	name     string
	parent   int32
	children map[string]int32
	handler  TagHandler
}

// Registry maps '/'-delimited tag paths to handlers and Go types to tag
// encoders. Namespace nodes live in an arena addressed by index.
//
// A Registry is safe for concurrent use, but it is meant to be populated
// before decoding and encoding start.
type Registry struct {
	mu       sync.RWMutex
	nodes    []node
	free     []int32
	encoders map[reflect.Type]TagEncoder
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		nodes:    []node{{parent: noIndex, children: map[string]int32{}}},
		encoders: map[reflect.Type]TagEncoder{},
	}
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process-wide registry used when options do
// not name one. It starts with the reserved core namespace.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		r := NewRegistry()
		if err := r.Register(CoreNamespace, Namespace{}); err != nil {
			panic("eson: default registry initialization failed: " + err.Error())
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// ValidPath reports whether path is one or more [A-Za-z0-9_]+ segments
// joined by '/'.
func ValidPath(path string) bool {
	if path == "" {
		return false
	}
	seg := 0
	for i := 0; i < len(path); i++ {
		c := path[i]
		switch {
		case isPathChar(c):
			seg++
		case c == '/' && seg > 0:
			seg = 0
		default:
			return false
		}
	}
	return seg > 0
}

func isPathChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

// walk follows segs from the root. It returns noIndex if any segment is
// missing or crosses a handler.
func (r *Registry) walk(segs []string) int32 {
	idx := rootIndex
	for _, s := range segs {
		children := r.nodes[idx].children
		if children == nil {
			return noIndex
		}
		next, ok := children[s]
		if !ok {
			return noIndex
		}
		idx = next
	}
	return idx
}

// Register installs e at path. Every ancestor of path must already be a
// namespace and path itself must be free.
func (r *Registry) Register(path string, e Entry) error {
	if !ValidPath(path) {
		return registryError(ErrInvalidPath, path)
	}
	if err := validateEntry(path, e); err != nil {
		return err
	}
	segs := strings.Split(path, "/")
	name := segs[len(segs)-1]

	r.mu.Lock()
	parent := r.walk(segs[:len(segs)-1])
	if parent == noIndex || r.nodes[parent].children == nil {
		r.mu.Unlock()
		return registryError(ErrParentMissing, path)
	}
	if _, taken := r.nodes[parent].children[name]; taken {
		r.mu.Unlock()
		return registryError(ErrPathInUse, path)
	}
	r.install(parent, name, e)
	r.mu.Unlock()

	CurrentLogger().Debug("eson: tag path registered", Fields{"path": path, "namespace": isNamespace(e)})
	return nil
}

func isNamespace(e Entry) bool {
	_, ok := e.(Namespace)
	return ok
}

func validateEntry(path string, e Entry) error {
	switch x := e.(type) {
	case TagHandler:
		if x == nil {
			return registryError(ErrInvalidPath, path+" (nil handler)")
		}
	case Namespace:
		for name, child := range x {
			if name == "" || strings.IndexFunc(name, func(c rune) bool { return c > 0x7f || !isPathChar(byte(c)) }) >= 0 {
				return registryError(ErrInvalidPath, path+"/"+name)
			}
			if err := validateEntry(path+"/"+name, child); err != nil {
				return err
			}
		}
	default:
		return registryError(ErrInvalidPath, path+" (unknown entry)")
	}
	return nil
}

func (r *Registry) install(parent int32, name string, e Entry) {
	n := node{name: name, parent: parent}
	ns, isNS := e.(Namespace)
	if isNS {
		n.children = make(map[string]int32, len(ns))
	} else {
		n.handler = e.(TagHandler)
	}
	idx := r.alloc(n)
	r.nodes[parent].children[name] = idx
	for child, entry := range ns {
		r.install(idx, child, entry)
	}
}

func (r *Registry) alloc(n node) int32 {
	if k := len(r.free); k > 0 {
		idx := r.free[k-1]
		r.free = r.free[:k-1]
		r.nodes[idx] = n
		return idx
	}
	r.nodes = append(r.nodes, n)
	return int32(len(r.nodes) - 1)
}

// Resolve returns the handler registered at path. Missing segments and
// namespaces report false.
func (r *Registry) Resolve(path string) (TagHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx := r.walk(strings.Split(path, "/"))
	if idx == noIndex || r.nodes[idx].handler == nil {
		return nil, false
	}
	return r.nodes[idx].handler, true
}

// Has reports whether a handler or namespace exists at path.
func (r *Registry) Has(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.walk(strings.Split(path, "/")) != noIndex
}

// Delete removes path and everything beneath it. Deleting a missing path
// is a no-op.
func (r *Registry) Delete(path string) {
	segs := strings.Split(path, "/")
	name := segs[len(segs)-1]

	r.mu.Lock()
	parent := r.walk(segs[:len(segs)-1])
	if parent == noIndex || r.nodes[parent].children == nil {
		r.mu.Unlock()
		return
	}
	idx, ok := r.nodes[parent].children[name]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.nodes[parent].children, name)
	freed := r.release(idx)
	r.mu.Unlock()

	CurrentLogger().Debug("eson: tag path deleted", Fields{"path": path, "nodes": freed})
}

// release returns the subtree rooted at idx to the free list.
func (r *Registry) release(idx int32) int {
	stack := []int32{idx}
	freed := 0
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range r.nodes[cur].children {
			stack = append(stack, child)
		}
		r.nodes[cur] = node{}
		r.free = append(r.free, cur)
		freed++
	}
	return freed
}

// Paths lists every registered path in sorted order. Namespaces are
// listed with a trailing '/'.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	var visit func(idx int32, prefix string)
	visit = func(idx int32, prefix string) {
		for name, child := range r.nodes[idx].children {
			p := prefix + name
			if r.nodes[child].children != nil {
				out = append(out, p+"/")
				visit(child, p+"/")
			} else {
				out = append(out, p)
			}
		}
	}
	visit(rootIndex, "")
	sort.Strings(out)
	return out
}

// ============================================================
// Type encoders
// ============================================================

// RegisterEncoder installs fn as the tag encoder for values of type t.
func (r *Registry) RegisterEncoder(t reflect.Type, fn TagEncoder) error {
	if t == nil || fn == nil {
		return registryError(ErrInvalidPath, "<nil encoder>")
	}
	r.mu.Lock()
	if _, taken := r.encoders[t]; taken {
		r.mu.Unlock()
		return registryError(ErrTypeRegistered, t.String())
	}
	r.encoders[t] = fn
	r.mu.Unlock()

	CurrentLogger().Debug("eson: type encoder registered", Fields{"type": t.String()})
	return nil
}

// RegisterType installs a typed tag encoder for T.
func RegisterType[T any](r *Registry, fn func(T) (*Value, error)) error {
	return r.RegisterEncoder(reflect.TypeOf((*T)(nil)).Elem(), func(v any) (*Value, error) {
		return fn(v.(T))
	})
}

// DeleteEncoder removes the tag encoder for t, if any.
func (r *Registry) DeleteEncoder(t reflect.Type) {
	r.mu.Lock()
	delete(r.encoders, t)
	r.mu.Unlock()
}

func (r *Registry) encoderFor(t reflect.Type) (TagEncoder, bool) {
	r.mu.RLock()
	fn, ok := r.encoders[t]
	r.mu.RUnlock()
	return fn, ok
}

// ============================================================
// Strategies
// ============================================================

// Strategy turns a parsed tag into the decoded value.
//
// RegistryStrategy(r, fallback)(path, inner) equals h(inner) when
// r.Resolve(path) returns h, and fallback(path, inner) otherwise, so
// per-path handlers and whole-document strategies are interchangeable.
type Strategy func(path string, inner *Value) (*Value, error)

// ErrorStrategy rejects every tag.
func ErrorStrategy(path string, _ *Value) (*Value, error) {
	return nil, &Error{Kind: KindTagLookup, Detail: "tag " + path + " not registered", Cause: ErrTagNotRegistered}
}

// IgnoreStrategy drops the tag and keeps its inner value.
func IgnoreStrategy(_ string, inner *Value) (*Value, error) {
	return inner, nil
}

// StructStrategy keeps every tag as a tag value.
func StructStrategy(path string, inner *Value) (*Value, error) {
	return NewTag(path, inner), nil
}

// RegistryStrategy dispatches tags to the handlers in r, deferring to
// fallback for unregistered paths. A nil fallback means ErrorStrategy.
func RegistryStrategy(r *Registry, fallback Strategy) Strategy {
	if fallback == nil {
		fallback = ErrorStrategy
	}
	return func(path string, inner *Value) (*Value, error) {
		if h, ok := r.Resolve(path); ok {
			return h(inner)
		}
		return fallback(path, inner)
	}
}
