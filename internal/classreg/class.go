// Package classreg keeps a process-wide table of named classes and lets
// other packages continue a class: attach members to it from outside the
// package that declared it, without touching its identity attributes.
package classreg

import (
	"sort"
	"strings"
	"sync"
)

// MemberKind distinguishes how a member is meant to be used.
type MemberKind int

const (
	Attribute MemberKind = iota
	Method
	ClassMethod
	Property
)

func (k MemberKind) String() string {
	switch k {
	case Method:
		return "method"
	case ClassMethod:
		return "classmethod"
	case Property:
		return "property"
	default:
		return "attribute"
	}
}

// Member is a single entry of a class's member table. Members are compared
// by pointer identity.
type Member struct {
	Kind  MemberKind
	Value any
}

// Intrinsic attribute names carried by every class.
const (
	AttrName     = "__name__"
	AttrQualName = "__qualname__"
	AttrModule   = "__module__"
	AttrDoc      = "__doc__"
)

// intrinsicAttributes are never transferred by Continue.
var intrinsicAttributes = map[string]struct{}{
	"__qualname__":     {},
	"__module__":       {},
	"__metaclass__":    {},
	"__dict__":         {},
	"__weakref__":      {},
	"__class__":        {},
	"__subclasshook__": {},
	"__name__":         {},
	"__doc__":          {},
}

// IsIntrinsic reports whether name is one of the identity attributes that
// augmentation preserves.
func IsIntrinsic(name string) bool {
	_, ok := intrinsicAttributes[name]
	return ok
}

// Class is a named member table with optional bases.
type Class struct {
	mu      sync.RWMutex
	bases   []*Class
	members map[string]*Member
}

// Object is the root class. Every class created by NewClass inherits its
// special members unless other bases are given.
var Object = newObject()

func newObject() *Class {
	c := &Class{members: make(map[string]*Member)}
	for _, name := range []string{
		"__class__",
		"__dir__",
		"__eq__",
		"__format__",
		"__hash__",
		"__init__",
		"__init_subclass__",
		"__ne__",
		"__new__",
		"__repr__",
		"__str__",
		"__subclasshook__",
	} {
		c.members[name] = &Member{Kind: Method}
	}
	c.members[AttrName] = &Member{Kind: Attribute, Value: "object"}
	c.members[AttrQualName] = &Member{Kind: Attribute, Value: "object"}
	c.members[AttrModule] = &Member{Kind: Attribute, Value: "builtins"}
	c.members[AttrDoc] = &Member{Kind: Attribute, Value: "The base class of the class hierarchy."}
	return c
}

// NewClass creates a class declared in module with the given name and doc
// string. With no bases the class derives from Object.
func NewClass(module, name, doc string, bases ...*Class) *Class {
	if len(bases) == 0 {
		bases = []*Class{Object}
	}
	c := &Class{
		bases:   bases,
		members: make(map[string]*Member),
	}
	c.members[AttrName] = &Member{Kind: Attribute, Value: name}
	c.members[AttrQualName] = &Member{Kind: Attribute, Value: name}
	c.members[AttrModule] = &Member{Kind: Attribute, Value: module}
	c.members[AttrDoc] = &Member{Kind: Attribute, Value: doc}
	return c
}

// Define sets an own member and returns the class for chaining.
func (c *Class) Define(name string, kind MemberKind, value any) *Class {
	c.Set(name, &Member{Kind: kind, Value: value})
	return c
}

// Set stores m under name in the class's own table, replacing any previous
// member.
func (c *Class) Set(name string, m *Member) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.members[name] = m
}

// Own returns a member from the class's own table, ignoring bases.
func (c *Class) Own(name string) (*Member, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.members[name]
	return m, ok
}

// Lookup resolves name on the class, then depth-first through its bases.
func (c *Class) Lookup(name string) (*Member, bool) {
	if m, ok := c.Own(name); ok {
		return m, true
	}
	for _, base := range c.bases {
		if m, ok := base.Lookup(name); ok {
			return m, true
		}
	}
	return nil, false
}

// Dir lists every member name visible on the class, including inherited
// ones, sorted.
func (c *Class) Dir() []string {
	seen := make(map[string]struct{})
	c.collect(seen)
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Class) collect(seen map[string]struct{}) {
	c.mu.RLock()
	for name := range c.members {
		seen[name] = struct{}{}
	}
	c.mu.RUnlock()
	for _, base := range c.bases {
		base.collect(seen)
	}
}

// Name returns the class's __name__.
func (c *Class) Name() string { return c.attr(AttrName) }

// QualName returns the class's __qualname__.
func (c *Class) QualName() string { return c.attr(AttrQualName) }

// Module returns the module path the class was declared in.
func (c *Class) Module() string { return c.attr(AttrModule) }

// Doc returns the class's doc string.
func (c *Class) Doc() string { return c.attr(AttrDoc) }

func (c *Class) attr(name string) string {
	m, ok := c.Own(name)
	if !ok {
		return ""
	}
	s, _ := m.Value.(string)
	return s
}

func (c *Class) String() string {
	if mod := c.Module(); mod != "" {
		return mod + "." + c.QualName()
	}
	return c.QualName()
}

// transferable reports whether the member found under name on a patch class
// may be copied onto its target. Special names are kept back when they are
// intrinsic or still the unmodified member inherited from Object.
func transferable(name string, m *Member) bool {
	if !strings.HasPrefix(name, "__") {
		return true
	}
	if IsIntrinsic(name) {
		return false
	}
	if root, ok := Object.Own(name); ok && root == m {
		return false
	}
	return true
}
