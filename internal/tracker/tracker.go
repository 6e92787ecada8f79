// Package tracker ведёт цепочки версий: у каждой версии не больше одного
// родителя, у каждого семейства есть корень и последняя версия.
package tracker

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrMultipleInheritance = errors.New("Multiple inheritance of tracked versions is not allowed")
	ErrUnknownParent       = errors.New("unknown parent version")
	ErrDuplicate           = errors.New("version already tracked")
	ErrEmptyName           = errors.New("version name is empty")
	ErrNoParent            = errors.New("version has no parent to alias it")
	ErrAliasTaken          = errors.New("alias already taken on parent")
)

// Node — одна версия в семействе.
type Node[T any] struct {
	Name   string
	Value  T
	Parent *Node[T]
	Family *Family[T]

	children []*Node[T]
	aliases  map[string]*Node[T]
}

// Versions возвращает предков от старшего к младшему; с includeCurrent — и сам узел.
func (n *Node[T]) Versions(includeCurrent bool) []*Node[T] {
	var out []*Node[T]
	for p := n.Parent; p != nil; p = p.Parent {
		out = append(out, p)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if includeCurrent {
		out = append(out, n)
	}
	return out
}

// Extends — true, если other это сам узел или один из его предков.
func (n *Node[T]) Extends(other *Node[T]) bool {
	for p := n; p != nil; p = p.Parent {
		if p == other {
			return true
		}
	}
	return false
}

func (n *Node[T]) Children() []*Node[T] {
	out := make([]*Node[T], len(n.children))
	copy(out, n.children)
	return out
}

// Alias — дочерняя версия, названная на этом узле.
func (n *Node[T]) Alias(name string) (*Node[T], bool) {
	c, ok := n.aliases[name]
	return c, ok
}

type Family[T any] struct {
	Root    *Node[T]
	Latest  *Node[T]
	members []*Node[T]
}

func (f *Family[T]) Members() []*Node[T] {
	out := make([]*Node[T], len(f.members))
	copy(out, f.members)
	return out
}

// Tracker хранит все узлы по имени.
type Tracker[T any] struct {
	mu    sync.RWMutex
	nodes map[string]*Node[T]
	order []*Node[T]
}

func New[T any]() *Tracker[T] {
	return &Tracker[T]{nodes: make(map[string]*Node[T])}
}

// Parent проверяет список родителей для name, ничего не добавляя.
func (t *Tracker[T]) Parent(name string, parents ...string) (*Node[T], error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.parent(name, parents)
}

func (t *Tracker[T]) parent(name string, parents []string) (*Node[T], error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if _, ok := t.nodes[name]; ok {
		return nil, fmt.Errorf("%w (%s)", ErrDuplicate, name)
	}
	if len(parents) > 1 {
		return nil, fmt.Errorf("%w (%s)", ErrMultipleInheritance, name)
	}
	if len(parents) == 0 {
		return nil, nil
	}
	p, ok := t.nodes[parents[0]]
	if !ok {
		return nil, fmt.Errorf("%w %q (%s)", ErrUnknownParent, parents[0], name)
	}
	return p, nil
}

// Add регистрирует версию. Без родителя создаётся новое семейство.
func (t *Tracker[T]) Add(name string, value T, parents ...string) (*Node[T], error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, err := t.parent(name, parents)
	if err != nil {
		return nil, err
	}
	n := &Node[T]{Name: name, Value: value, Parent: p}
	if p == nil {
		n.Family = &Family[T]{Root: n, Latest: n}
	} else {
		n.Family = p.Family
		p.children = append(p.children, n)
		if n.Extends(n.Family.Latest) {
			n.Family.Latest = n
		}
	}
	n.Family.members = append(n.Family.members, n)
	t.nodes[name] = n
	t.order = append(t.order, n)
	return n, nil
}

func (t *Tracker[T]) Get(name string) (*Node[T], bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[name]
	return n, ok
}

// Nodes возвращает узлы в порядке добавления.
func (t *Tracker[T]) Nodes() []*Node[T] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Node[T], len(t.order))
	copy(out, t.order)
	return out
}

// Latest — последняя версия семейства, в которое входит name.
func (t *Tracker[T]) Latest(name string) (*Node[T], bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[name]
	if !ok {
		return nil, false
	}
	return n.Family.Latest, true
}

// SetAlias называет дочернюю версию на её родителе.
func (t *Tracker[T]) SetAlias(child, alias string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[child]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownParent, child)
	}
	if n.Parent == nil {
		return fmt.Errorf("%w (%s)", ErrNoParent, child)
	}
	if prev, ok := n.Parent.aliases[alias]; ok && prev != n {
		return fmt.Errorf("%w: %q on %s", ErrAliasTaken, alias, n.Parent.Name)
	}
	if n.Parent.aliases == nil {
		n.Parent.aliases = make(map[string]*Node[T])
	}
	n.Parent.aliases[alias] = n
	return nil
}
