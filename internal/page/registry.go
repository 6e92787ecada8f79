package page

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"adminkit/internal/tracker"
)

// Registry — реестр версий страниц по итоговому URI.
type Registry struct {
	mu        sync.RWMutex
	tracker   *tracker.Tracker[*Version]
	byURI     map[string]*Version
	mountPath string
}

func NewRegistry() *Registry {
	return &Registry{
		tracker: tracker.New[*Version](),
		byURI:   make(map[string]*Version),
	}
}

// Register проверяет страницу и добавляет её в реестр. При ошибке реестр не меняется.
func (r *Registry) Register(p Page) (*Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(p.Name) == "" {
		return nil, errors.New("page name is empty")
	}
	parentNode, err := r.tracker.Parent(p.Name, p.Extends...)
	if err != nil {
		return nil, err
	}
	var parent *Version
	if parentNode != nil {
		parent = parentNode.Value
	}

	if p.URI == "" {
		return nil, fmt.Errorf("URI must be set (%s)", p.Name)
	}
	if !strings.HasPrefix(p.URI, "/") {
		return nil, fmt.Errorf(`URI must start with a "/" (%s)`, p.Name)
	}
	if p.Prefix != "" && !strings.HasPrefix(p.Prefix, "/") {
		return nil, fmt.Errorf(`prefix must start with a "/" (%s)`, p.Name)
	}

	method := p.Method
	if method == "" {
		method = GET
		if parent != nil {
			method = parent.method
		}
	}
	if !method.Valid() {
		return nil, fmt.Errorf("method must be one of %v (%s)", Methods, p.Name)
	}

	if parent != nil && sameFunc(p.Render, parent.page.Render) {
		return nil, fmt.Errorf("page render method must be a method of the page (%s)", p.Name)
	}
	rf, err := newRenderFunc(p.Name, p.Render)
	if err != nil {
		return nil, err
	}

	if p.Alias != "" {
		if parentNode == nil {
			return nil, fmt.Errorf("%w (%s)", tracker.ErrNoParent, p.Name)
		}
		if _, taken := parentNode.Alias(p.Alias); taken {
			return nil, fmt.Errorf("%w: %q on %s", tracker.ErrAliasTaken, p.Alias, parentNode.Name)
		}
	}

	v := &Version{
		page:   p,
		reg:    r,
		render: rf,
		method: method,
		parent: parent,
	}
	v.uri = v.resolve()

	if owner, ok := r.byURI[v.uri]; ok {
		if parent == nil || !parentNode.Extends(owner.node) {
			return nil, fmt.Errorf("URI %q is already used by %q; if you want to use the same URI, extend %q",
				v.uri, owner.Name(), owner.Name())
		}
	}

	route := v.RoutePath()
	for _, other := range r.byURI {
		if other.method != v.method {
			continue
		}
		if a, b, clash := paramClash(route, other.RoutePath()); clash {
			return nil, fmt.Errorf("URI %q conflicts with %q of %q: placeholders {%s} and {%s} share a position (%s)",
				v.uri, other.uri, other.Name(), a[1:], b[1:], p.Name)
		}
	}

	node, err := r.tracker.Add(p.Name, v, p.Extends...)
	if err != nil {
		return nil, err
	}
	v.node = node
	if p.Alias != "" {
		if err := r.tracker.SetAlias(p.Name, p.Alias); err != nil {
			return nil, err
		}
	}
	r.byURI[v.uri] = v
	return v, nil
}

// MustRegister — Register для кода инициализации; паникует при ошибке.
func (r *Registry) MustRegister(p Page) *Version {
	v, err := r.Register(p)
	if err != nil {
		panic(err)
	}
	return v
}

// Lookup ищет версию по итоговому URI.
func (r *Registry) Lookup(uri string) (*Version, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.byURI[uri]
	return v, ok
}

// Get ищет версию по имени.
func (r *Registry) Get(name string) (*Version, bool) {
	n, ok := r.tracker.Get(name)
	if !ok {
		return nil, false
	}
	return n.Value, true
}

// Latest — последняя версия семейства страницы name.
func (r *Registry) Latest(name string) (*Version, bool) {
	n, ok := r.tracker.Latest(name)
	if !ok {
		return nil, false
	}
	return n.Value, true
}

// Versions возвращает все зарегистрированные версии, отсортированные по URI.
func (r *Registry) Versions() []*Version {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Version, 0, len(r.byURI))
	for _, v := range r.byURI {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].uri < out[j].uri })
	return out
}

// SetMountPath задаёт путь, под которым смонтирован реестр (для RouterURL).
func (r *Registry) SetMountPath(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mountPath = strings.TrimRight(path, "/")
}

func (r *Registry) MountPath() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mountPath
}

// Version — зарегистрированная версия страницы.
type Version struct {
	page   Page
	reg    *Registry
	node   *tracker.Node[*Version]
	parent *Version
	render *renderFunc
	method Method
	uri    string
}

func (v *Version) Name() string { return v.page.Name }

func (v *Version) Page() Page { return v.page }

func (v *Version) Method() Method { return v.method }

func (v *Version) Kind() Kind { return v.render.kind }

func (v *Version) Parent() *Version { return v.parent }

// URI — итоговый URI; вычисляется один раз при регистрации.
func (v *Version) URI() string { return v.uri }

func (v *Version) resolve() string {
	switch v.page.URIMode {
	case URIWithPrefix:
		return v.prefix() + v.page.URI
	case URIWithParents:
		var parts []string
		for p := v; p != nil; p = p.parent {
			parts = append(parts, p.page.Prefix+p.page.URI)
		}
		var b strings.Builder
		for i := len(parts) - 1; i >= 0; i-- {
			b.WriteString(parts[i])
		}
		return b.String()
	default:
		return v.page.URI
	}
}

// prefix — свой префикс или ближайшего предка.
func (v *Version) prefix() string {
	for p := v; p != nil; p = p.parent {
		if p.page.Prefix != "" {
			return p.page.Prefix
		}
	}
	return ""
}

// Versions — предки от старшего к младшему; с includeCurrent — и сама версия.
func (v *Version) Versions(includeCurrent bool) []*Version {
	nodes := v.node.Versions(includeCurrent)
	out := make([]*Version, len(nodes))
	for i, n := range nodes {
		out[i] = n.Value
	}
	return out
}

// Latest — последняя версия семейства.
func (v *Version) Latest() *Version { return v.node.Family.Latest.Value }

// Child — дочерняя версия по alias.
func (v *Version) Child(alias string) (*Version, bool) {
	n, ok := v.node.Alias(alias)
	if !ok {
		return nil, false
	}
	return n.Value, true
}

var (
	positionalRe  = regexp.MustCompile(`\{(\d*)\}`)
	namedRe       = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)
	placeholderRe = regexp.MustCompile(`\{([A-Za-z0-9_]*)\}`)
)

// Format подставляет позиционные аргументы в {} и {N}.
func (v *Version) Format(args ...any) string {
	next := 0
	return positionalRe.ReplaceAllStringFunc(v.uri, func(m string) string {
		idx := next
		if s := m[1 : len(m)-1]; s != "" {
			idx, _ = strconv.Atoi(s)
		} else {
			next++
		}
		if idx >= len(args) {
			return m
		}
		return fmt.Sprint(args[idx])
	})
}

// FormatNamed подставляет значения в {name}; отсутствующие остаются как есть.
func (v *Version) FormatNamed(values map[string]any) string {
	return namedRe.ReplaceAllStringFunc(v.uri, func(m string) string {
		if val, ok := values[m[1:len(m)-1]]; ok {
			return fmt.Sprint(val)
		}
		return m
	})
}

// paramClash находит параметры с разными именами на одной позиции общего
// префикса маршрутов: gin не может смонтировать такие пути в одно дерево.
func paramClash(a, b string) (string, string, bool) {
	as, bs := strings.Split(a, "/"), strings.Split(b, "/")
	for i := 0; i < len(as) && i < len(bs); i++ {
		x, y := as[i], bs[i]
		px, py := strings.HasPrefix(x, ":"), strings.HasPrefix(y, ":")
		switch {
		case px && py:
			if x != y {
				return x, y, true
			}
		case x != y:
			return "", "", false
		}
	}
	return "", "", false
}

// RoutePath — URI в синтаксисе маршрутов gin: {id} → :id, {} и {0} → :p0.
func (v *Version) RoutePath() string {
	next := 0
	return placeholderRe.ReplaceAllStringFunc(v.uri, func(m string) string {
		name := m[1 : len(m)-1]
		switch {
		case name == "":
			name = "p" + strconv.Itoa(next)
			next++
		case name[0] >= '0' && name[0] <= '9':
			name = "p" + name
		}
		return ":" + name
	})
}

// RouterURL — URI с учётом пути монтирования реестра.
func (v *Version) RouterURL() string {
	return v.reg.MountPath() + v.uri
}

// Call вызывает render версии.
func (v *Version) Call(c *gin.Context) (any, error) {
	return v.render.call(c)
}

func (v *Version) String() string {
	return fmt.Sprintf("<%s %s>", v.page.Name, v.uri)
}
