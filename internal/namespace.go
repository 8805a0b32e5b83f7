package internal

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// classSeparator joins namespace levels in class names, e.g. `Website\About\Board`.
const classSeparator = `\`

// Action is a registered controller action with its accepted argument count.
type Action struct {
	Func     ActionFunc
	Required int
	Total    int // negative means unbounded
}

// accepts reports whether n positional arguments fit the action signature.
func (a Action) accepts(n int) bool {
	return n >= a.Required && (a.Total < 0 || n <= a.Total)
}

// Fixed declares an action taking exactly n positional arguments.
func Fixed(n int, fn ActionFunc) Action {
	return Action{Func: fn, Required: n, Total: n}
}

// Optional declares an action taking between required and total arguments.
func Optional(required, total int, fn ActionFunc) Action {
	return Action{Func: fn, Required: required, Total: max(total, required)}
}

// Variadic declares an action taking at least required arguments.
func Variadic(required int, fn ActionFunc) Action {
	return Action{Func: fn, Required: required, Total: -1}
}

// Actions maps action names (e.g. "getIndex", "getPhotos", "get") to actions.
type Actions map[string]Action

type namedAction struct {
	Action
	name string
}

type controller struct {
	actions map[string]namedAction // keyed by lower-cased action name
	name    string
}

// lookup returns the first existing action among names.
func (c *controller) lookup(names ...string) (namedAction, bool) {
	for _, n := range names {
		if a, ok := c.actions[strings.ToLower(n)]; ok {
			return a, true
		}
	}
	return namedAction{}, false
}

// Namespace is an explicit registry of controllers resolved by URI convention.
// Class and action names are matched case-insensitively.
//
// Example:
//
//	ns := subframe.NewNamespace("Website").
//	    Register("Home", subframe.Actions{
//	        "getIndex":   subframe.Fixed(0, home.Index),
//	        "getContact": subframe.Fixed(0, home.Contact),
//	        "get":        subframe.Fixed(1, home.Page),
//	    }).
//	    Register(`About\Board`, subframe.Actions{
//	        "get":       subframe.Fixed(1, board.Member),
//	        "getPhotos": subframe.Fixed(1, board.Photos),
//	    })
type Namespace struct {
	classes map[string]*controller // keyed by lower-cased class path relative to the namespace
	name    string
}

// NewNamespace creates an empty namespace. An empty name is the root namespace.
func NewNamespace(name string) *Namespace {
	return &Namespace{
		name:    strings.Trim(name, classSeparator),
		classes: make(map[string]*controller),
	}
}

// Name returns the namespace name.
func (n *Namespace) Name() string { return n.name }

// Register adds or extends a controller. The class path is relative to the
// namespace and uses backslashes between levels, e.g. `About\Home`.
func (n *Namespace) Register(class string, actions Actions) *Namespace {
	class = strings.Trim(class, classSeparator)
	key := strings.ToLower(class)
	c, ok := n.classes[key]
	if !ok {
		c = &controller{name: n.qualify(class), actions: make(map[string]namedAction, len(actions))}
		n.classes[key] = c
	}
	for name, a := range actions {
		c.actions[strings.ToLower(name)] = namedAction{Action: a, name: name}
	}
	return n
}

func (n *Namespace) qualify(class string) string {
	if n.name == "" {
		return class
	}
	if class == "" {
		return n.name
	}
	return n.name + classSeparator + class
}

// ResolvedRoute is a controller action selected for a request.
type ResolvedRoute struct {
	action ActionFunc
	Class  string
	Action string
	Args   []string
}

// FindRoute resolves a request to a controller action.
// Deeper class paths are tried first; at every depth a nested Home class is
// tried before the class named after the segments themselves.
func (n *Namespace) FindRoute(req *Request) (ResolvedRoute, bool) {
	uri := strings.Trim(req.URI(), "/")
	var segs []string
	if uri != "" {
		segs = strings.Split(uri, "/")
	}

	classv := make([]string, len(segs))
	for i, s := range segs {
		classv[i] = ClassCase(s)
	}

	for i := len(segs); i >= 0; i-- {
		base := strings.Join(classv[:i], classSeparator)
		home := "Home"
		if base != "" {
			home = base + classSeparator + "Home"
		}
		if c, ok := n.classes[strings.ToLower(home)]; ok {
			if route, ok := findInController(c, req.Method(), segs[i:]); ok {
				return route, true
			}
		}
		if i > 0 {
			if c, ok := n.classes[strings.ToLower(base)]; ok {
				if route, ok := findInController(c, req.Method(), segs[i:]); ok {
					return route, true
				}
			}
		}
	}
	return ResolvedRoute{}, false
}

// findInController picks the action for the remaining segments. The first
// existing candidate is checked against the argument count; when it does not
// fit, the controller does not match at all.
func findInController(c *controller, method string, args []string) (ResolvedRoute, bool) {
	method = strings.ToLower(method)

	var (
		act   namedAction
		found bool
		rest  []string
	)

	// index or methodIndex
	if len(args) == 0 {
		act, found = c.lookup(method+"Index", "index")
	}

	// action or methodAction
	if !found && len(args) > 0 {
		act, found = c.lookup(ActionCase(method, args[0]), ActionCase("", args[0]))
		rest = args[1:]
	}

	// resource + action: /users/42/photos -> getPhotos(42)
	if !found && len(args) >= 2 {
		act, found = c.lookup(ActionCase(method, args[1]), ActionCase("", args[1]))
		rest = append([]string{args[0]}, args[2:]...)
	}

	// plain method with every segment as an argument
	if !found {
		act, found = c.lookup(method)
		rest = args
	}

	if !found || act.Func == nil || !act.accepts(len(rest)) {
		return ResolvedRoute{}, false
	}

	return ResolvedRoute{
		action: act.Func,
		Class:  c.name,
		Action: act.name,
		Args:   slices.Clip(slices.Clone(rest)),
	}, true
}

// ClassCase converts a URI segment to a class name: "my-page" -> "MyPage",
// "about" -> "About". Only first letters change case.
func ClassCase(seg string) string {
	if !strings.ContainsAny(seg, "-.") {
		return upperFirst(seg)
	}
	return titleWords(seg)
}

// ActionCase converts a URI segment to an action name, prefixed with the
// lower-cased HTTP method: ("get", "photos") -> "getPhotos",
// ("get", "my-page") -> "getMyPage", ("", "my-page") -> "myPage".
// Without a method, a segment with no delimiters is returned unchanged.
func ActionCase(method, seg string) string {
	if strings.ContainsAny(seg, "-.") {
		return lowerFirst(method + titleWords(seg))
	}
	if method == "" {
		return seg
	}
	return method + upperFirst(seg)
}

// titleWords capitalizes every "-" or "." delimited word and drops the delimiters.
func titleWords(s string) string {
	caser := cases.Title(language.Und, cases.NoLower)
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '.' })
	for i, w := range words {
		words[i] = caser.String(w)
	}
	return strings.Join(words, "")
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
