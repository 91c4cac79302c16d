package endpoint

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"

	"github.com/Popie52/pinger/internal/model"
)

var (
	ErrEmptyList     = errors.New("endpoint list is empty")
	ErrInvalidURL    = errors.New("invalid endpoint url")
	ErrInvalidMethod = errors.New("unsupported endpoint method")
)

// DefaultBase is the demo nginx front that serves the PHP demo apps.
const DefaultBase = "http://nginx:8000"

var defaultTargets = []string{
	DefaultBase + "/",
	DefaultBase + "/?page=1",
	DefaultBase + "/index.php",
	DefaultBase + "/api/products",
	DefaultBase + "/api/products?sort=price&limit=10",
	DefaultBase + "/does-not-exist",
	"POST " + DefaultBase + "/api/orders",
}

// List is an ordered, immutable set of endpoints.
type List struct {
	items []model.Endpoint
}

func Default() *List {
	l, err := ParseAll(defaultTargets)
	if err != nil {
		panic(err)
	}
	return l
}

func New(items []model.Endpoint) (*List, error) {
	if len(items) == 0 {
		return nil, ErrEmptyList
	}
	out := make([]model.Endpoint, 0, len(items))
	for _, e := range items {
		norm, err := normalize(e)
		if err != nil {
			return nil, err
		}
		out = append(out, norm)
	}
	return &List{items: out}, nil
}

func ParseAll(targets []string) (*List, error) {
	items := make([]model.Endpoint, 0, len(targets))
	for _, t := range targets {
		e, err := Parse(t)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return New(items)
}

// Parse accepts "URL" or "METHOD URL".
func Parse(s string) (model.Endpoint, error) {
	fields := strings.Fields(s)
	switch len(fields) {
	case 1:
		return normalize(model.Endpoint{URL: fields[0]})
	case 2:
		return normalize(model.Endpoint{Method: fields[0], URL: fields[1]})
	default:
		return model.Endpoint{}, fmt.Errorf("%w: %q", ErrInvalidURL, s)
	}
}

func normalize(e model.Endpoint) (model.Endpoint, error) {
	method := strings.ToUpper(strings.TrimSpace(e.Method))
	if method == "" {
		method = "GET"
	}
	if method != "GET" && method != "POST" {
		return model.Endpoint{}, fmt.Errorf("%w: %s", ErrInvalidMethod, e.Method)
	}

	u, err := url.Parse(strings.TrimSpace(e.URL))
	if err != nil {
		return model.Endpoint{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return model.Endpoint{}, fmt.Errorf("%w: %q", ErrInvalidURL, e.URL)
	}

	return model.Endpoint{Method: method, URL: u.String()}, nil
}

func (l *List) Len() int { return len(l.items) }

// Items returns a copy; the list itself never changes.
func (l *List) Items() []model.Endpoint {
	out := make([]model.Endpoint, len(l.items))
	copy(out, l.items)
	return out
}

// Pick selects one endpoint uniformly at random.
func (l *List) Pick(rng *rand.Rand) model.Endpoint {
	return l.items[rng.IntN(len(l.items))]
}

func (l *List) Contains(e model.Endpoint) bool {
	_, ok := l.Lookup(e)
	return ok
}

// Lookup normalizes e and returns the list's own copy of it.
func (l *List) Lookup(e model.Endpoint) (model.Endpoint, bool) {
	norm, err := normalize(e)
	if err != nil {
		return model.Endpoint{}, false
	}
	for _, item := range l.items {
		if item == norm {
			return item, true
		}
	}
	return model.Endpoint{}, false
}
