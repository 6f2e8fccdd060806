package application

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/beanscene/api/internal/public/domain"
)

// MinSearchTermLength is the shortest term, in characters, that runs a search.
const MinSearchTermLength = 2

// SearchDebounce is the typeahead quiet period after the last keystroke.
const SearchDebounce = 300 * time.Millisecond

// SearchResult holds matches for a term. CreateOption is offered for every
// term long enough to search, whatever the match count.
type SearchResult struct {
	Term         string
	Cafes        []domain.Cafe
	CreateOption *CreateOption
}

// CreateOption is the "add a new cafe named ..." entry of the typeahead.
type CreateOption struct {
	Name string
}

// SearchCafes filters corpus by case-insensitive substring on name and, when
// institution is set, by exact institution.
func SearchCafes(term string, corpus []domain.Cafe, institution string) SearchResult {
	term = strings.TrimSpace(term)
	result := SearchResult{Term: term, Cafes: []domain.Cafe{}}
	if utf8.RuneCountInString(term) < MinSearchTermLength {
		return result
	}

	needle := strings.ToLower(term)
	for _, cafe := range corpus {
		if institution != "" && cafe.Institution != institution {
			continue
		}
		if strings.Contains(strings.ToLower(cafe.Name), needle) {
			result.Cafes = append(result.Cafes, cafe)
		}
	}
	result.CreateOption = &CreateOption{Name: term}
	return result
}

// Debouncer runs only the last of a burst of triggers, once the window has
// passed without a new one.
type Debouncer struct {
	window time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewDebouncer creates a debouncer with the given quiet window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

// Trigger schedules fn, cancelling any call still pending.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, fn)
}

// Stop cancels the pending call and ignores later triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Typeahead debounces search terms and only delivers results for the most
// recently entered term, however late or early its search completes.
type Typeahead struct {
	debouncer *Debouncer
	search    func(term string) SearchResult
	deliver   func(SearchResult)

	mu      sync.Mutex
	latest  uint64
	closed  bool
	running sync.WaitGroup
}

// NewTypeahead creates a typeahead. search may be slow; deliver is called
// from the search goroutine.
func NewTypeahead(window time.Duration, search func(term string) SearchResult, deliver func(SearchResult)) *Typeahead {
	return &Typeahead{
		debouncer: NewDebouncer(window),
		search:    search,
		deliver:   deliver,
	}
}

// Input records a new term as typed.
func (t *Typeahead) Input(term string) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.latest++
	generation := t.latest
	t.mu.Unlock()

	t.debouncer.Trigger(func() {
		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			return
		}
		t.running.Add(1)
		t.mu.Unlock()
		defer t.running.Done()

		result := t.search(term)

		t.mu.Lock()
		stale := t.closed || generation != t.latest
		t.mu.Unlock()
		if !stale {
			t.deliver(result)
		}
	})
}

// Close cancels pending work, waits for running searches and drops their results.
func (t *Typeahead) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.debouncer.Stop()
	t.running.Wait()
}
