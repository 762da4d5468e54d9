// Package search maintains the cursor over paginated remote search results.
package search

import (
	"context"
	"math/rand"
	"strings"
	"sync"

	"github.com/soundscout/soundscout/api"
	scouterrors "github.com/soundscout/soundscout/pkg/errors"
)

// Session is the mutable cursor over pages of search results: the current
// query, the current page snapshot, and the selected sound within it.
// Network calls go through the search client; every operation either fully
// succeeds and updates the cursor, or fails and leaves it untouched.
type Session struct {
	client api.SearchClient

	mu       sync.RWMutex
	query    string
	page     *api.ResultPage
	selected int // 1-based, 0 means none
}

// NewSession creates a session bound to a search client.
func NewSession(client api.SearchClient) *Session {
	return &Session{client: client}
}

// Search runs a fresh query. On success the page resets to 1 and any
// selection is cleared. A query with zero hits leaves the session unchanged.
func (s *Session) Search(ctx context.Context, query string) (*api.ResultPage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, scouterrors.ErrEmptyQuery
	}

	page, err := s.client.Search(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	if page.Len() == 0 {
		return nil, scouterrors.ErrNoResults
	}

	s.mu.Lock()
	s.query = query
	s.page = page
	s.selected = 0
	s.mu.Unlock()
	return page, nil
}

// PageForward fetches the next page. No wraparound past the last page.
func (s *Session) PageForward(ctx context.Context) (*api.ResultPage, error) {
	s.mu.RLock()
	page := s.page
	s.mu.RUnlock()

	if page == nil {
		return nil, scouterrors.ErrNoSearch
	}
	if page.TotalPages > 0 && page.Number >= page.TotalPages {
		return nil, scouterrors.ErrAtLastPage
	}
	return s.fetch(ctx, page.Number+1)
}

// PageBackward fetches the previous page.
func (s *Session) PageBackward(ctx context.Context) (*api.ResultPage, error) {
	s.mu.RLock()
	page := s.page
	s.mu.RUnlock()

	if page == nil {
		return nil, scouterrors.ErrNoSearch
	}
	if page.Number <= 1 {
		return nil, scouterrors.ErrAtFirstPage
	}
	return s.fetch(ctx, page.Number-1)
}

// GoToPage fetches an arbitrary page by 1-based number.
func (s *Session) GoToPage(ctx context.Context, n int) (*api.ResultPage, error) {
	s.mu.RLock()
	page := s.page
	s.mu.RUnlock()

	if page == nil {
		return nil, scouterrors.ErrNoSearch
	}
	if n < 1 || (page.TotalPages > 0 && n > page.TotalPages) {
		return nil, scouterrors.ErrInvalidPageIndex
	}
	return s.fetch(ctx, n)
}

// GoToRandomPage fetches a page chosen uniformly from [1, total].
func (s *Session) GoToRandomPage(ctx context.Context) (*api.ResultPage, error) {
	s.mu.RLock()
	page := s.page
	s.mu.RUnlock()

	if page == nil {
		return nil, scouterrors.ErrNoSearch
	}
	if page.TotalPages <= 0 {
		return nil, scouterrors.ErrUnknownPageCount
	}
	return s.fetch(ctx, rand.Intn(page.TotalPages)+1)
}

// fetch retrieves the target page and commits it only on success.
func (s *Session) fetch(ctx context.Context, n int) (*api.ResultPage, error) {
	s.mu.RLock()
	query := s.query
	s.mu.RUnlock()

	page, err := s.client.Search(ctx, query, n)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.page = page
	s.selected = 0
	s.mu.Unlock()
	return page, nil
}

// Select records the 1-based index as the current selection.
func (s *Session) Select(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page == nil {
		return scouterrors.ErrNoSearch
	}
	if index < 1 || index > s.page.Len() {
		return scouterrors.ErrIndexOutOfRange
	}
	s.selected = index
	return nil
}

// SelectRandom selects uniformly among the current page's results.
func (s *Session) SelectRandom() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page == nil {
		return 0, scouterrors.ErrNoSearch
	}
	if s.page.Len() == 0 {
		return 0, scouterrors.ErrEmptyPage
	}
	s.selected = rand.Intn(s.page.Len()) + 1
	return s.selected, nil
}

// Resolve validates an index (or picks one at random) against the current
// page without committing it as the selection.
func (s *Session) Resolve(index int, random bool) (int, *api.SoundSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.page == nil {
		return 0, nil, scouterrors.ErrNoSearch
	}
	if random {
		if s.page.Len() == 0 {
			return 0, nil, scouterrors.ErrEmptyPage
		}
		index = rand.Intn(s.page.Len()) + 1
	}
	sound, ok := s.page.Sound(index)
	if !ok {
		return 0, nil, scouterrors.ErrIndexOutOfRange
	}
	return index, sound, nil
}

// Selected returns the currently selected sound, if any.
func (s *Session) Selected() (*api.SoundSummary, int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.page == nil || s.selected == 0 {
		return nil, 0, false
	}
	sound, ok := s.page.Sound(s.selected)
	if !ok {
		return nil, 0, false
	}
	return sound, s.selected, true
}

// Page returns the current page snapshot (nil before the first search).
func (s *Session) Page() *api.ResultPage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page
}

// Query returns the active query string.
func (s *Session) Query() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// Reset discards the current query, page and selection.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = ""
	s.page = nil
	s.selected = 0
}
