package freesound

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	scouterrors "github.com/soundscout/soundscout/pkg/errors"
)

const searchBody = `{
	"count": 61,
	"results": [
		{
			"id": 12345,
			"name": "rain on tent",
			"username": "fieldrec",
			"duration": 30.5,
			"tags": ["rain", "tent", "field-recording"],
			"avg_rating": 4.2,
			"previews": {
				"preview-hq-mp3": "https://example.org/previews/12345-hq.mp3",
				"preview-lq-mp3": "https://example.org/previews/12345-lq.mp3"
			}
		},
		{
			"id": 67890,
			"name": "thunder distant",
			"username": "stormy",
			"duration": 12.0,
			"previews": {}
		}
	]
}`

func TestSearch(t *testing.T) {
	var gotQuery, gotToken, gotPage, gotPageSize string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/text/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		gotQuery = q.Get("query")
		gotToken = q.Get("token")
		gotPage = q.Get("page")
		gotPageSize = q.Get("page_size")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(searchBody))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))

	page, err := client.Search(context.Background(), "rain", 2)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}

	if gotQuery != "rain" {
		t.Errorf("query param = %q, want %q", gotQuery, "rain")
	}
	if gotToken != "test-key" {
		t.Errorf("token param = %q, want %q", gotToken, "test-key")
	}
	if gotPage != "2" {
		t.Errorf("page param = %q, want %q", gotPage, "2")
	}
	if gotPageSize != "30" {
		t.Errorf("page_size param = %q, want %q", gotPageSize, "30")
	}

	if page.Number != 2 {
		t.Errorf("page.Number = %d, want 2", page.Number)
	}
	if page.TotalResults != 61 {
		t.Errorf("page.TotalResults = %d, want 61", page.TotalResults)
	}
	// 61 results at 30 per page is 3 pages
	if page.TotalPages != 3 {
		t.Errorf("page.TotalPages = %d, want 3", page.TotalPages)
	}
	if page.Len() != 2 {
		t.Fatalf("page.Len() = %d, want 2", page.Len())
	}

	first, ok := page.Sound(1)
	if !ok {
		t.Fatal("page.Sound(1) not found")
	}
	if first.Name != "rain on tent" {
		t.Errorf("first.Name = %q", first.Name)
	}
	if first.PreviewURL() != "https://example.org/previews/12345-hq.mp3" {
		t.Errorf("first.PreviewURL() = %q", first.PreviewURL())
	}

	second, _ := page.Sound(2)
	if second.PreviewURL() != "" {
		t.Errorf("second.PreviewURL() = %q, want empty", second.PreviewURL())
	}
}

func TestSearch_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient("bad-key", WithBaseURL(server.URL))

	_, err := client.Search(context.Background(), "rain", 1)
	if err == nil {
		t.Fatal("expected error for 401 response")
	}

	var apiErr *scouterrors.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error %v is not an APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", apiErr.StatusCode)
	}
	if !errors.Is(err, scouterrors.ErrAPI) {
		t.Error("APIError should unwrap to ErrAPI")
	}
}

func TestSearch_NetworkError(t *testing.T) {
	client := NewClient("key", WithBaseURL("http://127.0.0.1:1"))

	_, err := client.Search(context.Background(), "rain", 1)
	if !errors.Is(err, scouterrors.ErrNetwork) {
		t.Errorf("error %v should wrap ErrNetwork", err)
	}
}

func TestFetchPreview(t *testing.T) {
	payload := []byte("not really mp3 bytes")
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write(payload)
	}))
	defer server.Close()

	client := NewClient("test-key")

	data, err := client.FetchPreview(context.Background(), server.URL+"/previews/1-hq.mp3")
	if err != nil {
		t.Fatalf("FetchPreview returned error: %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("payload mismatch: got %q", data)
	}
	if gotAuth != "Token test-key" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Token test-key")
	}
}

func TestFetchPreview_NoURL(t *testing.T) {
	client := NewClient("key")
	_, err := client.FetchPreview(context.Background(), "")
	if !errors.Is(err, scouterrors.ErrNoPreview) {
		t.Errorf("error = %v, want ErrNoPreview", err)
	}
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		count    int
		pageSize int
		want     int
	}{
		{0, 30, 0},
		{1, 30, 1},
		{30, 30, 1},
		{31, 30, 2},
		{61, 30, 3},
	}

	for _, tt := range tests {
		if got := totalPages(tt.count, tt.pageSize); got != tt.want {
			t.Errorf("totalPages(%d, %d) = %d, want %d", tt.count, tt.pageSize, got, tt.want)
		}
	}
}
