package pocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookmarksync/internal/graph"
	"github.com/mrlokans/bookmarksync/internal/sources"
	"github.com/mrlokans/bookmarksync/internal/sources/sourcestest"
)

var credentials = sources.Credentials{PocketConsumerKey: "ck", PocketAccessToken: "at"}

func newSource(t *testing.T, handler http.HandlerFunc, cursor string) (*Source, *sourcestest.CursorStore) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cursors := sourcestest.NewCursorStore()
	client := NewClient(WithHTTPClient(server.Client()), WithAPIURL(server.URL))
	s := New(client, sources.Settings{
		Credentials: credentials,
		Cursors:     sources.Cursors{Pocket: cursor},
	}, cursors, WithClock(func() time.Time {
		return time.Unix(1700000000, 0)
	}))
	return s, cursors
}

func TestSource_Enabled(t *testing.T) {
	assert.False(t, New(NewClient(), sources.Settings{}, nil).Enabled())
	assert.False(t, New(NewClient(), sources.Settings{Credentials: sources.Credentials{PocketConsumerKey: "ck"}}, nil).Enabled())
	assert.True(t, New(NewClient(), sources.Settings{Credentials: credentials}, nil).Enabled())
}

func TestSource_GetBookmarks(t *testing.T) {
	var got retrieveRequest
	s, cursors := newSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/get", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("X-Accept"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_, _ = w.Write([]byte(`{"status": 1, "list": {
			"1": {"resolved_id": "1", "resolved_title": "Older", "resolved_url": "https://e.com/old", "time_added": "1672567200", "sort_id": 1},
			"2": {"resolved_id": "2", "resolved_title": "Newer", "resolved_url": "https://e.com/new", "time_added": "1672653600", "sort_id": 0},
			"3": {"resolved_id": "", "resolved_title": "Unresolved", "sort_id": 2},
			"4": {"resolved_id": "4", "resolved_title": "", "resolved_url": "https://e.com/untitled", "sort_id": 3}
		}}`))
	}, "1690000000")
	ctx := context.Background()

	bookmarks, err := s.GetBookmarks(ctx)
	require.NoError(t, err)

	assert.Equal(t, "ck", got.ConsumerKey)
	assert.Equal(t, "at", got.AccessToken)
	assert.Equal(t, int64(1690000000), got.Since)

	require.Len(t, bookmarks, 2)
	assert.Equal(t, "Older", bookmarks[0].Title, "higher sort_id comes first")
	assert.Equal(t, "https://e.com/old", bookmarks[0].URL)
	assert.Equal(t, graph.Hash("https://e.com/old"), bookmarks[0].Hash)
	assert.Equal(t, []string{"article", "pocket"}, bookmarks[0].Tags)
	require.NotNil(t, bookmarks[0].Created)
	assert.Equal(t, int64(1672567200), bookmarks[0].Created.Unix())
	assert.Equal(t, "Newer", bookmarks[1].Title)

	require.NoError(t, s.SetLastSync(ctx))
	cursor, _ := cursors.Cursor(sources.NamePocket)
	assert.Equal(t, "1700000000", cursor)
}

func TestSource_EmptyListArray(t *testing.T) {
	var got map[string]any
	s, _ := newSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status": 2, "list": []}`))
	}, "")

	bookmarks, err := s.GetBookmarks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, bookmarks)
	assert.NotContains(t, got, "since", "a first sync asks for everything")
}

func TestSource_FractionalCursor(t *testing.T) {
	var got retrieveRequest
	s, _ := newSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"list": {}}`))
	}, "1690000000.532")

	_, err := s.GetBookmarks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1690000000), got.Since)
}

func TestSource_Unauthorized(t *testing.T) {
	s, cursors := newSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, "")

	_, err := s.GetBookmarks(context.Background())
	assert.ErrorIs(t, err, sources.ErrInvalidToken)

	_, written := cursors.Cursor(sources.NamePocket)
	assert.False(t, written)
}

func TestItem_Added(t *testing.T) {
	assert.Nil(t, Item{}.Added())
	assert.Nil(t, Item{TimeAdded: "garbage"}.Added())
	added := Item{TimeAdded: "10"}.Added()
	require.NotNil(t, added)
	assert.Equal(t, int64(10), added.Unix())
}

func TestSource_CursorIsFetchStart(t *testing.T) {
	s, cursors := newSource(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": 2, "list": []}`))
	}, "")
	ctx := context.Background()

	clock := time.Unix(1700000000, 0)
	s.now = func() time.Time { return clock }

	_, err := s.GetBookmarks(ctx)
	require.NoError(t, err)

	clock = clock.Add(5 * time.Minute)
	require.NoError(t, s.SetLastSync(ctx))

	cursor, _ := cursors.Cursor(sources.NamePocket)
	assert.Equal(t, "1700000000", cursor, "items saved during the run are fetched next time")
}
