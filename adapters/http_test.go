package adapters

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brettbedarf/docfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockHTTPClient struct {
	mock.Mock
}

func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*http.Response), args.Error(1)
}

// contentServer is a tiny in-memory content endpoint for HTTPStore tests
type contentServer struct {
	mu      sync.Mutex
	bodies  map[string][]byte
	headers []http.Header
}

func newContentServer(t *testing.T) (*httptest.Server, *contentServer) {
	cs := &contentServer{bodies: make(map[string][]byte)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.mu.Lock()
		defer cs.mu.Unlock()
		cs.headers = append(cs.headers, r.Header.Clone())

		id := strings.TrimPrefix(r.URL.EscapedPath(), "/content/")
		switch r.Method {
		case http.MethodGet:
			body, ok := cs.bodies[id]
			if !ok {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write(body)
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			cs.bodies[id] = body
			w.WriteHeader(http.StatusNoContent)
		case http.MethodDelete:
			if _, ok := cs.bodies[id]; !ok {
				http.NotFound(w, r)
				return
			}
			delete(cs.bodies, id)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, cs
}

func TestNewHTTPStore_URLValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url     string
		wantErr bool
		desc    string
	}{
		// Valid cases
		{"http://test.com", false, "basic HTTP URL"},
		{"https://test.com", false, "basic HTTPS URL"},
		{"  http://test.com   ", false, "URL with whitespace"},
		{"http://test.com/content/", false, "URL with trailing slash"},
		{"http://test.com:8080", false, "URL with port"},
		{"http://123.123.123.123/test", false, "IP address"},

		// Invalid cases
		{"", true, "empty string"},
		{" ", true, "whitespace only"},
		{"ftp://test.com", true, "different scheme rejected"},
		{"test.com", true, "missing scheme"},
		{"http://user@test.com/path", true, "URL with user info"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			store, err := NewHTTPStore(HTTPSource{URL: tt.url}, &MockHTTPClient{}, 0)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, store)
			} else {
				require.NoError(t, err)
				require.NotNil(t, store)
			}
		})
	}
}

func TestHTTPStore_ContentURL(t *testing.T) {
	t.Parallel()

	store, err := NewHTTPStore(HTTPSource{URL: "http://test.com/content/"}, nil, 0)
	require.NoError(t, err)

	assert.Equal(t, "http://test.com/content/f1", store.contentURL("f1"))
	assert.Equal(t, "http://test.com/content/a%2Fb", store.contentURL("a/b"))
}

func TestHTTPStore_RoundTrip(t *testing.T) {
	t.Parallel()

	srv, cs := newContentServer(t)
	store, err := NewHTTPStore(HTTPSource{
		URL:     srv.URL + "/content",
		Headers: map[string]string{"Authorization": "Bearer token"},
	}, srv.Client(), time.Second)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Get(ctx, "f1")
	assert.ErrorIs(t, err, docfs.ErrContentNotFound)

	require.NoError(t, store.Put(ctx, "f1", []byte("<h1>hello</h1>")))
	data, err := store.Get(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "<h1>hello</h1>", string(data))

	require.NoError(t, store.Delete(ctx, "f1"))
	require.NoError(t, store.Delete(ctx, "f1"), "deleting missing content is not an error")
	_, err = store.Get(ctx, "f1")
	assert.ErrorIs(t, err, docfs.ErrContentNotFound)

	cs.mu.Lock()
	defer cs.mu.Unlock()
	for _, h := range cs.headers {
		assert.Equal(t, "Bearer token", h.Get("Authorization"))
	}
}

func TestHTTPStore_Errors(t *testing.T) {
	t.Parallel()

	t.Run("transport error", func(t *testing.T) {
		t.Parallel()
		client := &MockHTTPClient{}
		client.On("Do", mock.Anything).Return(nil, errors.New("boom"))
		store, err := NewHTTPStore(HTTPSource{URL: "http://test.com"}, client, 0)
		require.NoError(t, err)

		_, err = store.Get(context.Background(), "f1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
		assert.Error(t, store.Put(context.Background(), "f1", nil))
		assert.Error(t, store.Delete(context.Background(), "f1"))
		client.AssertNumberOfCalls(t, "Do", 3)
	})

	t.Run("server error", func(t *testing.T) {
		t.Parallel()
		client := &MockHTTPClient{}
		client.On("Do", mock.MatchedBy(func(req *http.Request) bool {
			return req.URL.String() == "http://test.com/f1"
		})).Return(&http.Response{
			StatusCode: http.StatusInternalServerError,
			Body:       io.NopCloser(strings.NewReader("")),
		}, nil)
		store, err := NewHTTPStore(HTTPSource{URL: "http://test.com"}, client, 0)
		require.NoError(t, err)

		_, err = store.Get(context.Background(), "f1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, docfs.ErrContentNotFound)
		assert.Contains(t, err.Error(), "500")
	})

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer srv.Close()
		store, err := NewHTTPStore(HTTPSource{URL: srv.URL}, srv.Client(), 20*time.Millisecond)
		require.NoError(t, err)

		_, err = store.Get(context.Background(), "slow")
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
