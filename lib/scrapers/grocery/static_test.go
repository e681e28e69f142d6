package grocery

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"budgeat-backend/lib/testutil"

	"github.com/stretchr/testify/require"
)

func testStore(baseUrl string) Store {
	return Store{Id: "teststore", Name: "Test Store", BaseUrl: baseUrl}
}

func TestStaticNavigatorLoadsPage(t *testing.T) {
	_, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "grocery"})
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)
		require.Equal(t, "eggs", r.URL.Query().Get("q"))
		w.Write([]byte(searchResultsPage))
	}))
	defer server.Close()

	nav := NewStaticNavigator()
	page, err := nav.Load(context.Background(), testStore(server.URL), "eggs")
	require.NoError(t, err)
	require.Equal(t, "teststore", page.StoreId)
	require.Contains(t, page.HTML, "$3.29")
	// a static fetch cannot rasterize, the vision tier is skipped
	require.Nil(t, page.Screenshot)
}

func TestStaticNavigatorClassifiesBlocked(t *testing.T) {
	_, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "grocery"})
	defer cleanup()

	byStatus := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer byStatus.Close()

	nav := NewStaticNavigator()
	_, err := nav.Load(context.Background(), testStore(byStatus.URL), "eggs")
	require.True(t, errors.Is(err, ErrBlocked))

	// challenge pages come back with a 200
	byBody := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>please verify you are a human</html>"))
	}))
	defer byBody.Close()

	_, err = nav.Load(context.Background(), testStore(byBody.URL), "eggs")
	require.True(t, errors.Is(err, ErrBlocked))
}

func TestStaticNavigatorClassifiesTransport(t *testing.T) {
	_, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "grocery"})
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	nav := NewStaticNavigator()
	_, err := nav.Load(context.Background(), testStore(server.URL), "eggs")
	require.True(t, errors.Is(err, ErrTransport))
}
