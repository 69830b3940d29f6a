package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoriesClient_CategoryExists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tenant-a", r.Header.Get("X-Tenant-ID"))
		switch r.URL.Path {
		case "/api/v1/categories/7":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"success":true,"data":{"id":"7","name":"Shoes","isActive":true}}`))
		case "/api/v1/categories/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewCategoriesClient(server.URL+"/", nil)
	require.NotNil(t, client)
	ctx := context.Background()

	ok, err := client.CategoryExists(ctx, "tenant-a", "7")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.CategoryExists(ctx, "tenant-a", "8")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = client.CategoryExists(ctx, "tenant-a", "broken")
	assert.Error(t, err)

	category, err := client.GetCategoryByID(ctx, "tenant-a", "7")
	require.NoError(t, err)
	assert.Equal(t, "Shoes", category.Name)
}

func TestNewCategoriesClient_EmptyURL(t *testing.T) {
	assert.Nil(t, NewCategoriesClient("", nil))
}
