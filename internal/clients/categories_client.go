package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// CategoriesClient asks the categories-service about categories that are not
// mirrored locally
type CategoriesClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Entry
}

// Category represents a category from categories-service
type Category struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Status   string `json:"status"`
	IsActive bool   `json:"isActive"`
}

// CategoryResponse from categories-service
type CategoryResponse struct {
	Success bool      `json:"success"`
	Data    *Category `json:"data,omitempty"`
	Message *string   `json:"message,omitempty"`
}

// NewCategoriesClient returns nil when baseURL is empty so callers can skip
// the remote lookup entirely
func NewCategoriesClient(baseURL string, logger *logrus.Logger) *CategoriesClient {
	if baseURL == "" {
		return nil
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CategoriesClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.WithField("component", "clients.categories"),
	}
}

// GetCategoryByID retrieves a category by its ID. A 404 yields (nil, nil).
func (c *CategoriesClient) GetCategoryByID(ctx context.Context, tenantID, categoryID string) (*Category, error) {
	endpoint := fmt.Sprintf("%s/api/v1/categories/%s", c.baseURL, url.PathEscape(categoryID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Tenant-ID", tenantID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).Warn("Error calling categories API")
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("categories-service returned status %d", resp.StatusCode)
	}

	var result CategoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode category response: %w", err)
	}
	return result.Data, nil
}

// CategoryExists reports whether the categories-service knows the category
func (c *CategoriesClient) CategoryExists(ctx context.Context, tenantID, categoryID string) (bool, error) {
	category, err := c.GetCategoryByID(ctx, tenantID, categoryID)
	if err != nil {
		return false, err
	}
	return category != nil, nil
}
