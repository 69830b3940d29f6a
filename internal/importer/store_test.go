package importer

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"catalog-import-service/internal/models"
)

// ============================================================================
// In-memory product store
// ============================================================================

type memStore struct {
	mu         sync.Mutex
	bySKU      map[string]*models.Product
	categories map[string]bool

	createCalls int
	updateCalls int

	// failCreate makes CreateProduct fail for the given SKU
	failCreate map[string]error
	// raceOnCreate simulates a concurrent writer taking the SKU right before
	// our create lands
	raceOnCreate map[string]bool
	lookupErr    error
}

var _ ProductStore = (*memStore)(nil)

func newMemStore(categories ...string) *memStore {
	s := &memStore{
		bySKU:        make(map[string]*models.Product),
		categories:   make(map[string]bool),
		failCreate:   make(map[string]error),
		raceOnCreate: make(map[string]bool),
	}
	for _, c := range categories {
		s.categories[c] = true
	}
	return s
}

func (s *memStore) seed(sku string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.bySKU[sku] = &models.Product{ID: id, SKU: sku, Name: "existing " + sku}
	return id
}

func (s *memStore) FindBySKU(ctx context.Context, sku string) (bool, uuid.UUID, *models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return false, uuid.Nil, nil, s.lookupErr
	}
	p, ok := s.bySKU[sku]
	if !ok {
		return false, uuid.Nil, nil, nil
	}
	return true, p.ID, p, nil
}

func (s *memStore) CategoryExists(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.categories[id], nil
}

func (s *memStore) CreateProduct(ctx context.Context, product *models.Product) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if err, ok := s.failCreate[product.SKU]; ok {
		return uuid.Nil, err
	}
	if s.raceOnCreate[product.SKU] {
		delete(s.raceOnCreate, product.SKU)
		s.bySKU[product.SKU] = &models.Product{ID: uuid.New(), SKU: product.SKU, Name: "concurrent"}
		return uuid.Nil, models.ErrDuplicateSKU
	}
	if _, exists := s.bySKU[product.SKU]; exists {
		return uuid.Nil, models.ErrDuplicateSKU
	}
	product.ID = uuid.New()
	s.bySKU[product.SKU] = product
	return product.ID, nil
}

func (s *memStore) UpdateProduct(ctx context.Context, id uuid.UUID, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateCalls++
	for sku, p := range s.bySKU {
		if p.ID == id {
			product.ID = id
			s.bySKU[sku] = product
			return nil
		}
	}
	return models.ErrProductNotFound
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bySKU)
}

// ============================================================================
// Mock product store
// ============================================================================

type MockProductStore struct {
	mock.Mock
}

var _ ProductStore = (*MockProductStore)(nil)

func (m *MockProductStore) FindBySKU(ctx context.Context, sku string) (bool, uuid.UUID, *models.Product, error) {
	args := m.Called(ctx, sku)
	var p *models.Product
	if v := args.Get(2); v != nil {
		p = v.(*models.Product)
	}
	return args.Bool(0), args.Get(1).(uuid.UUID), p, args.Error(3)
}

func (m *MockProductStore) CategoryExists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductStore) CreateProduct(ctx context.Context, product *models.Product) (uuid.UUID, error) {
	args := m.Called(ctx, product)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockProductStore) UpdateProduct(ctx context.Context, id uuid.UUID, product *models.Product) error {
	args := m.Called(ctx, id, product)
	return args.Error(0)
}
