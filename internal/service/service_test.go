package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gestistock/internal/models"
	"gestistock/internal/redisclient"
	"gestistock/internal/store/memstore"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seller = models.Actor{ID: "u-1", Name: "Awa", Role: models.RoleSeller}

type recordingPublisher struct {
	mu        sync.Mutex
	fail      bool
	created   []*models.SaleCreatedEvent
	cancelled []*models.SaleCancelledEvent
	payments  []*models.PaymentRecordedEvent
	promoted  []*models.ClientPromotedEvent
	levels    []*models.StockLevelChangedEvent
}

var errBrokerDown = errors.New("broker down")

func (p *recordingPublisher) record(fn func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errBrokerDown
	}
	fn()
	return nil
}

func (p *recordingPublisher) PublishSaleCreated(_ context.Context, e *models.SaleCreatedEvent) error {
	return p.record(func() { p.created = append(p.created, e) })
}

func (p *recordingPublisher) PublishSaleCancelled(_ context.Context, e *models.SaleCancelledEvent) error {
	return p.record(func() { p.cancelled = append(p.cancelled, e) })
}

func (p *recordingPublisher) PublishPaymentRecorded(_ context.Context, e *models.PaymentRecordedEvent) error {
	return p.record(func() { p.payments = append(p.payments, e) })
}

func (p *recordingPublisher) PublishClientPromoted(_ context.Context, e *models.ClientPromotedEvent) error {
	return p.record(func() { p.promoted = append(p.promoted, e) })
}

func (p *recordingPublisher) PublishStockLevelChanged(_ context.Context, e *models.StockLevelChangedEvent) error {
	return p.record(func() { p.levels = append(p.levels, e) })
}

type fixture struct {
	repo     *memstore.Store
	redis    *redisclient.Client
	mr       *miniredis.Miniredis
	events   *recordingPublisher
	sales    *SaleService
	stock    *StockService
	catalog  *CatalogService
	notifier *NotificationService
	reports  *ReportService
	ctx      context.Context
	t        *testing.T
}

func newFixture(t *testing.T, policy Policy) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redisclient.Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = rc.Close() })

	repo := memstore.New()
	events := &recordingPublisher{}
	return &fixture{
		repo:     repo,
		redis:    rc,
		mr:       mr,
		events:   events,
		sales:    NewSaleService(repo, rc, events, policy),
		stock:    NewStockService(repo, rc, events, policy),
		catalog:  NewCatalogService(repo, events),
		notifier: NewNotificationService(repo),
		reports:  NewReportService(repo, rc, policy),
		ctx:      context.Background(),
		t:        t,
	}
}

func (f *fixture) product(name string, quantity, threshold int, sellPrice, buyPrice int64, supplierID *string) *models.Product {
	f.t.Helper()
	p := &models.Product{
		ID:         uuid.New().String(),
		Name:       name,
		Category:   models.CategoryFood,
		Unit:       models.UnitBag,
		BuyPrice:   decimal.NewFromInt(buyPrice),
		SellPrice:  decimal.NewFromInt(sellPrice),
		Threshold:  threshold,
		SupplierID: supplierID,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	p.SetQuantity(quantity)
	require.NoError(f.t, f.repo.CreateProduct(f.ctx, p))
	return p
}

func (f *fixture) client(name string, totalPurchases int64) *models.Client {
	f.t.Helper()
	c := &models.Client{
		ID:             uuid.New().String(),
		Name:           name,
		Phone:          "+237600000000",
		TotalPurchases: decimal.NewFromInt(totalPurchases),
		Status:         models.ClientStatusActive,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	require.NoError(f.t, f.repo.CreateClient(f.ctx, c))
	return c
}

func (f *fixture) supplier(name string) *models.Supplier {
	f.t.Helper()
	s := &models.Supplier{
		ID:         uuid.New().String(),
		Name:       name,
		Phone:      "+237699999999",
		Contact:    "Jean",
		TotalValue: decimal.Zero,
		Status:     models.SupplierStatusActive,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	require.NoError(f.t, f.repo.CreateSupplier(f.ctx, s))
	return s
}

func (f *fixture) reloadProduct(id string) *models.Product {
	f.t.Helper()
	p, err := f.repo.GetProduct(f.ctx, id)
	require.NoError(f.t, err)
	return p
}

func (f *fixture) reloadClient(id string) *models.Client {
	f.t.Helper()
	c, err := f.repo.GetClient(f.ctx, id)
	require.NoError(f.t, err)
	return c
}

func (f *fixture) reloadSupplier(id string) *models.Supplier {
	f.t.Helper()
	s, err := f.repo.GetSupplier(f.ctx, id)
	require.NoError(f.t, err)
	return s
}

func assertDecimal(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(decimal.NewFromInt(want)), "want %d, got %s", want, got.String())
}

func amount(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func assertStatusDerived(t *testing.T, p *models.Product) {
	t.Helper()
	assert.Equal(t, models.StockStatusFor(p.Quantity, p.Threshold), p.Status, "product %s", p.Name)
}

func assertSaleBalanced(t *testing.T, s *models.Sale) {
	t.Helper()
	assert.True(t, s.AmountPaid.Add(s.AmountDue).Equal(s.Total), "paid %s + due %s != total %s", s.AmountPaid, s.AmountDue, s.Total)
	sum := decimal.Zero
	for _, p := range s.Payments {
		sum = sum.Add(p.Amount)
	}
	assert.True(t, sum.Equal(s.AmountPaid), "payments sum %s != amount paid %s", sum, s.AmountPaid)
}
