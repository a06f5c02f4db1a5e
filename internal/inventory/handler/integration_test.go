//go:build integration

package handler_test

import (
	"context"
	"log"
	"net/http"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/maestranza/maestranza-backend/internal/inventory/app"
	"github.com/maestranza/maestranza-backend/internal/inventory/consumers"
	"github.com/maestranza/maestranza-backend/internal/inventory/domain"
	"github.com/maestranza/maestranza-backend/internal/inventory/events"
	"github.com/maestranza/maestranza-backend/internal/inventory/handler"
	userrepo "github.com/maestranza/maestranza-backend/internal/user/repository"
	"github.com/maestranza/maestranza-backend/pkg/messaging"
	"github.com/maestranza/maestranza-backend/pkg/permissions"
	"github.com/maestranza/maestranza-backend/pkg/storage"
	"github.com/maestranza/maestranza-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var suite *testutil.IntegrationSuite

func TestMain(m *testing.M) {
	ctx := context.Background()
	var err error
	suite, err = testutil.NewIntegrationSuite(ctx)
	if err != nil {
		log.Fatalf("failed to start integration suite: %v", err)
	}
	code := m.Run()
	_ = suite.Cleanup(ctx)
	os.Exit(code)
}

// newAPI wires the real services over the test database with an
// in-process bus, as the service runs without a broker
func newAPI(t *testing.T) http.Handler {
	t.Helper()
	testutil.SkipIfShort(t)
	require.NoError(t, suite.Reset(context.Background()))

	files, err := storage.NewFileStore(t.TempDir(), "http://files.local")
	require.NoError(t, err)

	bus := messaging.NewLocalBus(events.Source, suite.Logger)
	svc := app.NewServices(app.Deps{
		DB:         suite.DB,
		Publisher:  bus,
		Mailer:     &testutil.MockMailer{},
		Files:      files,
		Recipients: userrepo.NewUserRepository(suite.DB),
	}, suite.Logger)
	consumers.NewAlertConsumer(svc.Orders, suite.Logger).Register(bus)
	consumers.NewQuotationConsumer(svc.Quotations, suite.Logger).Register(bus)

	r := chi.NewRouter()
	handler.Register(r, svc, suite.Logger)
	return r
}

func TestLowStockExitToCompletedOrder(t *testing.T) {
	api := newAPI(t)
	ctx := context.Background()
	cat, err := suite.Fixtures.Catalog(ctx, testutil.ProductFixture{Stock: 8, StockMinimum: 5})
	require.NoError(t, err)
	clerk, err := suite.Fixtures.User(ctx, permissions.RoleInventario)
	require.NoError(t, err)
	buyer, err := suite.Fixtures.User(ctx, permissions.RoleComprador)
	require.NoError(t, err)

	do := func(method, path string, body interface{}, userID, role string) *testutil.Envelope {
		t.Helper()
		rr := testutil.ExecuteRequest(api, testutil.AsUser(testutil.NewHTTPRequest(method, path, body), userID, role))
		env := testutil.ParseEnvelope(t, rr, nil)
		if rr.Code >= 400 {
			t.Fatalf("%s %s: %d %s", method, path, rr.Code, rr.Body.String())
		}
		return &env
	}

	do(http.MethodPost, "/exits", map[string]interface{}{
		"product_id": cat.ProductID, "quantity": 5, "reason": domain.ExitInternalUse,
	}, clerk, permissions.RoleInventario)

	var orders []domain.Order
	rr := testutil.ExecuteRequest(api, testutil.AsUser(
		testutil.NewHTTPRequest(http.MethodGet, "/orders?product_id="+cat.ProductID, nil), buyer, permissions.RoleComprador))
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.ParseEnvelope(t, rr, &orders)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.OrderPending, orders[0].State)
	assert.Equal(t, 10, orders[0].QuantityOrdered)

	// Buyers can read orders but not complete them.
	rr = testutil.ExecuteRequest(api, testutil.AsUser(
		testutil.NewHTTPRequest(http.MethodPatch, "/orders/"+orders[0].ID+"/state", map[string]string{"state": domain.OrderCompleted}),
		buyer, permissions.RoleComprador))
	testutil.AssertStatus(t, rr, http.StatusForbidden)

	do(http.MethodPatch, "/orders/"+orders[0].ID+"/state", map[string]string{"state": domain.OrderCompleted}, clerk, permissions.RoleInventario)

	var product domain.Product
	rr = testutil.ExecuteRequest(api, testutil.AsUser(
		testutil.NewHTTPRequest(http.MethodGet, "/products/"+cat.ProductID, nil), clerk, permissions.RoleInventario))
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.ParseEnvelope(t, rr, &product)
	assert.Equal(t, 13, product.Stock)

	var alerts []domain.Alert
	rr = testutil.ExecuteRequest(api, testutil.AsUser(
		testutil.NewHTTPRequest(http.MethodGet, "/alerts?product_id="+cat.ProductID, nil), clerk, permissions.RoleInventario))
	testutil.ParseEnvelope(t, rr, &alerts)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.AlertArchived, alerts[0].State)
}

func TestExitBeyondStockIsRejected(t *testing.T) {
	api := newAPI(t)
	ctx := context.Background()
	cat, err := suite.Fixtures.Catalog(ctx, testutil.ProductFixture{Stock: 5, StockMinimum: 2})
	require.NoError(t, err)
	clerk, err := suite.Fixtures.User(ctx, permissions.RoleInventario)
	require.NoError(t, err)

	rr := testutil.ExecuteRequest(api, testutil.AsUser(testutil.NewHTTPRequest(http.MethodPost, "/exits", map[string]interface{}{
		"product_id": cat.ProductID, "quantity": 10, "reason": domain.ExitLoss,
	}), clerk, permissions.RoleInventario))

	testutil.AssertStatus(t, rr, http.StatusConflict)
	env := testutil.ParseEnvelope(t, rr, nil)
	require.NotNil(t, env.Error)
	assert.Equal(t, "10", env.Error.Details["requested"])
	assert.Equal(t, "5", env.Error.Details["available"])
}

func TestQuotationRequestRendersPDF(t *testing.T) {
	api := newAPI(t)
	ctx := context.Background()
	cat, err := suite.Fixtures.Catalog(ctx, testutil.ProductFixture{Stock: 1, StockMinimum: 4})
	require.NoError(t, err)
	admin, err := suite.Fixtures.User(ctx, permissions.RoleAdmin)
	require.NoError(t, err)

	var evaluation struct {
		Created int `json:"created"`
	}
	rr := testutil.ExecuteRequest(api, testutil.AsUser(testutil.NewHTTPRequest(http.MethodPost, "/alerts/evaluate", nil), admin, permissions.RoleAdmin))
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.ParseEnvelope(t, rr, &evaluation)
	assert.Equal(t, 1, evaluation.Created)

	var orders []domain.Order
	rr = testutil.ExecuteRequest(api, testutil.AsUser(testutil.NewHTTPRequest(http.MethodGet, "/orders?product_id="+cat.ProductID, nil), admin, permissions.RoleAdmin))
	testutil.ParseEnvelope(t, rr, &orders)
	require.Len(t, orders, 1)

	rr = testutil.ExecuteRequest(api, testutil.AsUser(testutil.NewHTTPRequest(http.MethodPost, "/orders/"+orders[0].ID+"/quotation", nil), admin, permissions.RoleAdmin))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	var q domain.Quotation
	testutil.ParseEnvelope(t, rr, &q)

	rr = testutil.ExecuteRequest(api, testutil.AsUser(testutil.NewHTTPRequest(http.MethodGet, "/quotations/"+q.ID, nil), admin, permissions.RoleAdmin))
	testutil.ParseEnvelope(t, rr, &q)
	require.NotNil(t, q.PDFURL)
	assert.Equal(t, "http://files.local/quotations/"+q.ID+".pdf", *q.PDFURL)

	rr = testutil.ExecuteRequest(api, testutil.AsUser(testutil.NewHTTPRequest(http.MethodPost, "/orders/"+orders[0].ID+"/quotation", nil), admin, permissions.RoleAdmin))
	testutil.AssertStatus(t, rr, http.StatusOK)
}
