package wizard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"wizard-backend/model"
	"wizard-backend/services"
	"wizard-backend/storage"
)

type fakeCatalog struct {
	products     []model.Product
	filterErr    error
	filterCalls  int
	picklists    map[string][]services.PicklistValue
	prices       map[string]float64
	count        int
	serviceable  bool
	zipErr       error
	zipCalls     int
	lastCriteria model.FilterCriteria
}

func (f *fakeCatalog) FilterProducts(_ context.Context, criteria model.FilterCriteria) ([]model.Product, error) {
	f.filterCalls++
	f.lastCriteria = criteria
	if f.filterErr != nil {
		return nil, f.filterErr
	}
	return f.products, nil
}

func (f *fakeCatalog) GetPicklistValues(_ context.Context, field string) ([]services.PicklistValue, error) {
	return f.picklists[field], nil
}

func (f *fakeCatalog) GetTotalProductCount(context.Context) (int, error) {
	return f.count, nil
}

func (f *fakeCatalog) GetProductPrice(_ context.Context, productID string) (float64, error) {
	price, ok := f.prices[productID]
	if !ok {
		return 0, errors.New("no price")
	}
	return price, nil
}

func (f *fakeCatalog) IsZipServiceable(context.Context, string) (bool, error) {
	f.zipCalls++
	if f.zipErr != nil {
		return false, f.zipErr
	}
	return f.serviceable, nil
}

type fakeOrders struct {
	orderID string
	err     error
	calls   int
	lastReq services.CreateOrderRequest
}

func (f *fakeOrders) CreateOrder(_ context.Context, req services.CreateOrderRequest) (string, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return "", f.err
	}
	return f.orderID, nil
}

func testProducts() []model.Product {
	return []model.Product{
		{ID: "p1", Name: "Filter Unit", UnitPrice: 100.00},
		{ID: "p2", Name: "Softener", UnitPrice: 50.00},
		{ID: "p3", Name: "UV Lamp", UnitPrice: 75.00},
	}
}

func newTestOrchestrator(catalog *fakeCatalog, orders *fakeOrders) (*Orchestrator, *storage.MemoryStore) {
	store := storage.NewMemoryStore(30 * time.Minute)
	if catalog == nil {
		catalog = &fakeCatalog{}
	}
	if orders == nil {
		orders = &fakeOrders{}
	}
	return New(store, catalog, orders), store
}

func TestEnsureSessionClearsOnFreshSession(t *testing.T) {
	ctx := context.Background()
	orch, store := newTestOrchestrator(nil, nil)

	// Leftovers from a previous, unrelated session.
	require.NoError(t, store.Save(ctx, "sess", storage.KeySelectedProducts, testProducts()))
	require.NoError(t, store.Save(ctx, "sess", storage.KeyNavigationState, model.WizardState{CurrentView: model.ViewDetail}))

	fresh := orch.EnsureSession(ctx, "sess")
	require.True(t, fresh)

	var products []model.Product
	require.False(t, store.Load(ctx, "sess", storage.KeySelectedProducts, &products))
	require.Equal(t, model.ViewFilter, orch.State(ctx, "sess").CurrentView)
}

func TestEnsureSessionPreservesActiveSession(t *testing.T) {
	ctx := context.Background()
	orch, store := newTestOrchestrator(nil, nil)

	require.True(t, orch.EnsureSession(ctx, "sess"))
	require.NoError(t, store.Save(ctx, "sess", storage.KeySelectedProducts, testProducts()))

	// Second entry point within the same session must not clear.
	require.False(t, orch.EnsureSession(ctx, "sess"))

	var products []model.Product
	require.True(t, store.Load(ctx, "sess", storage.KeySelectedProducts, &products))
	require.Len(t, products, 3)
}

func TestApplyFilterMovesToTableAndClearsSelections(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{products: testProducts()}
	orch, store := newTestOrchestrator(catalog, nil)
	orch.EnsureSession(ctx, "sess")

	// Selections from an earlier filter round.
	require.NoError(t, store.Save(ctx, "sess", storage.KeySelectedProductIds, []string{"p9"}))
	require.NoError(t, store.Save(ctx, "sess", storage.KeySelectedProducts, []model.Product{{ID: "p9"}}))

	criteria := model.FilterCriteria{FamilyType: "X"}
	products, err := orch.ApplyFilter(ctx, "sess", criteria)
	require.NoError(t, err)
	require.Len(t, products, 3)
	require.Equal(t, criteria, catalog.lastCriteria)

	state := orch.State(ctx, "sess")
	require.Equal(t, model.ViewTable, state.CurrentView)
	require.Equal(t, criteria, state.FilterCriteria)
	require.Len(t, state.FilteredProducts, 3)

	// A new filter application always discards previous selections.
	var ids []string
	store.Load(ctx, "sess", storage.KeySelectedProductIds, &ids)
	require.Empty(t, ids)

	var selected []model.Product
	require.False(t, store.Load(ctx, "sess", storage.KeySelectedProducts, &selected))
}

func TestApplyFilterGatewayErrorLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{products: testProducts()}
	orch, store := newTestOrchestrator(catalog, nil)
	orch.EnsureSession(ctx, "sess")

	_, err := orch.ApplyFilter(ctx, "sess", model.FilterCriteria{FamilyType: "X"})
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "sess", storage.KeySelectedProductIds, []string{"p1"}))

	catalog.filterErr = errors.New("boom")
	_, err = orch.ApplyFilter(ctx, "sess", model.FilterCriteria{FamilyType: "Y"})

	var gatewayErr *services.GatewayError
	require.ErrorAs(t, err, &gatewayErr)
	require.Equal(t, "Unable to load products. Please try again.", gatewayErr.Message)

	// Prior filtered products and selections survive.
	state := orch.State(ctx, "sess")
	require.Equal(t, "X", state.FilterCriteria.FamilyType)
	require.Len(t, state.FilteredProducts, 3)

	var ids []string
	require.True(t, store.Load(ctx, "sess", storage.KeySelectedProductIds, &ids))
	require.Equal(t, []string{"p1"}, ids)
}

func TestToggleSelection(t *testing.T) {
	ctx := context.Background()
	orch, store := newTestOrchestrator(nil, nil)
	orch.EnsureSession(ctx, "sess")

	require.Equal(t, []string{"p1"}, orch.ToggleSelection(ctx, "sess", "p1"))
	require.Equal(t, []string{"p1", "p2"}, orch.ToggleSelection(ctx, "sess", "p2"))
	require.Equal(t, []string{"p2"}, orch.ToggleSelection(ctx, "sess", "p1"))

	var ids []string
	require.True(t, store.Load(ctx, "sess", storage.KeySelectedProductIds, &ids))
	require.Equal(t, []string{"p2"}, ids)
}

func TestSelectedProductsFollowsFilteredOrder(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{products: testProducts()}
	orch, _ := newTestOrchestrator(catalog, nil)
	orch.EnsureSession(ctx, "sess")

	_, err := orch.ApplyFilter(ctx, "sess", model.FilterCriteria{})
	require.NoError(t, err)

	orch.ToggleSelection(ctx, "sess", "p3")
	orch.ToggleSelection(ctx, "sess", "p1")

	selected := orch.SelectedProducts(ctx, "sess")
	require.Len(t, selected, 2)
	require.Equal(t, "p1", selected[0].ID)
	require.Equal(t, "p3", selected[1].ID)
}

func TestNavigateToTermsWithPayloadPersistsExactly(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{products: testProducts()}
	orch, store := newTestOrchestrator(catalog, nil)
	orch.EnsureSession(ctx, "sess")

	_, err := orch.ApplyFilter(ctx, "sess", model.FilterCriteria{FamilyType: "X"})
	require.NoError(t, err)

	payload := []model.Product{testProducts()[0], testProducts()[1]}
	result, err := orch.Navigate(ctx, "sess", model.NavigationEvent{View: model.ViewTerms, Data: payload})
	require.NoError(t, err)
	require.Equal(t, model.ViewTerms, result.View)
	require.Equal(t, payload, result.SelectedProducts)

	// (100 + 50) * 1.10
	require.InDelta(t, 165.00, result.TotalPrice, 0.0001)

	var persisted []model.Product
	require.True(t, store.Load(ctx, "sess", storage.KeySelectedProducts, &persisted))
	require.Equal(t, payload, persisted)
}

func TestNavigateBackToTableRestoresSnapshot(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{products: testProducts()}
	orch, _ := newTestOrchestrator(catalog, nil)
	orch.EnsureSession(ctx, "sess")

	criteria := model.FilterCriteria{FamilyType: "X"}
	_, err := orch.ApplyFilter(ctx, "sess", criteria)
	require.NoError(t, err)

	payload := []model.Product{testProducts()[0]}
	_, err = orch.Navigate(ctx, "sess", model.NavigationEvent{View: model.ViewTerms, Data: payload})
	require.NoError(t, err)

	// Back-navigation without a payload restores from the snapshot, not
	// from the event.
	result, err := orch.Navigate(ctx, "sess", model.NavigationEvent{View: model.ViewTable})
	require.NoError(t, err)
	require.Equal(t, model.ViewTable, result.View)
	require.Equal(t, criteria, result.State.FilterCriteria)
	require.Len(t, result.State.FilteredProducts, 3)
	require.False(t, result.ReloadSelections)
}

func TestNavigateToTableWithPreserveSelections(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{products: testProducts()}
	orch, store := newTestOrchestrator(catalog, nil)
	orch.EnsureSession(ctx, "sess")

	_, err := orch.ApplyFilter(ctx, "sess", model.FilterCriteria{})
	require.NoError(t, err)
	orch.ToggleSelection(ctx, "sess", "p1")
	orch.ToggleSelection(ctx, "sess", "p2")

	result, err := orch.Navigate(ctx, "sess", model.NavigationEvent{
		View:               model.ViewTable,
		PreserveSelections: true,
	})
	require.NoError(t, err)
	require.True(t, result.ReloadSelections)
	require.Equal(t, []string{"p1", "p2"}, result.SelectedIDs)

	// The stored selection set survives the return.
	var ids []string
	require.True(t, store.Load(ctx, "sess", storage.KeySelectedProductIds, &ids))
	require.Equal(t, []string{"p1", "p2"}, ids)
}

func TestNavigateToTableWithoutPreserveClearsSelections(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{products: testProducts()}
	orch, store := newTestOrchestrator(catalog, nil)
	orch.EnsureSession(ctx, "sess")

	_, err := orch.ApplyFilter(ctx, "sess", model.FilterCriteria{})
	require.NoError(t, err)
	orch.ToggleSelection(ctx, "sess", "p1")

	_, err = orch.Navigate(ctx, "sess", model.NavigationEvent{View: model.ViewTable})
	require.NoError(t, err)

	var ids []string
	store.Load(ctx, "sess", storage.KeySelectedProductIds, &ids)
	require.Empty(t, ids)
}

func TestNavigateBackToTermsRecomputesFromStore(t *testing.T) {
	ctx := context.Background()
	orch, store := newTestOrchestrator(nil, nil)
	orch.EnsureSession(ctx, "sess")

	saved := []model.Product{{ID: "p1", UnitPrice: 200.00}}
	require.NoError(t, store.Save(ctx, "sess", storage.KeySelectedProducts, saved))

	result, err := orch.Navigate(ctx, "sess", model.NavigationEvent{View: model.ViewTerms})
	require.NoError(t, err)
	require.Equal(t, saved, result.SelectedProducts)
	require.InDelta(t, 220.00, result.TotalPrice, 0.0001)
}

func TestNavigateToDetailWithSelectedTermsOverlaysTerms(t *testing.T) {
	ctx := context.Background()
	orch, store := newTestOrchestrator(nil, nil)
	orch.EnsureSession(ctx, "sess")

	saved := []model.Product{{ID: "p1", UnitPrice: 100.00}}
	require.NoError(t, store.Save(ctx, "sess", storage.KeySelectedProducts, saved))

	result, err := orch.Navigate(ctx, "sess", model.NavigationEvent{
		View:          model.ViewDetail,
		SelectedTerms: &model.SelectedTerms{MainOption: "rent_to_own", ProductTerm: "12"},
	})
	require.NoError(t, err)

	// Selection restored from storage, not the event.
	require.Equal(t, saved, result.SelectedProducts)
	require.Equal(t, "rent_to_own", result.State.SelectedMainOption)
	require.Equal(t, "12", result.State.SelectedProductTerm)

	var form model.DetailFormData
	require.True(t, store.Load(ctx, "sess", storage.KeyProductDetailForm, &form))
	require.Equal(t, "12", form.SelectedProductTerm)
}

func TestNavigateToDetailWithPayloadFetchesPrices(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{prices: map[string]float64{"p1": 100.00}}
	orch, store := newTestOrchestrator(catalog, nil)
	orch.EnsureSession(ctx, "sess")

	payload := []model.Product{{ID: "p1", Name: "Filter Unit"}, {ID: "p2", Name: "Softener"}}
	_, err := orch.Navigate(ctx, "sess", model.NavigationEvent{View: model.ViewDetail, Data: payload})
	require.NoError(t, err)

	var detail model.DetailData
	require.True(t, store.Load(ctx, "sess", storage.KeyProductDetail, &detail))
	require.Len(t, detail.Products, 2)
	require.Equal(t, 1, detail.Quantities["p1"])
	require.Equal(t, 100.00, detail.Prices["p1"])
	// Failed price fetch degrades the product to 0.
	require.Equal(t, 0.00, detail.Prices["p2"])
}

func TestNavigateToTermsWithEmptySelectionRejected(t *testing.T) {
	ctx := context.Background()
	orch, _ := newTestOrchestrator(nil, nil)
	orch.EnsureSession(ctx, "sess")

	_, err := orch.Navigate(ctx, "sess", model.NavigationEvent{
		View: model.ViewTerms,
		Data: []model.Product{},
	})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "Please select at least one product to proceed.", validationErr.Message)
}

func TestNavigateToDetailRentToOwnRequiresTerm(t *testing.T) {
	ctx := context.Background()
	orch, _ := newTestOrchestrator(nil, nil)
	orch.EnsureSession(ctx, "sess")

	_, err := orch.Navigate(ctx, "sess", model.NavigationEvent{
		View:          model.ViewDetail,
		SelectedTerms: &model.SelectedTerms{MainOption: "rent_to_own"},
	})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "Please select a payment term to proceed.", validationErr.Message)
}

func TestNavigateUnknownViewRejected(t *testing.T) {
	ctx := context.Background()
	orch, _ := newTestOrchestrator(nil, nil)
	orch.EnsureSession(ctx, "sess")

	_, err := orch.Navigate(ctx, "sess", model.NavigationEvent{View: "checkout"})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestSetQuantityRecomputesSummary(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{prices: map[string]float64{"p1": 10.00, "p2": 20.00}}
	orch, _ := newTestOrchestrator(catalog, nil)
	orch.EnsureSession(ctx, "sess")

	payload := []model.Product{{ID: "p1"}, {ID: "p2"}}
	_, err := orch.Navigate(ctx, "sess", model.NavigationEvent{View: model.ViewDetail, Data: payload})
	require.NoError(t, err)

	summary, err := orch.SetQuantity(ctx, "sess", "p1", 3)
	require.NoError(t, err)
	require.Equal(t, "50.00", summary.Subtotal)
	require.Equal(t, "5.00", summary.TaxAmount)
	require.Equal(t, "55.00", summary.TotalWithTax)
}

func TestSetQuantityRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	orch, _ := newTestOrchestrator(nil, nil)
	orch.EnsureSession(ctx, "sess")

	var validationErr *ValidationError
	_, err := orch.SetQuantity(ctx, "sess", "p1", 0)
	require.ErrorAs(t, err, &validationErr)

	_, err = orch.SetQuantity(ctx, "sess", "", 2)
	require.ErrorAs(t, err, &validationErr)
}

func TestTermPlansDeriveMonthlyInstallments(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{
		products: []model.Product{{ID: "p1", UnitPrice: 1090.909090909}},
		picklists: map[string][]services.PicklistValue{
			ProductTermsField: {
				{Label: "12 Months", Value: "12"},
				{Label: "24 Months", Value: "24"},
				{Label: "Upfront", Value: "Upfront"},
			},
		},
	}
	orch, _ := newTestOrchestrator(catalog, nil)
	orch.EnsureSession(ctx, "sess")

	_, err := orch.Navigate(ctx, "sess", model.NavigationEvent{
		View: model.ViewTerms,
		Data: []model.Product{{ID: "p1", UnitPrice: 1090.909090909}},
	})
	require.NoError(t, err)

	plans, err := orch.TermPlans(ctx, "sess")
	require.NoError(t, err)

	// None first, then one row per numeric term; non-numeric values are
	// not installment plans.
	require.Len(t, plans, 3)
	require.Equal(t, "none", plans[0].Value)
	require.Equal(t, "100.00", plans[1].FormattedPrice)
	require.Equal(t, "50.00", plans[2].FormattedPrice)
}

func TestSubmitOrderValidatesRequiredFields(t *testing.T) {
	ctx := context.Background()
	orders := &fakeOrders{orderID: "006XX0000012345"}
	orch, _ := newTestOrchestrator(nil, orders)
	orch.EnsureSession(ctx, "sess")

	form := model.OrderForm{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}
	_, err := orch.SubmitOrder(ctx, "sess", form)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	// Validation failures never reach the gateway.
	require.Zero(t, orders.calls)
}

func TestSubmitOrderSendsSelectionAndTerm(t *testing.T) {
	ctx := context.Background()
	orders := &fakeOrders{orderID: "006XX0000012345"}
	orch, store := newTestOrchestrator(nil, orders)
	orch.EnsureSession(ctx, "sess")

	require.NoError(t, store.Save(ctx, "sess", storage.KeySelectedProducts, []model.Product{
		{ID: "p1", Name: "Filter Unit", UnitPrice: 100.00},
		{ID: "p2", Name: "Softener", UnitPrice: 50.00},
	}))

	_, err := orch.Navigate(ctx, "sess", model.NavigationEvent{
		View:          model.ViewDetail,
		SelectedTerms: &model.SelectedTerms{MainOption: "rent_to_own", ProductTerm: "12"},
	})
	require.NoError(t, err)

	form := model.OrderForm{
		FirstName: "Ada", LastName: "Lovelace",
		Email: "ada@example.com", Phone: "5551234",
		Street: "1 Analytical Way", City: "London", Country: "UK",
	}
	orderID, err := orch.SubmitOrder(ctx, "sess", form)
	require.NoError(t, err)
	require.Equal(t, "006XX0000012345", orderID)

	require.Equal(t, []string{"p1", "p2"}, orders.lastReq.SelectedProductIDs)
	require.Equal(t, "12", orders.lastReq.SelectedProductTerm)
	require.Equal(t, "Ada", orders.lastReq.FirstName)

	// Per-submission form state is reset on success.
	var formData model.DetailFormData
	require.False(t, store.Load(ctx, "sess", storage.KeyProductDetailForm, &formData))
}

func TestSubmitOrderGatewayErrorPassesThrough(t *testing.T) {
	ctx := context.Background()
	orders := &fakeOrders{err: &services.GatewayError{Message: "Duplicate account detected"}}
	orch, store := newTestOrchestrator(nil, orders)
	orch.EnsureSession(ctx, "sess")

	require.NoError(t, store.Save(ctx, "sess", storage.KeySelectedProducts, []model.Product{{ID: "p1"}}))

	form := model.OrderForm{FirstName: "Ada", LastName: "Lovelace", Email: "a@b.c", Phone: "5551234"}
	_, err := orch.SubmitOrder(ctx, "sess", form)

	var gatewayErr *services.GatewayError
	require.ErrorAs(t, err, &gatewayErr)
	require.Equal(t, "Duplicate account detected", gatewayErr.Message)
}
