// Package wizard is the view orchestrator: it owns the current screen
// identity, mediates navigation events raised by screens, and keeps the
// persisted wizard state consistent across transitions.
package wizard

import (
	"context"
	"log/slog"
	"strconv"

	"wizard-backend/model"
	"wizard-backend/pricing"
	"wizard-backend/services"
	"wizard-backend/storage"
)

// CatalogGateway is the slice of the catalog service the orchestrator
// needs (interface here for decoupling, like the handler clients).
type CatalogGateway interface {
	FilterProducts(ctx context.Context, criteria model.FilterCriteria) ([]model.Product, error)
	GetPicklistValues(ctx context.Context, field string) ([]services.PicklistValue, error)
	GetTotalProductCount(ctx context.Context) (int, error)
	GetProductPrice(ctx context.Context, productID string) (float64, error)
	IsZipServiceable(ctx context.Context, zipCode string) (bool, error)
}

// OrderGateway is the order-creation slice.
type OrderGateway interface {
	CreateOrder(ctx context.Context, req services.CreateOrderRequest) (string, error)
}

// ProductTermsField is the picklist driving the rent-to-own plan options.
const ProductTermsField = "Product_Terms__c"

// ValidationError blocks an action locally; its message is shown inline.
// No request is issued when one is returned.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NavigationResult is what the orchestrator hands back to the screen that
// just became active.
type NavigationResult struct {
	View             model.View        `json:"view"`
	State            model.WizardState `json:"state"`
	SelectedProducts []model.Product   `json:"selectedProducts"`
	TotalPrice       float64           `json:"totalPrice"`

	// ReloadSelections instructs the table screen to reload its selection
	// set instead of clearing it on mount; SelectedIDs carries that set.
	ReloadSelections bool     `json:"reloadSelections,omitempty"`
	SelectedIDs      []string `json:"selectedIds,omitempty"`
}

// PlanOption is one payment plan choice on the terms screen.
type PlanOption struct {
	Label          string `json:"label"`
	Value          string `json:"value"`
	ShowPrice      bool   `json:"showPrice"`
	FormattedPrice string `json:"formattedPrice"`
}

// DetailSummary is the detail screen's derived pricing block.
type DetailSummary struct {
	Subtotal     string `json:"subtotal"`
	TaxAmount    string `json:"taxAmount"`
	TotalWithTax string `json:"totalWithTax"`
}

// Orchestrator coordinates screens, the state store, and the two external
// gateways. It holds no per-session state of its own; everything lives in
// the store so a host-page refresh lands on the same snapshot.
type Orchestrator struct {
	logger  *slog.Logger
	store   storage.StateStore
	catalog CatalogGateway
	orders  OrderGateway
}

// New creates an orchestrator.
func New(store storage.StateStore, catalog CatalogGateway, orders OrderGateway) *Orchestrator {
	return &Orchestrator{
		logger:  slog.With("component", "Orchestrator"),
		store:   store,
		catalog: catalog,
		orders:  orders,
	}
}

// EnsureSession applies the session fence: the first touch of a session
// clears every stored wizard key before marking the session active, so
// stale state from an unrelated earlier session never leaks in. Subsequent
// touches just refresh the flag. Reports whether the session was fresh.
func (o *Orchestrator) EnsureSession(ctx context.Context, sessionID string) bool {
	fresh := o.store.IsFreshSession(ctx, sessionID)
	if fresh {
		if err := o.store.ClearAll(ctx, sessionID); err != nil {
			o.logger.Warn("Fresh-session clear failed", "session", sessionID, "error", err)
		}
	}
	if err := o.store.MarkSessionActive(ctx, sessionID); err != nil {
		o.logger.Warn("Failed to mark session active", "session", sessionID, "error", err)
	}
	return fresh
}

// State returns the persisted snapshot, defaulting to the filter screen
// when nothing has been saved yet.
func (o *Orchestrator) State(ctx context.Context, sessionID string) model.WizardState {
	state := model.WizardState{CurrentView: model.ViewFilter}
	o.store.Load(ctx, sessionID, storage.KeyNavigationState, &state)
	if state.CurrentView == "" {
		state.CurrentView = model.ViewFilter
	}
	return state
}

func (o *Orchestrator) saveState(ctx context.Context, sessionID string, state model.WizardState) {
	if err := o.store.Save(ctx, sessionID, storage.KeyNavigationState, state); err != nil {
		// Degraded persistence, not degraded control flow.
		o.logger.Warn("Failed to save navigation state", "session", sessionID, "error", err)
	}
}

// ApplyFilter runs a fresh filter application: one search request, products
// normalized at the boundary, previous selections discarded, and the wizard
// moved to the table screen. A gateway failure leaves all stored state
// untouched and surfaces a user-visible message.
func (o *Orchestrator) ApplyFilter(ctx context.Context, sessionID string, criteria model.FilterCriteria) ([]model.Product, error) {
	products, err := o.catalog.FilterProducts(ctx, criteria)
	if err != nil {
		return nil, &services.GatewayError{Message: "Unable to load products. Please try again."}
	}

	// Store current criteria and view before switching.
	state := o.State(ctx, sessionID)
	state.FilterCriteria = criteria
	o.saveState(ctx, sessionID, state)

	// A new filter application always discards previous selections.
	if err := o.store.Save(ctx, sessionID, storage.KeySelectedProductIds, []string{}); err != nil {
		o.logger.Warn("Failed to clear selections", "error", err)
	}
	if err := o.store.Delete(ctx, sessionID, storage.KeySelectedProducts); err != nil {
		o.logger.Warn("Failed to clear selected products", "error", err)
	}

	if err := o.store.Save(ctx, sessionID, storage.KeyFilteredProducts, products); err != nil {
		o.logger.Warn("Failed to save filtered products", "error", err)
	}

	state.CurrentView = model.ViewTable
	state.FilteredProducts = products
	o.saveState(ctx, sessionID, state)

	o.logger.Info("Filter applied", "session", sessionID, "products", len(products))
	return products, nil
}

// ToggleSelection flips one product in the table screen's selection set and
// persists the set. Returns the updated set.
func (o *Orchestrator) ToggleSelection(ctx context.Context, sessionID, productID string) []string {
	var ids []string
	o.store.Load(ctx, sessionID, storage.KeySelectedProductIds, &ids)

	found := false
	next := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		if id == productID {
			found = true
			continue
		}
		next = append(next, id)
	}
	if !found {
		next = append(next, productID)
	}

	if err := o.store.Save(ctx, sessionID, storage.KeySelectedProductIds, next); err != nil {
		o.logger.Warn("Failed to save selection", "error", err)
	}
	return next
}

// SelectedProducts resolves the current selection set against the stored
// filtered products, in filtered order.
func (o *Orchestrator) SelectedProducts(ctx context.Context, sessionID string) []model.Product {
	var ids []string
	o.store.Load(ctx, sessionID, storage.KeySelectedProductIds, &ids)

	idSet := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		idSet[id] = struct{}{}
	}

	var filtered []model.Product
	o.store.Load(ctx, sessionID, storage.KeyFilteredProducts, &filtered)

	selected := make([]model.Product, 0, len(ids))
	for _, p := range filtered {
		if _, ok := idSet[p.ID]; ok {
			selected = append(selected, p)
		}
	}
	return selected
}

// Navigate applies one navigation event raised by the active screen. The
// transition rules mirror the screens exactly; storage failures are logged
// and never block the transition.
func (o *Orchestrator) Navigate(ctx context.Context, sessionID string, ev model.NavigationEvent) (*NavigationResult, error) {
	if !model.KnownView(ev.View) {
		return nil, &ValidationError{Message: "Unknown view: " + string(ev.View)}
	}
	if ev.View == model.ViewTerms && ev.Data != nil && len(ev.Data) == 0 {
		return nil, &ValidationError{Message: "Please select at least one product to proceed."}
	}
	if ev.View == model.ViewDetail && ev.SelectedTerms != nil &&
		ev.SelectedTerms.MainOption == "rent_to_own" && ev.SelectedTerms.ProductTerm == "" {
		return nil, &ValidationError{Message: "Please select a payment term to proceed."}
	}

	state := o.State(ctx, sessionID)

	o.logger.Debug("Navigation event",
		"session", sessionID,
		"from", state.CurrentView,
		"to", ev.View,
		"payload", len(ev.Data),
		"preserve_selections", ev.PreserveSelections)

	// Leaving any state writes the current snapshot before the view
	// changes, unconditionally.
	o.saveState(ctx, sessionID, state)

	state.CurrentView = ev.View
	var selected []model.Product

	switch {
	case ev.View == model.ViewTerms && ev.Data != nil:
		// Payload becomes the new selection; persist and recompute the
		// derived total.
		selected = ev.Data
		state.TotalPrice = pricing.TotalForProducts(selected, nil)
		o.persistSelectedProducts(ctx, sessionID, selected)

	case ev.View == model.ViewTerms:
		// Pure back-navigation: restore from the store, not the event.
		selected = o.loadSelectedProducts(ctx, sessionID)
		state.TotalPrice = pricing.TotalForProducts(selected, nil)

	case ev.View == model.ViewDetail && ev.SelectedTerms != nil:
		// Arriving from the terms screen: restore the selection from
		// storage, then overlay the chosen payment terms.
		selected = o.loadSelectedProducts(ctx, sessionID)
		state.SelectedMainOption = ev.SelectedTerms.MainOption
		state.SelectedProductTerm = ev.SelectedTerms.ProductTerm

		form := model.DetailFormData{SelectedProductTerm: ev.SelectedTerms.ProductTerm, Quantity: 1}
		if err := o.store.Save(ctx, sessionID, storage.KeyProductDetailForm, form); err != nil {
			o.logger.Warn("Failed to save detail form data", "error", err)
		}

		// Fresh slice so dependent displays recompute off a new reference.
		selected = append([]model.Product(nil), selected...)

	case ev.View == model.ViewDetail && ev.Data != nil:
		selected = ev.Data
		o.persistSelectedProducts(ctx, sessionID, selected)
		o.buildDetailData(ctx, sessionID, selected)

	case ev.View == model.ViewDetail:
		selected = o.loadSelectedProducts(ctx, sessionID)
		selected = append([]model.Product(nil), selected...)

	case ev.View == model.ViewUserDetail && ev.Data != nil:
		// Payload carries quantities and prices gathered on the detail
		// screen.
		selected = ev.Data
		o.persistSelectedProducts(ctx, sessionID, selected)

	case ev.View == model.ViewUserDetail:
		selected = o.loadSelectedProducts(ctx, sessionID)
	}

	result := &NavigationResult{View: ev.View}

	if ev.View == model.ViewTable {
		// Restore filtered products and criteria from the last saved
		// snapshot.
		restored := o.State(ctx, sessionID)
		state.FilteredProducts = restored.FilteredProducts
		state.FilterCriteria = restored.FilterCriteria

		if ev.PreserveSelections {
			// The table screen clears its selection on every fresh
			// mount; this is the explicit override signal.
			var ids []string
			o.store.Load(ctx, sessionID, storage.KeySelectedProductIds, &ids)
			result.ReloadSelections = true
			result.SelectedIDs = ids
		} else {
			if err := o.store.Save(ctx, sessionID, storage.KeySelectedProductIds, []string{}); err != nil {
				o.logger.Warn("Failed to clear selections", "error", err)
			}
		}
	}

	o.saveState(ctx, sessionID, state)

	result.State = state
	result.SelectedProducts = selected
	result.TotalPrice = state.TotalPrice
	return result, nil
}

func (o *Orchestrator) persistSelectedProducts(ctx context.Context, sessionID string, products []model.Product) {
	if len(products) > 100 {
		o.logger.Warn("Large selection payload", "count", len(products))
	}
	if err := o.store.Save(ctx, sessionID, storage.KeySelectedProducts, products); err != nil {
		o.logger.Warn("Failed to save selected products", "error", err)
	}
}

func (o *Orchestrator) loadSelectedProducts(ctx context.Context, sessionID string) []model.Product {
	var products []model.Product
	o.store.Load(ctx, sessionID, storage.KeySelectedProducts, &products)
	return products
}

// buildDetailData assembles the detail screen's working set: quantities
// default to 1 and each product's current price is fetched from the
// catalog. A failed price fetch degrades that product to 0, never the
// whole screen.
func (o *Orchestrator) buildDetailData(ctx context.Context, sessionID string, products []model.Product) {
	detail := model.DetailData{
		Products:   products,
		Quantities: make(map[string]int, len(products)),
		Prices:     make(map[string]float64, len(products)),
	}

	for _, p := range products {
		detail.Quantities[p.ID] = 1

		price, err := o.catalog.GetProductPrice(ctx, p.ID)
		if err != nil {
			o.logger.Warn("Price fetch failed for product", "product", p.ID, "error", err)
			price = 0
		}
		detail.Prices[p.ID] = price
	}

	if err := o.store.Save(ctx, sessionID, storage.KeyProductDetail, detail); err != nil {
		o.logger.Warn("Failed to save detail data", "error", err)
	}
}

// SetQuantity updates one product's quantity on the detail screen and
// returns the recomputed pricing block.
func (o *Orchestrator) SetQuantity(ctx context.Context, sessionID, productID string, quantity int) (*DetailSummary, error) {
	if productID == "" || quantity < 1 {
		return nil, &ValidationError{Message: "Quantity must be a positive whole number."}
	}

	var detail model.DetailData
	o.store.Load(ctx, sessionID, storage.KeyProductDetail, &detail)
	if detail.Quantities == nil {
		detail.Quantities = make(map[string]int)
	}
	detail.Quantities[productID] = quantity

	if err := o.store.Save(ctx, sessionID, storage.KeyProductDetail, detail); err != nil {
		o.logger.Warn("Failed to save detail data", "error", err)
	}

	var form model.DetailFormData
	o.store.Load(ctx, sessionID, storage.KeyProductDetailForm, &form)
	form.Quantity = quantity
	if err := o.store.Save(ctx, sessionID, storage.KeyProductDetailForm, form); err != nil {
		o.logger.Warn("Failed to save detail form data", "error", err)
	}

	return o.detailSummary(detail), nil
}

// Detail returns the detail screen's working set and pricing block.
func (o *Orchestrator) Detail(ctx context.Context, sessionID string) (model.DetailData, *DetailSummary) {
	var detail model.DetailData
	o.store.Load(ctx, sessionID, storage.KeyProductDetail, &detail)
	return detail, o.detailSummary(detail)
}

func (o *Orchestrator) detailSummary(detail model.DetailData) *DetailSummary {
	subtotal := pricing.Subtotal(detail.Products, detail.Quantities, detail.Prices)
	tax := pricing.TaxAmount(subtotal)
	return &DetailSummary{
		Subtotal:     pricing.FormatAmount(subtotal),
		TaxAmount:    pricing.FormatAmount(tax),
		TotalWithTax: pricing.FormatAmount(subtotal + tax),
	}
}

// TermPlans derives the terms screen's plan options from the product-term
// picklist: one installment row per term whose value parses as a month
// count, priced by flat division of the current tax-inclusive total.
func (o *Orchestrator) TermPlans(ctx context.Context, sessionID string) ([]PlanOption, error) {
	values, err := o.catalog.GetPicklistValues(ctx, ProductTermsField)
	if err != nil {
		return nil, &services.GatewayError{Message: "Unable to load payment plans. Please try again."}
	}

	state := o.State(ctx, sessionID)

	plans := []PlanOption{{Label: "None", Value: "none", FormattedPrice: "0.00"}}
	for _, v := range values {
		months, err := strconv.Atoi(v.Value)
		if err != nil {
			continue
		}
		plans = append(plans, PlanOption{
			Label:          v.Label,
			Value:          v.Value,
			ShowPrice:      true,
			FormattedPrice: pricing.MonthlyInstallment(state.TotalPrice, months),
		})
	}
	return plans, nil
}

// SubmitOrder validates the contact form locally and submits the order.
// Missing required fields block the call entirely; gateway errors pass
// through with their user-displayable message. On success the persisted
// form slice is reset.
func (o *Orchestrator) SubmitOrder(ctx context.Context, sessionID string, form model.OrderForm) (string, error) {
	if form.FirstName == "" || form.LastName == "" || form.Email == "" || form.Phone == "" {
		return "", &ValidationError{
			Message: "Please fill in all required fields: First Name, Last Name, phone and Email",
		}
	}

	state := o.State(ctx, sessionID)
	selected := o.loadSelectedProducts(ctx, sessionID)

	var detail model.DetailData
	o.store.Load(ctx, sessionID, storage.KeyProductDetail, &detail)

	lines := make([]model.SelectionLine, 0, len(selected))
	for _, p := range selected {
		qty := detail.Quantities[p.ID]
		if qty < 1 {
			qty = 1
		}
		unitPrice := pricing.ResolveUnitPrice(p)
		lines = append(lines, model.SelectionLine{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: unitPrice,
			Quantity:  qty,
			Subtotal:  pricing.LineTotal(unitPrice, qty),
		})
	}

	term := state.SelectedProductTerm
	if term == "" {
		var formData model.DetailFormData
		o.store.Load(ctx, sessionID, storage.KeyProductDetailForm, &formData)
		term = formData.SelectedProductTerm
	}

	orderID, err := o.orders.CreateOrder(ctx, services.NewCreateOrderRequest(form, lines, term, state.ZipCode))
	if err != nil {
		return "", err
	}

	// Reset per-submission state on success.
	if err := o.store.Delete(ctx, sessionID, storage.KeyProductDetailForm); err != nil {
		o.logger.Warn("Failed to reset form data", "error", err)
	}

	o.logger.Info("Order submitted", "session", sessionID, "order_id", orderID)
	return orderID, nil
}

// PageSize proxies the catalog's total product count, which the host page
// uses as its table page size.
func (o *Orchestrator) PageSize(ctx context.Context) (int, error) {
	count, err := o.catalog.GetTotalProductCount(ctx)
	if err != nil {
		return 0, &services.GatewayError{Message: "Unable to load product count. Please try again."}
	}
	return count, nil
}

// PicklistValues proxies picklist metadata for the filter screen.
func (o *Orchestrator) PicklistValues(ctx context.Context, field string) ([]services.PicklistValue, error) {
	values, err := o.catalog.GetPicklistValues(ctx, field)
	if err != nil {
		return nil, &services.GatewayError{Message: "Unable to load filter options. Please try again."}
	}
	return values, nil
}
