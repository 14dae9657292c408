package model

import "encoding/json"

// View identifies one wizard screen.
type View string

const (
	ViewFilter     View = "filter"
	ViewTable      View = "table"
	ViewTerms      View = "terms"
	ViewDetail     View = "detail"
	ViewUserDetail View = "user-detail"
)

// KnownView reports whether v names a wizard screen.
func KnownView(v View) bool {
	switch v {
	case ViewFilter, ViewTable, ViewTerms, ViewDetail, ViewUserDetail:
		return true
	}
	return false
}

// FilterCriteria is the criteria record sent to the catalog search service.
// All fields are optional; empty means "no constraint".
type FilterCriteria struct {
	BillingType        string `json:"billingType,omitempty"`
	FamilyType         string `json:"familyType,omitempty"`
	StageType          string `json:"stageType,omitempty"`
	PreferredBlockType string `json:"preferredBlockType,omitempty"`
	InstallationType   string `json:"installationType,omitempty"`
	ProductTerm        string `json:"productTerm,omitempty"`
}

// SelectedTerms is the payment-term choice carried by a terms -> detail
// navigation event.
type SelectedTerms struct {
	MainOption  string `json:"mainOption"`
	ProductTerm string `json:"productTerm"`
}

// NavigationEvent is raised by the active screen to request a transition.
type NavigationEvent struct {
	View               View           `json:"view"`
	Data               []Product      `json:"data,omitempty"`
	PreserveSelections bool           `json:"preserveSelections,omitempty"`
	SelectedTerms      *SelectedTerms `json:"selectedTerms,omitempty"`
}

// WizardState is the orchestrator-owned snapshot persisted across
// navigations under the navigationState key.
type WizardState struct {
	CurrentView      View           `json:"currentView"`
	ZipCode          string         `json:"zipCode,omitempty"`
	FilteredProducts []Product      `json:"filteredProductsData"`
	FilterCriteria   FilterCriteria `json:"filterCriteria"`

	SelectedMainOption  string  `json:"selectedMainOption,omitempty"`
	SelectedProductTerm string  `json:"selectedProductTerm,omitempty"`
	TotalPrice          float64 `json:"selectedProductTotalPrice"`
}

func (s *WizardState) ToJSON() ([]byte, error) {
	return json.Marshal(s)
}

func WizardStateFromJSON(data []byte) (*WizardState, error) {
	var s WizardState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DetailData is the detail screen's working set: the selected products with
// per-product quantities and the prices fetched for them.
type DetailData struct {
	Products   []Product          `json:"products"`
	Quantities map[string]int     `json:"quantities"`
	Prices     map[string]float64 `json:"productPrices"`
}

// DetailFormData is the small form slice the detail screen persists on its
// own (chosen term and the last entered quantity).
type DetailFormData struct {
	SelectedProductTerm string `json:"selectedProductTerm"`
	Quantity            int    `json:"quantity"`
}

// OrderForm is the contact form submitted from the user-detail screen.
// Created per submission attempt, reset on success.
type OrderForm struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Street     string `json:"street"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}
