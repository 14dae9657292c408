package model

// PricebookEntry is one entry of a product's price list as returned by the
// catalog service. Only the first entry is ever consulted.
type PricebookEntry struct {
	UnitPrice float64 `json:"unitPrice"`
}

// PriceAliasFields is the fixed precedence order of legacy price field names
// still present on older catalog records.
var PriceAliasFields = []string{
	"Price__c",
	"List_Price__c",
	"Unit_Price__c",
	"UnitPrice",
	"unitPrice",
	"price",
}

// Product is a catalog record after normalization at the gateway boundary.
// UnitPrice is resolved exactly once when the record enters the system;
// consumers never re-derive it from the raw fields.
type Product struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Code             string `json:"code,omitempty"`
	Family           string `json:"family,omitempty"`
	BillingType      string `json:"billingType,omitempty"`
	Stage            string `json:"stage,omitempty"`
	PreferredBlock   string `json:"preferredBlock,omitempty"`
	InstallationType string `json:"installationType,omitempty"`

	// UnitPrice is the canonical price; 0 when no raw field yielded a
	// positive finite number.
	UnitPrice float64 `json:"unitPrice"`

	// ImageURL is the first <img> src extracted from the rich-text image
	// field, empty when none was found.
	ImageURL string `json:"imageUrl,omitempty"`

	// Raw price material kept for back-navigation payloads that predate
	// normalization.
	PricebookEntries []PricebookEntry   `json:"pricebookEntries,omitempty"`
	RawPrices        map[string]float64 `json:"rawPrices,omitempty"`
}

// SelectionLine is one selected product row with its resolved price and the
// quantity chosen on the detail screen.
type SelectionLine struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
	Subtotal  float64 `json:"subtotal"`
}
