package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"wizard-backend/model"
	"wizard-backend/pricing"
	"wizard-backend/processors"
)

// PicklistValue is one externally-sourced enumerated option used to populate
// filter and term choices.
type PicklistValue struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type picklistResponse struct {
	Values []PicklistValue `json:"values"`
}

type pricebookEntry struct {
	UnitPrice float64 `json:"UnitPrice"`
}

// catalogProduct is the raw wire record from the product search service,
// legacy price aliases included.
type catalogProduct struct {
	ID               string           `json:"Id"`
	Name             string           `json:"Name"`
	ProductCode      string           `json:"ProductCode"`
	Family           string           `json:"Family"`
	BillingType      string           `json:"Billing_Type__c"`
	Stage            string           `json:"Stage__c"`
	PreferredBlock   string           `json:"Preferred_Block__c"`
	InstallationType string           `json:"Installation_Type__c"`
	ProductImage     string           `json:"Product_Image__c"`
	PricebookEntries []pricebookEntry `json:"PricebookEntries"`

	Price         *float64 `json:"Price"`
	PriceLegacy   *float64 `json:"Price__c"`
	ListPrice     *float64 `json:"List_Price__c"`
	UnitPriceCust *float64 `json:"Unit_Price__c"`
	UnitPriceStd  *float64 `json:"UnitPrice"`
	UnitPriceAlt  *float64 `json:"unitPrice"`
	PriceAlt      *float64 `json:"price"`
}

type countResponse struct {
	Count int `json:"count"`
}

type priceResponse struct {
	Price float64 `json:"price"`
}

type serviceabilityResponse struct {
	Serviceable bool `json:"serviceable"`
}

// CatalogService talks to the external catalog backend: product search,
// picklist metadata, per-product prices, and zip serviceability.
type CatalogService struct {
	logger  *slog.Logger
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewCatalogService creates a catalog gateway client.
func NewCatalogService(baseURL, apiKey string) *CatalogService {
	logger := slog.With("service", "CatalogService")

	return &CatalogService{
		logger:  logger,
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{},
	}
}

func (s *CatalogService) do(ctx context.Context, method, path string, query url.Values, body any, dest any) error {
	apiURL, err := url.Parse(s.baseURL + path)
	if err != nil {
		return err
	}
	if query != nil {
		apiURL.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, apiURL.String(), reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req.WithContext(ctx))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("error calling catalog service: %v", string(respBody))
	}

	return json.NewDecoder(resp.Body).Decode(dest)
}

// FilterProducts issues one search request for the given criteria and
// returns the full matching list, normalized, in server response order.
// Pagination is a presentation concern layered on top in memory.
func (s *CatalogService) FilterProducts(ctx context.Context, criteria model.FilterCriteria) ([]model.Product, error) {
	var raw []catalogProduct
	if err := s.do(ctx, http.MethodPost, "/api/v1/products/search", nil, criteria, &raw); err != nil {
		s.logger.Error("Product search failed", "error", err)
		return nil, err
	}

	products := make([]model.Product, 0, len(raw))
	for _, r := range raw {
		products = append(products, s.normalize(r))
	}

	s.logger.Info("Filter results received", "count", len(products))
	return products, nil
}

// normalize turns a raw catalog record into the canonical Product: the
// price precedence is resolved exactly once here, and the image URL is
// pulled out of the rich-text field.
func (s *CatalogService) normalize(r catalogProduct) model.Product {
	rawPrices := make(map[string]float64)
	for field, v := range map[string]*float64{
		"Price__c":      r.PriceLegacy,
		"List_Price__c": r.ListPrice,
		"Unit_Price__c": r.UnitPriceCust,
		"UnitPrice":     r.UnitPriceStd,
		"unitPrice":     r.UnitPriceAlt,
		"price":         r.PriceAlt,
	} {
		if v != nil {
			rawPrices[field] = *v
		}
	}

	entries := make([]model.PricebookEntry, 0, len(r.PricebookEntries))
	for _, e := range r.PricebookEntries {
		entries = append(entries, model.PricebookEntry{UnitPrice: e.UnitPrice})
	}

	p := model.Product{
		ID:               r.ID,
		Name:             r.Name,
		Code:             r.ProductCode,
		Family:           r.Family,
		BillingType:      r.BillingType,
		Stage:            r.Stage,
		PreferredBlock:   r.PreferredBlock,
		InstallationType: r.InstallationType,
		ImageURL:         processors.FirstImageURL(s.logger, r.ProductImage),
		PricebookEntries: entries,
		RawPrices:        rawPrices,
	}
	if r.Price != nil {
		p.UnitPrice = *r.Price
	}
	p.UnitPrice = pricing.ResolveUnitPrice(p)
	return p
}

// GetPicklistValues fetches the enumerated options for a filter or term
// field.
func (s *CatalogService) GetPicklistValues(ctx context.Context, field string) ([]PicklistValue, error) {
	var resp picklistResponse
	if err := s.do(ctx, http.MethodGet, "/api/v1/picklists/"+url.PathEscape(field), nil, nil, &resp); err != nil {
		s.logger.Error("Picklist fetch failed", "field", field, "error", err)
		return nil, err
	}
	return resp.Values, nil
}

// GetTotalProductCount returns the catalog size, used by the host page as
// its table page size.
func (s *CatalogService) GetTotalProductCount(ctx context.Context) (int, error) {
	var resp countResponse
	if err := s.do(ctx, http.MethodGet, "/api/v1/products/count", nil, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// GetProductPrice fetches the current price for one product, as displayed
// on the detail screen.
func (s *CatalogService) GetProductPrice(ctx context.Context, productID string) (float64, error) {
	var resp priceResponse
	if err := s.do(ctx, http.MethodGet, "/api/v1/products/"+url.PathEscape(productID)+"/price", nil, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Price, nil
}

// IsZipServiceable checks whether the zip code is inside the service area.
func (s *CatalogService) IsZipServiceable(ctx context.Context, zipCode string) (bool, error) {
	query := url.Values{}
	query.Set("zipCode", zipCode)

	var resp serviceabilityResponse
	if err := s.do(ctx, http.MethodGet, "/api/v1/serviceability", query, nil, &resp); err != nil {
		s.logger.Error("Serviceability check failed", "error", err)
		return false, err
	}
	return resp.Serviceable, nil
}
