// Package storage persists in-progress wizard state between navigations.
// State is keyed per session: durable wizard keys live until explicitly
// cleared, while the session fence flag expires on its own and is the only
// thing separating a fresh session from in-wizard navigation.
package storage

import "context"

// Logical wizard state keys. Values are JSON-encoded.
const (
	KeyNavigationState    = "navigationState"
	KeyFilteredProducts   = "filteredProductsData"
	KeySelectedProductIds = "selectedProductIds"
	KeySelectedProducts   = "selectedProductsData"
	KeyProductDetail      = "productDetailData"
	KeyProductDetailForm  = "productDetailFormData"

	KeySessionActive = "sessionActive"
)

// WizardKeys is every durable key ClearAll removes.
var WizardKeys = []string{
	KeyNavigationState,
	KeyFilteredProducts,
	KeySelectedProductIds,
	KeySelectedProducts,
	KeyProductDetail,
	KeyProductDetailForm,
}

// StateStore is the persistence contract handed to the orchestrator and
// screens. Implementations must follow the degraded-persistence rules:
//
//   - Save serializes and writes; on a write failure it logs, attempts a
//     full-store clear as recovery, and still reports the error so the
//     caller can log it. Callers never treat it as fatal.
//   - Load fills dest from the stored JSON. A missing key or corrupt JSON
//     leaves dest untouched and returns false; it is never an error.
//   - ClearAll removes every wizard key for the session. Removals are
//     sequential; there is no partial-failure signal.
type StateStore interface {
	Save(ctx context.Context, sessionID, key string, value any) error
	Load(ctx context.Context, sessionID, key string, dest any) bool
	Delete(ctx context.Context, sessionID, key string) error
	ClearAll(ctx context.Context, sessionID string) error

	// Session fence: IsFreshSession reports that no sessionActive flag
	// exists (first touch since the session opened or expired);
	// MarkSessionActive sets the flag and refreshes its expiry.
	IsFreshSession(ctx context.Context, sessionID string) bool
	MarkSessionActive(ctx context.Context, sessionID string) error
}
