package wizard

import (
	"context"
	"strings"
)

// ZipVerification is the outcome of a verify-click on the zip code screen.
// A validation failure means no serviceability request was issued.
type ZipVerification struct {
	ZipCode            string `json:"zipCode"`
	HasValidationError bool   `json:"hasValidationError"`
	ValidationMessage  string `json:"validationMessage,omitempty"`
	Serviceable        bool   `json:"serviceable"`
	Message            string `json:"message,omitempty"`
}

// ValidateZipCode checks the entered zip locally: blank or shorter than
// five characters blocks the verify action.
func ValidateZipCode(zipCode string) (string, bool) {
	clean := strings.TrimSpace(zipCode)
	if clean == "" {
		return "Please enter a zip code before verifying.", false
	}
	if len(clean) < 5 {
		return "Zip code must be at least 5 characters long.", false
	}
	return "", true
}

// VerifyZip validates the zip locally and, only when valid, asks the
// external service whether the area is serviceable. The verified zip is
// carried on the wizard state for the eventual order submission.
func (o *Orchestrator) VerifyZip(ctx context.Context, sessionID, zipCode string) ZipVerification {
	result := ZipVerification{ZipCode: strings.TrimSpace(zipCode)}

	if msg, ok := ValidateZipCode(zipCode); !ok {
		result.HasValidationError = true
		result.ValidationMessage = msg
		return result
	}

	serviceable, err := o.catalog.IsZipServiceable(ctx, result.ZipCode)
	if err != nil {
		result.Message = "Error checking serviceability. Please try again."
		return result
	}

	result.Serviceable = serviceable
	if serviceable {
		result.Message = "This is a serviceable area, you can select the Tech Install products"
	} else {
		result.Message = "Sorry, this is not a serviceable area. please select for self install products"
	}

	state := o.State(ctx, sessionID)
	state.ZipCode = result.ZipCode
	o.saveState(ctx, sessionID, state)

	return result
}
