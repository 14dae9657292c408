package wizard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateZipCode(t *testing.T) {
	msg, ok := ValidateZipCode("")
	require.False(t, ok)
	require.Equal(t, "Please enter a zip code before verifying.", msg)

	msg, ok = ValidateZipCode("   ")
	require.False(t, ok)
	require.Equal(t, "Please enter a zip code before verifying.", msg)

	msg, ok = ValidateZipCode("9021")
	require.False(t, ok)
	require.Equal(t, "Zip code must be at least 5 characters long.", msg)

	msg, ok = ValidateZipCode("90210")
	require.True(t, ok)
	require.Empty(t, msg)
}

func TestVerifyZipShortInputNeverReachesGateway(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{serviceable: true}
	orch, _ := newTestOrchestrator(catalog, nil)
	orch.EnsureSession(ctx, "sess")

	result := orch.VerifyZip(ctx, "sess", "902")
	require.True(t, result.HasValidationError)
	require.Equal(t, "Zip code must be at least 5 characters long.", result.ValidationMessage)
	require.Zero(t, catalog.zipCalls)
}

func TestVerifyZipServiceableArea(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{serviceable: true}
	orch, _ := newTestOrchestrator(catalog, nil)
	orch.EnsureSession(ctx, "sess")

	result := orch.VerifyZip(ctx, "sess", " 90210 ")
	require.False(t, result.HasValidationError)
	require.True(t, result.Serviceable)
	require.Equal(t, "90210", result.ZipCode)
	require.Equal(t, "This is a serviceable area, you can select the Tech Install products", result.Message)
	require.Equal(t, 1, catalog.zipCalls)

	// The verified zip rides along on the state for the order submission.
	require.Equal(t, "90210", orch.State(ctx, "sess").ZipCode)
}

func TestVerifyZipNonServiceableArea(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{serviceable: false}
	orch, _ := newTestOrchestrator(catalog, nil)
	orch.EnsureSession(ctx, "sess")

	result := orch.VerifyZip(ctx, "sess", "00000")
	require.False(t, result.HasValidationError)
	require.False(t, result.Serviceable)
	require.Equal(t, "Sorry, this is not a serviceable area. please select for self install products", result.Message)
}

func TestVerifyZipGatewayError(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{zipErr: errors.New("timeout")}
	orch, _ := newTestOrchestrator(catalog, nil)
	orch.EnsureSession(ctx, "sess")

	result := orch.VerifyZip(ctx, "sess", "90210")
	require.False(t, result.HasValidationError)
	require.False(t, result.Serviceable)
	require.Equal(t, "Error checking serviceability. Please try again.", result.Message)
}
