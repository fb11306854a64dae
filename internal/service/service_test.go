package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"loyalty-wallet-bridge/internal/config"
	"loyalty-wallet-bridge/internal/events"
	"loyalty-wallet-bridge/internal/features"
	"loyalty-wallet-bridge/internal/models"
	"loyalty-wallet-bridge/internal/validation"
	"loyalty-wallet-bridge/internal/wallet"
)

type fakeLoyalty struct {
	mu    sync.Mutex
	data  models.LoyaltyData
	calls []string
}

func (f *fakeLoyalty) FetchCustomerLoyaltyData(ctx context.Context, customerID string) models.LoyaltyData {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, customerID)
	if f.data == (models.LoyaltyData{}) {
		return models.DefaultLoyaltyData(customerID)
	}
	return f.data
}

type patchCall struct {
	ObjectID string
	Points   string
}

type fakeWallet struct {
	mu          sync.Mutex
	classErr    error
	patchErr    error
	ensureCalls int
	patches     []patchCall
}

func (f *fakeWallet) EnsureClassExists(ctx context.Context, class models.GenericClass) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureCalls++
	return false, f.classErr
}

func (f *fakeWallet) PatchObjectPoints(ctx context.Context, objectID, points string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patchCall{ObjectID: objectID, Points: points})
	return f.patchErr
}

type fakeSigner struct {
	objects []models.GenericObject
	err     error
}

func (f *fakeSigner) SignSaveToken(object models.GenericObject) (string, error) {
	f.objects = append(f.objects, object)
	if f.err != nil {
		return "", f.err
	}
	return "signed-token", nil
}

func testPasses() *wallet.Passes {
	cfg := config.Defaults().Wallet
	cfg.IssuerID = "issuer"
	cfg.ClassID = "loyalty"
	cfg.ObjectPostfix = "v1"
	return wallet.NewPasses(cfg)
}

type testDeps struct {
	loyalty *fakeLoyalty
	wallet  *fakeWallet
	signer  *fakeSigner
	flags   *features.Manager
	events  *events.Manager
}

func setupTestService(t *testing.T) (*Service, *testDeps) {
	t.Helper()

	deps := &testDeps{
		loyalty: &fakeLoyalty{},
		wallet:  &fakeWallet{},
		signer:  &fakeSigner{},
		flags:   features.NewDefaultManager(true, true),
		events:  events.NewManager(time.Second, nil),
	}
	svc := NewService(Dependencies{
		Loyalty:  deps.loyalty,
		Wallet:   deps.wallet,
		Signer:   deps.signer,
		Passes:   testPasses(),
		Features: deps.flags,
		Events:   deps.events,
	})
	svc.Subscribe(deps.events)
	return svc, deps
}

func TestCreatePass_Success(t *testing.T) {
	svc, deps := setupTestService(t)
	deps.loyalty.data = models.LoyaltyData{Name: "Alice", Points: "0", LoyaltyCode: ""}

	result, err := svc.CreatePass(context.Background(), " a@b.com ")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	deps.events.Wait()

	if result.ObjectID != "issuer.a_b.com.v1" {
		t.Errorf("Unexpected object id %s", result.ObjectID)
	}
	if result.SaveURL != "https://pay.google.com/gp/v/save/signed-token" {
		t.Errorf("Unexpected save url %s", result.SaveURL)
	}
	if len(deps.signer.objects) != 1 {
		t.Fatalf("Expected 1 signed object, got %d", len(deps.signer.objects))
	}
	obj := deps.signer.objects[0]
	if obj.Header.DefaultValue.Value != "Alice" || obj.TextModulesData[0].Body != "0" {
		t.Errorf("Unexpected object %+v", obj)
	}
	if len(deps.loyalty.calls) != 1 || deps.loyalty.calls[0] != "a@b.com" {
		t.Errorf("Expected one loyalty lookup for a@b.com, got %v", deps.loyalty.calls)
	}
}

func TestCreatePass_ClassFailureAborts(t *testing.T) {
	svc, deps := setupTestService(t)
	deps.wallet.classErr = &wallet.ClassProvisioningError{ClassID: "issuer.loyalty", Op: "get", Err: errors.New("HTTP 500")}

	_, err := svc.CreatePass(context.Background(), "a@b.com")
	if !errors.Is(err, ErrClassProvisioning) {
		t.Fatalf("Expected ErrClassProvisioning, got %v", err)
	}

	var provErr *wallet.ClassProvisioningError
	if !errors.As(err, &provErr) {
		t.Errorf("Expected wrapped ClassProvisioningError, got %v", err)
	}
	if len(deps.signer.objects) != 0 {
		t.Errorf("Expected no object to be signed, got %d", len(deps.signer.objects))
	}
	if len(deps.loyalty.calls) != 0 {
		t.Errorf("Expected no loyalty lookups, got %d", len(deps.loyalty.calls))
	}
}

func TestCreatePass_SigningFailure(t *testing.T) {
	svc, deps := setupTestService(t)
	deps.signer.err = errors.New("bad key")

	if _, err := svc.CreatePass(context.Background(), "a@b.com"); !errors.Is(err, ErrSigning) {
		t.Errorf("Expected ErrSigning, got %v", err)
	}
}

func TestCreatePass_EmptyEmail(t *testing.T) {
	svc, deps := setupTestService(t)

	_, err := svc.CreatePass(context.Background(), "   ")
	var vErr *validation.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if deps.wallet.ensureCalls != 0 {
		t.Errorf("Expected no wallet calls, got %d", deps.wallet.ensureCalls)
	}
}

func TestCreatePass_EnrichmentDisabled(t *testing.T) {
	svc, deps := setupTestService(t)
	deps.flags.Set(features.FeatureLoyaltyEnrichment, false)

	if _, err := svc.CreatePass(context.Background(), "a@b.com"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(deps.loyalty.calls) != 0 {
		t.Errorf("Expected no loyalty lookups, got %d", len(deps.loyalty.calls))
	}
	if body := deps.signer.objects[0].TextModulesData[0].Body; body != "0" {
		t.Errorf("Expected default points, got %s", body)
	}
}

func TestHandleBalanceChanged_Patches(t *testing.T) {
	_, deps := setupTestService(t)

	deps.events.PublishBalanceChanged(context.Background(), []byte(`{"data":{"holder":{"email":"a@b.com"},"transaction":{"details":{"balance":{"balance":150}}}}}`))
	deps.events.Wait()

	if len(deps.wallet.patches) != 1 {
		t.Fatalf("Expected 1 patch, got %d", len(deps.wallet.patches))
	}
	if got := deps.wallet.patches[0]; got.ObjectID != "issuer.a_b.com.v1" || got.Points != "150" {
		t.Errorf("Unexpected patch %+v", got)
	}
}

func TestHandleBalanceChanged_MissingFields(t *testing.T) {
	svc, deps := setupTestService(t)

	err := svc.HandleBalanceChanged(context.Background(), events.Event{
		Type: events.EventBalanceChanged,
		Data: events.BalanceChangedData{Body: []byte(`{"data":{"holder":{"email":"a@b.com"}}}`)},
	})
	if err != nil {
		t.Errorf("Expected malformed payload to be dropped without error, got %v", err)
	}
	if len(deps.wallet.patches) != 0 {
		t.Errorf("Expected no patches, got %d", len(deps.wallet.patches))
	}
}

func TestHandleBalanceChanged_InvalidJSON(t *testing.T) {
	svc, deps := setupTestService(t)

	err := svc.HandleBalanceChanged(context.Background(), events.Event{
		Data: events.BalanceChangedData{Body: []byte(`{`)},
	})
	if err != nil {
		t.Errorf("Expected invalid JSON to be dropped without error, got %v", err)
	}
	if len(deps.wallet.patches) != 0 {
		t.Errorf("Expected no patches, got %d", len(deps.wallet.patches))
	}
}

func TestSyncPoints_PatchErrorIsReturned(t *testing.T) {
	svc, deps := setupTestService(t)
	deps.wallet.patchErr = errors.New("HTTP 404")

	err := svc.SyncPoints(context.Background(), "a@b.com", "10")
	if err == nil || !strings.Contains(err.Error(), "a@b.com") {
		t.Errorf("Expected patch error naming the customer, got %v", err)
	}
}

func TestSyncPoints_SameObjectAsCreatePass(t *testing.T) {
	svc, deps := setupTestService(t)

	result, err := svc.CreatePass(context.Background(), " a@b.com ")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := svc.SyncPoints(context.Background(), "  a@b.com\t", "42"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	deps.events.Wait()

	if len(deps.wallet.patches) != 1 {
		t.Fatalf("Expected 1 patch, got %d", len(deps.wallet.patches))
	}
	if got := deps.wallet.patches[0].ObjectID; got != result.ObjectID {
		t.Errorf("Expected patch of %s, got %s", result.ObjectID, got)
	}
}

func TestSyncPoints_Disabled(t *testing.T) {
	svc, deps := setupTestService(t)
	deps.flags.Set(features.FeatureWebhookSync, false)

	if err := svc.SyncPoints(context.Background(), "a@b.com", "10"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(deps.wallet.patches) != 0 {
		t.Errorf("Expected no patches, got %d", len(deps.wallet.patches))
	}
}

func TestSigner_RealKeyRoundTrip(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}

	svc := NewService(Dependencies{
		Loyalty:  &fakeLoyalty{},
		Wallet:   &fakeWallet{},
		Signer:   wallet.NewSigner("issuer@test", key),
		Passes:   testPasses(),
		Features: features.NewDefaultManager(true, true),
	})

	result, err := svc.CreatePass(context.Background(), "a@b.com")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if strings.Count(result.Token, ".") != 2 {
		t.Errorf("Expected compact JWT, got %s", result.Token)
	}
}
