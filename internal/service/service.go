package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"loyalty-wallet-bridge/internal/events"
	"loyalty-wallet-bridge/internal/features"
	"loyalty-wallet-bridge/internal/models"
	"loyalty-wallet-bridge/internal/tracing"
	"loyalty-wallet-bridge/internal/validation"
	"loyalty-wallet-bridge/internal/wallet"
)

var (
	// ErrClassProvisioning means the pass class could not be found or created.
	ErrClassProvisioning = errors.New("class provisioning failed")
	// ErrSigning means the save token could not be signed.
	ErrSigning = errors.New("save token signing failed")
)

// LoyaltyFetcher reads customer loyalty data. Implementations never fail;
// they return defaults instead.
type LoyaltyFetcher interface {
	FetchCustomerLoyaltyData(ctx context.Context, customerID string) models.LoyaltyData
}

// WalletAPI is the subset of the Wallet REST API the service calls.
type WalletAPI interface {
	EnsureClassExists(ctx context.Context, class models.GenericClass) (bool, error)
	PatchObjectPoints(ctx context.Context, objectID, points string) error
}

// TokenSigner signs save-to-wallet tokens.
type TokenSigner interface {
	SignSaveToken(object models.GenericObject) (string, error)
}

// Dependencies holds the collaborators of a Service.
type Dependencies struct {
	Loyalty  LoyaltyFetcher
	Wallet   WalletAPI
	Signer   TokenSigner
	Passes   *wallet.Passes
	Features *features.Manager
	Events   *events.Manager
	Logger   *zap.Logger
}

// Service provisions wallet passes and keeps their balances in sync.
type Service struct {
	loyalty  LoyaltyFetcher
	wallet   WalletAPI
	signer   TokenSigner
	passes   *wallet.Passes
	features *features.Manager
	events   *events.Manager
	logger   *zap.Logger
}

// NewService creates a new service instance.
func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		loyalty:  deps.Loyalty,
		wallet:   deps.Wallet,
		signer:   deps.Signer,
		passes:   deps.Passes,
		features: deps.Features,
		events:   deps.Events,
		logger:   logger,
	}
}

// Subscribe registers the service's background handlers.
func (s *Service) Subscribe(m *events.Manager) {
	m.Subscribe(events.EventBalanceChanged, s.HandleBalanceChanged)
	m.Subscribe(events.EventPassCreated, func(ctx context.Context, e events.Event) error {
		data := e.Data.(events.PassCreatedData)
		s.logger.Info("Save link issued",
			zap.String("customer_id", data.CustomerID),
			zap.String("object_id", data.ObjectID),
		)
		return nil
	})
}

// CreatePass makes sure the class exists, builds the customer's pass from
// Voucherify data and returns a signed save link.
func (s *Service) CreatePass(ctx context.Context, email string) (models.PassResult, error) {
	email = validation.SanitizeString(email)
	if err := validation.ValidateCustomerID(email, "email"); err != nil {
		return models.PassResult{}, err
	}

	ctx, span := tracing.GetTracer().StartSpan(ctx, "service.CreatePass")
	defer span.End()

	class := s.passes.BuildClass()
	if _, err := s.wallet.EnsureClassExists(ctx, class); err != nil {
		tracing.RecordFailure(span, err, "class provisioning failed")
		s.logger.Error("Failed to provision pass class",
			zap.String("class_id", class.ID),
			zap.Error(err),
		)
		return models.PassResult{}, fmt.Errorf("%w: %w", ErrClassProvisioning, err)
	}

	data := models.DefaultLoyaltyData(email)
	if s.features.IsEnabled(features.FeatureLoyaltyEnrichment) {
		data = s.loyalty.FetchCustomerLoyaltyData(ctx, email)
	}

	object := s.passes.BuildObject(email, data)
	span.SetAttributes(attribute.String("wallet.object_id", object.ID))

	token, err := s.signer.SignSaveToken(object)
	if err != nil {
		tracing.RecordFailure(span, err, "signing failed")
		s.logger.Error("Failed to sign save token",
			zap.String("object_id", object.ID),
			zap.Error(err),
		)
		return models.PassResult{}, fmt.Errorf("%w: %w", ErrSigning, err)
	}

	if s.events != nil {
		s.events.PublishPassCreated(ctx, email, object.ID)
	}

	return models.PassResult{
		ObjectID: object.ID,
		Token:    token,
		SaveURL:  wallet.SaveURL(token),
	}, nil
}

// HandleBalanceChanged parses a verified webhook body and syncs the new
// balance. Payloads without a customer or balance are logged and dropped.
func (s *Service) HandleBalanceChanged(ctx context.Context, e events.Event) error {
	data, ok := e.Data.(events.BalanceChangedData)
	if !ok {
		return fmt.Errorf("unexpected event data %T", e.Data)
	}

	notification, err := models.ParseWebhookNotification(data.Body)
	if err != nil {
		s.logger.Warn("Webhook payload is not valid JSON",
			zap.String("event_id", e.ID),
			zap.Error(err),
		)
		return nil
	}

	customerID, points, err := notification.Extract()
	if err != nil {
		balance, _ := notification.Balance()
		s.logger.Warn("Webhook missing required fields",
			zap.String("event_id", e.ID),
			zap.String("customer_id", notification.CustomerID()),
			zap.String("points", balance),
			zap.ByteString("payload", data.Body),
			zap.Error(err),
		)
		return nil
	}

	return s.SyncPoints(ctx, customerID, points)
}

// SyncPoints pushes a new balance to the customer's Wallet object.
// The customer id is normalized the same way CreatePass normalizes the email
// so both paths address the same object.
func (s *Service) SyncPoints(ctx context.Context, customerID, points string) error {
	customerID = validation.SanitizeString(customerID)
	objectID := s.passes.ObjectID(customerID)

	if !s.features.IsEnabled(features.FeatureWebhookSync) {
		s.logger.Info("Webhook sync disabled, skipping patch",
			zap.String("object_id", objectID),
			zap.String("points", points),
		)
		return nil
	}

	if err := s.wallet.PatchObjectPoints(ctx, objectID, points); err != nil {
		return fmt.Errorf("sync points for %s: %w", customerID, err)
	}

	s.logger.Info("Patched wallet object points",
		zap.String("object_id", objectID),
		zap.String("points", points),
	)
	return nil
}
