package features

import (
	"sort"
	"sync"
)

// FeatureFlag represents a feature flag configuration.
type FeatureFlag struct {
	Name        string `json:"name"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
}

// Manager manages feature flags.
type Manager struct {
	mu    sync.RWMutex
	flags map[string]*FeatureFlag
}

// NewManager creates a new feature flag manager.
func NewManager() *Manager {
	return &Manager{
		flags: make(map[string]*FeatureFlag),
	}
}

// Register registers a new feature flag.
func (m *Manager) Register(name string, enabled bool, description string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.flags[name] = &FeatureFlag{
		Name:        name,
		Enabled:     enabled,
		Description: description,
	}
}

// IsEnabled checks if a feature flag is enabled. A nil manager has every
// flag enabled.
func (m *Manager) IsEnabled(name string) bool {
	if m == nil {
		return true
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	flag, exists := m.flags[name]
	if !exists {
		return false // Default to disabled if flag doesn't exist
	}

	return flag.Enabled
}

// Set enables or disables a registered feature flag.
func (m *Manager) Set(name string, enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if flag, exists := m.flags[name]; exists {
		flag.Enabled = enabled
	}
}

// GetAll returns a copy of all feature flags sorted by name.
func (m *Manager) GetAll() []FeatureFlag {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]FeatureFlag, 0, len(m.flags))
	for _, v := range m.flags {
		result = append(result, *v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Predefined feature flag names
const (
	// FeatureLoyaltyEnrichment enables Voucherify lookups when creating passes
	FeatureLoyaltyEnrichment = "loyalty_enrichment"
	// FeatureWebhookSync enables pushing webhook balances to Wallet objects
	FeatureWebhookSync = "webhook_sync"
)

// NewDefaultManager registers the predefined flags with the given states.
func NewDefaultManager(loyaltyEnrichment, webhookSync bool) *Manager {
	m := NewManager()
	m.Register(FeatureLoyaltyEnrichment, loyaltyEnrichment, "Fetch name, points and loyalty code from Voucherify")
	m.Register(FeatureWebhookSync, webhookSync, "Patch Wallet objects when Voucherify balances change")
	return m
}
