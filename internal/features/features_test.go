package features

import "testing"

func TestDefaultManager(t *testing.T) {
	m := NewDefaultManager(true, false)

	if !m.IsEnabled(FeatureLoyaltyEnrichment) {
		t.Error("Expected loyalty enrichment to be enabled")
	}
	if m.IsEnabled(FeatureWebhookSync) {
		t.Error("Expected webhook sync to be disabled")
	}
	if m.IsEnabled("unknown") {
		t.Error("Expected unknown flag to be disabled")
	}

	m.Set(FeatureWebhookSync, true)
	if !m.IsEnabled(FeatureWebhookSync) {
		t.Error("Expected webhook sync to be enabled after Set")
	}

	all := m.GetAll()
	if len(all) != 2 || all[0].Name != FeatureLoyaltyEnrichment {
		t.Errorf("Unexpected flags %+v", all)
	}
}

func TestNilManagerEnablesEverything(t *testing.T) {
	var m *Manager
	if !m.IsEnabled(FeatureWebhookSync) {
		t.Error("Expected nil manager to report enabled")
	}
}
