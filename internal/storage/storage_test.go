package storage

import (
	"os"
	"testing"
)

func TestPreferencesRoundTrip(t *testing.T) {
	s, err := NewStorageAt(t.TempDir())
	if err != nil {
		t.Fatalf("NewStorageAt failed: %v", err)
	}
	defer s.Close()

	// Defaults come back when nothing was saved.
	prefs, err := s.LoadPreferences()
	if err != nil {
		t.Fatalf("LoadPreferences failed: %v", err)
	}
	if prefs.Backend != "random" || prefs.SearchMode != "policyhead" {
		t.Errorf("unexpected defaults: %+v", prefs)
	}

	prefs.Backend = "godeep"
	prefs.WeightsFile = "/tmp/net.json"
	prefs.PolicySoftmaxTemp = 1.36
	prefs.SearchMode = "valuehead"
	if err := s.SavePreferences(prefs); err != nil {
		t.Fatalf("SavePreferences failed: %v", err)
	}

	loaded, err := s.LoadPreferences()
	if err != nil {
		t.Fatalf("LoadPreferences failed: %v", err)
	}
	if loaded.Backend != "godeep" || loaded.WeightsFile != "/tmp/net.json" ||
		loaded.PolicySoftmaxTemp != 1.36 || loaded.SearchMode != "valuehead" {
		t.Errorf("preferences did not round-trip: %+v", loaded)
	}
	if loaded.LastUsed.IsZero() {
		t.Error("LastUsed not stamped on save")
	}
}

func TestRecordSearch(t *testing.T) {
	s, err := NewStorageAt(t.TempDir())
	if err != nil {
		t.Fatalf("NewStorageAt failed: %v", err)
	}
	defer s.Close()

	if err := s.RecordSearch("policyhead", 1); err != nil {
		t.Fatalf("RecordSearch failed: %v", err)
	}
	if err := s.RecordSearch("valuehead", 20); err != nil {
		t.Fatalf("RecordSearch failed: %v", err)
	}
	if err := s.RecordSearch("valuehead", 30); err != nil {
		t.Fatalf("RecordSearch failed: %v", err)
	}

	stats, err := s.LoadStats()
	if err != nil {
		t.Fatalf("LoadStats failed: %v", err)
	}
	if stats.Searches != 3 || stats.Nodes != 51 {
		t.Errorf("totals = %d searches / %d nodes", stats.Searches, stats.Nodes)
	}
	if got := stats.ByStrategy["valuehead"]; got.Searches != 2 || got.Nodes != 50 {
		t.Errorf("valuehead stats = %+v", got)
	}
	if got := stats.ByStrategy["policyhead"]; got.Searches != 1 || got.Nodes != 1 {
		t.Errorf("policyhead stats = %+v", got)
	}
}

func TestDataPaths(t *testing.T) {
	dataDir, err := GetDataDir()
	if err != nil {
		t.Fatalf("GetDataDir failed: %v", err)
	}
	if dataDir == "" {
		t.Error("GetDataDir returned empty path")
	}
	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		t.Errorf("Data directory was not created: %s", dataDir)
	}
}
