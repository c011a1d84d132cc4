package database

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/onionwatch/onionwatch/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *JobDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// newTestScan returns a scan record ready for insertion.
func newTestScan(name string) *model.Scan {
	return &model.Scan{
		Name:       name,
		Target:     "http://example.onion/marketplace/sellers",
		ProxyHTTP:  "socks5h://127.0.0.1:9050",
		ProxyHTTPS: "socks5h://127.0.0.1:9050",
		CreatedAt:  time.Now().UTC(),
		Status:     model.StatusRunning,
	}
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, "onionwatch.db")); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		opts := Options{CreateIfNotExists: false, EnableWAL: true}
		_, err := Open(filepath.Join(t.TempDir(), "missing"), opts)
		if err == nil {
			t.Fatal("expected error when CreateIfNotExists=false and database does not exist")
		}
		if !strings.Contains(err.Error(), "database not found") {
			t.Errorf("expected informative error, got %q", err.Error())
		}
	})
}

// TestScanCRUD tests scan insert, get, and update.
func TestScanCRUD(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	inserted, err := db.InsertScan(ctx, newTestScan("market watch"))
	if err != nil {
		t.Fatalf("InsertScan() error = %v", err)
	}
	if inserted.ID == 0 {
		t.Fatal("expected non-zero id after insert")
	}

	got, err := db.GetScan(ctx, inserted.ID)
	if err != nil {
		t.Fatalf("GetScan() error = %v", err)
	}
	if got == nil {
		t.Fatal("expected scan, got nil")
	}
	if got.Name != "market watch" {
		t.Errorf("Name = %q, want %q", got.Name, "market watch")
	}
	if got.Status != model.StatusRunning {
		t.Errorf("Status = %q, want %q", got.Status, model.StatusRunning)
	}
	if got.Result != "" {
		t.Errorf("Result = %q, want empty while running", got.Result)
	}
	if got.ProxyHTTP != "socks5h://127.0.0.1:9050" {
		t.Errorf("ProxyHTTP = %q, want the inserted endpoint", got.ProxyHTTP)
	}

	// Terminal update: status + result written together.
	got.Status = model.StatusCompleted
	got.Result = "ZW52ZWxvcGU="
	if err := db.UpdateScan(ctx, got); err != nil {
		t.Fatalf("UpdateScan() error = %v", err)
	}

	updated, err := db.GetScan(ctx, inserted.ID)
	if err != nil {
		t.Fatalf("GetScan() after update error = %v", err)
	}
	if updated.Status != model.StatusCompleted {
		t.Errorf("Status after update = %q, want %q", updated.Status, model.StatusCompleted)
	}
	if updated.Result != "ZW52ZWxvcGU=" {
		t.Errorf("Result after update = %q, want the written envelope", updated.Result)
	}
}

// TestGetScanNotFound tests the (nil, nil) convention for missing records.
func TestGetScanNotFound(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)

	got, err := db.GetScan(context.Background(), 9999)
	if err != nil {
		t.Fatalf("GetScan() error = %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing scan, got %+v", got)
	}
}

// TestUpdateScanMissing tests updating a nonexistent scan.
func TestUpdateScanMissing(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)

	scan := newTestScan("ghost")
	scan.ID = 424242
	scan.Status = model.StatusFailed
	if err := db.UpdateScan(context.Background(), scan); err == nil {
		t.Error("expected error updating a missing scan")
	}
}

// TestListScansFilter tests filter composition: substring name match AND
// exact status match.
func TestListScansFilter(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	fixtures := []struct {
		name   string
		status model.Status
	}{
		{"xylophone market", model.StatusCompleted},
		{"box listing", model.StatusCompleted},
		{"xenon probe", model.StatusRunning},
		{"unrelated", model.StatusFailed},
	}
	for _, f := range fixtures {
		scan := newTestScan(f.name)
		scan.Status = f.status
		if _, err := db.InsertScan(ctx, scan); err != nil {
			t.Fatalf("InsertScan(%q) error = %v", f.name, err)
		}
	}

	t.Run("name substring only", func(t *testing.T) {
		scans, err := db.ListScans(ctx, ScanFilter{NameContains: "x"})
		if err != nil {
			t.Fatalf("ListScans() error = %v", err)
		}
		if len(scans) != 3 {
			t.Fatalf("got %d scans, want 3", len(scans))
		}
	})

	t.Run("status only", func(t *testing.T) {
		scans, err := db.ListScans(ctx, ScanFilter{Status: model.StatusCompleted})
		if err != nil {
			t.Fatalf("ListScans() error = %v", err)
		}
		if len(scans) != 2 {
			t.Fatalf("got %d scans, want 2", len(scans))
		}
	})

	t.Run("name AND status", func(t *testing.T) {
		scans, err := db.ListScans(ctx, ScanFilter{NameContains: "x", Status: model.StatusCompleted})
		if err != nil {
			t.Fatalf("ListScans() error = %v", err)
		}
		if len(scans) != 1 {
			t.Fatalf("got %d scans, want 1", len(scans))
		}
		if scans[0].Name != "xylophone market" {
			t.Errorf("Name = %q, want %q", scans[0].Name, "xylophone market")
		}
	})

	t.Run("no filter returns all", func(t *testing.T) {
		scans, err := db.ListScans(ctx, ScanFilter{})
		if err != nil {
			t.Fatalf("ListScans() error = %v", err)
		}
		if len(scans) != 4 {
			t.Fatalf("got %d scans, want 4", len(scans))
		}
	})

	t.Run("LIKE wildcards matched literally", func(t *testing.T) {
		scans, err := db.ListScans(ctx, ScanFilter{NameContains: "%"})
		if err != nil {
			t.Fatalf("ListScans() error = %v", err)
		}
		if len(scans) != 0 {
			t.Errorf("got %d scans for literal %%, want 0", len(scans))
		}
	})
}

// TestReportCRUD tests report insert, get, list, and update.
func TestReportCRUD(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	scan, err := db.InsertScan(ctx, newTestScan("owner"))
	if err != nil {
		t.Fatalf("InsertScan() error = %v", err)
	}

	report := &model.Report{
		ScanID:    scan.ID,
		Name:      scan.Name,
		CreatedAt: time.Now().UTC(),
		Status:    model.StatusRunning,
	}
	inserted, err := db.InsertReport(ctx, report)
	if err != nil {
		t.Fatalf("InsertReport() error = %v", err)
	}
	if inserted.ID == 0 {
		t.Fatal("expected non-zero report id")
	}

	got, err := db.GetReport(ctx, inserted.ID)
	if err != nil {
		t.Fatalf("GetReport() error = %v", err)
	}
	if got == nil {
		t.Fatal("expected report, got nil")
	}
	if got.ScanID != scan.ID {
		t.Errorf("ScanID = %d, want %d", got.ScanID, scan.ID)
	}
	if got.Name != "owner" {
		t.Errorf("Name = %q, want the scan's name", got.Name)
	}

	got.Status = model.StatusFailed
	got.Classification = "ZmFpbGVk"
	if err := db.UpdateReport(ctx, got); err != nil {
		t.Fatalf("UpdateReport() error = %v", err)
	}

	reports, err := db.ListReports(ctx)
	if err != nil {
		t.Fatalf("ListReports() error = %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("got %d reports, want 1", len(reports))
	}
	if reports[0].Status != model.StatusFailed {
		t.Errorf("Status = %q, want %q", reports[0].Status, model.StatusFailed)
	}

	missing, err := db.GetReport(ctx, 777777)
	if err != nil {
		t.Fatalf("GetReport() for missing id error = %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing report, got %+v", missing)
	}
}

// TestDeleteAllScans tests the administrative reset.
func TestDeleteAllScans(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	scan, err := db.InsertScan(ctx, newTestScan("to be deleted"))
	if err != nil {
		t.Fatalf("InsertScan() error = %v", err)
	}
	if _, err := db.InsertReport(ctx, &model.Report{
		ScanID:    scan.ID,
		Name:      scan.Name,
		CreatedAt: time.Now().UTC(),
		Status:    model.StatusRunning,
	}); err != nil {
		t.Fatalf("InsertReport() error = %v", err)
	}

	if err := db.DeleteAllScans(ctx); err != nil {
		t.Fatalf("DeleteAllScans() error = %v", err)
	}

	scans, err := db.ListScans(ctx, ScanFilter{})
	if err != nil {
		t.Fatalf("ListScans() error = %v", err)
	}
	if len(scans) != 0 {
		t.Errorf("got %d scans after reset, want 0", len(scans))
	}

	reports, err := db.ListReports(ctx)
	if err != nil {
		t.Fatalf("ListReports() error = %v", err)
	}
	if len(reports) != 0 {
		t.Errorf("got %d reports after reset, want 0", len(reports))
	}
}

// TestParseTimestamp tests parsing of the formats SQLite may return.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []string{
		"2025-03-01 12:30:45",
		"2025-03-01T12:30:45Z",
		"2025-03-01T12:30:45",
	}
	for _, s := range tests {
		if parseTimestamp(s).IsZero() {
			t.Errorf("parseTimestamp(%q) returned zero time", s)
		}
	}

	if !parseTimestamp("garbage").IsZero() {
		t.Error("parseTimestamp of garbage should return zero time")
	}
}
