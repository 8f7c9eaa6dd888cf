package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/homenest/estate/models"
	"github.com/homenest/estate/testutil"
)

func TestRecordViewSessionTwice(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "owner")
	testutil.CreateProperty(t, db, 42, owner.ID)
	svc := NewViewService(db)
	ctx := context.Background()

	first, err := svc.RecordView(ctx, 42, SessionIdentity{SessionID: "s1"}, "10.0.0.1")
	if err != nil {
		t.Fatalf("first view: %v", err)
	}
	if first != (ViewResult{IsNew: true, ViewCount: 1}) {
		t.Errorf("first view = %+v, want {true 1}", first)
	}

	second, err := svc.RecordView(ctx, 42, SessionIdentity{SessionID: "s1"}, "10.0.0.2")
	if err != nil {
		t.Fatalf("second view: %v", err)
	}
	if second != (ViewResult{IsNew: false, ViewCount: 1}) {
		t.Errorf("second view = %+v, want {false 1}", second)
	}

	var rows []models.PropertyView
	if err := db.Where("property_id = ?", 42).Find(&rows).Error; err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("ledger rows = %d, want 1", len(rows))
	}
	if rows[0].IPAddress != "10.0.0.1" {
		t.Errorf("ip = %q, want the first view's address", rows[0].IPAddress)
	}
}

func TestRecordViewRepeatRefreshesViewedAt(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "owner")
	p := testutil.CreateProperty(t, db, 0, owner.ID)
	svc := NewViewService(db)

	clock := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }
	if _, err := svc.RecordView(context.Background(), p.ID, UserIdentity{UserID: owner.ID}, ""); err != nil {
		t.Fatalf("first view: %v", err)
	}

	clock = clock.Add(3 * time.Hour)
	if _, err := svc.RecordView(context.Background(), p.ID, UserIdentity{UserID: owner.ID}, ""); err != nil {
		t.Fatalf("repeat view: %v", err)
	}

	var row models.PropertyView
	if err := db.Where("property_id = ? AND user_id = ?", p.ID, owner.ID).Take(&row).Error; err != nil {
		t.Fatalf("load ledger row: %v", err)
	}
	if !row.ViewedAt.Equal(clock) {
		t.Errorf("viewed_at = %v, want %v", row.ViewedAt, clock)
	}
}

func TestRecordViewUserAndSessionCountSeparately(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "owner")
	for i := 0; i < 6; i++ {
		testutil.CreateUser(t, db, "viewer"+string(rune('a'+i)))
	}
	testutil.CreateProperty(t, db, 42, owner.ID)
	svc := NewViewService(db)
	ctx := context.Background()

	if _, err := svc.RecordView(ctx, 42, UserIdentity{UserID: 7}, "10.0.0.7"); err != nil {
		t.Fatalf("user view: %v", err)
	}
	res, err := svc.RecordView(ctx, 42, SessionIdentity{SessionID: "s2"}, "10.0.0.8")
	if err != nil {
		t.Fatalf("session view: %v", err)
	}
	if res != (ViewResult{IsNew: true, ViewCount: 2}) {
		t.Errorf("session view = %+v, want {true 2}", res)
	}

	count, err := svc.ViewCount(ctx, 42)
	if err != nil {
		t.Fatalf("view count: %v", err)
	}
	if count != 2 {
		t.Errorf("views = %d, want 2", count)
	}

	var rows int64
	db.Model(&models.PropertyView{}).Where("property_id = ?", 42).Count(&rows)
	if rows != 2 {
		t.Errorf("ledger rows = %d, want 2", rows)
	}
}

func TestRecordViewIdentityDomainsAreDisjoint(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "owner")
	p := testutil.CreateProperty(t, db, 0, owner.ID)
	svc := NewViewService(db)
	ctx := context.Background()

	// A session id that happens to look like a user id is still a different viewer.
	if _, err := svc.RecordView(ctx, p.ID, UserIdentity{UserID: 1}, ""); err != nil {
		t.Fatal(err)
	}
	res, err := svc.RecordView(ctx, p.ID, SessionIdentity{SessionID: "1"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsNew || res.ViewCount != 2 {
		t.Errorf("session view = %+v, want new with count 2", res)
	}
}

func TestRecordViewAnonymousIsNoop(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "owner")
	p := testutil.CreateProperty(t, db, 0, owner.ID)
	svc := NewViewService(db)

	res, err := svc.RecordView(context.Background(), p.ID, IdentityFrom(0, "   "), "10.0.0.1")
	if err != nil {
		t.Fatalf("anonymous view: %v", err)
	}
	if res != (ViewResult{}) {
		t.Errorf("anonymous view = %+v, want zero result", res)
	}

	var rows int64
	db.Model(&models.PropertyView{}).Count(&rows)
	if rows != 0 {
		t.Errorf("ledger rows = %d, want 0", rows)
	}
	if n, _ := svc.ViewCount(context.Background(), p.ID); n != 0 {
		t.Errorf("views = %d, want 0", n)
	}
}

func TestRecordViewMissingProperty(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewViewService(db)

	_, err := svc.RecordView(context.Background(), 999, SessionIdentity{SessionID: "s1"}, "")
	if !errors.Is(err, ErrPropertyNotFound) {
		t.Fatalf("err = %v, want ErrPropertyNotFound", err)
	}

	// The ledger insert is rolled back with the failed increment.
	var rows int64
	db.Model(&models.PropertyView{}).Count(&rows)
	if rows != 0 {
		t.Errorf("ledger rows = %d, want 0", rows)
	}
}

func TestRecordViewDatabaseFailure(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewViewService(db)
	sqlDB, _ := db.DB()
	_ = sqlDB.Close()

	_, err := svc.RecordView(context.Background(), 1, UserIdentity{UserID: 1}, "")
	if !errors.Is(err, ErrCannotRecordView) {
		t.Fatalf("err = %v, want ErrCannotRecordView", err)
	}
}

func TestRecordViewConcurrentSameIdentity(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "owner")
	p := testutil.CreateProperty(t, db, 0, owner.ID)
	svc := NewViewService(db)

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		newOnes int
		errs    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.RecordView(context.Background(), p.ID, SessionIdentity{SessionID: "same"}, "")
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if res.IsNew {
				newOnes++
			}
		}()
	}
	wg.Wait()

	if len(errs) > 0 {
		t.Fatalf("concurrent views failed: %v", errs)
	}
	if newOnes != 1 {
		t.Errorf("new views = %d, want exactly 1", newOnes)
	}
	if n, _ := svc.ViewCount(context.Background(), p.ID); n != 1 {
		t.Errorf("views = %d, want 1", n)
	}
}

func TestRecordViewConcurrentDistinctIdentities(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "owner")
	p := testutil.CreateProperty(t, db, 0, owner.ID)
	svc := NewViewService(db)

	const workers = 12
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = svc.RecordView(context.Background(), p.ID, SessionIdentity{SessionID: "s" + string(rune('a'+i))}, "")
		}(i)
	}
	wg.Wait()

	if n, _ := svc.ViewCount(context.Background(), p.ID); n != workers {
		t.Errorf("views = %d, want %d", n, workers)
	}
}

func TestIdentityFrom(t *testing.T) {
	tests := []struct {
		name      string
		userID    uint
		sessionID string
		want      Identity
	}{
		{"user wins", 7, "s1", UserIdentity{UserID: 7}},
		{"session only", 0, " s1 ", SessionIdentity{SessionID: "s1"}},
		{"neither", 0, "", nil},
		{"blank session", 0, "  ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IdentityFrom(tt.userID, tt.sessionID); got != tt.want {
				t.Errorf("IdentityFrom(%d, %q) = %#v, want %#v", tt.userID, tt.sessionID, got, tt.want)
			}
		})
	}
}
