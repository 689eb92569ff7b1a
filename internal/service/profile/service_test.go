package profile

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/common/apperror"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/model"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/repository"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/repository/repositorytest"
)

func newTestService(t *testing.T) (context.Context, *Service, *repositorytest.Store) {
	t.Helper()
	ctx, seg := xray.BeginSegment(context.Background(), "profile-service-test")
	t.Cleanup(func() { seg.Close(nil) })

	store := repositorytest.NewStore()
	store.AddProfile(model.Profile{ID: "u1", Email: "u1@example.com", Type: model.ProfileTypeUser})
	store.AddProfile(model.Profile{ID: "a1", Email: "a1@example.com", Type: model.ProfileTypeAdmin})
	store.AddProfile(model.Profile{ID: "u9", Email: "u9@example.com", Type: model.ProfileTypeUser, IsDeleted: true})
	return ctx, NewService(store.Repositories(), time.Second), store
}

func TestService_GetProfile(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		wantKind apperror.Kind
	}{
		{name: "有効な利用者", id: "u1"},
		{name: "存在しない利用者", id: "nobody", wantKind: apperror.KindBadRequest},
		{name: "論理削除済みの利用者", id: "u9", wantKind: apperror.KindBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, svc, _ := newTestService(t)
			p, err := svc.GetProfile(ctx, tt.id)
			if apperror.KindOf(err) != tt.wantKind {
				t.Fatalf("GetProfile() error = %v, want kind %v", err, tt.wantKind)
			}
			if tt.wantKind == "" && p.ID != tt.id {
				t.Errorf("GetProfile() = %+v", p)
			}
		})
	}
}

func TestService_RequireAdmin(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		wantKind apperror.Kind
	}{
		{name: "管理者", id: "a1"},
		{name: "一般利用者はForbidden", id: "u1", wantKind: apperror.KindForbidden},
		{name: "存在しない利用者はBadRequest", id: "nobody", wantKind: apperror.KindBadRequest},
		{name: "論理削除済みの利用者はBadRequest", id: "u9", wantKind: apperror.KindBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, svc, _ := newTestService(t)
			if err := svc.RequireAdmin(ctx, tt.id); apperror.KindOf(err) != tt.wantKind {
				t.Errorf("RequireAdmin() error = %v, want kind %v", err, tt.wantKind)
			}
		})
	}
}

func TestService_DeleteProfile(t *testing.T) {
	ctx, svc, store := newTestService(t)

	if err := svc.DeleteProfile(ctx, "u1"); err != nil {
		t.Fatalf("DeleteProfile() error = %v", err)
	}

	// 物理削除はされない
	p, err := store.Repositories().Profile.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("profile was removed: %v", err)
	}
	if !p.IsDeleted {
		t.Error("IsDeleted = false, want true")
	}

	if err := svc.DeleteProfile(ctx, "u1"); !apperror.Is(err, apperror.KindBadRequest) {
		t.Errorf("second DeleteProfile() error = %v, want BadRequest", err)
	}
	if err := svc.DeleteProfile(ctx, "nobody"); !apperror.Is(err, apperror.KindBadRequest) {
		t.Errorf("DeleteProfile(nobody) error = %v, want BadRequest", err)
	}
	if _, err := svc.GetProfile(ctx, "u1"); !apperror.Is(err, apperror.KindBadRequest) {
		t.Errorf("GetProfile() after delete error = %v, want BadRequest", err)
	}
}

func TestService_DeleteProfileLockTimeout(t *testing.T) {
	ctx, svc, store := newTestService(t)
	store.Fail("Profile.GetAndLock", repository.ErrTimeout)

	if err := svc.DeleteProfile(ctx, "u1"); !apperror.Is(err, apperror.KindRequestTimeout) {
		t.Errorf("DeleteProfile() error = %v, want RequestTimeout", err)
	}
}

func TestService_Notifications(t *testing.T) {
	ctx, svc, store := newTestService(t)

	now := time.Now()
	records := []model.NotificationRecord{
		{UserID: "u1", Title: "first", Type: model.NotificationTypeBooking, CreatedAt: now, UpdatedAt: now},
		{UserID: "u9", Title: "other", Type: model.NotificationTypeBooking, CreatedAt: now, UpdatedAt: now},
		{UserID: "u1", Title: "second", Type: model.NotificationTypeBooking, CreatedAt: now, UpdatedAt: now},
	}
	if err := store.Repositories().Notification.CreateNotifications(ctx, records); err != nil {
		t.Fatalf("CreateNotifications() error = %v", err)
	}

	got, err := svc.ListNotifications(ctx, "u1")
	if err != nil {
		t.Fatalf("ListNotifications() error = %v", err)
	}
	if len(got) != 2 || got[0].Title != "second" || got[1].Title != "first" {
		t.Fatalf("ListNotifications() = %+v", got)
	}

	if err := svc.MarkNotificationRead(ctx, "u1", got[0].ID, true); err != nil {
		t.Fatalf("MarkNotificationRead() error = %v", err)
	}
	// 他の利用者の通知は更新できない
	if err := svc.MarkNotificationRead(ctx, "u1", records[1].ID, true); !apperror.Is(err, apperror.KindBadRequest) {
		t.Errorf("MarkNotificationRead(other) error = %v, want BadRequest", err)
	}

	got, _ = svc.ListNotifications(ctx, "u1")
	if !got[0].IsRead || got[1].IsRead {
		t.Errorf("IsRead = %v, %v, want true, false", got[0].IsRead, got[1].IsRead)
	}

	if _, err := svc.ListNotifications(ctx, "u9"); !apperror.Is(err, apperror.KindBadRequest) {
		t.Errorf("ListNotifications(u9) error = %v, want BadRequest", err)
	}
}
