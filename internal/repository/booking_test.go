package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/model"
)

// newMockDB はsqlmockを使ったテスト用のDBを作成します
func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return NewDB(sqlx.NewDb(conn, "postgres"), 3*time.Second), mock
}

func testContext(t *testing.T) context.Context {
	t.Helper()

	// X-Rayのセグメントを設定
	ctx, seg := xray.BeginSegment(context.Background(), t.Name())
	t.Cleanup(func() { seg.Close(nil) })
	return ctx
}

var bookingRowColumns = []string{
	"id", "sport_hall_id", "sport_id", "user_id", "time_slot_id", "booking_date", "status",
	"participants", "purpose", "special_requirements", "canceled_at", "canceled_by",
	"total_cost", "created_at", "updated_at",
}

// timeoutError はTimeout()がtrueを返すnet.Errorです
type timeoutError struct{}

func (e *timeoutError) Error() string   { return "read tcp 10.0.0.1:5432: i/o timeout" }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "行なし", err: sql.ErrNoRows, want: ErrNotFound},
		{name: "一意制約違反", err: &pq.Error{Code: "23505"}, want: ErrDuplicate},
		{name: "ロック待ちタイムアウト", err: &pq.Error{Code: "55P03"}, want: ErrTimeout},
		{name: "ステートメントキャンセル", err: &pq.Error{Code: "57014"}, want: ErrTimeout},
		{name: "接続失敗クラス", err: &pq.Error{Code: "08006"}, want: ErrUnavailable},
		{name: "DB停止中", err: &pq.Error{Code: "57P01"}, want: ErrUnavailable},
		{name: "不正な接続", err: driver.ErrBadConn, want: ErrUnavailable},
		{name: "ネットワークエラー", err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}, want: ErrUnavailable},
		{name: "ネットワークのタイムアウト", err: &net.OpError{Op: "read", Err: &timeoutError{}}, want: ErrTimeout},
		{name: "コンテキストの期限切れ", err: fmt.Errorf("query: %w", context.DeadlineExceeded), want: ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("classify() = %v, want %v", got, tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("classify() should keep the original error, got %v", got)
			}
		})
	}

	plain := &pq.Error{Code: "42P01"}
	if got := classify(plain); got != error(plain) {
		t.Errorf("classify() should return unclassified errors as is, got %v", got)
	}
}

func TestBookingRepository_Get(t *testing.T) {
	ctx := testContext(t)
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)

	date := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = $1")).
		WithArgs("booking1").
		WillReturnRows(sqlmock.NewRows(bookingRowColumns).AddRow(
			"booking1", "hall1", "sport1", "user1", "slot1", date, "pending",
			1, "Club training", nil, nil, nil,
			"12.50", now, now,
		))

	booking, err := repo.Get(ctx, "booking1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if booking.Status != model.BookingStatusPending || booking.Purpose != "Club training" {
		t.Errorf("Get() = %+v", booking)
	}
	if !booking.TotalCost.Equal(decimal.RequireFromString("12.50")) {
		t.Errorf("Get() total_cost = %v", booking.TotalCost)
	}
	if booking.CanceledAt != nil || booking.SpecialRequirements != nil {
		t.Errorf("Get() nullable columns should be nil, got %+v", booking)
	}

	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestBookingRepository_GetAndLock(t *testing.T) {
	ctx := testContext(t)

	t.Run("トランザクション外ではロックできない", func(t *testing.T) {
		db, _ := newMockDB(t)
		repo := NewBookingRepository(db)

		if _, err := repo.GetAndLock(ctx, "booking1"); !errors.Is(err, ErrNoTransaction) {
			t.Errorf("GetAndLock() error = %v, want ErrNoTransaction", err)
		}
	})

	t.Run("ロック待ちのタイムアウト", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("SET LOCAL lock_timeout = 3000")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = $1 FOR UPDATE")).
			WithArgs("booking1").
			WillReturnError(&pq.Error{Code: "55P03", Message: "canceling statement due to lock timeout"})
		mock.ExpectRollback()

		err := db.WithTx(ctx, func(ctx context.Context) error {
			_, err := repo.GetAndLock(ctx, "booking1")
			return err
		})
		if !errors.Is(err, ErrTimeout) {
			t.Errorf("WithTx() error = %v, want ErrTimeout", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
	})
}

func TestBookingRepository_Save(t *testing.T) {
	ctx := testContext(t)
	now := time.Now().UTC()
	booking := &model.Booking{
		ID:           "booking1",
		SportHallID:  "hall1",
		SportID:      "sport1",
		UserID:       "user1",
		TimeSlotID:   "slot1",
		BookingDate:  time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC),
		Status:       model.BookingStatusConfirmed,
		Participants: 1,
		Purpose:      "Club training",
		TotalCost:    decimal.Zero,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	tests := []struct {
		name    string
		execErr error
		wantErr error
	}{
		{name: "正常に保存", execErr: nil, wantErr: nil},
		{name: "確定済みスロットの重複", execErr: &pq.Error{Code: "23505", Constraint: "bookings_confirmed_slot_key"}, wantErr: ErrDuplicate},
		{name: "接続断", execErr: driver.ErrBadConn, wantErr: ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewBookingRepository(db)

			exp := mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
				WithArgs("booking1", "hall1", "sport1", "user1", "slot1", "2026-10-20", "confirmed",
					1, "Club training", nil, nil, nil, sqlmock.AnyArg(), now, now)
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(0, 1))
			}

			err := repo.Save(ctx, booking)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Save() error = %v, want %v", err, tt.wantErr)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestBookingRepository_ExistsByCompositeKey(t *testing.T) {
	ctx := testContext(t)
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)

	key := model.SlotKey{
		SportHallID: "hall1",
		BookingDate: time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC),
		TimeSlotID:  "slot1",
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("hall1", "2026-10-20", "slot1", "confirmed", "booking1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByCompositeKey(ctx, key, model.BookingStatusConfirmed, "booking1")
	if err != nil {
		t.Fatalf("ExistsByCompositeKey() error = %v", err)
	}
	if !exists {
		t.Error("ExistsByCompositeKey() = false, want true")
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WillReturnError(&net.OpError{Op: "read", Err: errors.New("connection reset by peer")})

	if _, err := repo.ExistsByCompositeKey(ctx, key, model.BookingStatusPending, ""); !errors.Is(err, ErrUnavailable) {
		t.Errorf("ExistsByCompositeKey() error = %v, want ErrUnavailable", err)
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WillReturnError(&timeoutError{})

	if _, err := repo.ExistsByCompositeKey(ctx, key, model.BookingStatusPending, ""); !errors.Is(err, ErrTimeout) {
		t.Errorf("ExistsByCompositeKey() error = %v, want ErrTimeout", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestBookingRepository_ExistsActiveByUserAndDate(t *testing.T) {
	ctx := testContext(t)
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("status IN ('pending', 'confirmed')")).
		WithArgs("user1", "2026-10-20", "").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := repo.ExistsActiveByUserAndDate(ctx, "user1", time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), "")
	if err != nil || exists {
		t.Errorf("ExistsActiveByUserAndDate() = %v, %v", exists, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestBookingRepository_Delete(t *testing.T) {
	ctx := testContext(t)
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM bookings WHERE id = $1")).
		WithArgs("booking1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM bookings WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM bookings")).
		WillReturnResult(sqlmock.NewResult(0, 5))

	if err := repo.Delete(ctx, "booking1"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
	if err := repo.DeleteAll(ctx); err != nil {
		t.Errorf("DeleteAll() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestBookingRepository_FindByStatus(t *testing.T) {
	ctx := testContext(t)
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)

	now := time.Now().UTC()
	date := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = $1 ORDER BY booking_date ASC")).
		WithArgs("pending").
		WillReturnRows(sqlmock.NewRows(bookingRowColumns).
			AddRow("b1", "hall1", "sport1", "user1", "slot1", date, "pending", 1, "p1", nil, nil, nil, "0", now, now).
			AddRow("b2", "hall1", "sport1", "user2", "slot2", date, "pending", 4, "p2", "wheelchair access", nil, nil, "0", now, now))

	bookings, err := repo.FindByStatus(ctx, model.BookingStatusPending)
	if err != nil {
		t.Fatalf("FindByStatus() error = %v", err)
	}
	if len(bookings) != 2 {
		t.Fatalf("FindByStatus() returned %d bookings, want 2", len(bookings))
	}
	if bookings[1].SpecialRequirements == nil || *bookings[1].SpecialRequirements != "wheelchair access" {
		t.Errorf("FindByStatus() special_requirements = %v", bookings[1].SpecialRequirements)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDB_WithTx(t *testing.T) {
	ctx := testContext(t)

	t.Run("成功時はコミット", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM bookings")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		repo := NewBookingRepository(db)
		err := db.WithTx(ctx, func(ctx context.Context) error {
			return repo.DeleteAll(ctx)
		})
		if err != nil {
			t.Errorf("WithTx() error = %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
	})

	t.Run("エラー時はロールバックして元のエラーを返す", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		want := errors.New("validation failed")
		err := db.WithTx(ctx, func(ctx context.Context) error {
			return want
		})
		if err != want {
			t.Errorf("WithTx() error = %v, want %v", err, want)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
	})

	t.Run("開始できない場合はErrUnavailable", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin().WillReturnError(driver.ErrBadConn)

		err := db.WithTx(ctx, func(ctx context.Context) error {
			t.Error("fn should not be called")
			return nil
		})
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("WithTx() error = %v, want ErrUnavailable", err)
		}
	})
}
