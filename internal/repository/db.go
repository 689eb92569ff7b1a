package repository

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type DB struct {
	*sqlx.DB
	lockTimeout time.Duration
}

// NewDB は接続済みのsqlx.DBをラップします
// lockTimeoutはGetAndLockで行ロックを待つ上限です
func NewDB(conn *sqlx.DB, lockTimeout time.Duration) *DB {
	return &DB{DB: conn, lockTimeout: lockTimeout}
}

// Close closes the database connection
func (db *DB) Close() error {
	_, seg := xray.BeginSegment(context.Background(), "DB.Close")
	defer seg.Close(nil)

	return db.DB.Close()
}

type txKey struct{}

// WithTx はfnを単一のトランザクション内で実行します
// fnがエラーを返した場合はロールバックし、そのエラーをそのまま返します
// トランザクション内で呼ばれた場合は既存のトランザクションに参加します
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFrom(ctx); ok {
		return fn(ctx)
	}

	ctx, seg := xray.BeginSubsegment(ctx, "DB.WithTx")
	defer seg.Close(nil)

	tx, err := db.DB.BeginTxx(ctx, nil)
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to begin transaction: %w", classify(err))
	}

	// パニック時もロールバックしてから再送出する
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Printf("rollback failed: %v, original error: %v", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to commit transaction: %w", classify(err))
	}

	return nil
}

func txFrom(ctx context.Context) (*sqlx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sqlx.Tx)
	return tx, ok
}

// executor はコンテキストにトランザクションがあればそれを、なければDBを返します
func (db *DB) executor(ctx context.Context) sqlx.ExtContext {
	if tx, ok := txFrom(ctx); ok {
		return tx
	}
	return db.DB
}

// lockedExecutor は行ロック用にロック待機のタイムアウトを設定したトランザクションを返します
func (db *DB) lockedExecutor(ctx context.Context) (sqlx.ExtContext, error) {
	tx, ok := txFrom(ctx)
	if !ok {
		return nil, ErrNoTransaction
	}
	if db.lockTimeout > 0 {
		// SETはプレースホルダを受け付けないためミリ秒の整数を埋め込む
		query := fmt.Sprintf("SET LOCAL lock_timeout = %d", db.lockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return nil, fmt.Errorf("failed to set lock timeout: %w", classify(err))
		}
	}
	return tx, nil
}
