package trade

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

func TestLedger_SubmitBid_RejectsInvalidAmount(t *testing.T) {
	pool := &fakePool{}
	svc := NewLedger(pool, &fakeLedgerStore{})

	for _, amount := range []decimal.Decimal{
		decimal.Zero,
		decimal.NewFromInt(-5),
	} {
		_, err := svc.SubmitBid(context.Background(), SubmitBidParams{
			ProductID: "p1",
			BidderID:  "u1",
			Amount:    amount,
		})
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("expected ErrInvalidAmount for %s, got %v", amount, err)
		}
	}

	if pool.tx != nil {
		t.Fatal("validation failures must not open a transaction")
	}
}

func TestLedger_SubmitBid_Success(t *testing.T) {
	pool := &fakePool{}
	store := &fakeLedgerStore{
		bid: Bid{ID: "b1", ProductID: "p1", BidderID: "u1", Amount: decimal.NewFromInt(100)},
	}
	svc := NewLedger(pool, store)

	bid, err := svc.SubmitBid(context.Background(), SubmitBidParams{
		ProductID: "p1",
		BidderID:  "u1",
		Amount:    decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if bid.ID != "b1" {
		t.Fatalf("expected bid b1, got %q", bid.ID)
	}

	if pool.tx == nil {
		t.Fatal("expected transaction to be created")
	}
	if !pool.tx.committed {
		t.Error("expected commit to be called")
	}
	if !store.executed {
		t.Error("expected store execution to run")
	}
}

func TestLedger_SubmitBid_RollsBackOnStoreError(t *testing.T) {
	pool := &fakePool{}
	store := &fakeLedgerStore{err: ErrBiddingOver}
	svc := NewLedger(pool, store)

	_, err := svc.SubmitBid(context.Background(), SubmitBidParams{
		ProductID: "p1",
		BidderID:  "u1",
		Amount:    decimal.NewFromInt(100),
	})
	if !errors.Is(err, ErrBiddingOver) {
		t.Fatalf("expected ErrBiddingOver, got %v", err)
	}

	if pool.tx == nil {
		t.Fatal("expected transaction to be created")
	}
	if pool.tx.committed {
		t.Error("expected commit to be skipped on store error")
	}
	if !pool.tx.rolled {
		t.Error("expected rollback to be called")
	}
}

func TestAcceptance_Accept_Success(t *testing.T) {
	pool := &fakePool{}
	store := &fakeAcceptanceStore{
		receipt: AcceptReceipt{
			Bid:           Bid{ID: "b1", IsAccepted: true},
			ProductName:   "Vintage Camera",
			RejectedCount: 2,
		},
	}
	svc := NewAcceptance(pool, store)

	receipt, err := svc.Accept(context.Background(), "b1", "seller-1")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !receipt.Bid.IsAccepted || receipt.RejectedCount != 2 {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	if !pool.tx.committed {
		t.Error("expected commit to be called")
	}
}

func TestAcceptance_Accept_PropagatesConflict(t *testing.T) {
	pool := &fakePool{}
	store := &fakeAcceptanceStore{err: ErrAlreadyDecided}
	svc := NewAcceptance(pool, store)

	_, err := svc.Accept(context.Background(), "b2", "seller-1")
	if !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("expected ErrAlreadyDecided, got %v", err)
	}
	if pool.tx.committed {
		t.Error("expected commit to be skipped on conflict")
	}
	if !pool.tx.rolled {
		t.Error("expected rollback to be called")
	}
}

func TestAcceptance_Accept_PropagatesAuthz(t *testing.T) {
	pool := &fakePool{}
	store := &fakeAcceptanceStore{err: ErrNotOwner}
	svc := NewAcceptance(pool, store)

	_, err := svc.Accept(context.Background(), "b2", "intruder")
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if pool.tx.committed {
		t.Error("expected commit to be skipped")
	}
}

func TestAcceptance_Accept_RequiresIDs(t *testing.T) {
	pool := &fakePool{}
	svc := NewAcceptance(pool, &fakeAcceptanceStore{})

	if _, err := svc.Accept(context.Background(), "", "seller-1"); err == nil {
		t.Fatal("expected error for missing bid id")
	}
	if _, err := svc.Accept(context.Background(), "b1", ""); err == nil {
		t.Fatal("expected error for missing acting user id")
	}
	if pool.tx != nil {
		t.Fatal("validation failures must not open a transaction")
	}
}

type fakeLedgerStore struct {
	bid      Bid
	err      error
	executed bool
}

func (f *fakeLedgerStore) ExecuteSubmitTx(ctx context.Context, tx pgx.Tx, params SubmitBidParams) (Bid, error) {
	f.executed = true
	if f.err != nil {
		return Bid{}, f.err
	}
	return f.bid, nil
}

type fakeAcceptanceStore struct {
	receipt  AcceptReceipt
	err      error
	executed bool
}

func (f *fakeAcceptanceStore) ExecuteAcceptTx(ctx context.Context, tx pgx.Tx, bidID, actingUserID string) (AcceptReceipt, error) {
	f.executed = true
	if f.err != nil {
		return AcceptReceipt{}, f.err
	}
	return f.receipt, nil
}

type fakePool struct {
	tx *fakeTx
}

func (f *fakePool) Begin(ctx context.Context) (pgx.Tx, error) {
	f.tx = &fakeTx{}
	return f.tx, nil
}

type fakeTx struct {
	rolled    bool
	committed bool
}

func (f *fakeTx) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("fakeTx does not support nested transactions")
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolled = true
	return nil
}

func (f *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}

func (f *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}

func (f *fakeTx) LargeObjects() pgx.LargeObjects {
	panic("not implemented")
}

func (f *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}

func (f *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}

func (f *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("not implemented")
}

func (f *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("not implemented")
}

func (f *fakeTx) Conn() *pgx.Conn {
	return nil
}
