// Package memory provides an in-process implementation of the ledger repositories.
// Transactions are serialized on one mutex and rolled back by restoring a snapshot,
// which makes it suitable for tests and single-node demos.
package memory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dancecoin-ledger/internal/domain/commission"
	"github.com/dancecoin-ledger/internal/domain/ledger"
	"github.com/dancecoin-ledger/internal/domain/outbox"
	"github.com/dancecoin-ledger/internal/domain/redemption"
	"github.com/dancecoin-ledger/internal/domain/wallet"
	"github.com/dancecoin-ledger/internal/platform/persistence"
	"github.com/google/uuid"
)

type state struct {
	wallets      map[string]*wallet.Wallet
	entries      []*ledger.Entry
	entryByID    map[uuid.UUID]*ledger.Entry
	entryByKey   map[string]*ledger.Entry
	keys         map[string]*redemption.Key // By code
	commissions  map[uuid.UUID]*commission.CourseCommission
	messages     []*outbox.Message
	nextOutboxID int64
}

func newState() *state {
	return &state{
		wallets:      make(map[string]*wallet.Wallet),
		entryByID:    make(map[uuid.UUID]*ledger.Entry),
		entryByKey:   make(map[string]*ledger.Entry),
		keys:         make(map[string]*redemption.Key),
		commissions:  make(map[uuid.UUID]*commission.CourseCommission),
		nextOutboxID: 1,
	}
}

// clone copies everything a transaction may mutate. Entries are immutable once
// appended, so only the containers are copied.
func (s *state) clone() *state {
	c := &state{
		wallets:      make(map[string]*wallet.Wallet, len(s.wallets)),
		entries:      append([]*ledger.Entry(nil), s.entries...),
		entryByID:    make(map[uuid.UUID]*ledger.Entry, len(s.entryByID)),
		entryByKey:   make(map[string]*ledger.Entry, len(s.entryByKey)),
		keys:         make(map[string]*redemption.Key, len(s.keys)),
		commissions:  make(map[uuid.UUID]*commission.CourseCommission, len(s.commissions)),
		messages:     make([]*outbox.Message, 0, len(s.messages)),
		nextOutboxID: s.nextOutboxID,
	}
	for id, w := range s.wallets {
		c.wallets[id] = w.Clone()
	}
	for id, e := range s.entryByID {
		c.entryByID[id] = e
	}
	for k, e := range s.entryByKey {
		c.entryByKey[k] = e
	}
	for code, k := range s.keys {
		cp := *k
		c.keys[code] = &cp
	}
	for id, cm := range s.commissions {
		cp := *cm
		c.commissions[id] = &cp
	}
	for _, m := range s.messages {
		cp := *m
		c.messages = append(c.messages, &cp)
	}
	return c
}

// Store holds the whole ledger in memory
type Store struct {
	mu     sync.Mutex
	state  *state
	logger *slog.Logger
}

// NewStore creates an empty store
func NewStore(logger *slog.Logger) *Store {
	return &Store{
		state:  newState(),
		logger: logger,
	}
}

// scope is the view a repository operates on. Inside a transaction the store
// mutex is already held by RunInTx.
type scope struct {
	store *Store
	inTx  bool
}

func (sc scope) lock() func() {
	if sc.inTx {
		return func() {}
	}
	sc.store.mu.Lock()
	return sc.store.mu.Unlock
}

func (sc scope) state() *state {
	return sc.store.state
}

type unitOfWork struct {
	wallets     *WalletRepository
	entries     *EntryRepository
	keys        *RedemptionKeyRepository
	commissions *CommissionRepository
	outbox      *OutboxRepository
}

func newUnitOfWork(sc scope) *unitOfWork {
	return &unitOfWork{
		wallets:     &WalletRepository{scope: sc},
		entries:     &EntryRepository{scope: sc},
		keys:        &RedemptionKeyRepository{scope: sc},
		commissions: &CommissionRepository{scope: sc},
		outbox:      &OutboxRepository{scope: sc},
	}
}

func (u *unitOfWork) Wallets() wallet.Repository         { return u.wallets }
func (u *unitOfWork) Entries() ledger.Repository         { return u.entries }
func (u *unitOfWork) Keys() redemption.Repository        { return u.keys }
func (u *unitOfWork) Commissions() commission.Repository { return u.commissions }
func (u *unitOfWork) Outbox() outbox.Repository          { return u.outbox }

// TxRunner implements persistence.TxRunner on a Store
type TxRunner struct {
	store  *Store
	reader *unitOfWork
	tx     *unitOfWork
}

var _ persistence.TxRunner = (*TxRunner)(nil)

// NewTxRunner wires the store's repositories
func NewTxRunner(store *Store) *TxRunner {
	return &TxRunner{
		store:  store,
		reader: newUnitOfWork(scope{store: store}),
		tx:     newUnitOfWork(scope{store: store, inTx: true}),
	}
}

// RunInTx serializes fn against every other transaction. Any error, or a
// context that expired while fn ran, restores the state from before fn.
func (r *TxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context, uow persistence.UnitOfWork) error) (err error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := r.store.state.clone()
	defer func() {
		if p := recover(); p != nil {
			r.store.state = snapshot
			panic(p)
		}
		if err != nil {
			r.store.state = snapshot
			r.store.logger.Debug("Rolled back in-memory transaction", "error", err)
		}
	}()

	if err = fn(ctx, r.tx); err != nil {
		return err
	}
	return ctx.Err()
}

// Reader returns repositories that lock the store per call
func (r *TxRunner) Reader() persistence.UnitOfWork {
	return r.reader
}
