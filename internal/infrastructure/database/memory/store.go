// Package memory keeps every repository in process memory. It backs the
// "memory" database driver and the engine tests.
package memory

import (
	"context"
	"lending-engine/internal/domain/creditscore"
	"lending-engine/internal/domain/ledger"
	"lending-engine/internal/domain/loan"
	"lending-engine/internal/domain/uow"
	"lending-engine/internal/domain/verification"
	"maps"
	"slices"
	"sync"
)

// Store holds all state behind one mutex and hands out copies so callers
// never alias stored records.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	st   state
}

type state struct {
	nextID       int64
	accounts     map[int64]ledger.Account
	fund         *ledger.Fund
	challenges   map[int64]ledger.Challenge
	transactions []ledger.Transaction
	links        map[int64]verification.Link
	scores       map[string]creditscore.Score
	applications map[int64]loan.Application
	loans        map[int64]loan.Loan
	installments map[int64]loan.Installment
	repayments   map[int64]loan.Repayment
}

var _ uow.TxManager = (*Store)(nil)

func NewStore() *Store {
	return &Store{st: state{
		accounts:     make(map[int64]ledger.Account),
		challenges:   make(map[int64]ledger.Challenge),
		links:        make(map[int64]verification.Link),
		scores:       make(map[string]creditscore.Score),
		applications: make(map[int64]loan.Application),
		loans:        make(map[int64]loan.Loan),
		installments: make(map[int64]loan.Installment),
		repayments:   make(map[int64]loan.Repayment),
	}}
}

func (s *Store) Ledger() *LedgerRepository { return &LedgerRepository{s: s} }

func (s *Store) Verification() *VerificationRepository { return &VerificationRepository{s: s} }

func (s *Store) Loans() *LoanRepository { return &LoanRepository{s: s} }

func (s *Store) CreditScores() *CreditScoreRepository { return &CreditScoreRepository{s: s} }

type txKey struct{}

// WithinTx serializes transactions and restores the previous state when fn
// fails. Nested calls join the outer transaction. Repository calls made
// outside a transaction wait for it to finish, so the restore only ever
// discards the transaction's own writes.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, struct{}{})); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// lock guards one repository call. Calls outside a transaction also hold
// txMu for their duration.
func (s *Store) lock(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		s.mu.Lock()
		return s.mu.Unlock
	}
	s.txMu.Lock()
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		s.txMu.Unlock()
	}
}

func (s *Store) newID() int64 {
	s.st.nextID++
	return s.st.nextID
}

func (st state) clone() state {
	out := st
	out.accounts = maps.Clone(st.accounts)
	out.challenges = maps.Clone(st.challenges)
	out.transactions = slices.Clone(st.transactions)
	out.links = maps.Clone(st.links)
	out.scores = maps.Clone(st.scores)
	out.applications = maps.Clone(st.applications)
	out.loans = maps.Clone(st.loans)
	out.installments = maps.Clone(st.installments)
	out.repayments = maps.Clone(st.repayments)
	if st.fund != nil {
		fund := *st.fund
		out.fund = &fund
	}
	return out
}
