package ports

import "context"

// Repositories is the set of repositories bound to one transaction scope.
type Repositories struct {
	Accounts       AccountRepository
	Collaborations CollaborationRepository
	Royalties      RoyaltyRepository
	Transactions   TransactionRepository
}

// TxManager runs multi-record writes atomically.
type TxManager interface {
	// Execute runs fn inside a transaction. The context and repositories handed
	// to fn are bound to that transaction and must not escape it. If fn returns
	// an error or panics the transaction is rolled back; otherwise it is
	// committed. Execute may run fn more than once when the store reports a
	// transient conflict, so fn must not have side effects outside the store.
	Execute(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
