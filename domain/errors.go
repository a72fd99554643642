package domain

import "errors"

var (
	// ErrInternalServerError will throw if any the Internal Server Error happen
	ErrInternalServerError = errors.New("internal server error")
	// ErrNotFound will throw if the requested item is not exists
	ErrNotFound = errors.New("your requested item is not found")
	// ErrConflict will throw if the current action already exists
	ErrConflict = errors.New("your item already exist")
	// ErrBadParamInput will throw if the given request-body or params is not valid
	ErrBadParamInput = errors.New("given param is not valid")
	// ErrCacheMiss will throw if the key is not loaded in cache yet
	ErrCacheMiss = errors.New("cache miss")
	// ErrForbidden will throw if the caller may not touch the item
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthenticated will throw if no viewer id is available
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrTransientFetch wraps profile, block list and ledger read failures
	ErrTransientFetch = errors.New("transient fetch failure")
	// ErrCommitFailed will throw if the match or pass transaction did not commit.
	// The interest event stays pending and the caller may retry.
	ErrCommitFailed = errors.New("transaction commit failed, please retry")
	// ErrDuplicateActivation means the interest event was already consumed
	ErrDuplicateActivation = errors.New("interest event already consumed")
	// ErrTransactionInFlight will throw if the viewer already has a pending transaction
	ErrTransactionInFlight = errors.New("another action is still in progress")
	// ErrSessionClosed will throw if the feed session was torn down
	ErrSessionClosed = errors.New("feed session closed")
)
