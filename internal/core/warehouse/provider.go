package warehouse

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/duynhne/warehouse-user-service/internal/core/secrets"
)

// Provider hands out scoped warehouse connections.
// Credentials are fetched from the secret store on first use and cached for
// the lifetime of the Provider. Dependencies are injected via the
// constructor; there is no package-level instance.
type Provider struct {
	store      secrets.Store
	secretName string
	dialer     Dialer

	mu    sync.RWMutex
	creds Credentials

	// Concurrent cold-start callers share one secret store fetch.
	sf singleflight.Group
}

// NewProvider creates a Provider that reads credentials from secretName.
func NewProvider(store secrets.Store, secretName string, dialer Dialer) *Provider {
	return &Provider{
		store:      store,
		secretName: secretName,
		dialer:     dialer,
	}
}

// GetCredentials returns the cached credentials, fetching them once if needed.
// A failed fetch, including one that yields an empty credential set, is not
// cached and not retried.
func (p *Provider) GetCredentials(ctx context.Context) (Credentials, error) {
	if creds := p.cached(); creds != nil {
		return creds.clone(), nil
	}

	// The fetch outlives any single waiter so an abandoned request does not
	// fail everyone else sharing it.
	fetchCtx := context.WithoutCancel(ctx)
	ch := p.sf.DoChan("credentials", func() (any, error) {
		if creds := p.cached(); creds != nil {
			return creds, nil
		}

		values, err := p.store.FetchSecret(fetchCtx, p.secretName)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCredentialRetrieval, err)
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("%w: secret %q holds no credentials", ErrCredentialRetrieval, p.secretName)
		}

		creds := Credentials(values).clone()
		p.mu.Lock()
		p.creds = creds
		p.mu.Unlock()
		return creds, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrCredentialRetrieval, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Credentials).clone(), nil
	}
}

func (p *Provider) cached() Credentials {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.creds
}

// WithConnection opens a connection, passes it to fn and closes it before
// returning, whether fn succeeds, fails, panics or ctx is cancelled. If the
// open fails fn is not called and nothing is closed.
func (p *Provider) WithConnection(ctx context.Context, fn func(ctx context.Context, conn Conn) error) (err error) {
	creds, err := p.GetCredentials(ctx)
	if err != nil {
		return err
	}

	conn, err := p.dialer.Open(ctx, creds)
	if err != nil {
		if errors.Is(err, ErrConnection) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}

	defer func() {
		if closeErr := conn.Close(context.WithoutCancel(ctx)); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("%w: close: %w", ErrConnection, closeErr))
		}
	}()

	return fn(ctx, conn)
}

// ExecuteQuery runs query on a scoped connection and returns all rows.
func (p *Provider) ExecuteQuery(ctx context.Context, query string, params Params) ([]Row, error) {
	var rows []Row
	err := p.WithConnection(ctx, func(ctx context.Context, conn Conn) error {
		var err error
		rows, err = conn.Query(ctx, query, params)
		return QueryError(err)
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ExecuteStatement runs a statement on a scoped connection and returns the
// number of affected rows.
func (p *Provider) ExecuteStatement(ctx context.Context, query string, params Params) (int64, error) {
	var affected int64
	err := p.WithConnection(ctx, func(ctx context.Context, conn Conn) error {
		var err error
		affected, err = conn.Exec(ctx, query, params)
		return QueryError(err)
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// QueryError wraps a driver error with ErrQuery, keeping its message.
func QueryError(err error) error {
	if err == nil || errors.Is(err, ErrQuery) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrQuery, err)
}
