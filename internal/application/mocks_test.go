package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ericfisherdev/mexcbridge/internal/domain/model"
)

// --- Mock implementations shared by the application tests ---

type mockVerifier struct {
	identity  model.UserIdentity
	err       error
	lastToken string
	calls     int
}

func (m *mockVerifier) Verify(_ context.Context, token string) (model.UserIdentity, error) {
	m.calls++
	m.lastToken = token
	if m.err != nil {
		return model.UserIdentity{}, m.err
	}
	return m.identity, nil
}

// mockCipher "encrypts" by prefixing plaintext and hands out sequential
// nonces, which is enough to check what reaches the store.
type mockCipher struct {
	mu         sync.Mutex
	encryptErr error
	decryptErr error
	encrypted  []string
	nonce      byte
}

func (m *mockCipher) Encrypt(plaintext string) ([]byte, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.encryptErr != nil {
		return nil, nil, m.encryptErr
	}
	m.encrypted = append(m.encrypted, plaintext)
	m.nonce++
	return []byte("sealed:" + plaintext), []byte{m.nonce}, nil
}

func (m *mockCipher) Decrypt(ciphertext, nonce []byte) (string, error) {
	if m.decryptErr != nil {
		return "", m.decryptErr
	}
	if len(nonce) == 0 || !strings.HasPrefix(string(ciphertext), "sealed:") {
		return "", fmt.Errorf("open: %w", model.ErrIntegrity)
	}
	return strings.TrimPrefix(string(ciphertext), "sealed:"), nil
}

type mockCredentialStore struct {
	mu          sync.Mutex
	records     map[string]model.CredentialRecord
	upsertErr   error
	getErr      error
	statusErr   error
	deactivated []string
}

func newMockCredentialStore() *mockCredentialStore {
	return &mockCredentialStore{records: make(map[string]model.CredentialRecord)}
}

func (m *mockCredentialStore) Upsert(_ context.Context, rec model.CredentialRecord) (model.CredentialRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return model.CredentialRecord{}, m.upsertErr
	}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if existing, ok := m.records[rec.UserID]; ok {
		rec.CreatedAt = existing.CreatedAt
	} else {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	rec.IsActive = true
	m.records[rec.UserID] = rec
	return rec, nil
}

func (m *mockCredentialStore) GetActive(_ context.Context, userID string) (*model.CredentialRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	rec, ok := m.records[userID]
	if !ok || !rec.IsActive {
		return nil, fmt.Errorf("get credentials for %q: %w", userID, model.ErrNotConnected)
	}
	return &rec, nil
}

func (m *mockCredentialStore) GetStatus(_ context.Context, userID string) (model.CredentialStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statusErr != nil {
		return model.CredentialStatus{}, m.statusErr
	}
	rec, ok := m.records[userID]
	if !ok {
		return model.CredentialStatus{}, nil
	}
	updated := rec.UpdatedAt
	return model.CredentialStatus{Connected: rec.IsActive, UpdatedAt: &updated}, nil
}

func (m *mockCredentialStore) Deactivate(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.deactivated = append(m.deactivated, userID)
	if rec, ok := m.records[userID]; ok {
		rec.IsActive = false
		m.records[userID] = rec
	}
	return nil
}

type placeOrderCall struct {
	creds model.APICredentials
	order model.OrderRequest
	at    time.Time
}

type mockExchange struct {
	result model.OrderResult
	err    error
	calls  []placeOrderCall
}

func (m *mockExchange) PlaceOrder(_ context.Context, creds model.APICredentials, order model.OrderRequest, at time.Time) (model.OrderResult, error) {
	m.calls = append(m.calls, placeOrderCall{creds: creds, order: order, at: at})
	if m.err != nil {
		return model.OrderResult{}, m.err
	}
	return m.result, nil
}

type mockTradeStore struct {
	inserted  []model.TradeRecord
	insertErr error
	listErr   error
	lastLimit int
	insertCtx context.Context
}

func (m *mockTradeStore) Insert(ctx context.Context, trade model.TradeRecord) error {
	m.insertCtx = ctx
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted = append(m.inserted, trade)
	return nil
}

func (m *mockTradeStore) ListRecent(_ context.Context, userID string, limit int) ([]model.TradeRecord, error) {
	m.lastLimit = limit
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]model.TradeRecord, 0, limit)
	for i := len(m.inserted) - 1; i >= 0 && len(out) < limit; i-- {
		if m.inserted[i].UserID == userID {
			out = append(out, m.inserted[i])
		}
	}
	return out, nil
}

var errDiskFull = errors.New("disk I/O error")
