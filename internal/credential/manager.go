package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pep299/article-bias-analyzer/internal/apperror"
	"github.com/pep299/article-bias-analyzer/internal/metrics"
	"github.com/pep299/article-bias-analyzer/internal/openai"
	"github.com/pep299/article-bias-analyzer/internal/store"
)

// ClearQuestion is asked before the stored key is removed
const ClearQuestion = "Are you sure you want to clear your API key? This will remove it from storage."

// ErrNotConfirmed is returned by Clear when the user did not confirm
var ErrNotConfirmed = errors.New("clear not confirmed")

// Confirmer asks the user a yes/no question
type Confirmer func(question string) bool

// Prober checks a key against the provider
type Prober interface {
	ListModels(ctx context.Context, apiKey string) error
}

// SaveResult describes where a save attempt ended
type SaveResult struct {
	State   State  `json:"state"`
	Masked  string `json:"masked,omitempty"`
	Durable bool   `json:"durable"`
}

// Status is the displayable view of the session credential
type Status struct {
	Present    bool      `json:"present"`
	State      string    `json:"state"`
	Usable     bool      `json:"usable"`
	Masked     string    `json:"masked,omitempty"`
	Durable    bool      `json:"durable"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
}

// Manager owns the API key lifecycle
type Manager struct {
	store   store.Store
	prober  Prober
	session *Session
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewManager creates a credential manager over the given collaborators
func NewManager(st store.Store, prober Prober, session *Session, m *metrics.Metrics, logger *zap.Logger) *Manager {
	if session == nil {
		session = NewSession()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:   st,
		prober:  prober,
		session: session,
		metrics: m,
		logger:  logger,
	}
}

// Session returns the shared session
func (m *Manager) Session() *Session {
	return m.session
}

// Load reads the stored key into the session. Storage failures are
// logged and treated as "no key".
func (m *Manager) Load(ctx context.Context) (string, bool) {
	token, ok, err := m.store.Get(ctx, store.CredentialKey)
	if err != nil {
		m.logger.Warn("loading API key from storage failed", zap.Error(err))
		m.metrics.CredentialOp("load", "error")
		return "", false
	}
	if !ok || token == "" {
		m.metrics.CredentialOp("load", "absent")
		return "", false
	}

	state := StatePersisted
	if !ValidateFormat(token) {
		state = StateFormatInvalid
	}
	m.session.set(token, state)
	m.metrics.CredentialOp("load", "ok")

	m.logger.Info("API key loaded",
		zap.String("key", Mask(token)),
		zap.Bool("valid", state.Usable()))
	return token, true
}

// ValidateRemotely asks the provider whether it accepts token
func (m *Manager) ValidateRemotely(ctx context.Context, token string) error {
	err := m.prober.ListModels(ctx, token)
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &apperror.Error{
			Kind:    apperror.KindCredentialRejected,
			Op:      "validate key",
			Status:  apiErr.StatusCode,
			Message: apiErr.Message,
			Err:     err,
		}
	}
	if apperror.KindOf(err) != apperror.KindUnknown {
		return err
	}
	return apperror.Wrap(apperror.KindTransport, "validate key", err)
}

// Save validates token by format and by a provider probe, then persists
// it. A persistence failure leaves the verified key in the session.
func (m *Manager) Save(ctx context.Context, token string) (*SaveResult, error) {
	token = strings.TrimSpace(token)

	if !ValidateFormat(token) {
		m.metrics.CredentialOp("save", apperror.KindMissingCredential.String())
		return &SaveResult{State: StateFormatInvalid},
			apperror.New(apperror.KindMissingCredential, "save key", "invalid API key format")
	}

	if err := m.ValidateRemotely(ctx, token); err != nil {
		m.metrics.CredentialOp("save", apperror.KindOf(err).String())
		m.logger.Info("API key test failed", zap.String("key", Mask(token)), zap.Error(err))
		return &SaveResult{State: StateFormatValid, Masked: Mask(token)}, err
	}

	m.session.set(token, StateRemoteVerified)

	if err := m.store.Set(ctx, store.CredentialKey, token); err != nil {
		m.metrics.CredentialOp("save", apperror.KindPersistence.String())
		m.logger.Error("saving API key failed", zap.Error(err))
		return &SaveResult{State: StateRemoteVerified, Masked: Mask(token)},
			apperror.Wrap(apperror.KindPersistence, "save key", err)
	}

	m.session.advance(token, StatePersisted)
	m.metrics.CredentialOp("save", "ok")
	m.logger.Info("API key saved", zap.String("key", Mask(token)), zap.Bool("durable", m.store.Durable()))

	return &SaveResult{
		State:   StatePersisted,
		Masked:  Mask(token),
		Durable: m.store.Durable(),
	}, nil
}

// Clear removes the stored key after the user confirms. Without
// confirmation nothing changes.
func (m *Manager) Clear(ctx context.Context, confirm Confirmer) error {
	if confirm == nil || !confirm(ClearQuestion) {
		m.metrics.CredentialOp("clear", "not_confirmed")
		return ErrNotConfirmed
	}

	if err := m.store.Remove(ctx, store.CredentialKey); err != nil {
		m.metrics.CredentialOp("clear", apperror.KindPersistence.String())
		m.logger.Error("clearing API key failed", zap.Error(err))
		return apperror.Wrap(apperror.KindPersistence, "clear key", err)
	}

	m.session.Reset()
	m.metrics.CredentialOp("clear", "ok")
	m.logger.Info("API key cleared", zap.Bool("durable", m.store.Durable()))
	return nil
}

// Require returns the session key when it may be used for a request
func (m *Manager) Require() (string, error) {
	token, state := m.session.Snapshot()
	if token == "" || !state.Usable() {
		return "", apperror.New(apperror.KindMissingCredential, "require key", "no valid API key saved")
	}
	return token, nil
}

// Status reports the session credential for display
func (m *Manager) Status() Status {
	token, state := m.session.Snapshot()

	st := Status{
		Present:    token != "",
		State:      state.String(),
		Usable:     token != "" && state.Usable(),
		Durable:    m.store.Durable(),
	}
	if verifiedAt := m.session.VerifiedAt(); !verifiedAt.IsZero() {
		st.VerifiedAt = &verifiedAt
	}
	if token != "" {
		st.Masked = Mask(token)
	}
	return st
}

// Reverify probes the session key again. A key the provider now rejects
// stays in the session but drops back to FormatValid.
func (m *Manager) Reverify(ctx context.Context) error {
	token, state := m.session.Snapshot()
	if token == "" || !state.Usable() {
		return nil
	}

	err := m.ValidateRemotely(ctx, token)
	switch {
	case err == nil:
		m.session.markVerified(token)
		m.metrics.CredentialOp("reverify", "ok")
		return nil
	case apperror.Is(err, apperror.KindCredentialRejected):
		m.session.advance(token, StateFormatValid)
		m.logger.Warn("stored API key rejected by provider", zap.String("key", Mask(token)), zap.Error(err))
	}

	m.metrics.CredentialOp("reverify", apperror.KindOf(err).String())
	return fmt.Errorf("reverifying key: %w", err)
}
