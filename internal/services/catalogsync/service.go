package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"stocksync/internal/config"
	"stocksync/internal/events"
	"stocksync/internal/lock"
	"stocksync/internal/logger"
	"stocksync/internal/models"
	"stocksync/internal/repository"
	"stocksync/internal/services/clover"
	"stocksync/internal/session"
	"stocksync/internal/worker/processors/export"
	"stocksync/internal/worker/processors/importer"
)

var (
	ErrNotConfigured    = errors.New("clover integration is not configured")
	ErrInvalidState     = errors.New("invalid or expired oauth state")
	ErrMissingMerchant  = errors.New("clover did not return a merchant id")
	ErrInvalidSession   = errors.New("invalid or expired sync session")
	ErrNotConnected     = repository.ErrNotConnected
	ErrLocationRequired = errors.New("location_id is required")
	ErrLocationNotFound = errors.New("location not found")
	ErrSyncInProgress   = errors.New("a sync is already running for this account")
	ErrInvalidDirection = errors.New("direction must be import or export")
	ErrUnknownRequest   = errors.New("unknown sync request type")
)

const lockTTL = 15 * time.Minute

type UserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	Credential(ctx context.Context, userID string) (*repository.Credential, error)
	Connect(ctx context.Context, userID, merchantID, accessToken string, connectedAt time.Time) error
	Disconnect(ctx context.Context, userID string) error
}

type LocationStore interface {
	FindByID(ctx context.Context, id string) (*models.Location, error)
}

type RunStore interface {
	Create(ctx context.Context, run *models.SyncRun) error
	Finish(ctx context.Context, run *models.SyncRun) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.SyncRun, error)
}

// Deps groups the collaborators of Service.
type Deps struct {
	OAuth     *clover.OAuthService
	Clients   *clover.ClientFactory
	Users     UserStore
	Locations LocationStore
	Runs      RunStore
	Sessions  session.Store
	States    session.Store
	Locker    lock.Locker
	Importer  *importer.Importer
	Exporter  *export.Exporter
	Publisher events.Publisher
}

// Service links users to Clover and runs imports and pushes on their behalf.
// Every run for a user is serialized and recorded.
type Service struct {
	cfg *config.Config
	Deps
	logger *logger.Logger
	now    func() time.Time
}

func New(cfg *config.Config, deps Deps, logger *logger.Logger) *Service {
	if deps.Publisher == nil {
		deps.Publisher = events.NoopPublisher{}
	}
	return &Service{
		cfg:    cfg,
		Deps:   deps,
		logger: logger,
		now:    time.Now,
	}
}

// Connection is the outcome of a completed OAuth handshake.
type Connection struct {
	UserID     string `json:"user_id"`
	MerchantID string `json:"merchant_id"`
	SessionID  string `json:"session_id"`
}

type ConnectionStatus struct {
	Connected   bool       `json:"connected"`
	MerchantID  string     `json:"merchantId,omitempty"`
	ConnectedAt *time.Time `json:"connectedAt,omitempty"`
}

func (s *Service) configured() error {
	if err := s.cfg.ValidateClover(); err != nil {
		s.logger.Error("Clover integration misconfigured", zap.Error(err))
		return ErrNotConfigured
	}
	return nil
}

// AuthorizationURL starts a handshake for userID. The returned URL carries a
// one-time state bound to that user.
func (s *Service) AuthorizationURL(ctx context.Context, userID string) (string, error) {
	if err := s.configured(); err != nil {
		return "", err
	}

	state, err := s.States.Create(ctx, session.Session{UserID: userID})
	if err != nil {
		return "", fmt.Errorf("failed to store oauth state: %w", err)
	}
	return s.OAuth.AuthorizationURL(s.cfg.Clover.RedirectURI, state), nil
}

// CompleteOAuth exchanges the code, stores the credential on the user who
// started the handshake and opens a sync session. merchantID from the callback
// query wins over the one in the token response.
func (s *Service) CompleteOAuth(ctx context.Context, state, code, merchantID string) (*Connection, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	if state == "" {
		return nil, ErrInvalidState
	}

	st, err := s.States.Take(ctx, state)
	if errors.Is(err, session.ErrNotFound) {
		return nil, ErrInvalidState
	}
	if err != nil {
		return nil, err
	}

	token, err := s.OAuth.ExchangeCodeForToken(ctx, code, s.cfg.Clover.RedirectURI)
	if err != nil {
		return nil, err
	}

	if merchantID == "" {
		merchantID = token.MerchantID
	}
	if merchantID == "" {
		return nil, ErrMissingMerchant
	}

	if err := s.Users.Connect(ctx, st.UserID, merchantID, token.AccessToken, s.now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to save clover credential: %w", err)
	}

	handle, err := s.Sessions.Create(ctx, session.Session{
		UserID:      st.UserID,
		AccessToken: token.AccessToken,
		MerchantID:  merchantID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sync session: %w", err)
	}

	s.logger.Info("Clover account connected",
		zap.String("user_id", st.UserID),
		zap.String("merchant_id", merchantID),
	)
	return &Connection{UserID: st.UserID, MerchantID: merchantID, SessionID: handle}, nil
}

func (s *Service) Status(ctx context.Context, userID string) (*ConnectionStatus, error) {
	user, err := s.Users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return &ConnectionStatus{}, nil
	}
	if err != nil {
		return nil, err
	}
	if !user.CloverConnected() {
		return &ConnectionStatus{}, nil
	}
	return &ConnectionStatus{
		Connected:   true,
		MerchantID:  *user.CloverMerchantID,
		ConnectedAt: user.CloverConnectedAt,
	}, nil
}

func (s *Service) Disconnect(ctx context.Context, userID string) error {
	if err := s.Users.Disconnect(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("Clover account disconnected", zap.String("user_id", userID))
	return nil
}

// MerchantInfo fetches the merchant profile. It reads the session without
// consuming it.
func (s *Service) MerchantInfo(ctx context.Context, userID, sessionID string) (*clover.Merchant, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	cred, err := s.resolve(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return s.Clients.New(cred.MerchantID, cred.AccessToken).GetMerchant(ctx)
}

func (s *Service) History(ctx context.Context, userID string, limit int) ([]models.SyncRun, error) {
	return s.Runs.ListByUser(ctx, userID, limit)
}

type credential struct {
	MerchantID  string
	AccessToken string
}

// resolve prefers an explicit session handle and falls back to the user's
// stored credential.
func (s *Service) resolve(ctx context.Context, userID, sessionID string) (*credential, error) {
	if sessionID != "" {
		sess, err := s.Sessions.Get(ctx, sessionID)
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrInvalidSession
		}
		if err != nil {
			return nil, err
		}
		if sess.UserID != userID {
			s.logger.Warn("Sync session used by another user", zap.String("user_id", userID))
			return nil, ErrInvalidSession
		}

		// The stored credential is authoritative: a session outlives neither a
		// disconnect nor a reconnect to another merchant.
		stored, err := s.Users.Credential(ctx, userID)
		if errors.Is(err, repository.ErrNotConnected) || errors.Is(err, repository.ErrNotFound) {
			s.invalidate(ctx, sessionID)
			return nil, ErrInvalidSession
		}
		if err != nil {
			return nil, err
		}
		if stored.MerchantID != sess.MerchantID {
			s.invalidate(ctx, sessionID)
			return nil, ErrInvalidSession
		}
		return &credential{MerchantID: sess.MerchantID, AccessToken: sess.AccessToken}, nil
	}

	cred, err := s.Users.Credential(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, err
	}
	return &credential{MerchantID: cred.MerchantID, AccessToken: cred.AccessToken}, nil
}

func (s *Service) invalidate(ctx context.Context, sessionID string) {
	if err := s.Sessions.Invalidate(context.WithoutCancel(ctx), sessionID); err != nil {
		s.logger.Warn("Failed to invalidate sync session", zap.Error(err))
	}
}

func (s *Service) checkLocation(ctx context.Context, locationID string) error {
	_, err := s.Locations.FindByID(ctx, locationID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrLocationNotFound
	}
	return err
}
