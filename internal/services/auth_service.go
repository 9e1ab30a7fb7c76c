package services

import (
	"context"
	"log/slog"

	"image-studio-client/internal/apperr"
	"image-studio-client/internal/models"
	"image-studio-client/internal/notify"
	"image-studio-client/internal/session"
)

type AuthGateway interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.MessageResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	LoginWithGoogle(ctx context.Context, credential string) (*models.LoginResponse, error)
	Logout(ctx context.Context) error
	Validate(ctx context.Context, token string) bool
}

// StreamCloser is the part of the event-stream client logout needs.
type StreamCloser interface {
	Disconnect()
}

type AuthService struct {
	api            AuthGateway
	session        *session.Store
	stream         StreamCloser
	notices        notify.Publisher
	logger         *slog.Logger
	googleClientID string
}

type AuthOptions struct {
	// GoogleClientID enables Google sign-in when set.
	GoogleClientID string
	Stream         StreamCloser
	Logger         *slog.Logger
}

func NewAuthService(api AuthGateway, store *session.Store, notices notify.Publisher, opts AuthOptions) *AuthService {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &AuthService{
		api:            api,
		session:        store,
		stream:         opts.Stream,
		notices:        notices,
		logger:         opts.Logger,
		googleClientID: opts.GoogleClientID,
	}
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, error) {
	resp, err := s.api.Login(ctx, models.LoginRequest{Email: email, Password: password})
	if err != nil {
		s.notices.Publish(notify.Error(apperr.UserMessage(err, "Login failed")))
		return nil, err
	}
	return s.start(resp)
}

func (s *AuthService) LoginWithGoogle(ctx context.Context, credential string) (*models.User, error) {
	if s.googleClientID == "" {
		err := &apperr.ValidationError{Field: "google", Message: "Google sign-in is not configured"}
		s.notices.Publish(notify.Error(err.Message))
		return nil, err
	}
	resp, err := s.api.LoginWithGoogle(ctx, credential)
	if err != nil {
		s.notices.Publish(notify.Error(apperr.UserMessage(err, "Google sign-in failed")))
		return nil, err
	}
	return s.start(resp)
}

func (s *AuthService) start(resp *models.LoginResponse) (*models.User, error) {
	user := resp.User
	if err := s.session.Set(resp.Token.AccessToken, &user); err != nil {
		s.notices.Publish(notify.Error(apperr.UserMessage(err, "Could not save the session")))
		return nil, err
	}
	name := user.DisplayName
	if name == "" {
		name = user.Email
	}
	s.notices.Publish(notify.Success("Signed in as " + name))
	return &user, nil
}

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) error {
	resp, err := s.api.Register(ctx, req)
	if err != nil {
		s.notices.Publish(notify.Error(apperr.UserMessage(err, "Registration failed")))
		return err
	}
	msg := resp.Message
	if msg == "" {
		msg = "Account created, you can now log in"
	}
	s.notices.Publish(notify.Success(msg))
	return nil
}

// Logout tells the backend (best effort), then always clears the local
// session and closes the event stream.
func (s *AuthService) Logout(ctx context.Context) error {
	if _, err := s.session.Token(); err == nil {
		if err := s.api.Logout(ctx); err != nil {
			s.logger.Warn("backend logout failed", "err", err)
		}
	}
	if s.stream != nil {
		s.stream.Disconnect()
	}
	if err := s.session.Clear(); err != nil {
		s.notices.Publish(notify.Error("Failed to clear the saved session"))
		return err
	}
	s.notices.Publish(notify.Info("Signed out"))
	return nil
}

// Restore loads the persisted session and checks it with the backend. It
// reports whether a usable session exists.
func (s *AuthService) Restore(ctx context.Context) (*models.User, bool, error) {
	if err := s.session.Load(); err != nil {
		return nil, false, err
	}
	token, err := s.session.Token()
	if err != nil {
		return nil, false, nil
	}
	if !s.api.Validate(ctx, token) {
		if err := s.session.Clear(); err != nil {
			s.logger.Warn("failed to clear rejected session", "err", err)
		}
		s.notices.Publish(notify.Warning("Your session has expired, please log in again"))
		return nil, false, nil
	}
	return s.session.User(), true, nil
}
