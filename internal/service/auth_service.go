package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"familytree/internal/logger"
	"familytree/internal/models"
	"familytree/internal/repository"
	"familytree/internal/security"
	"familytree/internal/validation"
)

var (
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
)

// AuthService handles accounts, sessions and API tokens
type AuthService struct {
	repos           *repository.Repositories
	tx              Transactor
	tokens          *security.TokenIssuer
	email           *EmailService
	sessionDuration time.Duration
	logger          *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(repos *repository.Repositories, tx Transactor, tokens *security.TokenIssuer, email *EmailService, sessionDuration time.Duration, log *logger.Logger) *AuthService {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthService{
		repos:           repos,
		tx:              tx,
		tokens:          tokens,
		email:           email,
		sessionDuration: sessionDuration,
		logger:          log,
	}
}

// Register creates a user account together with the member that represents the user in the tree
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}

	existingUser, err := s.repos.Users.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existingUser != nil {
		return nil, ErrEmailTaken
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.createAccount(email, passwordHash, name)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user_id", user.ID, "member_id", user.ActorID())

	if s.email.IsEnabled() {
		if err := s.email.SendWelcomeEmail(ctx, user.Email, user.Name); err != nil {
			s.logger.Warn("failed to send welcome email", "user_id", user.ID, "error", err)
		}
	}
	return user, nil
}

// Authenticate checks an email and password pair
func (s *AuthService) Authenticate(email, password string) (*models.User, error) {
	user, err := s.repos.Users.GetUserByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !security.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates a user and creates a session
func (s *AuthService) Login(email, password string) (*models.Session, *models.User, error) {
	user, err := s.Authenticate(email, password)
	if err != nil {
		return nil, nil, err
	}
	session, err := s.createSession(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

// ValidateSession checks if a session is valid and returns the associated user
func (s *AuthService) ValidateSession(sessionID string) (*models.User, error) {
	session, err := s.repos.Users.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if session.IsExpired() {
		_ = s.repos.Users.DeleteSession(sessionID)
		return nil, ErrSessionExpired
	}

	user, err := s.repos.Users.GetUserByID(session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}
	return user, nil
}

// Logout invalidates a session
func (s *AuthService) Logout(sessionID string) error {
	if err := s.repos.Users.DeleteSession(sessionID); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// CleanupExpiredSessions removes expired sessions from the database
func (s *AuthService) CleanupExpiredSessions() (int64, error) {
	n, err := s.repos.Users.DeleteExpiredSessions(time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	return n, nil
}

// IssueToken signs an API token for an authenticated user
func (s *AuthService) IssueToken(user *models.User) (string, time.Time, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to issue token: %w", err)
	}
	return token, expiresAt, nil
}

// ValidateToken verifies an API token and returns its user
func (s *AuthService) ValidateToken(token string) (*models.User, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	user, err := s.repos.Users.GetUserByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, security.ErrInvalidToken
	}
	return user, nil
}

// ChangePassword replaces a user's password after checking the current one
func (s *AuthService) ChangePassword(userID int64, currentPassword, newPassword string) error {
	user, err := s.repos.Users.GetUserByID(userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !security.CheckPassword(currentPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	if err := validation.ValidatePassword(newPassword); err != nil {
		return err
	}
	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.repos.Users.UpdatePassword(userID, passwordHash)
}

// OAuthLogin authenticates or creates a user using an OAuth provider
func (s *AuthService) OAuthLogin(ctx context.Context, provider, subject, email, name string) (*models.Session, *models.User, error) {
	if provider == "" || subject == "" {
		return nil, nil, errors.New("missing oauth provider information")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validation.ValidateEmail(email); err != nil {
		return nil, nil, err
	}

	user, err := s.repos.Users.GetUserByOAuth(provider, subject)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lookup oauth user: %w", err)
	}

	if user == nil {
		existingUser, err := s.repos.Users.GetUserByEmail(email)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check existing user: %w", err)
		}
		if existingUser != nil {
			if existingUser.OAuthProvider != "" && existingUser.OAuthProvider != provider {
				return nil, nil, ErrEmailTaken
			}
			if err := s.repos.Users.LinkOAuth(existingUser.ID, provider, subject); err != nil {
				return nil, nil, fmt.Errorf("failed to link oauth provider: %w", err)
			}
			user = existingUser
		} else {
			if strings.TrimSpace(name) == "" {
				name = strings.Split(email, "@")[0]
			}
			randomPasswordHash, err := security.HashPassword(security.GenerateSessionID())
			if err != nil {
				return nil, nil, fmt.Errorf("failed to generate oauth password hash: %w", err)
			}
			newUser, err := s.createAccount(email, randomPasswordHash, name)
			if err != nil {
				return nil, nil, err
			}
			if err := s.repos.Users.LinkOAuth(newUser.ID, provider, subject); err != nil {
				return nil, nil, fmt.Errorf("failed to link oauth provider: %w", err)
			}
			user = newUser
			s.logger.Info("user registered via oauth", "user_id", user.ID, "provider", provider)

			if s.email.IsEnabled() {
				if err := s.email.SendWelcomeEmail(ctx, user.Email, user.Name); err != nil {
					s.logger.Warn("failed to send welcome email", "user_id", user.ID, "error", err)
				}
			}
		}
	}

	session, err := s.createSession(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

func (s *AuthService) createAccount(email, passwordHash, name string) (*models.User, error) {
	var user *models.User
	err := s.tx.InTx(func(repos *repository.Repositories) error {
		member, err := repos.Members.CreateMember(&models.Member{
			Name:   name,
			Gender: models.GenderUnknown,
			Status: models.MemberAlive,
		})
		if err != nil {
			return err
		}
		user, err = repos.Users.CreateUser(email, passwordHash, name, &member.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *AuthService) createSession(userID int64) (*models.Session, error) {
	session, err := s.repos.Users.CreateSession(security.GenerateSessionID(), userID, time.Now().Add(s.sessionDuration))
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}
