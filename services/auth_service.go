package services

import (
	"fmt"
	"log/slog"
	"sync"

	"lan-chat/auth"
	"lan-chat/errors"
	"lan-chat/repositories"
)

type Token string

type IAuthService interface {
	Login(username, password string) (Token, error)
	Identity(token Token) (string, error)
	Invalidate(token Token)
}

// AuthService is the session gate: it validates login attempts against the
// shared credential and issues revocable session tokens. The live set maps
// jti -> presence so logout actually kills a token server-side instead of
// waiting for expiry.
type AuthService struct {
	credentials repositories.ICredentialRepository
	issuer      auth.TokenIssuer
	log         *slog.Logger

	mu   sync.Mutex
	live map[string]struct{}
}

func NewAuthService(credentials repositories.ICredentialRepository, issuer auth.TokenIssuer, log *slog.Logger) *AuthService {
	return &AuthService{
		credentials: credentials,
		issuer:      issuer,
		log:         log,
		live:        make(map[string]struct{}),
	}
}

// Login authenticates one attempt. When no password has been set yet, the
// first submitted password becomes canonical; a concurrent loser of that
// race is re-checked against the winner's password. Identity validation runs
// before the credential store is ever touched.
func (s *AuthService) Login(username, password string) (Token, error) {
	req := auth.LoginRequest{Username: username, Password: password}
	if err := auth.ValidateLogin(req); err != nil {
		return "", err
	}

	isSet, err := s.credentials.IsSet()
	if err != nil {
		return "", err
	}

	if !isSet {
		accepted, err := s.credentials.TrySetIfUnset(password)
		if err != nil {
			return "", err
		}
		if accepted {
			s.log.Info("Shared chat password initialized by first login", "username", username)
		} else {
			// Lost the first-use race; only the winner's password counts.
			return s.verifyAndIssue(username, password)
		}
		return s.issue(username)
	}

	return s.verifyAndIssue(username, password)
}

func (s *AuthService) verifyAndIssue(username, password string) (Token, error) {
	match, err := s.credentials.Verify(password)
	if err != nil || !match {
		// One generic rejection regardless of cause, nothing about the
		// stored password leaks to the caller.
		return "", errors.ErrInvalidCredentials
	}
	return s.issue(username)
}

func (s *AuthService) issue(username string) (Token, error) {
	signed, jti, err := s.issuer.Issue(username)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrTokenGeneration, err)
	}

	s.mu.Lock()
	s.live[jti] = struct{}{}
	s.mu.Unlock()

	return Token(signed), nil
}

// Identity resolves a token to its display name. Revoked, expired, or forged
// tokens all fail the same way.
func (s *AuthService) Identity(token Token) (string, error) {
	claims, err := s.issuer.Parse(string(token))
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrSessionExpired, err)
	}

	s.mu.Lock()
	_, ok := s.live[claims.ID]
	s.mu.Unlock()
	if !ok {
		return "", errors.ErrSessionExpired
	}
	return claims.Username, nil
}

// Invalidate revokes the token's session so any replay fails Identity.
// Unparseable tokens are ignored; there is nothing to revoke.
func (s *AuthService) Invalidate(token Token) {
	claims, err := s.issuer.Parse(string(token))
	if err != nil {
		return
	}
	s.mu.Lock()
	delete(s.live, claims.ID)
	s.mu.Unlock()
}
