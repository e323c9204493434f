package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/parasol-ins/parasol/pkg/handlers"
)

// ErrUnauthorized is returned for missing, malformed, or unverifiable bearer tokens.
var ErrUnauthorized = errors.New("unauthorized")

type contextKey int

const userIDKey contextKey = iota

// Verifier validates a raw bearer token and returns its subject.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (string, error)
}

type oidcVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier creates a Verifier backed by OIDC discovery against the
// configured issuer. The provider's JWKS endpoint is fetched during construction.
func NewOIDCVerifier(ctx context.Context, cfg *AuthConfig) (Verifier, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, err
	}

	return &oidcVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.Audience}),
	}, nil
}

func (o *oidcVerifier) Verify(ctx context.Context, rawToken string) (string, error) {
	token, err := o.verifier.Verify(ctx, rawToken)
	if err != nil {
		return "", err
	}
	return token.Subject, nil
}

// Auth returns middleware that requires a valid bearer token and stores
// its subject in the request context for ownership checks downstream.
func Auth(verifier Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	authLogger := logger.With("middleware", "auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				handlers.RespondError(w, authLogger, http.StatusUnauthorized, ErrUnauthorized)
				return
			}

			subject, err := verifier.Verify(r.Context(), raw)
			if err != nil || subject == "" {
				authLogger.Warn("token verification failed", "error", err)
				handlers.RespondError(w, authLogger, http.StatusUnauthorized, ErrUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), subject)))
		})
	}
}

// WithUserID stores the authenticated subject in the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID returns the authenticated subject stored by the Auth middleware.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// InsecureVerifier trusts the raw bearer token as the subject without
// verification. For local development only; enable OIDC verification in
// any shared environment.
func InsecureVerifier() Verifier { return insecureVerifier{} }

type insecureVerifier struct{}

func (insecureVerifier) Verify(_ context.Context, rawToken string) (string, error) {
	return rawToken, nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}

	return token, true
}
