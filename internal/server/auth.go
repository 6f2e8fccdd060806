package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/beanscene/api/internal/config"
	"github.com/beanscene/api/internal/interfaces/http/common"
	"github.com/beanscene/api/internal/public/domain"
)

var errMissingToken = errors.New("authorization header is missing")

type authClaims struct {
	jwt.RegisteredClaims
	Email             string `json:"email,omitempty"`
	Name              string `json:"name,omitempty"`
	Picture           string `json:"picture,omitempty"`
	PreferredUsername string `json:"preferred_username,omitempty"`
	Institution       string `json:"institution,omitempty"`
}

// authenticator turns bearer tokens into sessions.
type authenticator struct {
	jwt    config.JWTConfig
	admins map[string]struct{}
	logger *zap.Logger
	now    func() time.Time
}

func newAuthenticator(cfg config.JWTConfig, adminSubjects []string, logger *zap.Logger) *authenticator {
	admins := make(map[string]struct{}, len(adminSubjects))
	for _, subject := range adminSubjects {
		admins[subject] = struct{}{}
	}
	return &authenticator{jwt: cfg, admins: admins, logger: logger, now: time.Now}
}

// sessionFromRequest reads the Authorization header. errMissingToken means
// the request carries no credentials at all.
func (a *authenticator) sessionFromRequest(r *http.Request) (domain.SessionContext, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return domain.SessionContext{}, errMissingToken
	}

	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(header, bearerPrefix) {
		return domain.SessionContext{}, errors.New("use a Bearer token")
	}

	tokenString := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if tokenString == "" {
		return domain.SessionContext{}, errors.New("access token is empty")
	}

	claims, err := a.parseToken(tokenString)
	if err != nil {
		return domain.SessionContext{}, err
	}
	return domain.SessionContext{
		UserID:      claims.Subject,
		Email:       claims.Email,
		Handle:      claims.PreferredUsername,
		Name:        claims.Name,
		Institution: claims.Institution,
		AvatarURL:   claims.Picture,
	}, nil
}

// parseToken verifies the HS256 signature and the issuer/audience pins.
func (a *authenticator) parseToken(tokenString string) (*authClaims, error) {
	if len(a.jwt.Secret) == 0 {
		return nil, fmt.Errorf("auth is not configured")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30 * time.Second),
		jwt.WithTimeFunc(a.now),
	}
	if a.jwt.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.jwt.Issuer))
	}
	if a.jwt.Audience != "" {
		opts = append(opts, jwt.WithAudience(a.jwt.Audience))
	}

	claims := &authClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return a.jwt.Secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		a.logger.Debug("token rejected", zap.Error(err))
		return nil, fmt.Errorf("access token is invalid")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("access token has no subject")
	}
	return claims, nil
}

// require rejects requests without a valid token.
func (a *authenticator) require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := a.sessionFromRequest(r)
		if err != nil {
			common.WriteJSON(a.logger, w, http.StatusUnauthorized, common.ErrorResponse{Error: err.Error(), Code: common.CodeUnauthorized})
			return
		}
		next.ServeHTTP(w, r.WithContext(common.ContextWithSession(r.Context(), session)))
	})
}

// optional lets anonymous requests through but still rejects a bad token, so
// clients notice expired sessions.
func (a *authenticator) optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := a.sessionFromRequest(r)
		switch {
		case errors.Is(err, errMissingToken):
			next.ServeHTTP(w, r.WithContext(common.ContextWithSession(r.Context(), domain.SessionContext{})))
		case err != nil:
			common.WriteJSON(a.logger, w, http.StatusUnauthorized, common.ErrorResponse{Error: err.Error(), Code: common.CodeUnauthorized})
		default:
			next.ServeHTTP(w, r.WithContext(common.ContextWithSession(r.Context(), session)))
		}
	})
}

// admin requires a token whose subject is listed in ADMIN_SUBJECTS.
func (a *authenticator) admin(next http.Handler) http.Handler {
	return a.require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, _ := common.SessionFromContext(r.Context())
		if _, ok := a.admins[session.UserID]; !ok {
			common.WriteMessage(a.logger, w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	}))
}
