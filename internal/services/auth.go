package services

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pathwise/pathwise-backend/internal/logger"
	pkgerrors "github.com/pathwise/pathwise-backend/internal/pkg/errors"
	"github.com/pathwise/pathwise-backend/internal/requestdata"
)

// AuthService verifies bearer tokens issued by the identity provider and
// establishes the learner identity on the request context. Session issuance
// itself lives outside this service.
type AuthService interface {
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
}

type authService struct {
	log       *logger.Logger
	jwtSecret []byte
}

func NewAuthService(baseLog *logger.Logger, jwtSecret string) AuthService {
	return &authService{
		log:       baseLog.With("service", "AuthService"),
		jwtSecret: []byte(jwtSecret),
	}
}

func (s *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return ctx, fmt.Errorf("%w: invalid token", pkgerrors.ErrUnauthorized)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ctx, fmt.Errorf("%w: malformed claims", pkgerrors.ErrUnauthorized)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return ctx, fmt.Errorf("%w: missing subject", pkgerrors.ErrUnauthorized)
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return ctx, fmt.Errorf("%w: subject is not a user id", pkgerrors.ErrUnauthorized)
	}

	rd := &requestdata.RequestData{
		TokenString: tokenString,
		UserID:      userID,
	}
	return requestdata.WithRequestData(ctx, rd), nil
}
