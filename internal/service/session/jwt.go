package session

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

type claims struct {
	CoderId   string
	SessionId string
}

func (s *service) generateJWT(coderId, sessionId string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"coder_id":   coderId,
		"session_id": sessionId,
	})

	return token.SignedString([]byte(s.secret))
}

func (s *service) parseJWT(tokenString string) (*claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.secret), nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token")
	}

	coderId, ok := mapClaims["coder_id"].(string)
	if !ok {
		return nil, errors.New("invalid token")
	}
	sessionId, ok := mapClaims["session_id"].(string)
	if !ok {
		return nil, errors.New("invalid token")
	}

	return &claims{
		CoderId:   coderId,
		SessionId: sessionId,
	}, nil
}
