package service

import (
	"errors"
	"fmt"
	"strings"

	"petshop-order-service/internal/model"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidToken = errors.New("token inválido o expirado")

// Valida los tokens emitidos por el servicio de usuarios (HS256, secreto compartido).
type AuthService struct {
	secret []byte
}

// Claims que firma el servicio de usuarios.
type Claims struct {
	UsuarioID string `json:"id"`
	Rol       string `json:"rol"`
	jwt.RegisteredClaims
}

func NewAuthService(secret string) *AuthService {
	return &AuthService{secret: []byte(secret)}
}

// ValidateToken verifica firma y expiración y devuelve el actor.
func (a *AuthService) ValidateToken(token string) (model.Actor, error) {
	if len(a.secret) == 0 {
		return model.Actor{}, fmt.Errorf("%w: secreto no configurado", ErrInvalidToken)
	}

	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil || !parsed.Valid {
		return model.Actor{}, ErrInvalidToken
	}

	id := strings.TrimSpace(claims.UsuarioID)
	if id == "" {
		id = strings.TrimSpace(claims.Subject)
	}
	if id == "" {
		return model.Actor{}, fmt.Errorf("%w: sin id de usuario", ErrInvalidToken)
	}

	rol := model.Rol(strings.ToLower(strings.TrimSpace(claims.Rol)))
	switch rol {
	case model.RolCliente, model.RolEmpleado, model.RolAdmin:
	case "":
		rol = model.RolCliente
	default:
		return model.Actor{}, fmt.Errorf("%w: rol %q desconocido", ErrInvalidToken, claims.Rol)
	}
	return model.Actor{ID: id, Rol: rol}, nil
}
