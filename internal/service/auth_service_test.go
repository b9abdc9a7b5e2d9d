package service

import (
	"testing"
	"time"

	"petshop-order-service/internal/model"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secretoTest = "secreto-de-prueba"

func firmar(t *testing.T, method jwt.SigningMethod, secret string, claims Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func vigente(id, rol string) Claims {
	return Claims{
		UsuarioID: id,
		Rol:       rol,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestValidateToken(t *testing.T) {
	auth := NewAuthService(secretoTest)

	actor, err := auth.ValidateToken(firmar(t, jwt.SigningMethodHS256, secretoTest, vigente("u1", "empleado")))
	require.NoError(t, err)
	assert.Equal(t, model.Actor{ID: "u1", Rol: model.RolEmpleado}, actor)

	actor, err = auth.ValidateToken(firmar(t, jwt.SigningMethodHS256, secretoTest, vigente("u2", "")))
	require.NoError(t, err)
	assert.Equal(t, model.RolCliente, actor.Rol)

	c := vigente("", "ADMIN")
	c.Subject = "u3"
	actor, err = auth.ValidateToken(firmar(t, jwt.SigningMethodHS256, secretoTest, c))
	require.NoError(t, err)
	assert.Equal(t, model.Actor{ID: "u3", Rol: model.RolAdmin}, actor)
}

func TestValidateToken_Rechazos(t *testing.T) {
	auth := NewAuthService(secretoTest)

	vencido := vigente("u1", "cliente")
	vencido.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	cases := map[string]string{
		"vencido":         firmar(t, jwt.SigningMethodHS256, secretoTest, vencido),
		"otro secreto":    firmar(t, jwt.SigningMethodHS256, "otro", vigente("u1", "cliente")),
		"algoritmo HS512": firmar(t, jwt.SigningMethodHS512, secretoTest, vigente("u1", "cliente")),
		"rol desconocido": firmar(t, jwt.SigningMethodHS256, secretoTest, vigente("u1", "superusuario")),
		"sin id":          firmar(t, jwt.SigningMethodHS256, secretoTest, vigente("", "cliente")),
		"basura":          "no.es.un.jwt",
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := auth.ValidateToken(tok)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	_, err := NewAuthService("").ValidateToken(firmar(t, jwt.SigningMethodHS256, secretoTest, vigente("u1", "cliente")))
	require.ErrorIs(t, err, ErrInvalidToken)
}
