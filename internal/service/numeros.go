package service

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"
)

const prefijoSeguimiento = "CX"

var formatoNumeroPedido = regexp.MustCompile(`^PM-\d{6}-\d{5}$`)

// GenerarNumeroPedido arma PM-YYMMDD-NNNNN. La unicidad la garantiza el
// índice único de la colección, no este generador.
func GenerarNumeroPedido(t time.Time) string {
	return fmt.Sprintf("PM-%s-%05d", t.Format("060102"), rand.IntN(100000))
}

func NumeroPedidoValido(n string) bool {
	return formatoNumeroPedido.MatchString(n)
}

// GenerarNumeroSeguimiento usa la parte aleatoria de un ULID.
func GenerarNumeroSeguimiento() string {
	id := ulid.Make().String()
	return prefijoSeguimiento + id[len(id)-10:]
}
