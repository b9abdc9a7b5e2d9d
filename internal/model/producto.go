// producto.go
package model

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Categoria string

const (
	CategoriaAlimentos       Categoria = "alimentos"
	CategoriaAccesorios      Categoria = "accesorios"
	CategoriaHigiene         Categoria = "higiene"
	CategoriaJuguetes        Categoria = "juguetes"
	CategoriaMedicamentos    Categoria = "medicamentos"
	CategoriaCamas           Categoria = "camas"
	CategoriaTransportadoras Categoria = "transportadoras"
	CategoriaOtros           Categoria = "otros"
)

func (c Categoria) Valida() bool {
	switch c {
	case CategoriaAlimentos, CategoriaAccesorios, CategoriaHigiene, CategoriaJuguetes,
		CategoriaMedicamentos, CategoriaCamas, CategoriaTransportadoras, CategoriaOtros:
		return true
	}
	return false
}

type TipoMascota string

const (
	MascotaPerro  TipoMascota = "perro"
	MascotaGato   TipoMascota = "gato"
	MascotaAve    TipoMascota = "ave"
	MascotaPez    TipoMascota = "pez"
	MascotaRoedor TipoMascota = "roedor"
	MascotaReptil TipoMascota = "reptil"
	MascotaOtro   TipoMascota = "otro"
)

func (t TipoMascota) Valida() bool {
	switch t {
	case MascotaPerro, MascotaGato, MascotaAve, MascotaPez, MascotaRoedor, MascotaReptil, MascotaOtro:
		return true
	}
	return false
}

// Producto del catálogo. Stock nunca es negativo.
type Producto struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Nombre      string             `bson:"nombre" json:"nombre"`
	Descripcion string             `bson:"descripcion,omitempty" json:"descripcion,omitempty"`
	Precio      int64              `bson:"precio" json:"precio"`
	Categoria   Categoria          `bson:"categoria" json:"categoria"`
	TipoMascota TipoMascota        `bson:"tipoMascota" json:"tipoMascota"`
	Stock       int                `bson:"stock" json:"stock"`
	Destacado   bool               `bson:"destacado" json:"destacado"`
	EnOferta    bool               `bson:"enOferta" json:"enOferta"`
	Descuento   int                `bson:"descuento" json:"descuento"`
	Imagen      string             `bson:"imagen,omitempty" json:"imagen,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// PrecioFinal aplica el descuento cuando el producto está en oferta,
// redondeando a la unidad monetaria más cercana.
func (p *Producto) PrecioFinal() int64 {
	if !p.EnOferta || p.Descuento <= 0 {
		return p.Precio
	}
	factor := decimal.NewFromInt(100 - int64(p.Descuento)).Div(decimal.NewFromInt(100))
	return decimal.NewFromInt(p.Precio).Mul(factor).Round(0).IntPart()
}
