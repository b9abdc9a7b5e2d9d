package model

// FiltroProductos para el listado público del catálogo.
type FiltroProductos struct {
	Categoria   Categoria
	TipoMascota TipoMascota
	Destacado   *bool
	EnOferta    *bool
	Busqueda    string
	Pagina      int
	Limite      int
}

type FiltroPedidos struct {
	Usuario string
	Estado  EstadoPedido
	Pagina  int
	Limite  int
}
