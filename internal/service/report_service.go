package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"petshop-order-service/internal/dto"
	"petshop-order-service/internal/model"

	"github.com/shopspring/decimal"
)

const (
	GranularidadHora      = "hora"
	GranularidadDiaSemana = "diaSemana"
	GranularidadDia       = "dia"
	GranularidadMes       = "mes"

	maxProductosTop = 10
	formatoFecha    = "2006-01-02"
)

var diasSemana = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

var nombresDia = map[time.Weekday]string{
	time.Monday:    "lunes",
	time.Tuesday:   "martes",
	time.Wednesday: "miércoles",
	time.Thursday:  "jueves",
	time.Friday:    "viernes",
	time.Saturday:  "sábado",
	time.Sunday:    "domingo",
}

// Rango es [Desde, Hasta) en la zona horaria de la tienda.
type Rango struct {
	Desde        time.Time
	Hasta        time.Time
	Granularidad string
}

// ReportService solo lee pedidos; usa los precios capturados en cada línea.
type ReportService struct {
	pedidos OrderRepository
	loc     *time.Location
	clock   func() time.Time
}

func NewReportService(r OrderRepository, loc *time.Location, clock func() time.Time) *ReportService {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = time.Now
	}
	return &ReportService{pedidos: r, loc: loc, clock: clock}
}

func (s *ReportService) ResolverPeriodo(q dto.PeriodoQuery) (Rango, error) {
	now := s.clock().In(s.loc)
	hoy := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)

	if q.Desde != "" || q.Hasta != "" {
		return s.rangoExplicito(q.Desde, q.Hasta)
	}

	anio := now.Year()
	if q.Anio != 0 {
		if q.Anio < 2000 || q.Anio > 9999 {
			return Rango{}, fmt.Errorf("%w: año %d fuera de rango", ErrValidation, q.Anio)
		}
		anio = q.Anio
	}

	periodo := q.Periodo
	if periodo == "" {
		periodo = "mes"
		if q.Mes == 0 && q.Anio != 0 {
			periodo = "anio"
		}
	}

	switch periodo {
	case "dia":
		return Rango{Desde: hoy, Hasta: hoy.AddDate(0, 0, 1), Granularidad: GranularidadHora}, nil
	case "semana":
		return Rango{Desde: hoy.AddDate(0, 0, -6), Hasta: hoy.AddDate(0, 0, 1), Granularidad: GranularidadDiaSemana}, nil
	case "mes":
		mes := now.Month()
		if q.Mes != 0 {
			if q.Mes < 1 || q.Mes > 12 {
				return Rango{}, fmt.Errorf("%w: mes %d fuera de rango", ErrValidation, q.Mes)
			}
			mes = time.Month(q.Mes)
		}
		desde := time.Date(anio, mes, 1, 0, 0, 0, 0, s.loc)
		return Rango{Desde: desde, Hasta: desde.AddDate(0, 1, 0), Granularidad: GranularidadDia}, nil
	case "anio":
		desde := time.Date(anio, time.January, 1, 0, 0, 0, 0, s.loc)
		return Rango{Desde: desde, Hasta: desde.AddDate(1, 0, 0), Granularidad: GranularidadMes}, nil
	}
	return Rango{}, fmt.Errorf("%w: periodo %q desconocido", ErrValidation, q.Periodo)
}

func (s *ReportService) rangoExplicito(desdeStr, hastaStr string) (Rango, error) {
	if desdeStr == "" || hastaStr == "" {
		return Rango{}, fmt.Errorf("%w: desde y hasta deben venir juntos", ErrValidation)
	}
	desde, err := time.ParseInLocation(formatoFecha, desdeStr, s.loc)
	if err != nil {
		return Rango{}, fmt.Errorf("%w: fecha desde inválida", ErrValidation)
	}
	hasta, err := time.ParseInLocation(formatoFecha, hastaStr, s.loc)
	if err != nil {
		return Rango{}, fmt.Errorf("%w: fecha hasta inválida", ErrValidation)
	}
	// hasta es inclusivo
	hasta = hasta.AddDate(0, 0, 1)
	if !hasta.After(desde) {
		return Rango{}, fmt.Errorf("%w: hasta debe ser posterior a desde", ErrValidation)
	}
	gran := GranularidadDia
	if hasta.Sub(desde) > 92*24*time.Hour {
		gran = GranularidadMes
	}
	return Rango{Desde: desde, Hasta: hasta, Granularidad: gran}, nil
}

func (s *ReportService) Ventas(ctx context.Context, q dto.PeriodoQuery) (*dto.ReporteVentas, error) {
	rango, err := s.ResolverPeriodo(q)
	if err != nil {
		return nil, err
	}
	pedidos, err := s.pedidos.FindByRangoFechas(ctx, rango.Desde.UTC(), rango.Hasta.UTC())
	if err != nil {
		return nil, err
	}
	return s.Agregar(pedidos, rango), nil
}

// Agregar calcula las métricas. Los pedidos cancelados solo cuentan en
// pedidosPorEstado.
func (s *ReportService) Agregar(pedidos []*model.Pedido, rango Rango) *dto.ReporteVentas {
	etiquetas := s.etiquetas(rango)
	puntos := make(map[string]*dto.PuntoVentas, len(etiquetas))
	for _, e := range etiquetas {
		puntos[e] = &dto.PuntoVentas{Etiqueta: e}
	}

	rep := &dto.ReporteVentas{
		Desde:               rango.Desde,
		Hasta:               rango.Hasta,
		Granularidad:        rango.Granularidad,
		VentasPorMetodoPago: map[string]int64{},
		PedidosPorEstado:    map[string]int{},
	}
	vendidos := map[string]*dto.ProductoVendido{}

	for _, p := range pedidos {
		rep.PedidosPorEstado[string(p.EstadoPedido)]++
		if p.EstadoPedido == model.EstadoCancelado {
			continue
		}

		rep.TotalVentas += p.Total
		rep.CantidadPedidos++
		rep.VentasPorMetodoPago[string(p.MetodoPago)] += p.Total

		if punto, ok := puntos[s.etiqueta(p.CreatedAt, rango.Granularidad)]; ok {
			punto.Total += p.Total
			punto.Pedidos++
		}

		for _, l := range p.Productos {
			key := l.Producto.Hex()
			v, ok := vendidos[key]
			if !ok {
				v = &dto.ProductoVendido{Producto: key, Nombre: l.Nombre}
				vendidos[key] = v
			}
			v.Cantidad += l.Cantidad
			v.Total += l.Subtotal
		}
	}

	if rep.CantidadPedidos > 0 {
		rep.TicketPromedio = decimal.NewFromInt(rep.TotalVentas).
			Div(decimal.NewFromInt(int64(rep.CantidadPedidos))).
			Round(0).
			IntPart()
	}

	rep.VentasPorPeriodo = make([]dto.PuntoVentas, 0, len(etiquetas))
	for _, e := range etiquetas {
		rep.VentasPorPeriodo = append(rep.VentasPorPeriodo, *puntos[e])
	}

	rep.ProductosTop = make([]dto.ProductoVendido, 0, len(vendidos))
	for _, v := range vendidos {
		rep.ProductosTop = append(rep.ProductosTop, *v)
	}
	sort.Slice(rep.ProductosTop, func(i, j int) bool {
		a, b := rep.ProductosTop[i], rep.ProductosTop[j]
		if a.Cantidad != b.Cantidad {
			return a.Cantidad > b.Cantidad
		}
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.Nombre < b.Nombre
	})
	if len(rep.ProductosTop) > maxProductosTop {
		rep.ProductosTop = rep.ProductosTop[:maxProductosTop]
	}
	return rep
}

func (s *ReportService) etiqueta(t time.Time, gran string) string {
	t = t.In(s.loc)
	switch gran {
	case GranularidadHora:
		return fmt.Sprintf("%02d:00", t.Hour())
	case GranularidadDiaSemana:
		return nombresDia[t.Weekday()]
	case GranularidadMes:
		return t.Format("2006-01")
	}
	return t.Format(formatoFecha)
}

// etiquetas devuelve los buckets en orden, incluidos los vacíos.
func (s *ReportService) etiquetas(r Rango) []string {
	var out []string
	switch r.Granularidad {
	case GranularidadHora:
		for h := 0; h < 24; h++ {
			out = append(out, fmt.Sprintf("%02d:00", h))
		}
	case GranularidadDiaSemana:
		for _, d := range diasSemana {
			out = append(out, nombresDia[d])
		}
	case GranularidadMes:
		inicio := time.Date(r.Desde.Year(), r.Desde.Month(), 1, 0, 0, 0, 0, s.loc)
		for t := inicio; t.Before(r.Hasta); t = t.AddDate(0, 1, 0) {
			out = append(out, t.Format("2006-01"))
		}
	default:
		for t := r.Desde; t.Before(r.Hasta); t = t.AddDate(0, 0, 1) {
			out = append(out, t.Format(formatoFecha))
		}
	}
	return out
}

// ExportarCSV escribe una fila por pedido del periodo.
func (s *ReportService) ExportarCSV(ctx context.Context, q dto.PeriodoQuery, w io.Writer) error {
	rango, err := s.ResolverPeriodo(q)
	if err != nil {
		return err
	}
	pedidos, err := s.pedidos.FindByRangoFechas(ctx, rango.Desde.UTC(), rango.Hasta.UTC())
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := []string{
		"numeroPedido", "fecha", "usuario", "estadoPedido", "estadoPago", "metodoPago",
		"unidades", "subtotal", "costoEnvio", "total",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, p := range pedidos {
		unidades := 0
		for _, l := range p.Productos {
			unidades += l.Cantidad
		}
		row := []string{
			p.NumeroPedido,
			p.CreatedAt.In(s.loc).Format(time.RFC3339),
			p.Usuario,
			string(p.EstadoPedido),
			string(p.EstadoPago),
			string(p.MetodoPago),
			strconv.Itoa(unidades),
			strconv.FormatInt(p.Subtotal, 10),
			strconv.FormatInt(p.CostoEnvio, 10),
			strconv.FormatInt(p.Total, 10),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
