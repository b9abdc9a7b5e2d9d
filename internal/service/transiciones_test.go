package service

import (
	"context"
	"testing"

	"petshop-order-service/internal/dto"
	"petshop-order-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutorizarTransicion(t *testing.T) {
	cases := []struct {
		rol        model.Rol
		desde      model.EstadoPedido
		hacia      model.EstadoPedido
		cambiaPago bool
		wantErr    error
	}{
		{model.RolCliente, model.EstadoPendiente, model.EstadoProcesando, false, ErrForbidden},
		{model.RolEmpleado, model.EstadoPendiente, model.EstadoProcesando, false, nil},
		{model.RolEmpleado, model.EstadoProcesando, model.EstadoEnviado, false, nil},
		{model.RolEmpleado, model.EstadoEnviado, model.EstadoEntregado, false, nil},
		{model.RolEmpleado, model.EstadoPendiente, model.EstadoEnviado, false, ErrInvalidTransition},
		{model.RolEmpleado, model.EstadoPendiente, model.EstadoPendiente, true, ErrForbidden},
		{model.RolEmpleado, model.EstadoProcesando, model.EstadoCancelado, false, nil},
		{model.RolAdmin, model.EstadoPendiente, model.EstadoEntregado, false, nil},
		{model.RolAdmin, model.EstadoPendiente, model.EstadoPendiente, true, nil},
		{model.RolAdmin, model.EstadoProcesando, model.EstadoPendiente, false, ErrInvalidTransition},
		{model.RolAdmin, model.EstadoEnviado, model.EstadoCancelado, false, ErrInvalidTransition},
		{model.RolAdmin, model.EstadoEntregado, model.EstadoProcesando, false, ErrInvalidTransition},
		{model.RolAdmin, model.EstadoCancelado, model.EstadoPendiente, false, ErrInvalidTransition},
		{model.RolAdmin, model.EstadoEntregado, model.EstadoEntregado, false, nil},
	}

	for _, tc := range cases {
		name := string(tc.rol) + "_" + string(tc.desde) + "_" + string(tc.hacia)
		t.Run(name, func(t *testing.T) {
			err := autorizarTransicion(tc.rol, tc.desde, tc.hacia, tc.cambiaPago)
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func estado(e model.EstadoPedido) dto.ActualizarEstadoRequest {
	return dto.ActualizarEstadoRequest{EstadoPedido: string(e)}
}

func TestActualizarEstado_FlujoCompletoConSeguimientoAutomatico(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	p := e.crear(t, linea(e.a, 1))
	id := p.ID.Hex()

	p, err := e.svc.ActualizarEstado(ctx, empleado, id, estado(model.EstadoProcesando))
	require.NoError(t, err)
	assert.Equal(t, model.EstadoProcesando, p.EstadoPedido)
	assert.Equal(t, empleado.ID, p.ProcesadoPor)
	assert.Nil(t, p.Seguimiento)

	p, err = e.svc.ActualizarEstado(ctx, admin, id, estado(model.EstadoEnviado))
	require.NoError(t, err)
	require.NotNil(t, p.Seguimiento)
	assert.Equal(t, "CX0000000001", p.Seguimiento.NumeroSeguimiento)
	assert.Equal(t, EmpresaPorDefecto, p.Seguimiento.Empresa)
	assert.Equal(t, ahora, p.Seguimiento.FechaEnvio)
	assert.Equal(t, ahora.Add(plazoEntrega), p.Seguimiento.EstimatedDelivery)
	require.Len(t, p.Seguimiento.Historia, 1)
	assert.Equal(t, "Pedido enviado", p.Seguimiento.Historia[0].Estado)
	assert.Equal(t, empleado.ID, p.ProcesadoPor, "procesadoPor no cambia al avanzar")

	p, err = e.svc.ActualizarEstado(ctx, empleado, id, estado(model.EstadoEntregado))
	require.NoError(t, err)
	assert.Equal(t, model.EstadoEntregado, p.EstadoPedido)
	assert.Equal(t, "CX0000000001", p.Seguimiento.NumeroSeguimiento)
	require.Len(t, p.Seguimiento.Historia, 2)
	assert.Equal(t, "Pedido entregado", p.Seguimiento.Historia[1].Estado)

	guardado, err := e.svc.ObtenerPedido(ctx, cliente, id)
	require.NoError(t, err)
	assert.Equal(t, p.Seguimiento.Historia, guardado.Seguimiento.Historia)

	topic := TopicSeguimiento(id)
	assert.Equal(t, []string{"pedido.creado", topic, topic}, e.pub.Topics())

	_, err = e.svc.ActualizarEstado(ctx, admin, id, estado(model.EstadoProcesando))
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestActualizarEstado_EmpleadoNoSaltaEstados(t *testing.T) {
	e := nuevoEntorno(t)
	p := e.crear(t, linea(e.a, 1))

	_, err := e.svc.ActualizarEstado(context.Background(), empleado, p.ID.Hex(), estado(model.EstadoEnviado))
	require.ErrorIs(t, err, ErrInvalidTransition)

	guardado, err := e.svc.ObtenerPedido(context.Background(), cliente, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, model.EstadoPendiente, guardado.EstadoPedido)
}

func TestActualizarEstado_ProcesadoPorSoloLaPrimeraVez(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	p := e.crear(t, linea(e.a, 1))

	_, err := e.svc.AsignarPedido(ctx, empleado, p.ID.Hex())
	require.NoError(t, err)

	otroEmpleado := model.Actor{ID: "u-empleado-2", Rol: model.RolEmpleado}
	p, err = e.svc.ActualizarEstado(ctx, otroEmpleado, p.ID.Hex(), estado(model.EstadoEnviado))
	require.NoError(t, err)
	assert.Equal(t, empleado.ID, p.ProcesadoPor)
}

func TestActualizarEstado_PagoSoloAdmin(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	p, err := e.svc.CrearPedido(ctx, cliente, pedidoReq("transferencia", linea(e.a, 1)))
	require.NoError(t, err)
	require.Equal(t, model.PagoPendiente, p.EstadoPago)

	_, err = e.svc.ActualizarEstado(ctx, empleado, p.ID.Hex(), dto.ActualizarEstadoRequest{EstadoPago: "pagado"})
	require.ErrorIs(t, err, ErrForbidden)

	// repetir el valor actual no es un cambio de pago
	_, err = e.svc.ActualizarEstado(ctx, empleado, p.ID.Hex(), dto.ActualizarEstadoRequest{EstadoPago: "pendiente", EstadoPedido: "procesando"})
	require.NoError(t, err)

	p, err = e.svc.ActualizarEstado(ctx, admin, p.ID.Hex(), dto.ActualizarEstadoRequest{EstadoPago: "pagado"})
	require.NoError(t, err)
	assert.Equal(t, model.PagoPagado, p.EstadoPago)
	assert.Equal(t, model.EstadoProcesando, p.EstadoPedido)
}

func TestActualizarEstado_Validaciones(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	p := e.crear(t, linea(e.a, 1))

	_, err := e.svc.ActualizarEstado(ctx, admin, p.ID.Hex(), dto.ActualizarEstadoRequest{})
	require.ErrorIs(t, err, ErrValidation)

	_, err = e.svc.ActualizarEstado(ctx, admin, p.ID.Hex(), estado("perdido"))
	require.ErrorIs(t, err, ErrValidation)

	_, err = e.svc.ActualizarEstado(ctx, admin, p.ID.Hex(), dto.ActualizarEstadoRequest{EstadoPago: "regalado"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = e.svc.ActualizarEstado(ctx, admin, "000000000000000000000000", estado(model.EstadoProcesando))
	require.ErrorIs(t, err, ErrNotFound)

	_, err = e.svc.ActualizarEstado(ctx, cliente, p.ID.Hex(), estado(model.EstadoProcesando))
	require.ErrorIs(t, err, ErrForbidden)
}

func TestActualizarEstado_NotasInternas(t *testing.T) {
	e := nuevoEntorno(t)
	p := e.crear(t, linea(e.a, 1))
	notas := "  cliente pidió envolver para regalo "

	p, err := e.svc.ActualizarEstado(context.Background(), empleado, p.ID.Hex(), dto.ActualizarEstadoRequest{NotasInternas: &notas})
	require.NoError(t, err)
	assert.Equal(t, "cliente pidió envolver para regalo", p.NotasInternas)
	assert.Equal(t, model.EstadoPendiente, p.EstadoPedido)
}

func TestActualizarEstado_CancelarDevuelveStock(t *testing.T) {
	e := nuevoEntorno(t)
	p := e.crear(t, linea(e.a, 2), linea(e.b, 1))
	require.Equal(t, 3, e.productos.Stock(e.a.ID.Hex()))

	p, err := e.svc.ActualizarEstado(context.Background(), empleado, p.ID.Hex(), estado(model.EstadoCancelado))
	require.NoError(t, err)
	assert.Equal(t, model.EstadoCancelado, p.EstadoPedido)
	assert.Equal(t, 5, e.productos.Stock(e.a.ID.Hex()))
	assert.Equal(t, 3, e.productos.Stock(e.b.ID.Hex()))
}

func TestCancelarPedido(t *testing.T) {
	t.Run("dueño cancela pendiente y se repone stock", func(t *testing.T) {
		e := nuevoEntorno(t)
		p := e.crear(t, linea(e.a, 2))

		p, err := e.svc.CancelarPedido(context.Background(), cliente, p.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, model.EstadoCancelado, p.EstadoPedido)
		assert.Equal(t, 5, e.productos.Stock(e.a.ID.Hex()))

		_, err = e.svc.CancelarPedido(context.Background(), cliente, p.ID.Hex())
		require.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, 5, e.productos.Stock(e.a.ID.Hex()), "no se repone dos veces")
	})

	t.Run("admin cancela pedido en procesando", func(t *testing.T) {
		e := nuevoEntorno(t)
		p := e.crear(t, linea(e.a, 1))
		_, err := e.svc.AsignarPedido(context.Background(), empleado, p.ID.Hex())
		require.NoError(t, err)

		p, err = e.svc.CancelarPedido(context.Background(), admin, p.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, model.EstadoCancelado, p.EstadoPedido)
		assert.Equal(t, 5, e.productos.Stock(e.a.ID.Hex()))
	})

	t.Run("otro cliente o empleado no puede", func(t *testing.T) {
		e := nuevoEntorno(t)
		p := e.crear(t, linea(e.a, 1))

		_, err := e.svc.CancelarPedido(context.Background(), otro, p.ID.Hex())
		require.ErrorIs(t, err, ErrUnauthorized)
		_, err = e.svc.CancelarPedido(context.Background(), empleado, p.ID.Hex())
		require.ErrorIs(t, err, ErrUnauthorized)
		assert.Equal(t, 4, e.productos.Stock(e.a.ID.Hex()))
	})

	t.Run("enviado ya no se cancela", func(t *testing.T) {
		e := nuevoEntorno(t)
		p := e.crear(t, linea(e.a, 1))
		_, err := e.svc.ActualizarEstado(context.Background(), admin, p.ID.Hex(), estado(model.EstadoEnviado))
		require.NoError(t, err)

		_, err = e.svc.CancelarPedido(context.Background(), cliente, p.ID.Hex())
		require.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, 4, e.productos.Stock(e.a.ID.Hex()))
	})
}

func TestAsignarPedido(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	p := e.crear(t, linea(e.a, 1))

	_, err := e.svc.AsignarPedido(ctx, cliente, p.ID.Hex())
	require.ErrorIs(t, err, ErrForbidden)

	p, err = e.svc.AsignarPedido(ctx, empleado, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, model.EstadoProcesando, p.EstadoPedido)
	assert.Equal(t, empleado.ID, p.ProcesadoPor)

	// reasignar en procesando cambia el responsable sin mover el estado
	p, err = e.svc.AsignarPedido(ctx, admin, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, model.EstadoProcesando, p.EstadoPedido)
	assert.Equal(t, admin.ID, p.ProcesadoPor)

	_, err = e.svc.ActualizarEstado(ctx, admin, p.ID.Hex(), estado(model.EstadoEnviado))
	require.NoError(t, err)
	_, err = e.svc.AsignarPedido(ctx, empleado, p.ID.Hex())
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestObtenerPedido_Permisos(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	p := e.crear(t, linea(e.a, 1))

	_, err := e.svc.ObtenerPedido(ctx, otro, p.ID.Hex())
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = e.svc.ObtenerPedido(ctx, empleado, p.ID.Hex())
	require.NoError(t, err)

	mios, err := e.svc.ListarMisPedidos(ctx, cliente)
	require.NoError(t, err)
	assert.Len(t, mios, 1)

	ajenos, err := e.svc.ListarMisPedidos(ctx, otro)
	require.NoError(t, err)
	assert.Empty(t, ajenos)
}

func TestListarPedidos_FiltraPorEstado(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	p1 := e.crear(t, linea(e.a, 1))
	e.crear(t, linea(e.a, 1))
	_, err := e.svc.AsignarPedido(ctx, empleado, p1.ID.Hex())
	require.NoError(t, err)

	res, err := e.svc.ListarPedidos(ctx, model.FiltroPedidos{Estado: model.EstadoPendiente, Pagina: 1, Limite: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Total)

	_, err = e.svc.ListarPedidos(ctx, model.FiltroPedidos{Estado: "perdido"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCancelarPedido_ConProductoEliminado(t *testing.T) {
	casos := map[string]bool{"sin transaccion": false, "en transaccion": true}
	for name, enTx := range casos {
		t.Run(name, func(t *testing.T) {
			e := nuevoEntorno(t)
			if enTx {
				e.conTransaccion()
			}
			ctx := context.Background()
			p := e.crear(t, linea(e.a, 2), linea(e.b, 1))
			require.NoError(t, e.productos.Delete(ctx, e.b.ID.Hex()))

			p, err := e.svc.CancelarPedido(ctx, cliente, p.ID.Hex())
			require.NoError(t, err)
			assert.Equal(t, model.EstadoCancelado, p.EstadoPedido)
			assert.Equal(t, 5, e.productos.Stock(e.a.ID.Hex()))
			assert.Equal(t, -1, e.productos.Stock(e.b.ID.Hex()))

			guardado, err := e.svc.ObtenerPedido(ctx, cliente, p.ID.Hex())
			require.NoError(t, err)
			assert.Equal(t, model.EstadoCancelado, guardado.EstadoPedido)
		})
	}
}

func TestActualizarEstado_CancelarConProductoEliminado(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	p := e.crear(t, linea(e.a, 1), linea(e.b, 1))
	require.NoError(t, e.productos.Delete(ctx, e.a.ID.Hex()))

	p, err := e.svc.ActualizarEstado(ctx, admin, p.ID.Hex(), estado(model.EstadoCancelado))
	require.NoError(t, err)
	assert.Equal(t, model.EstadoCancelado, p.EstadoPedido)
	assert.Equal(t, 3, e.productos.Stock(e.b.ID.Hex()))
}
