package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"petshop-order-service/internal/config"
	"petshop-order-service/internal/controller"
	"petshop-order-service/internal/logger"
	"petshop-order-service/internal/rabbit"
	"petshop-order-service/internal/repository"
	"petshop-order-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	lg, err := logger.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = lg.Sync() }()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Conexión a MongoDB
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		lg.Fatal("conectando a MongoDB", zap.Error(err))
	}
	if err := client.Ping(ctx, nil); err != nil {
		lg.Fatal("MongoDB no responde", zap.Error(err))
	}
	db := client.Database(cfg.MongoDBName)

	// Repositorios
	pedidosRepo := repository.NewMongoOrderRepository(db)
	productosRepo := repository.NewMongoProductRepository(db)
	if err := pedidosRepo.EnsureIndexes(ctx); err != nil {
		lg.Fatal("creando índices de pedidos", zap.Error(err))
	}
	if err := productosRepo.EnsureIndexes(ctx); err != nil {
		lg.Fatal("creando índices de productos", zap.Error(err))
	}

	// Sin RabbitMQ el servicio sigue funcionando, solo no notifica
	publisher := service.NoopPublisher
	conn, err := amqp091.Dial(cfg.RabbitURL)
	if err != nil {
		lg.Warn("RabbitMQ no disponible, eventos desactivados", zap.Error(err))
	} else {
		defer conn.Close()
		ch, err := conn.Channel()
		if err != nil {
			lg.Fatal("creando canal en RabbitMQ", zap.Error(err))
		}
		pub, err := rabbit.SetupPublisher(ch, cfg.RabbitExchange, lg)
		if err != nil {
			lg.Fatal("configurando publisher", zap.Error(err))
		}
		defer pub.Close()
		publisher = pub
	}

	loc, err := cfg.Location()
	if err != nil {
		lg.Fatal("zona horaria de reportes", zap.Error(err))
	}

	// Servicios
	orderService := service.NewOrderService(service.OrderServiceDeps{
		Pedidos:   pedidosRepo,
		Productos: productosRepo,
		Tx:        repository.NewMongoTransactor(client, cfg.MongoTransactions),
		Publisher: publisher,
		Logger:    lg.Named("pedidos"),
		Location:  loc,
	})
	catalogService := service.NewCatalogService(productosRepo, lg.Named("catalogo"))
	reportService := service.NewReportService(pedidosRepo, loc, nil)
	authService := service.NewAuthService(cfg.JWTSecret)

	r := controller.NewRouter(controller.RouterDeps{
		Auth:    authService,
		Orders:  orderService,
		Catalog: catalogService,
		Reports: reportService,
		Logger:  lg.Named("http"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		lg.Info("Pet shop order service ejecutándose", zap.String("port", cfg.Port), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("servidor HTTP", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("cerrando servidor", zap.Error(err))
	}
	if err := client.Disconnect(shutdownCtx); err != nil {
		lg.Error("desconectando MongoDB", zap.Error(err))
	}
}
