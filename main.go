package main

import (
	"context"
	"fmt"
	"log"
	"mars-rover/config"
	"mars-rover/handlers"
	"mars-rover/services"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"github.com/hashicorp/go-multierror"
)

func main() {
	// .env 파일 로드
	config.LoadDotEnv()

	cfg, err := config.LoadRover()
	if err != nil {
		log.Fatalf("❌ 설정 오류: %v", err)
	}

	// 행성 생성 (설정 장애물 또는 랜덤)
	planet, err := newPlanet(cfg)
	if err != nil {
		log.Fatalf("❌ 행성 생성 실패: %v", err)
	}
	log.Printf("🪐 행성 %s: %dx%d, 장애물 %d개", planet.ID, planet.Config.Width, planet.Config.Height, len(planet.Config.Obstacles))

	start, err := cfg.StartState()
	if err != nil {
		log.Fatalf("❌ 설정 오류: %v", err)
	}
	engine, err := services.NewNavigationEngine(planet.Config, start)
	if err != nil {
		log.Fatalf("❌ 로버 초기화 실패: %v", err)
	}

	// DB 연결 + 로깅 시스템
	db, err := services.OpenDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("❌ DB 초기화 실패: %v", err)
	}
	store := services.NewGormLogStore(db)
	logs := services.NewLogBuffer(store, cfg.RoverID, cfg.Database.LogFlushSize, cfg.Database.LogFlushInterval)
	logs.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	router := handlers.NewRouter(engine, cfg.RoverID, logs)
	go router.Run(ctx)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Mars Rover 서버가 실행 중입니다.")
	})

	api := app.Group("/api")
	api.Get("/health", handlers.HandleHealth(router))
	api.Get("/rover", handlers.HandleRoverStatus(router, planet))
	api.Post("/route", handlers.HandlePlanRoute)

	// 로그 조회 API
	handlers.NewLogsHandler(store, logs, cfg.RoverID).Register(api.Group("/logs"))

	// WebSocket
	app.Use("/websocket", handlers.RequireUpgrade)
	app.Get("/websocket/rover", websocket.New(handlers.HandleRoverWebSocket(router)))

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		log.Fatalf("❌ 서버 오류: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Printf("🚀 로버 %s 시작: http://localhost%s", cfg.RoverID, cfg.Addr())
	log.Printf("📡 WebSocket: ws://localhost%s/websocket/rover", cfg.Addr())
	log.Printf("💾 로그 API: GET http://localhost%s/api/logs/*", cfg.Addr())

	err = runServer(app, ln, quit, func() error {
		cancel()
		logs.Stop() // 남은 로그 저장
		return services.CloseDatabase(db)
	})
	if err != nil {
		log.Printf("⚠️ 종료 중 오류: %v", err)
	}
	log.Println("👋 로버 종료")
}

// runServer - quit 신호가 오면 서버를 내리고 teardown 이 끝난 뒤에 반환
func runServer(app *fiber.App, ln net.Listener, quit <-chan os.Signal, teardown func() error) error {
	shutdownDone := make(chan error, 1)
	go func() {
		<-quit
		log.Println("🛑 종료 신호 수신")

		var result *multierror.Error
		if err := app.Shutdown(); err != nil {
			result = multierror.Append(result, err)
		}
		if err := teardown(); err != nil {
			result = multierror.Append(result, err)
		}
		shutdownDone <- result.ErrorOrNil()
	}()

	if err := app.Listener(ln); err != nil {
		return fmt.Errorf("serve %s: %w", ln.Addr(), err)
	}
	return <-shutdownDone
}

func newPlanet(cfg *config.RoverConfig) (*services.Planet, error) {
	generator := services.NewPlanetGenerator()
	if cfg.PlanetSeed != 0 {
		generator = services.NewSeededPlanetGenerator(cfg.PlanetSeed)
	}
	if !cfg.RandomObstacles {
		return generator.FromConfig(cfg.Planet), nil
	}

	count := cfg.ObstacleCount
	if count <= 0 {
		count = services.DefaultObstacleCount(cfg.Planet.Width, cfg.Planet.Height)
	}
	start, err := cfg.StartState()
	if err != nil {
		return nil, err
	}
	return generator.Generate(cfg.Planet.Width, cfg.Planet.Height, count, start.Position)
}
