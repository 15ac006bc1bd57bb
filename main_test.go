package main

import (
	"context"
	"mars-rover/config"
	"mars-rover/models"
	"mars-rover/services"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func TestRunServerFlushesLogsBeforeReturning(t *testing.T) {
	dbConfig := config.DatabaseConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "rover.db")}
	db, err := services.OpenDatabase(dbConfig)
	if err != nil {
		t.Fatal(err)
	}
	logs := services.NewLogBuffer(services.NewGormLogStore(db), "curiosity-rover", 100, time.Hour)
	logs.Start()
	logs.RecordConnection("conn-1", true, 1)
	logs.RecordStatus("conn-1", models.RoverState{Direction: models.DirectionNorth, Battery: 100, State: models.ActivityActive})

	ctx, cancel := context.WithCancel(context.Background())
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	quit := make(chan os.Signal, 1)
	done := make(chan error, 1)
	go func() {
		done <- runServer(app, ln, quit, func() error {
			cancel()
			logs.Stop()
			return services.CloseDatabase(db)
		})
	}()

	// 서버가 요청을 받을 때까지 대기
	url := "http://" + ln.Addr().String() + "/"
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	quit <- syscall.SIGINT
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runServer: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runServer did not return after the signal")
	}

	if ctx.Err() == nil {
		t.Error("teardown did not cancel the router context")
	}

	// 종료 후 다시 열어서 버퍼에 있던 로그가 저장됐는지 확인
	reopened, err := services.OpenDatabase(dbConfig)
	if err != nil {
		t.Fatal(err)
	}
	defer services.CloseDatabase(reopened)
	stored, err := services.NewGormLogStore(reopened).Recent("curiosity-rover", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 2 {
		t.Errorf("stored %d logs after shutdown, want 2", len(stored))
	}
}
