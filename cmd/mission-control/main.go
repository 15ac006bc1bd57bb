package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"mars-rover/config"
	"mars-rover/models"
	"mars-rover/services"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	config.LoadDotEnv()

	cfg, err := config.LoadMission()
	if err != nil {
		log.Fatalf("❌ 설정 오류: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	mission := services.NewMapReconstructor(cfg.MapWidth, cfg.MapHeight)
	supervisor := services.NewConnectionSupervisor(services.SupervisorOptions{
		URL:            cfg.RoverURL,
		Source:         cfg.Source,
		ReconnectDelay: cfg.ReconnectDelay,
		PingInterval:   cfg.PingInterval,
		OnMessage:      printEvent,
	}, services.NewWebSocketDialer(cfg.DialTimeout), mission)

	done := make(chan error, 1)
	go func() { done <- supervisor.Run(ctx) }()

	log.Printf("🛰️ 관제 시작: %s (지도 %dx%d)", cfg.RoverURL, cfg.MapWidth, cfg.MapHeight)
	fmt.Print(services.ConsoleHelp)

	console := services.NewConsole(supervisor, mission, os.Stdout)
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

loop:
	for {
		fmt.Print("> ")
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok || !console.Handle(ctx, line) {
				break loop
			}
		}
	}

	cancel()
	if err := <-done; err != nil {
		log.Printf("⚠️ 종료 중 오류: %v", err)
	}
	log.Println("👋 관제 종료")
}

// printEvent - 로버 응답을 콘솔에 표시 (이벤트 루프 고루틴에서 호출됨)
func printEvent(msg models.Message) {
	switch msg.Type {
	case models.MessageTypeCommandResponse:
		var p models.CommandResponsePayload
		if err := msg.DecodePayload(&p); err != nil {
			return
		}
		icon := "✅"
		if !p.Success {
			icon = "⚠️"
		}
		fmt.Printf("\n%s %s → %s %s\n", icon, p.Message, p.FinalPosition, p.FinalDirection)

	case models.MessageTypeObstacleDiscovered:
		var p models.ObstaclePayload
		if err := msg.DecodePayload(&p); err != nil {
			return
		}
		fmt.Printf("\n🚧 장애물 발견: %s\n", p.Position)

	case models.MessageTypeError:
		var p models.ErrorPayload
		if err := msg.DecodePayload(&p); err != nil {
			return
		}
		fmt.Printf("\n❌ 로버 오류: %s\n", p.Error)
	}
}
