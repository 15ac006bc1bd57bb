package handlers

import (
	"log"
	"mars-rover/services"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RequireUpgrade - WebSocket 업그레이드 요청만 통과
func RequireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// HandleRoverWebSocket - 관제 연결 하나를 라우터에 연결
//
// 이 고루틴은 읽기만 하고, 쓰기는 라우터 루프에서 일어난다.
func HandleRoverWebSocket(router *Router) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		id := router.Connect(c)
		defer router.Disconnect(id)

		for {
			_, data, err := c.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("관제 메시지 읽기 오류 (%s): %v", id, err)
				}
				break
			}
			router.Dispatch(id, data)
		}
	}
}

// HandleHealth - 서버 상태
func HandleHealth(router *Router) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":      "OK",
			"connections": router.Registry().Count(),
			"time":        time.Now().Format(time.RFC3339),
		})
	}
}

// HandleRoverStatus - 로버 상태와 행성 정보
//
// 장애물 좌표는 공개하지 않는다 (관제는 탐사로만 알아낸다).
func HandleRoverStatus(router *Router, planet *services.Planet) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"rover_id": router.RoverID(),
			"state":    router.Engine().State(),
			"planet": fiber.Map{
				"id":             planet.ID,
				"width":          planet.Config.Width,
				"height":         planet.Config.Height,
				"obstacle_count": len(planet.Config.Obstacles),
				"generated":      planet.Generated,
			},
		})
	}
}
