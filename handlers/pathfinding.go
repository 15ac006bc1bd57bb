package handlers

import (
	"log"
	"mars-rover/algorithms"
	"mars-rover/models"
	"mars-rover/services"

	"github.com/gofiber/fiber/v2"
)

// RouteRequest - 경로 계획 요청 (토러스 격자 기준)
type RouteRequest struct {
	Start     models.Position   `json:"start"`
	Direction string            `json:"direction"`
	Goal      models.Position   `json:"goal"`
	MapWidth  int               `json:"map_width"`
	MapHeight int               `json:"map_height"`
	Obstacles []models.Position `json:"obstacles"`
}

type RouteResponse struct {
	Success  bool               `json:"success"`
	Path     []algorithms.Point `json:"path,omitempty"`
	Commands []string           `json:"commands,omitempty"`
	Message  string             `json:"message,omitempty"`
}

// HandlePlanRoute - 주어진 장애물을 피해 goal 까지의 경로와 명령 시퀀스를 계산
func HandlePlanRoute(c *fiber.Ctx) error {
	var req RouteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(RouteResponse{
			Success: false,
			Message: "잘못된 요청 형식입니다",
		})
	}

	heading, err := models.ParseDirection(req.Direction)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(RouteResponse{
			Success: false,
			Message: err.Error(),
		})
	}

	planet := models.PlanetConfig{Width: req.MapWidth, Height: req.MapHeight, Obstacles: req.Obstacles}
	if req.MapWidth <= 0 || req.MapHeight <= 0 || !planet.Contains(req.Start) || !planet.Contains(req.Goal) {
		return c.Status(fiber.StatusBadRequest).JSON(RouteResponse{
			Success: false,
			Message: "맵 크기 또는 좌표가 올바르지 않습니다",
		})
	}

	log.Printf("📍 경로 계획 요청: %s %s → %s (맵 %dx%d, 장애물 %d개)",
		req.Start, heading, req.Goal, req.MapWidth, req.MapHeight, len(req.Obstacles))

	grid := algorithms.NewGrid(req.MapWidth, req.MapHeight)
	for _, ob := range req.Obstacles {
		grid.AddObstacle(ob.X, ob.Y)
	}

	path := grid.FindPath(
		algorithms.Point{X: req.Start.X, Y: req.Start.Y},
		algorithms.Point{X: req.Goal.X, Y: req.Goal.Y},
	)
	if path == nil {
		log.Printf("❌ 경로를 찾을 수 없습니다")
		return c.Status(fiber.StatusOK).JSON(RouteResponse{
			Success: false,
			Message: "경로를 찾을 수 없습니다",
		})
	}

	commands := services.PathToCommands(path, heading, req.MapWidth, req.MapHeight)
	letters := make([]string, len(commands))
	for i, cmd := range commands {
		letters[i] = string(cmd)
	}

	log.Printf("✅ 경로 계획 성공: %d칸, 명령 %d개", len(path)-1, len(commands))
	return c.Status(fiber.StatusOK).JSON(RouteResponse{
		Success:  true,
		Path:     path,
		Commands: letters,
		Message:  "경로 계획 성공",
	})
}
