package handlers

import (
	"mars-rover/services"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

// LogsHandler - 텔레메트리 로그 조회 API
type LogsHandler struct {
	store   services.LogStore
	buffer  *services.LogBuffer
	roverID string
}

// NewLogsHandler creates the log query handlers
//
// 조회 전에 buffer 를 비워서 아직 저장되지 않은 로그도 결과에 포함한다.
func NewLogsHandler(store services.LogStore, buffer *services.LogBuffer, roverID string) *LogsHandler {
	return &LogsHandler{store: store, buffer: buffer, roverID: roverID}
}

// Register - /api/logs 라우트 등록
func (h *LogsHandler) Register(router fiber.Router) {
	router.Get("/recent", h.HandleGetRecentLogs)     // 최근 로그
	router.Get("/range", h.HandleGetLogsByTimeRange) // 시간 범위
	router.Get("/type", h.HandleGetLogsByEventType)  // 이벤트 타입별
	router.Get("/stats", h.HandleGetLogStats)        // 통계
}

func queryLimit(c *fiber.Ctx) int {
	limit, err := strconv.Atoi(c.Query("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}
	return limit
}

// HandleGetRecentLogs - 최근 로그 조회
func (h *LogsHandler) HandleGetRecentLogs(c *fiber.Ctx) error {
	roverID := c.Query("rover_id", h.roverID)
	h.buffer.Flush()

	logs, err := h.store.Recent(roverID, queryLimit(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch logs",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(logs),
		"logs":    logs,
	})
}

// HandleGetLogsByTimeRange - 시간 범위로 로그 조회
func (h *LogsHandler) HandleGetLogsByTimeRange(c *fiber.Ctx) error {
	roverID := c.Query("rover_id", h.roverID)
	startStr := c.Query("start") // RFC3339 format
	endStr := c.Query("end")     // RFC3339 format

	// 기본: 최근 24시간
	start := time.Now().Add(-24 * time.Hour)
	if startStr != "" {
		parsed, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid start time format (use RFC3339)",
			})
		}
		start = parsed
	}

	end := time.Now()
	if endStr != "" {
		parsed, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid end time format (use RFC3339)",
			})
		}
		end = parsed
	}

	h.buffer.Flush()
	logs, err := h.store.ByTimeRange(roverID, start, end, queryLimit(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch logs",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(logs),
		"time_range": fiber.Map{
			"start": start.Format(time.RFC3339),
			"end":   end.Format(time.RFC3339),
		},
		"logs": logs,
	})
}

// HandleGetLogsByEventType - 이벤트 타입별 로그 조회
func (h *LogsHandler) HandleGetLogsByEventType(c *fiber.Ctx) error {
	roverID := c.Query("rover_id", h.roverID)
	eventType := c.Query("event_type")

	if eventType == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "event_type parameter is required",
		})
	}

	h.buffer.Flush()
	logs, err := h.store.ByEventType(roverID, eventType, queryLimit(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch logs",
		})
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"count":      len(logs),
		"event_type": eventType,
		"logs":       logs,
	})
}

// HandleGetLogStats - 로그 통계 조회
func (h *LogsHandler) HandleGetLogStats(c *fiber.Ctx) error {
	roverID := c.Query("rover_id", h.roverID)
	hours, err := strconv.Atoi(c.Query("hours", "24"))
	if err != nil || hours <= 0 {
		hours = 24
	}

	h.buffer.Flush()
	stats, err := h.store.Stats(roverID, time.Now().Add(-time.Duration(hours)*time.Hour))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch stats",
		})
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"stats":      stats,
		"time_range": "Last " + strconv.Itoa(hours) + " hours",
	})
}
