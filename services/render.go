package services

import (
	"fmt"
	"mars-rover/models"
	"strings"
	"time"
)

// 콘솔 지도 기호
const (
	SymbolUnknown  = "?"
	SymbolExplored = "."
	SymbolObstacle = "#"
)

// RenderMap - 재구성된 지도를 콘솔 문자열로 그린다
//
// 우선순위: 로버 > 장애물 > 탐사 > 미탐사
func RenderMap(snap models.MissionSnapshot) string {
	explored := make(map[models.Position]bool, len(snap.Explored))
	for _, p := range snap.Explored {
		explored[p] = true
	}
	obstacles := make(map[models.Position]bool, len(snap.Obstacles))
	for _, p := range snap.Obstacles {
		obstacles[p] = true
	}

	var sb strings.Builder
	sb.WriteString("\n🗺️  === 화성 지도 ===\n")
	fmt.Fprintf(&sb, "크기: %dx%d\n", snap.Width, snap.Height)
	fmt.Fprintf(&sb, "탐사 지역: %d칸\n", len(explored))
	fmt.Fprintf(&sb, "발견한 장애물: %d개\n", len(obstacles))

	// 열 번호
	sb.WriteString("   ")
	for x := 0; x < snap.Width; x++ {
		fmt.Fprintf(&sb, "%2d", x%100)
	}
	sb.WriteString("\n")

	for y := 0; y < snap.Height; y++ {
		fmt.Fprintf(&sb, "%2d ", y%100)
		for x := 0; x < snap.Width; x++ {
			pos := models.Position{X: x, Y: y}
			symbol := SymbolUnknown
			switch {
			case snap.Rover != nil && snap.Rover.State.Position == pos:
				symbol = snap.Rover.State.Direction.Symbol()
			case obstacles[pos]:
				symbol = SymbolObstacle
			case explored[pos]:
				symbol = SymbolExplored
			}
			sb.WriteString(symbol)
			sb.WriteString(" ")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderStatus - 미션 상태 요약
func RenderStatus(status models.MissionStatus, now time.Time) string {
	var sb strings.Builder
	sb.WriteString("\n📊 === 미션 상태 ===\n")

	connected := "❌ 연결 끊김"
	if status.Connected {
		connected = "✅ 연결됨"
	}
	fmt.Fprintf(&sb, "연결: %s\n", connected)

	if r := status.Rover; r != nil {
		fmt.Fprintf(&sb, "로버: %s\n", r.RoverID)
		fmt.Fprintf(&sb, "위치: %s %s\n", r.State.Position, r.State.Direction)
		fmt.Fprintf(&sb, "배터리: %.1f%% (%s)\n", r.State.Battery, r.State.State)
		if !r.LastContact.IsZero() {
			fmt.Fprintf(&sb, "마지막 수신: %d초 전\n", int(now.Sub(r.LastContact).Seconds()))
		}
	} else {
		sb.WriteString("로버: 상태 수신 대기 중\n")
	}

	fmt.Fprintf(&sb, "탐사: %d/%d칸 (%d%%)\n", status.ExploredArea, status.TotalArea, status.ExplorationPercentage)
	fmt.Fprintf(&sb, "장애물: %d개\n", status.ObstaclesFound)
	return sb.String()
}
