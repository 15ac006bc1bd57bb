package services

import (
	"errors"
	"fmt"
	"mars-rover/algorithms"
	"mars-rover/models"
)

var (
	// ErrNoRoverState - 로버 위치를 아직 모름
	ErrNoRoverState = errors.New("rover position unknown")
	// ErrNoRoute - 알려진 장애물 때문에 경로 없음
	ErrNoRoute = errors.New("no route to target")
)

// PlanRoute - 알려진 장애물을 피해 goal 까지 가는 명령 시퀀스를 만든다
//
// 관제 지도에 없는 장애물은 고려하지 않으므로 실행 중 막힐 수 있다.
func PlanRoute(snap models.MissionSnapshot, goal models.Position) ([]models.Command, error) {
	if snap.Rover == nil {
		return nil, ErrNoRoverState
	}

	grid := algorithms.NewGrid(snap.Width, snap.Height)
	for _, o := range snap.Obstacles {
		grid.AddObstacle(o.X, o.Y)
	}

	start := snap.Rover.State.Position
	path := grid.FindPath(toPoint(start), toPoint(goal))
	if path == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoRoute, goal)
	}

	return PathToCommands(path, snap.Rover.State.Direction, snap.Width, snap.Height), nil
}

// PathToCommands - 인접 칸 경로를 F/B/L/R 명령으로 변환
//
// 정반대 방향은 회전 두 번 대신 후진(B)을 쓴다.
func PathToCommands(path []algorithms.Point, heading models.Direction, width, height int) []models.Command {
	commands := []models.Command{}
	for i := 1; i < len(path); i++ {
		dx := algorithms.ShortestDelta(path[i-1].X, path[i].X, width)
		dy := algorithms.ShortestDelta(path[i-1].Y, path[i].Y, height)
		want := directionFor(dx, dy)

		switch want {
		case heading:
			commands = append(commands, models.CommandForward)
		case heading.Opposite():
			commands = append(commands, models.CommandBackward)
		case heading.Left():
			commands = append(commands, models.CommandTurnLeft, models.CommandForward)
			heading = want
		case heading.Right():
			commands = append(commands, models.CommandTurnRight, models.CommandForward)
			heading = want
		}
	}
	return commands
}

func directionFor(dx, dy int) models.Direction {
	switch {
	case dx > 0:
		return models.DirectionEast
	case dx < 0:
		return models.DirectionWest
	case dy > 0:
		return models.DirectionSouth
	default:
		return models.DirectionNorth
	}
}
