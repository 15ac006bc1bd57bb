package algorithms

import (
	"fmt"
)

type Node struct {
	Point
	G      int
	H      int
	F      int
	Parent *Node
}

// Grid - 토러스 격자 (가장자리 없음, 장애물만 통과 불가)
type Grid struct {
	Width     int
	Height    int
	Obstacles map[string]bool // 장애물 위치: "x,y"
}

func NewGrid(width, height int) *Grid {
	return &Grid{
		Width:     width,
		Height:    height,
		Obstacles: make(map[string]bool),
	}
}

func (g *Grid) AddObstacle(x, y int) {
	g.Obstacles[pointKey(Point{X: Wrap(x, g.Width), Y: Wrap(y, g.Height)})] = true
}

func (g *Grid) IsObstacle(x, y int) bool {
	return g.Obstacles[pointKey(Point{X: Wrap(x, g.Width), Y: Wrap(y, g.Height)})]
}

func pointKey(p Point) string {
	return fmt.Sprintf("%d,%d", p.X, p.Y)
}

// GetNeighbors - 상하좌우 4방향 (가장자리를 넘으면 반대편)
func (g *Grid) GetNeighbors(current Point) []Point {
	directions := []struct{ dx, dy int }{
		{0, -1}, {1, 0}, {0, 1}, {-1, 0},
	}
	var neighbors []Point
	for _, d := range directions {
		n := Step(current, d.dx, d.dy, g.Width, g.Height)
		if !g.IsObstacle(n.X, n.Y) {
			neighbors = append(neighbors, n)
		}
	}
	return neighbors
}

// FindPath - A*로 start→goal 최단 경로 (양 끝 포함), 없으면 nil
func (g *Grid) FindPath(start, goal Point) []Point {
	if g.Width <= 0 || g.Height <= 0 {
		return nil
	}
	start = Point{X: Wrap(start.X, g.Width), Y: Wrap(start.Y, g.Height)}
	goal = Point{X: Wrap(goal.X, g.Width), Y: Wrap(goal.Y, g.Height)}
	if start == goal {
		return []Point{start}
	}
	if g.IsObstacle(goal.X, goal.Y) {
		return nil
	}

	h := ToroidalDistance(start, goal, g.Width, g.Height)
	openList := []*Node{{Point: start, G: 0, H: h, F: h}}

	closedSet := make(map[string]bool)
	gScores := map[string]int{pointKey(start): 0}

	for len(openList) > 0 {
		// F 값 작은 노드 찾기
		currentIndex := 0
		for i := 1; i < len(openList); i++ {
			if openList[i].F < openList[currentIndex].F {
				currentIndex = i
			}
		}
		current := openList[currentIndex]

		if current.Point == goal {
			return reconstructPath(current)
		}

		openList = append(openList[:currentIndex], openList[currentIndex+1:]...)
		closedSet[pointKey(current.Point)] = true

		for _, neighbor := range g.GetNeighbors(current.Point) {
			key := pointKey(neighbor)
			if closedSet[key] {
				continue
			}

			tentativeG := current.G + 1
			if existingG, ok := gScores[key]; ok && tentativeG >= existingG {
				continue
			}

			nh := ToroidalDistance(neighbor, goal, g.Width, g.Height)
			gScores[key] = tentativeG
			openList = append(openList, &Node{
				Point:  neighbor,
				G:      tentativeG,
				H:      nh,
				F:      tentativeG + nh,
				Parent: current,
			})
		}
	}
	return nil
}

func reconstructPath(n *Node) []Point {
	var path []Point
	for n != nil {
		path = append([]Point{n.Point}, path...)
		n = n.Parent
	}
	return path
}
