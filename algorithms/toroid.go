package algorithms

// Point - 토러스 격자 위의 정수 좌표
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Wrap - 좌표를 [0, size) 범위로 감싼다 (음수 포함)
func Wrap(v, size int) int {
	if size <= 0 {
		return 0
	}
	v %= size
	if v < 0 {
		v += size
	}
	return v
}

// Step - (x, y)에서 (dx, dy)만큼 이동한 칸, 가장자리를 넘으면 반대편으로
func Step(p Point, dx, dy, width, height int) Point {
	return Point{
		X: Wrap(p.X+dx, width),
		Y: Wrap(p.Y+dy, height),
	}
}

// ShortestDelta - from→to 이동량 중 직접 경로와 가장자리 넘는 경로 중 짧은 쪽
//
// 크기가 같으면 직접 경로를 택한다.
func ShortestDelta(from, to, size int) int {
	direct := to - from
	if direct == 0 || size <= 0 {
		return direct
	}
	wrapped := direct - size
	if direct < 0 {
		wrapped = direct + size
	}
	if abs(direct) <= abs(wrapped) {
		return direct
	}
	return wrapped
}

// ToroidalDistance - 토러스 위의 맨해튼 거리
func ToroidalDistance(a, b Point, width, height int) int {
	return abs(ShortestDelta(a.X, b.X, width)) + abs(ShortestDelta(a.Y, b.Y, height))
}

// TracePath - 토러스 위에서 start→end 직선 경로를 재구성한다
//
// 축마다 짧은 방향을 고른 뒤, 긴 축을 한 칸씩 전진하면서 Bresenham 오차 누적으로
// 짧은 축 이동을 끼워 넣는다. 결과는 양 끝점을 포함한다.
// 한 칸 이동(인접 칸)일 때만 실제 경로와 일치하고, 여러 칸 점프는 근사치다.
func TracePath(start, end Point, width, height int) []Point {
	dx := ShortestDelta(start.X, end.X, width)
	dy := ShortestDelta(start.Y, end.Y, height)
	adx, ady := abs(dx), abs(dy)
	sx, sy := sign(dx), sign(dy)

	steps := adx
	if ady > steps {
		steps = ady
	}
	path := make([]Point, 0, steps+1)

	cur := start
	if steps == 0 {
		return append(path, cur)
	}

	if adx >= ady {
		e := adx / 2
		for i := 0; ; i++ {
			path = append(path, cur)
			if i == steps {
				break
			}
			cur = Step(cur, sx, 0, width, height)
			e -= ady
			if e < 0 {
				cur = Step(cur, 0, sy, width, height)
				e += adx
			}
		}
		return path
	}

	e := ady / 2
	for i := 0; ; i++ {
		path = append(path, cur)
		if i == steps {
			break
		}
		cur = Step(cur, 0, sy, width, height)
		e -= adx
		if e < 0 {
			cur = Step(cur, sx, 0, width, height)
			e += ady
		}
	}
	return path
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
