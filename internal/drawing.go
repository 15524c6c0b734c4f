package internal

// Collaborative-canvas wire types. The server keeps the authoritative stroke
// list so late joiners can replay the picture.

type StrokePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Stroke struct {
	Type      StrokeType    `json:"type"`
	Color     string        `json:"color,omitempty"`
	Width     int           `json:"width,omitempty"`
	Points    []StrokePoint `json:"points,omitempty"`
	Timestamp int64         `json:"timestamp"`
}

type StrokeType string

const (
	StrokeDraw  StrokeType = "stroke"
	StrokeFill  StrokeType = "fill"
	StrokeClear StrokeType = "clear"
)

// Canvas coordinates are normalized to the unit square; clients scale to
// their own viewport, so no per-client resolution handshake is needed.
func ClampStroke(s *Stroke) {
	for i := range s.Points {
		if s.Points[i].X < 0 {
			s.Points[i].X = 0
		} else if s.Points[i].X > 1 {
			s.Points[i].X = 1
		}
		if s.Points[i].Y < 0 {
			s.Points[i].Y = 0
		} else if s.Points[i].Y > 1 {
			s.Points[i].Y = 1
		}
	}
}
