package canvas

// Identifies a stroke inside one room's draw log
type StrokeID uint64

// The brush a stroke was drawn with
type BrushKind string

const (
	BrushNormal      BrushKind = "normal"
	BrushSpray       BrushKind = "spray"
	BrushCalligraphy BrushKind = "calligraphy"
	BrushSketchy     BrushKind = "sketchy"
	BrushMarker      BrushKind = "marker"
	BrushFur         BrushKind = "fur"
)

// Brushes lists every brush kind a client may draw with
var Brushes = []BrushKind{
	BrushNormal,
	BrushSpray,
	BrushCalligraphy,
	BrushSketchy,
	BrushMarker,
	BrushFur,
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// One recorded line segment. Strokes are never mutated once appended.
type Stroke struct {
	ID      StrokeID  `json:"id"`
	OwnerID string    `json:"userId"`
	Brush   BrushKind `json:"brush"`
	Size    float64   `json:"size"`
	Color   string    `json:"color"`
	Prev    Point     `json:"prevPoint"`
	Curr    Point     `json:"currPoint"`
}
