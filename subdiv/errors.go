package subdiv

import "errors"

var (
	ErrFewPoints     = errors.New("subdiv: face needs at least 3 distinct points")
	ErrFaceExists    = errors.New("subdiv: face already exists")
	ErrNoPoint       = errors.New("subdiv: no such control point")
	ErrNoEdge        = errors.New("subdiv: no such control edge")
	ErrNoFace        = errors.New("subdiv: no such control face")
	ErrNoLayer       = errors.New("subdiv: layer does not belong to surface")
	ErrLayerNotEmpty = errors.New("subdiv: layer still has faces")
	ErrLastLayer     = errors.New("subdiv: cannot delete the last layer")
	ErrNotQuad       = errors.New("subdiv: face is not a quad")
	ErrNotGrid       = errors.New("subdiv: faces do not form a structured grid")
	ErrBadGrid       = errors.New("subdiv: grid needs at least 2 rows and 2 columns")
	ErrBadCurve      = errors.New("subdiv: curve points are not joined by control edges")
)
