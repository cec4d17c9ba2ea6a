package render

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

// minExtent keeps degenerate bounds (points, straight axis aligned lines)
// indexable; rtreego rejects zero length sides.
const minExtent = 1e-6

type indexed struct {
	pos   int
	bound orb.Bound
}

// Bounds implements rtreego.Spatial.
func (it *indexed) Bounds() rtreego.Rect {
	return toRect(it.bound)
}

func toRect(b orb.Bound) rtreego.Rect {
	lengths := []float64{
		math.Max(b.Max[0]-b.Min[0], minExtent),
		math.Max(b.Max[1]-b.Min[1], minExtent),
	}
	rect, _ := rtreego.NewRect(rtreego.Point{b.Min[0], b.Min[1]}, lengths)
	return rect
}

// spatialIndex answers which geometries of a layer touch the crop box.
type spatialIndex struct {
	tree *rtreego.Rtree
}

func newSpatialIndex(bounds []orb.Bound) *spatialIndex {
	objs := make([]rtreego.Spatial, len(bounds))
	for i, b := range bounds {
		objs[i] = &indexed{pos: i, bound: b}
	}
	return &spatialIndex{tree: rtreego.NewTree(2, 25, 50, objs...)}
}

// Search returns the positions of the bounds intersecting b in ascending
// order, so drawing order is preserved.
func (ix *spatialIndex) Search(b orb.Bound) []int {
	hits := ix.tree.SearchIntersect(toRect(b))
	out := make([]int, len(hits))
	for i, h := range hits {
		out[i] = h.(*indexed).pos
	}
	sort.Ints(out)
	return out
}
