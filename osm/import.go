// Package osm ingests OpenStreetMap pbf extracts: elements are classified
// by a tag profile, projected onto the fixed grid and inserted into the
// feature store bucketed by index tile.
package osm

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/go-spatial/geom"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/syndtr/goleveldb/leveldb"
	"go.uber.org/zap"

	"github.com/vesavlad/tiles/feature"
	"github.com/vesavlad/tiles/fixed"
	"github.com/vesavlad/tiles/tiledb"
)

// Importer streams one pbf file into the feature store.
type Importer struct {
	handle  *tiledb.Handle
	profile *Profile

	layerNames feature.CodingVec
	layerIdx   feature.CodingMap

	coords   map[osm.NodeID]geom.Point
	inserter *tiledb.Inserter
	skipped  uint64
}

// NewImporter prepares an import run with the given classification profile.
func NewImporter(h *tiledb.Handle, profile *Profile) *Importer {
	return &Importer{
		handle:     h,
		profile:    profile,
		layerNames: feature.CodingVec{},
		layerIdx:   feature.CodingMap{},
		coords:     map[osm.NodeID]geom.Point{},
		inserter:   tiledb.NewInserter(h),
	}
}

// Run scans the file once. Nodes precede ways in pbf extracts, so node
// locations are cached on the fly and ways resolve against the cache.
func (im *Importer) Run(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("osm: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := osmpbf.New(ctx, f, runtime.GOMAXPROCS(0))
	defer scanner.Close()
	scanner.SkipRelations = true

	for scanner.Scan() {
		switch o := scanner.Object().(type) {
		case *osm.Node:
			im.node(o)
		case *osm.Way:
			if err := im.way(o); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return fmt.Errorf("osm: scan %s: %w", path, err)
	}

	if err := im.inserter.Flush(); err != nil {
		return err
	}
	err = im.handle.Update(func(tx *leveldb.Transaction) error {
		return tiledb.SaveLayerNames(tx, im.layerNames)
	})
	if err != nil {
		return err
	}

	im.handle.Log.Info("import done",
		zap.Uint64("features", im.inserter.Count()),
		zap.Uint64("skipped", im.skipped),
		zap.Int("layers", len(im.layerNames)))
	return nil
}

func (im *Importer) node(n *osm.Node) {
	pt := geom.Point{n.Lon, n.Lat}
	im.coords[n.ID] = pt

	tags := n.Tags.Map()
	cls, ok := im.profile.Classify(tags, KindNode)
	if !ok {
		return
	}
	im.insert(uint64(n.ID), cls, tags, fixed.Point(project(pt)))
}

func (im *Importer) way(w *osm.Way) error {
	tags := w.Tags.Map()

	closed := len(w.Nodes) > 3 && w.Nodes[0].ID == w.Nodes[len(w.Nodes)-1].ID
	kind := KindWay
	if closed && tags["area"] != "no" {
		if _, isArea := im.profile.Classify(tags, KindArea); isArea {
			kind = KindArea
		}
	}
	cls, ok := im.profile.Classify(tags, kind)
	if !ok {
		return nil
	}

	line := make([]fixed.XY, 0, len(w.Nodes))
	for _, wn := range w.Nodes {
		pt, ok := im.coords[wn.ID]
		if !ok {
			// dangling reference, the extract was clipped here
			im.skipped++
			return nil
		}
		line = append(line, project(pt))
	}
	if len(line) < 2 {
		im.skipped++
		return nil
	}

	var g fixed.Geometry
	if kind == KindArea {
		if line[0] != line[len(line)-1] {
			line = append(line, line[0])
		}
		if len(line) < 4 {
			im.skipped++
			return nil
		}
		g = fixed.Polygon{Rings: [][]fixed.XY{line}}
	} else {
		g = fixed.Polyline{Lines: [][]fixed.XY{line}}
	}

	im.insert(uint64(w.ID), cls, tags, g)
	return nil
}

func (im *Importer) insert(id uint64, cls Classification, tags map[string]string, g fixed.Geometry) {
	meta := feature.NewMeta("layer", cls.Layer)
	for _, key := range cls.KeepTags {
		if v, ok := tags[key]; ok {
			meta.Set(key, v)
		}
	}

	f := &feature.Feature{
		ID:       id,
		Layer:    im.layerIdx.Add(&im.layerNames, cls.Layer),
		MinZ:     cls.MinZ,
		MaxZ:     cls.MaxZ,
		Meta:     meta,
		Geometry: g,
	}
	if err := im.inserter.Insert(f); err != nil {
		im.handle.Log.Warn("skipping feature", zap.Uint64("id", id), zap.Error(err))
		im.skipped++
	}
}
