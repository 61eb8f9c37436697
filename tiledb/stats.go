package tiledb

import (
	"fmt"
	"io"

	"github.com/muesli/reflow/indent"
	"golang.org/x/exp/slices"

	"github.com/vesavlad/tiles/tile"
)

// Stats writes payload statistics for the features and tiles tables, the
// per-zoom breakdown included.
func (h *Handle) Stats(w io.Writer) error {
	out := indent.NewWriter(2, nil)

	snap, err := h.DB.GetSnapshot()
	if err != nil {
		return fmt.Errorf("tiledb: stats snapshot: %w", err)
	}
	defer snap.Release()

	var featureSizes []float64
	it := snap.NewIterator(FeaturesRange(), nil)
	for it.Next() {
		featureSizes = append(featureSizes, float64(len(it.Value())))
	}
	it.Release()
	if err := it.Error(); err != nil {
		return err
	}

	fmt.Fprintln(w, "payload stats:")
	printSizes(out, "features", featureSizes)

	maxPrep, ok, err := MaxPreparedZ(snap)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(out, "no tiles prepared")
		_, err = w.Write(out.Bytes())
		return err
	}

	tileSizes := make([][]float64, maxPrep+1)
	it = snap.NewIterator(TilesRange(), nil)
	for it.Next() {
		t := tile.FromKey(SpatialKey(it.Key()))
		if t.Z > maxPrep {
			return fmt.Errorf("tiledb: tile %v outside prepared range %d", t, maxPrep)
		}
		tileSizes[t.Z] = append(tileSizes[t.Z], float64(len(it.Value())))
	}
	it.Release()
	if err := it.Error(); err != nil {
		return err
	}

	for z := range tileSizes {
		printSizes(out, fmt.Sprintf("tiles[z=%02d]", z), tileSizes[z])
	}
	_, err = w.Write(out.Bytes())
	return err
}

func printSizes(w io.Writer, label string, sizes []float64) {
	sum := 0.0
	for _, s := range sizes {
		sum += s
	}
	slices.Sort(sizes)

	if len(sizes) == 0 {
		fmt.Fprintf(w, "%-14s > cnt: %6d\n", label, 0)
		return
	}
	fmt.Fprintf(w, "%-14s > cnt: %6d  sum: %s  mean: %s  q95: %s  max: %s\n",
		label, len(sizes),
		formatBytes(sum),
		formatBytes(sum/float64(len(sizes))),
		formatBytes(sizes[len(sizes)*95/100]),
		formatBytes(sizes[len(sizes)-1]))
}

func formatBytes(n float64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%7.2fB", n)
	case n < 1024*1024:
		return fmt.Sprintf("%7.2fKB", n/1024)
	case n < 1024*1024*1024:
		return fmt.Sprintf("%7.2fMB", n/(1024*1024))
	default:
		return fmt.Sprintf("%7.2fGB", n/(1024*1024*1024))
	}
}
