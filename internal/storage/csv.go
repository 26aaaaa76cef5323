package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/vdesim/internal/sim"
)

var historyHeader = []string{"time", "z", "u_z"}

// WriteHistoryCSV writes one row per step. Values use the shortest exact
// representation so they read back bit-identical.
func WriteHistoryCSV(w io.Writer, h sim.History) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(historyHeader); err != nil {
		return err
	}
	for i := range h.Time {
		row := []string{
			strconv.FormatFloat(h.Time[i], 'g', -1, 64),
			strconv.FormatFloat(h.Z[i], 'g', -1, 64),
			strconv.FormatFloat(h.U[i], 'g', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ReadHistoryCSV(r io.Reader) (sim.History, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(historyHeader)

	records, err := cr.ReadAll()
	if err != nil {
		return sim.History{}, err
	}
	if len(records) == 0 {
		return sim.History{}, fmt.Errorf("storage: history csv has no header")
	}

	n := len(records) - 1
	h := sim.History{
		Time: make([]float64, 0, n),
		Z:    make([]float64, 0, n),
		U:    make([]float64, 0, n),
	}
	for i, rec := range records[1:] {
		var vals [3]float64
		for j := range vals {
			v, err := strconv.ParseFloat(rec[j], 64)
			if err != nil {
				return sim.History{}, fmt.Errorf("storage: history row %d column %s: %w", i+1, historyHeader[j], err)
			}
			vals[j] = v
		}
		h.Time = append(h.Time, vals[0])
		h.Z = append(h.Z, vals[1])
		h.U = append(h.U, vals[2])
	}
	return h, nil
}
