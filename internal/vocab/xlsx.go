package vocab

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/rigforge/compat-cli/internal/model"
)

// ImportModelsXLSX reads canonical model rows from a spreadsheet export.
// The first row is a header naming the columns; recognized headers are
// kind, name, brand, socket, generation, chipset, form_factor,
// memory_type, tdp_watts. Rows missing kind or name are skipped with no
// error so partially filled sheets import cleanly.
func ImportModelsXLSX(path string) ([]ModelSpec, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "vocab: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("vocab: xlsx %s has no sheets", path)
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) < 2 {
		return nil, eris.Errorf("vocab: xlsx %s has no data rows", path)
	}

	cols := make(map[string]int)
	for j, cell := range sheet.Rows[0].Cells {
		h := strings.ToLower(strings.TrimSpace(cell.String()))
		if h != "" {
			cols[h] = j
		}
	}
	if _, ok := cols["kind"]; !ok {
		return nil, eris.Errorf("vocab: xlsx %s missing required column %q", path, "kind")
	}
	if _, ok := cols["name"]; !ok {
		return nil, eris.Errorf("vocab: xlsx %s missing required column %q", path, "name")
	}

	get := func(row *xlsx.Row, col string) string {
		j, ok := cols[col]
		if !ok || j >= len(row.Cells) {
			return ""
		}
		return strings.TrimSpace(row.Cells[j].String())
	}

	var out []ModelSpec
	for _, row := range sheet.Rows[1:] {
		kind := model.ComponentKind(strings.ToLower(get(row, "kind")))
		name := get(row, "name")
		if name == "" || !kind.Valid() {
			continue
		}

		m := ModelSpec{
			Kind:       kind,
			Name:       name,
			Brand:      get(row, "brand"),
			Socket:     get(row, "socket"),
			Generation: get(row, "generation"),
			Chipset:    get(row, "chipset"),
			FormFactor: get(row, "form_factor"),
			MemoryType: get(row, "memory_type"),
		}
		if tdp := get(row, "tdp_watts"); tdp != "" {
			n, err := strconv.Atoi(tdp)
			if err != nil {
				return nil, eris.Wrapf(err, "vocab: xlsx %s: bad tdp_watts for %q", path, name)
			}
			m.TDPWatts = n
		}
		out = append(out, m)
	}

	return out, nil
}

// WithModels returns a copy of v extended with extra canonical models,
// rebuilt and ready to publish.
func WithModels(v *Vocabulary, extra []ModelSpec) *Vocabulary {
	next := &Vocabulary{
		Sockets:     append([]string(nil), v.Sockets...),
		ChipsetMap:  make(map[string]string, len(v.ChipsetMap)),
		MemoryTypes: append([]string(nil), v.MemoryTypes...),
		FormFactors: make(map[string]string, len(v.FormFactors)),
		Models:      append(append([]ModelSpec(nil), v.Models...), extra...),
	}
	for c, s := range v.ChipsetMap {
		next.ChipsetMap[c] = s
	}
	for a, c := range v.FormFactors {
		next.FormFactors[a] = c
	}
	next.build()
	return next
}
