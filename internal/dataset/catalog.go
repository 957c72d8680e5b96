package dataset

import (
	"context"
	"fmt"
	"sort"
)

// ListGeos returns the sorted distinct set of non-null, non-empty
// identifiers present in the geography column anywhere in the dataset.
// Part files are streamed row by row and only the geography cell is
// retained; the rest of the table never sits in memory.
func ListGeos(ctx context.Context, location, geoColumn string) ([]string, error) {
	files, err := partFiles(location)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		idx := -1
		err := scanFile(path,
			func(header []string) error {
				if idx = columnIndex(header, geoColumn); idx < 0 {
					return &AccessError{Location: path, Column: geoColumn}
				}
				return nil
			},
			func(row []string) error {
				if idx < len(row) && !isNull(row[idx]) {
					seen[row[idx]] = struct{}{}
				}
				return nil
			})
		if err != nil {
			return nil, asAccessError(path, err)
		}
	}

	geos := make([]string, 0, len(seen))
	for g := range seen {
		geos = append(geos, g)
	}
	sort.Strings(geos)
	return geos, nil
}

// Select loads the named columns from every part file into one Frame,
// streaming each file and keeping only the projected cells. Every part
// file must carry all requested columns; a missing column fails with an
// AccessError naming the offending file.
func Select(ctx context.Context, location string, columns ...string) (*Frame, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("no columns requested")
	}

	files, err := partFiles(location)
	if err != nil {
		return nil, err
	}

	frame := &Frame{Columns: columns}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var indices []int
		err := scanFile(path,
			func(header []string) error {
				indices = make([]int, len(columns))
				for i, col := range columns {
					idx := columnIndex(header, col)
					if idx < 0 {
						return &AccessError{Location: path, Column: col}
					}
					indices[i] = idx
				}
				return nil
			},
			func(row []string) error {
				record := make([]string, len(columns))
				for i, idx := range indices {
					if idx < len(row) {
						record[i] = row[idx]
					}
				}
				frame.Records = append(frame.Records, record)
				return nil
			})
		if err != nil {
			return nil, asAccessError(path, err)
		}
	}

	return frame, nil
}

func columnIndex(header []string, name string) int {
	for i, c := range header {
		if c == name {
			return i
		}
	}
	return -1
}
