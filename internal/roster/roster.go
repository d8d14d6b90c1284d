// Package roster loads campaign targets from CSV.
package roster

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gocarina/gocsv"

	apperrors "phishbot/internal/common/errors"
	"phishbot/internal/common/logger"
	"phishbot/internal/models"
)

// RequiredColumns must all appear in the header row.
var RequiredColumns = []string{"FirstName", "LastName", "Email", "Position"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Load reads the roster at path. Rows without a usable email are skipped
// with a warning; an empty result is a ROSTER_INVALID error.
func Load(path string, log logger.Logger) ([]models.Target, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewRosterInvalidError(fmt.Sprintf("cannot open %s", path), err)
	}
	defer f.Close()
	return LoadReader(f, path, log)
}

func LoadReader(r io.Reader, source string, log logger.Logger) ([]models.Target, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.NewRosterInvalidError(fmt.Sprintf("cannot read %s", source), err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	if err := checkHeader(data); err != nil {
		return nil, apperrors.NewRosterInvalidError(fmt.Sprintf("%s: %s", source, err.Error()), nil)
	}

	rows := []*models.Target{}
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, apperrors.NewRosterInvalidError(fmt.Sprintf("cannot parse %s", source), err)
	}

	targets := make([]models.Target, 0, len(rows))
	seen := make(map[string]int, len(rows))
	for i, row := range rows {
		rowNum := i + 2 // header is row 1
		t := models.Target{
			FirstName: strings.TrimSpace(row.FirstName),
			LastName:  strings.TrimSpace(row.LastName),
			Email:     models.NormalizeEmail(row.Email),
			Position:  strings.TrimSpace(row.Position),
		}

		if t.Email == "" {
			log.Warn("Skipping roster row: missing email address", map[string]interface{}{"row": rowNum})
			continue
		}
		if !models.ValidEmail(t.Email) {
			log.Warn("Skipping roster row: invalid email format", map[string]interface{}{"row": rowNum, "email": t.Email})
			continue
		}
		if first, dup := seen[t.Email]; dup {
			log.Warn("Duplicate email in roster", map[string]interface{}{"row": rowNum, "firstRow": first, "email": t.Email})
		} else {
			seen[t.Email] = rowNum
		}
		targets = append(targets, t)
	}

	if len(targets) == 0 {
		return nil, apperrors.NewRosterInvalidError(fmt.Sprintf("%s contains no valid targets", source), nil)
	}

	log.Info("Loaded targets", map[string]interface{}{"source": source, "targets": len(targets), "rows": len(rows)})
	return targets, nil
}

func checkHeader(data []byte) error {
	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err == io.EOF {
		return fmt.Errorf("file is empty, header row required")
	}
	if err != nil {
		return fmt.Errorf("unreadable header: %w", err)
	}

	present := make(map[string]bool, len(header))
	for _, col := range header {
		present[strings.TrimSpace(col)] = true
	}
	var missing []string
	for _, col := range RequiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing columns %s (required: %s)", strings.Join(missing, ", "), strings.Join(RequiredColumns, ", "))
	}
	return nil
}
