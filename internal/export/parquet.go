// Package export writes portrait sessions in columnar form for offline
// analysis.
package export

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/pawtrait-pals/pawtrait/internal/models"
)

// PortraitRow is one generated portrait, flattened with its session.
type PortraitRow struct {
	SessionID string    `parquet:"session_id"`
	PetName   string    `parquet:"pet_name,optional"`
	Species   string    `parquet:"species"`
	Breed     string    `parquet:"breed,optional"`
	StyleID   string    `parquet:"style_id"`
	StyleName string    `parquet:"style_name"`
	Provider  string    `parquet:"provider"`
	Model     string    `parquet:"model"`
	URL       string    `parquet:"url,optional"`
	Error     string    `parquet:"error,optional"`
	CreatedAt time.Time `parquet:"created_at,timestamp(millisecond)"`
}

// Rows flattens sessions into portrait rows ordered by session creation time.
func Rows(sessions []*models.PortraitSession) []PortraitRow {
	ordered := make([]*models.PortraitSession, len(sessions))
	copy(ordered, sessions)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	var rows []PortraitRow
	for _, s := range ordered {
		for _, p := range s.Portraits {
			rows = append(rows, PortraitRow{
				SessionID: s.ID,
				PetName:   s.PetName,
				Species:   s.Species,
				Breed:     s.Breed,
				StyleID:   p.StyleID,
				StyleName: p.StyleName,
				Provider:  s.Provider,
				Model:     s.Model,
				URL:       p.ImageURL,
				Error:     p.Error,
				CreatedAt: p.CreatedAt.UTC(),
			})
		}
	}
	return rows
}

// WriteParquet writes one row per generated portrait to w.
func WriteParquet(w io.Writer, sessions []*models.PortraitSession) (int, error) {
	rows := Rows(sessions)

	writer := parquet.NewGenericWriter[PortraitRow](w)
	if _, err := writer.Write(rows); err != nil {
		return 0, fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return 0, fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return len(rows), nil
}
