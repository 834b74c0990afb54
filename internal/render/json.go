package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/naka-gawa/team-pulse/internal/domain"
)

func writeJSON(w io.Writer, r *domain.Report, _ Options) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(r); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
