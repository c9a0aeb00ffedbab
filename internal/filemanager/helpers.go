package filemanager

import (
	"os"

	"github.com/marmos91/tracebroker/internal/csvfmt"
)

func escapeField(s string) string {
	return csvfmt.Escape(',', s)
}

func openTruncate(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0o644)
}
