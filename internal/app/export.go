package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/semmidev/blobber/internal/usecase"
)

// Export reads newline-delimited JSON objects from src and uploads them as
// one CSV blob with the given columns. The blob is named after src with
// today's date appended, so the sweep can expire it later.
func (a *App) Export(ctx context.Context, src string, fields []string) (string, error) {
	f, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", src, err)
	}
	defer f.Close()

	blobber := usecase.NewBlobber[map[string]any](a.uploader)

	dec := json.NewDecoder(f)
	dec.UseNumber()
	for {
		var record map[string]any
		if err := dec.Decode(&record); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", fmt.Errorf("decode record %d of %s: %w", blobber.Len()+1, src, err)
		}
		blobber.AddRecord(record)
	}
	a.logger.Infof("Read %d record(s) from %s", blobber.Len(), src)

	staging := filepath.Join(os.TempDir(), stagingName(src, time.Now()))
	defer os.Remove(staging)

	url, err := blobber.CreateBlob(ctx, usecase.UploadOptions[map[string]any]{
		Fields:        fields,
		LocalFilePath: staging,
		UseFullName:   true,
		Compress:      a.config.Upload.Compress,
	})
	if err == nil {
		a.notify(ctx, fmt.Sprintf("Exported %d record(s) to %s", blobber.Len(), url))
	}
	a.pushMetrics()
	return url, err
}

func stagingName(src string, now time.Time) string {
	base := filepath.Base(src)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("%s-%s.csv", base, now.Format("2006-01-02"))
}
