package lifecycle

import (
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"prewarm/internal/common/fsutil"
)

// CacheDirFor returns the on-disk cache directory for one model under root.
// The '/' in the model id is flattened to '--' so the id maps to a single
// directory name, e.g. "Systran/faster-whisper-base" keys
// "models--Systran--faster-whisper-base".
func CacheDirFor(root, modelID string) string {
	return filepath.Join(root, "models--"+strings.ReplaceAll(modelID, "/", "--"))
}

// diagnoseCache logs whether the model already has cached content on disk.
// The cache is only a hint; the loaded-models listing stays authoritative for
// whether the model is usable.
func diagnoseCache(log zerolog.Logger, root, modelID string) {
	if root == "" {
		return
	}
	dir := CacheDirFor(root, modelID)
	switch {
	case fsutil.DirNonEmpty(dir):
		log.Debug().Str("model", modelID).Str("dir", dir).Msg("model cache present on disk")
	case fsutil.PathExists(dir):
		log.Debug().Str("model", modelID).Str("dir", dir).Msg("model cache dir empty, expect a download")
	default:
		log.Debug().Str("model", modelID).Str("dir", dir).Msg("no model cache on disk, expect a download")
	}
}
