package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/labex-extractor/constants"
	"github.com/joseph-ayodele/labex-extractor/internal/common"
)

// Staged describes an upload persisted to the staging directory.
type Staged struct {
	Filename string
	Path     string
	Size     int64
	HashHex  string
}

// Stager copies uploads into a local directory before processing.
type Stager struct {
	dir     string
	maxSize int64
	logger  *slog.Logger
}

// NewStager writes into dir; maxSize <= 0 disables the size limit.
func NewStager(dir string, maxSize int64, logger *slog.Logger) *Stager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stager{dir: dir, maxSize: maxSize, logger: logger}
}

// Stage writes r to <dir>/labex-<hash12>-<name>, hashing it on the way.
// Uploads that share a name but not their content never share a path.
func (s *Stager) Stage(ctx context.Context, name string, r io.Reader) (Staged, error) {
	name = SanitizeFilename(name)
	if !AllowedExt(filepath.Ext(name)) {
		return Staged{}, fmt.Errorf("%w: %s", common.ErrUnsupportedFormat, name)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Staged{}, fmt.Errorf("create staging dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return Staged{}, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}
	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), readerWithContext(ctx, src))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Staged{}, fmt.Errorf("write upload: %w", err)
	}
	if s.maxSize > 0 && n > s.maxSize {
		return Staged{}, common.NewAppError("UPLOAD_TOO_LARGE", fmt.Sprintf("upload exceeds %d bytes", s.maxSize), common.ErrInvalidInput)
	}
	if n == 0 {
		return Staged{}, common.NewAppError("EMPTY_UPLOAD", "upload is empty", common.ErrInvalidInput)
	}
	sum := hex.EncodeToString(h.Sum(nil))
	path := filepath.Join(s.dir, StagedName(sum, name))
	if err := os.Rename(tmp.Name(), path); err != nil {
		return Staged{}, fmt.Errorf("move upload: %w", err)
	}

	out := Staged{Filename: name, Path: path, Size: n, HashHex: sum}
	s.logger.Info("upload staged", "filename", name, "path", path, "bytes", n)
	return out, nil
}

// StagedName is the base name of a staged upload.
func StagedName(hashHex, name string) string {
	if len(hashHex) > 12 {
		hashHex = hashHex[:12]
	}
	return constants.StagedPrefix + hashHex + "-" + name
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
