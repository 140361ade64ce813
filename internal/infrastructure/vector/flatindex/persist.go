package flatindex

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
)

const (
	VectorsFile = "vectors.idx"
	ChunksFile  = "chunks.json"
)

type vectorsFile struct {
	BuildID   string
	Dimension int
	IDs       []int
	Vectors   [][]float32
}

type chunksFile struct {
	BuildID        string         `json:"build_id"`
	EmbeddingModel string         `json:"embedding_model"`
	Dimension      int            `json:"dimension"`
	BuiltAt        time.Time      `json:"built_at"`
	Chunks         []domain.Chunk `json:"chunks"`
}

// Exists reports whether both index files are present in dir.
func Exists(dir string) bool {
	for _, name := range []string{VectorsFile, ChunksFile} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil || info.IsDir() {
			return false
		}
	}
	return true
}

// Save writes the current snapshot. Vectors are renamed into place before
// chunks; Load rejects the pair until both carry the same build id.
func (s *Store) Save(dir string) error {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	snap := s.current.Load()
	if snap == nil {
		return domain.WrapError(domain.ErrIndexUnavailable, "save knowledge index", errors.New("no index to save"))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	vf := vectorsFile{
		BuildID:   snap.buildID,
		Dimension: snap.index.Dimension(),
		IDs:       snap.index.ids,
		Vectors:   snap.index.vectors,
	}
	if err := writeFileAtomic(filepath.Join(dir, VectorsFile), func(w io.Writer) error {
		return gob.NewEncoder(w).Encode(vf)
	}); err != nil {
		return fmt.Errorf("write %s: %w", VectorsFile, err)
	}

	cf := chunksFile{
		BuildID:        snap.buildID,
		EmbeddingModel: snap.stats.Model,
		Dimension:      snap.stats.Dimension,
		BuiltAt:        snap.stats.BuiltAt,
		Chunks:         snap.chunks,
	}
	if err := writeFileAtomic(filepath.Join(dir, ChunksFile), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cf)
	}); err != nil {
		return fmt.Errorf("write %s: %w", ChunksFile, err)
	}
	return nil
}

// Load replaces the current snapshot with the one persisted in dir. Nothing
// changes unless both files are present and consistent.
func (s *Store) Load(dir string) error {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	if !Exists(dir) {
		return domain.WrapError(domain.ErrIndexNotFound, "load knowledge index", fmt.Errorf("index files not found in %s", dir))
	}

	var vf vectorsFile
	if err := readFile(filepath.Join(dir, VectorsFile), func(r io.Reader) error {
		return gob.NewDecoder(r).Decode(&vf)
	}); err != nil {
		return fmt.Errorf("read %s: %w", VectorsFile, err)
	}

	var cf chunksFile
	if err := readFile(filepath.Join(dir, ChunksFile), func(r io.Reader) error {
		return json.NewDecoder(r).Decode(&cf)
	}); err != nil {
		return fmt.Errorf("read %s: %w", ChunksFile, err)
	}

	if vf.BuildID == "" || vf.BuildID != cf.BuildID {
		return domain.WrapError(domain.ErrIndexCorrupt, "load knowledge index",
			fmt.Errorf("%s build %q does not match %s build %q", VectorsFile, vf.BuildID, ChunksFile, cf.BuildID))
	}
	if len(vf.IDs) != len(cf.Chunks) {
		return domain.WrapError(domain.ErrIndexCorrupt, "load knowledge index",
			fmt.Errorf("%d vectors, %d chunks", len(vf.IDs), len(cf.Chunks)))
	}
	if model := s.embedder.Model(); cf.EmbeddingModel != "" && model != "" && cf.EmbeddingModel != model {
		return fmt.Errorf("index built with embedding model %q, configured model is %q", cf.EmbeddingModel, model)
	}

	ix := NewIndex(vf.Dimension)
	if err := ix.Add(vf.IDs, vf.Vectors); err != nil {
		return fmt.Errorf("restore flat index: %w", err)
	}
	for i, c := range cf.Chunks {
		if c.ID != i {
			return domain.WrapError(domain.ErrIndexCorrupt, "load knowledge index", fmt.Errorf("chunk at position %d has id %d", i, c.ID))
		}
	}

	s.current.Store(&snapshot{
		buildID: cf.BuildID,
		index:   ix,
		chunks:  cf.Chunks,
		stats: domain.IndexStats{
			Chunks:    len(cf.Chunks),
			Dimension: ix.Dimension(),
			Model:     cf.EmbeddingModel,
			BuiltAt:   cf.BuiltAt,
		},
	})
	return nil
}

func writeFileAtomic(path string, encode func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if _, statErr := os.Stat(tmpName); statErr == nil {
			_ = os.Remove(tmpName)
		}
	}()

	if err := encode(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func readFile(path string, decode func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.WrapError(domain.ErrIndexNotFound, "open index file", err)
		}
		return err
	}
	defer f.Close()
	return decode(f)
}
