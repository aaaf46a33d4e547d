package advisor

import (
	"fmt"

	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/qtable"
)

// CurrentGetter is the part of the version store the loader needs.
type CurrentGetter interface {
	GetCurrent() (qtable.Record, error)
}

// LoadFromStore publishes the store's active version.
func (s *Service) LoadFromStore(store CurrentGetter) error {
	rec, err := store.GetCurrent()
	if err != nil {
		return fmt.Errorf("load active table: %w", err)
	}
	return s.Load(rec.Table, rec.VersionID, "store")
}

// LoadFromFile publishes a table written by qtable.WriteFile.
func (s *Service) LoadFromFile(path string) error {
	t, err := qtable.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load table file: %w", err)
	}
	return s.Load(t, path, "file")
}
