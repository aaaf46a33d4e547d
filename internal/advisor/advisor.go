package advisor

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/blackjack"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/qtable"
)

// ErrNotReady is returned by Advise until a table has been loaded.
var ErrNotReady = errors.New("advisor: no table loaded")

// FallbackStandOn is the total from which the fallback heuristic stands.
const FallbackStandOn = 17

// #region recommend
// Recommend answers a single state from t. States present in the table get
// the argmax action (ties to Hit); anything else gets the fallback heuristic
// with zero values.
func Recommend(t *qtable.Table, s blackjack.State) Advice {
	adv := Advice{State: s.Array()}
	if t != nil {
		if v, ok := t.Lookup(s); ok {
			adv.Advice = v.Best()
			adv.Q = QValues{Hit: v[blackjack.Hit], Stand: v[blackjack.Stand]}
			adv.Source = SourceTable
			return adv
		}
	}
	adv.Advice = Fallback(s)
	adv.Source = SourceFallback
	return adv
}

// Fallback is the fixed heuristic used for states the table does not hold.
func Fallback(s blackjack.State) blackjack.Action {
	if s.PlayerTotal >= FallbackStandOn {
		return blackjack.Stand
	}
	return blackjack.Hit
}

// #endregion recommend

// #region service
// Service serves advice from the most recently published table. Reads are
// lock-free; Load swaps the whole snapshot.
type Service struct {
	current atomic.Pointer[Snapshot]
}

// NewService returns a service with no table. It fails closed until Load.
func NewService() *Service {
	return &Service{}
}

// Load publishes t as the table to answer from.
func (s *Service) Load(t *qtable.Table, versionID, origin string) error {
	if t == nil {
		return fmt.Errorf("load table: nil table")
	}
	s.current.Store(&Snapshot{
		VersionID: versionID,
		Origin:    origin,
		LoadedAt:  time.Now().UTC(),
		table:     t.Clone(),
	})
	return nil
}

// Advise answers req, or returns ErrNotReady when nothing is loaded.
func (s *Service) Advise(req Request) (Advice, error) {
	snap := s.current.Load()
	if snap == nil {
		return Advice{}, ErrNotReady
	}
	return Recommend(snap.table, req.State()), nil
}

// Health reports process liveness. It is true whenever the service exists.
func (s *Service) Health() bool {
	return true
}

// Ready reports whether a table is loaded.
func (s *Service) Ready() bool {
	return s.current.Load() != nil
}

// Snapshot returns the published snapshot metadata.
func (s *Service) Snapshot() (Snapshot, bool) {
	snap := s.current.Load()
	if snap == nil {
		return Snapshot{}, false
	}
	return *snap, true
}

// #endregion service
