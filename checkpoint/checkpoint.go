// Package checkpoint provides IO which saves and restores chain state
// using a bolt database.
package checkpoint

import (
	"encoding/json"
	"time"

	"github.com/op/go-logging"

	bolt "go.etcd.io/bbolt"
)

// log is the global logging variable.
var log = logging.MustGetLogger("checkpoint")

// MAIN is key name for all chains
var MAIN = []byte("main")

// State stores a full chain snapshot: parameter blocks, adaptive tuning
// state and the aggregate log-likelihood at save time.
type State struct {
	Iteration int
	M         []int
	P         [][]float64
	EpsPos    float64
	EpsNeg    float64
	MPropMean []float64
	PPropVar  []float64
	EpsPosVar float64
	EpsNegVar float64
	LogLik    float64
	Final     bool
}

// IO saves and loads chain snapshots.
type IO struct {
	db      *bolt.DB
	key     []byte
	last    time.Time
	seconds float64
}

// NewIO creates a new IO. key identifies the chain; seconds is the minimum
// interval between saves.
func NewIO(db *bolt.DB, key []byte, seconds float64) (s *IO) {
	s = &IO{
		db:      db,
		key:     key,
		seconds: seconds,
	}
	return
}

// Save saves a snapshot to the database.
func (s *IO) Save(state *State) error {
	// Even if saving fails, we do not want to run this code too often.
	s.SetNow()
	stateB, err := json.Marshal(state)
	if err != nil {
		log.Error("Error serializing checkpoint", err)
		return err
	}
	err = SaveData(s.db, s.key, stateB)
	if err != nil {
		log.Error("Error saving checkpoint", err)
	}
	return err
}

// Load returns the stored snapshot, or nil if there is none.
func (s *IO) Load() (*State, error) {
	var state *State

	b, err := LoadData(s.db, s.key)

	if err != nil || b == nil {
		return nil, err
	}

	err = json.Unmarshal(b, &state)

	if err != nil {
		return nil, err
	}

	if state == nil || len(state.M) == 0 {
		return nil, nil
	}

	if state.Final {
		log.Noticef("Found finished chain checkpoint (iter=%v, lnL=%v)", state.Iteration, state.LogLik)
	} else {
		log.Noticef("Found unfinished chain checkpoint (iter=%v, lnL=%v)", state.Iteration, state.LogLik)
	}

	return state, nil
}

// Old returns true if last checkpoint save time too long ago.
func (s *IO) Old() bool {
	if time.Since(s.last).Seconds() > s.seconds {
		return true
	}
	return false
}

// SetNow sets last checkpoint time to now.
func (s *IO) SetNow() {
	s.last = time.Now()
}

// SaveData saves values in bolt database.
func SaveData(db *bolt.DB, key []byte, data []byte) error {
	if db == nil {
		return nil
	}
	err := db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(MAIN)
		if err != nil {
			return err
		}

		err = b.Put(key, data)
		return err
	})
	return err
}

// LoadData loads data from bolt database.
func LoadData(db *bolt.DB, key []byte) ([]byte, error) {
	var data []byte
	if db == nil {
		return nil, nil
	}
	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(MAIN)
		if b == nil {
			return nil
		}

		v := b.Get(key)
		if v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}
