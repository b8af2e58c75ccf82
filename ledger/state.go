package ledger

import (
	"errors"

	"github.com/holiman/uint256"
	"github.com/tos-network/r1vault/common"
	"github.com/tos-network/r1vault/vaultdb"
)

var accountPrefix = []byte("account/")

func accountKey(addr common.Address) []byte {
	return append(append([]byte{}, accountPrefix...), addr[:]...)
}

// stateSnapshot is a point-in-time copy of the overlay, used to support
// Snapshot/RevertToSnapshot across a batch.
type stateSnapshot struct {
	accounts map[common.Address]*Account
}

// State is an account overlay on top of a key-value store. Reads are served
// from the overlay first, then the store. Writes go to the overlay only until
// Commit.
type State struct {
	db vaultdb.KeyValueStore

	// nil entries mark accounts known to be absent.
	accounts map[common.Address]*Account
	dirty    map[common.Address]struct{}

	snapshots []stateSnapshot
}

// NewState creates an overlay over db.
func NewState(db vaultdb.KeyValueStore) *State {
	return &State{
		db:       db,
		accounts: make(map[common.Address]*Account),
		dirty:    make(map[common.Address]struct{}),
	}
}

func (s *State) load(addr common.Address) (*Account, error) {
	if acc, ok := s.accounts[addr]; ok {
		return acc, nil
	}
	enc, err := s.db.Get(accountKey(addr))
	if errors.Is(err, vaultdb.ErrNotFound) {
		s.accounts[addr] = nil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	acc, err := decodeAccount(enc)
	if err != nil {
		return nil, err
	}
	s.accounts[addr] = acc
	return acc, nil
}

// Account returns a copy of the account at addr. Missing accounts are
// returned as empty system accounts.
func (s *State) Account(addr common.Address) (*Account, error) {
	acc, err := s.load(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return new(Account), nil
	}
	return acc.Copy(), nil
}

// Exist reports whether addr holds a non-empty account.
func (s *State) Exist(addr common.Address) (bool, error) {
	acc, err := s.load(addr)
	return acc != nil, err
}

// SetAccount replaces the account at addr. Empty accounts are removed.
func (s *State) SetAccount(addr common.Address, acc *Account) {
	if acc == nil || acc.Empty() {
		s.accounts[addr] = nil
	} else {
		s.accounts[addr] = acc.Copy()
	}
	s.dirty[addr] = struct{}{}
}

// Lamports returns the balance of addr.
func (s *State) Lamports(addr common.Address) (uint64, error) {
	acc, err := s.load(addr)
	if err != nil || acc == nil {
		return 0, err
	}
	return acc.Lamports, nil
}

// TotalLamports sums the balances of addrs without overflow.
func (s *State) TotalLamports(addrs []common.Address) (*uint256.Int, error) {
	total := new(uint256.Int)
	for _, addr := range addrs {
		l, err := s.Lamports(addr)
		if err != nil {
			return nil, err
		}
		total.Add(total, uint256.NewInt(l))
	}
	return total, nil
}

// Snapshot captures a deep copy of the overlay and returns an id that can be
// passed to RevertToSnapshot.
func (s *State) Snapshot() int {
	snap := stateSnapshot{accounts: make(map[common.Address]*Account, len(s.accounts))}
	for addr, acc := range s.accounts {
		snap.accounts[addr] = acc.Copy()
	}
	id := len(s.snapshots)
	s.snapshots = append(s.snapshots, snap)
	return id
}

// RevertToSnapshot restores the overlay captured by Snapshot(id). All
// snapshots taken after id are discarded.
func (s *State) RevertToSnapshot(id int) {
	if id < 0 || id >= len(s.snapshots) {
		return
	}
	s.accounts = s.snapshots[id].accounts
	s.snapshots = s.snapshots[:id]
}

// Commit flushes every dirty account to the store in one batch and drops all
// snapshots.
func (s *State) Commit() error {
	batch := s.db.NewBatch()
	if err := s.CommitTo(batch); err != nil {
		return err
	}
	return batch.Write()
}

// CommitTo queues every dirty account into batch and drops all snapshots. The
// caller writes the batch.
func (s *State) CommitTo(batch vaultdb.Batch) error {
	for addr := range s.dirty {
		acc, ok := s.accounts[addr]
		if !ok {
			// Loaded only after a reverted snapshot; the store is current.
			continue
		}
		if acc == nil {
			if err := batch.Delete(accountKey(addr)); err != nil {
				return err
			}
			continue
		}
		if err := batch.Put(accountKey(addr), acc.encode()); err != nil {
			return err
		}
	}
	s.dirty = make(map[common.Address]struct{})
	s.snapshots = nil
	return nil
}
