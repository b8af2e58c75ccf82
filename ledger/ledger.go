// Package ledger is a single-node host runtime for programs written against
// package program. It keeps accounts in a vaultdb store, charges per-signature
// fees, verifies precompile instructions up front and executes each batch
// atomically.
package ledger

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/holiman/uint256"
	"github.com/tos-network/r1vault/common"
	"github.com/tos-network/r1vault/log"
	"github.com/tos-network/r1vault/params"
	"github.com/tos-network/r1vault/program"
	"github.com/tos-network/r1vault/vaultdb"
	"github.com/tos-network/r1vault/vaultdb/memorydb"
	"golang.org/x/sync/errgroup"
)

var sequenceKey = []byte("meta/sequence")

// builtinIDs are the non-program accounts every ledger starts with.
var builtinIDs = []common.Address{
	params.SystemProgramID,
	params.InstructionsSysvarID,
	params.ClockSysvarID,
	params.RentSysvarID,
}

// Config tunes a ledger.
type Config struct {
	Runtime             *params.RuntimeConfig `toml:",omitempty"`
	DerivationCacheSize int                   `toml:",omitempty"`
}

// DefaultConfig charges production fees and caches 1024 derivations.
var DefaultConfig = Config{
	Runtime:             params.DefaultRuntimeConfig,
	DerivationCacheSize: defaultDerivationCacheSize,
}

// Ledger executes batches one at a time.
type Ledger struct {
	mu sync.Mutex

	config   Config
	db       vaultdb.KeyValueStore
	state    *State
	registry *program.Registry
	deriver  *Deriver
	clock    program.Clock
	seq      uint64

	log log.Logger
}

// New opens a ledger over db. A nil db yields an in-memory ledger and a nil
// registry selects program.DefaultRegistry.
func New(cfg *Config, db vaultdb.KeyValueStore, reg *program.Registry) (*Ledger, error) {
	config := DefaultConfig
	if cfg != nil {
		config = *cfg
	}
	if config.Runtime == nil {
		config.Runtime = params.DefaultRuntimeConfig
	}
	if db == nil {
		db = memorydb.New()
	}
	if reg == nil {
		reg = program.DefaultRegistry
	}
	l := &Ledger{
		config:   config,
		db:       db,
		state:    NewState(db),
		registry: reg,
		deriver:  NewDeriver(config.DerivationCacheSize),
		clock:    SystemClock{},
		log:      log.New("module", "ledger"),
	}
	enc, err := db.Get(sequenceKey)
	switch {
	case errors.Is(err, vaultdb.ErrNotFound):
	case err != nil:
		return nil, err
	case len(enc) != 8:
		return nil, fmt.Errorf("ledger: corrupt sequence entry (%d bytes)", len(enc))
	default:
		l.seq = binary.LittleEndian.Uint64(enc)
	}
	if err := l.seedBuiltins(); err != nil {
		return nil, err
	}
	l.log.Debug("Opened ledger", "sequence", l.seq, "runtime", config.Runtime)
	return l, nil
}

// seedBuiltins creates the executable accounts of builtins and registered
// programs.
func (l *Ledger) seedBuiltins() error {
	ids := append(append([]common.Address{}, builtinIDs...), l.registry.Programs()...)
	for _, id := range ids {
		ok, err := l.state.Exist(id)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		l.state.SetAccount(id, &Account{Lamports: 1, Owner: params.NativeLoaderID, Executable: true})
	}
	return l.state.Commit()
}

// RegisterProgram installs p on the ledger's registry and creates its
// executable account.
func (l *Ledger) RegisterProgram(p program.Program) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.registry.Register(p); err != nil {
		return err
	}
	return l.seedBuiltins()
}

// SetClock replaces the ledger clock.
func (l *Ledger) SetClock(c program.Clock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clock = c
}

// Deriver returns the ledger's address deriver.
func (l *Ledger) Deriver() *Deriver { return l.deriver }

// Registry returns the programs the ledger dispatches to.
func (l *Ledger) Registry() *program.Registry { return l.registry }

// Sequence returns the number of batches executed so far.
func (l *Ledger) Sequence() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}

// Account returns a copy of the account at addr.
func (l *Ledger) Account(addr common.Address) (*Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Account(addr)
}

// Balance returns the lamports held by addr.
func (l *Ledger) Balance(addr common.Address) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Lamports(addr)
}

// Airdrop credits lamports to a system account out of thin air.
func (l *Ledger) Airdrop(addr common.Address, lamports uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, err := l.state.Account(addr)
	if err != nil {
		return err
	}
	if acc.Owner != params.SystemProgramID {
		return fmt.Errorf("%w: %s owned by %s", program.ErrInvalidAccountOwner, addr, acc.Owner)
	}
	if acc.Lamports > math.MaxUint64-lamports {
		return fmt.Errorf("ledger: airdrop overflows balance of %s", addr)
	}
	acc.Lamports += lamports
	l.state.SetAccount(addr, acc)
	l.log.Debug("Airdropped lamports", "account", addr, "lamports", lamports, "balance", acc.Lamports)
	return l.state.Commit()
}

// Receipt loads the receipt of an executed batch.
func (l *Ledger) Receipt(hash common.Hash) (*Receipt, error) {
	enc, err := l.db.Get(receiptKey(hash))
	if errors.Is(err, vaultdb.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrReceiptNotFound, hash.Hex())
	}
	if err != nil {
		return nil, err
	}
	return decodeReceipt(enc)
}

// Execute runs a batch atomically. Batches that fail validation or cannot pay
// their fee return an error and no receipt. Otherwise the fee is kept, a
// receipt is stored and the execution error, if any, is returned with it.
func (l *Ledger) Execute(b *Batch) (*Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := b.Validate(l.registry); err != nil {
		return nil, err
	}
	fee, err := l.config.Runtime.Fee(b.SignatureCount(l.registry))
	if err != nil {
		return nil, err
	}
	payer, err := l.state.Account(b.FeePayer)
	if err != nil {
		return nil, err
	}
	if payer.Owner != params.SystemProgramID || len(payer.Data) != 0 || payer.Lamports < fee {
		return nil, fmt.Errorf("%w: %s has %d, fee is %d", ErrInsufficientFeeFunds, b.FeePayer, payer.Lamports, fee)
	}
	payer.Lamports -= fee
	l.state.SetAccount(b.FeePayer, payer)

	receipt := &Receipt{Hash: b.Hash(l.seq), Sequence: l.seq, Fee: fee}
	logger := l.log.New("batch", receipt.Hash)
	logger.Debug("Executing batch", "instructions", len(b.Instructions), "signatures", b.SignatureCount(l.registry), "fee", fee)

	execErr := l.verifyPrecompiles(b)
	if execErr == nil {
		execErr = l.run(b, receipt, logger)
	}
	if execErr != nil {
		receipt.Err = execErr.Error()
		logger.Warn("Batch failed", "err", execErr)
	} else {
		receipt.Success = true
	}
	if err := l.finalize(receipt); err != nil {
		return nil, err
	}
	return receipt, execErr
}

// verifyPrecompiles checks every precompile instruction concurrently before
// any program runs.
func (l *Ledger) verifyPrecompiles(b *Batch) error {
	var g errgroup.Group
	for i, ix := range b.Instructions {
		p, _ := l.registry.Lookup(ix.ProgramID)
		pc, ok := p.(program.Precompile)
		if !ok {
			continue
		}
		i, data := i, ix.Data
		g.Go(func() error {
			if err := pc.Verify(data); err != nil {
				return fmt.Errorf("instruction %d: %w", i, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (l *Ledger) run(b *Batch, receipt *Receipt, logger log.Logger) error {
	snap := l.state.Snapshot()
	for i := range b.Instructions {
		if err := l.executeInstruction(b, i, receipt, logger); err != nil {
			l.state.RevertToSnapshot(snap)
			return err
		}
	}
	return nil
}

func (l *Ledger) executeInstruction(b *Batch, i int, receipt *Receipt, logger log.Logger) error {
	ix := b.Instructions[i]

	// One view per distinct account; repeated metas share it.
	var (
		infos = make([]*program.AccountInfo, len(ix.Accounts))
		views = make(map[common.Address]*program.AccountInfo)
		order []common.Address
	)
	for j, meta := range ix.Accounts {
		if v, ok := views[meta.Address]; ok {
			v.IsSigner = v.IsSigner || meta.IsSigner
			v.IsWritable = v.IsWritable || (meta.IsWritable && !v.Executable)
			infos[j] = v
			continue
		}
		acc, err := l.state.Account(meta.Address)
		if err != nil {
			return err
		}
		v := &program.AccountInfo{
			Key:        meta.Address,
			Owner:      acc.Owner,
			Lamports:   acc.Lamports,
			Data:       acc.Data,
			Executable: acc.Executable,
			IsSigner:   meta.IsSigner,
			IsWritable: meta.IsWritable && !acc.Executable,
		}
		views[meta.Address] = v
		order = append(order, meta.Address)
		infos[j] = v
	}
	before, err := l.state.TotalLamports(order)
	if err != nil {
		return err
	}

	var logs []string
	plog := logger.New("program", ix.ProgramID)
	plog.SetHandler(log.MultiHandler(
		log.FuncHandler(func(r *log.Record) error {
			logs = append(logs, formatProgramLog(r))
			return nil
		}),
		logger.GetHandler(),
	))
	inv := &invocation{programID: ix.ProgramID, index: i, batch: b, deriver: l.deriver, log: plog}
	ctx := &program.Context{
		ProgramID: ix.ProgramID,
		Accounts:  infos,
		Deriver:   l.deriver,
		Bank:      inv,
		Batch:     inv,
		Clock:     l.clock,
		Rent:      l.config.Runtime,
		Log:       plog,
	}
	err = l.registry.Execute(ctx, ix.Data)
	receipt.Logs = append(receipt.Logs, logs...)
	if err != nil {
		if code, ok := l.registry.ErrorCode(ix.ProgramID, err); ok {
			receipt.Code = &code
		}
		return fmt.Errorf("instruction %d: %w", i, err)
	}

	after := new(uint256.Int)
	for _, addr := range order {
		after.Add(after, uint256.NewInt(views[addr].Lamports))
	}
	if !after.Eq(before) {
		return fmt.Errorf("%w: instruction %d, before %s after %s", ErrLamportsNotConserved, i, before.ToBig(), after.ToBig())
	}
	for _, addr := range order {
		v := views[addr]
		orig, err := l.state.Account(addr)
		if err != nil {
			return err
		}
		if v.Lamports == orig.Lamports && v.Owner == orig.Owner && bytes.Equal(v.Data, orig.Data) {
			continue
		}
		if !v.IsWritable {
			return fmt.Errorf("%w: instruction %d, account %s", ErrReadonlyModified, i, addr)
		}
		l.state.SetAccount(addr, &Account{Lamports: v.Lamports, Owner: v.Owner, Data: v.Data, Executable: orig.Executable})
	}
	return nil
}

// finalize persists state, the receipt and the next sequence number in one
// write.
func (l *Ledger) finalize(receipt *Receipt) error {
	enc, err := receipt.encode()
	if err != nil {
		return err
	}
	batch := l.db.NewBatch()
	if err := l.state.CommitTo(batch); err != nil {
		return err
	}
	var seq [8]byte
	binary.LittleEndian.PutUint64(seq[:], l.seq+1)
	if err := batch.Put(sequenceKey, seq[:]); err != nil {
		return err
	}
	if err := batch.Put(receiptKey(receipt.Hash), enc); err != nil {
		return err
	}
	if err := batch.Write(); err != nil {
		return err
	}
	l.seq++
	return nil
}

// formatProgramLog renders a program log record without the host context.
func formatProgramLog(r *log.Record) string {
	var sb strings.Builder
	sb.WriteString(r.Msg)
	pairs := make([]string, 0, len(r.Ctx)/2)
	for i := 0; i+1 < len(r.Ctx); i += 2 {
		k, ok := r.Ctx[i].(string)
		if !ok {
			continue
		}
		switch k {
		case "module", "batch", "program":
			continue
		}
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, r.Ctx[i+1]))
	}
	sort.Strings(pairs)
	for _, p := range pairs {
		sb.WriteByte(' ')
		sb.WriteString(p)
	}
	return sb.String()
}
