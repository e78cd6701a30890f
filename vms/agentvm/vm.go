// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package agentvm implements a VM for autonomous agents: reputation-weighted
// staking with reward accrual, and flash loans gated on that reputation.
//
// All state transitions happen in ProcessBlock and BuildBlock. The VM starts
// no goroutines of its own.
package agentvm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/rpc/v2"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"

	"github.com/luxfi/agentvm/utils/json"
	"github.com/luxfi/agentvm/utils/timer/mockable"
	"github.com/luxfi/agentvm/utils/wrappers"
	"github.com/luxfi/agentvm/vms/agentvm/api"
	"github.com/luxfi/agentvm/vms/agentvm/config"
	"github.com/luxfi/agentvm/vms/agentvm/flashloan"
	"github.com/luxfi/agentvm/vms/agentvm/metrics"
	"github.com/luxfi/agentvm/vms/agentvm/state"
	"github.com/luxfi/agentvm/vms/agentvm/token"
	"github.com/luxfi/agentvm/vms/agentvm/txs"
	"github.com/luxfi/agentvm/vms/agentvm/txs/executor"
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
)

var (
	_ api.VM = (*VM)(nil)

	errShutdown              = errors.New("VM is shut down")
	errTimestampTooEarly     = errors.New("block timestamp precedes chain time")
	errTooManyTxs            = errors.New("block has too many txs")
	errDuplicateTx           = errors.New("tx already issued")
	errVaultsWithoutProtocol = errors.New("genesis vaults require a flash loan protocol")
	errFlashLoansHalted      = errors.New("flash loans halted")

	// ErrNoPendingTxs is returned by BuildBlock when the mempool is empty.
	ErrNoPendingTxs = errors.New("no pending txs")

	metadataPrefix = []byte("metadata")
	initializedKey = []byte("initialized")
	heightKey      = []byte("height")
)

// TxResult is the outcome of one tx in a block.
type TxResult struct {
	TxID   ids.ID
	Status txs.Status
	Err    error
}

// BlockResult is the deterministic result of processing a block.
type BlockResult struct {
	Height    uint64
	Timestamp time.Time
	Txs       []TxResult
}

type blockTx struct {
	tx *txs.Tx
	// parseErr is set if tx could not be parsed.
	parseErr error
}

type txStatus struct {
	status txs.Status
	reason string
}

// VM executes blocks of agent txs against a database.
type VM struct {
	config.Config

	log log.Logger

	// lock guards everything below. Block processing takes it exclusively;
	// API reads share it.
	lock sync.RWMutex

	baseDB     database.Database
	db         *versiondb.Database
	metadataDB database.Database

	// Used to stamp blocks built from the mempool
	clock mockable.Clock

	backend *executor.Backend
	metrics metrics.Metrics

	mempool  []*txs.Tx
	issued   map[ids.ID]struct{}
	txStatus *lru.Cache

	// Limits how often rejected txs are logged
	rejectedTxLogs *rate.Limiter

	height   uint64
	shutdown bool
}

func New(cfg config.Config, logger log.Logger) *VM {
	return &VM{
		Config: cfg,
		log:    logger,
	}
}

// Initialize opens the chain stored in db, writing genesisBytes first if the
// chain is new. configBytes, when given, replace the VM's config; fields they
// leave unset take their default values.
func (vm *VM) Initialize(
	_ context.Context,
	db database.Database,
	genesisBytes []byte,
	configBytes []byte,
	registerer metric.Registerer,
) error {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	if len(configBytes) > 0 {
		cfg, err := config.Parse(configBytes)
		if err != nil {
			return err
		}
		vm.Config = cfg
	}
	if err := vm.Config.Verify(); err != nil {
		return err
	}

	vm.baseDB = db
	vm.db = versiondb.New(db)
	vm.metadataDB = prefixdb.New(metadataPrefix, vm.db)
	vm.backend = executor.NewBackend(&vm.Config, token.StateLedger{}, vm.log)
	vm.issued = make(map[ids.ID]struct{})
	vm.rejectedTxLogs = rate.NewLimiter(
		rate.Limit(float64(vm.RejectedTxLogsPerMinute)/time.Minute.Seconds()),
		int(vm.RejectedTxLogsPerMinute),
	)

	var err error
	vm.metrics, err = metrics.New(vm.MetricsNamespace, registerer)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	vm.txStatus, err = lru.New(vm.TxStatusCacheSize)
	if err != nil {
		return err
	}

	initialized, err := vm.metadataDB.Has(initializedKey)
	if err != nil {
		return err
	}
	if !initialized {
		if err := vm.initGenesis(genesisBytes); err != nil {
			vm.db.Abort()
			return err
		}
	} else {
		vm.height, err = database.GetUInt64(vm.metadataDB, heightKey)
		if err != nil {
			return fmt.Errorf("failed to load height: %w", err)
		}
	}
	if err := vm.db.Commit(); err != nil {
		return err
	}

	chain, err := state.New(vm.db)
	if err != nil {
		return err
	}
	vm.log.Info("agent VM initialized",
		log.Uint64("height", vm.height),
		log.Stringer("timestamp", chain.GetTimestamp()),
	)
	return nil
}

func (vm *VM) initGenesis(genesisBytes []byte) error {
	genesis := &Genesis{}
	if len(genesisBytes) > 0 {
		var err error
		genesis, err = ParseGenesis(genesisBytes)
		if err != nil {
			return err
		}
	}

	chain, err := state.New(vm.db)
	if err != nil {
		return err
	}
	if err := genesis.Apply(vm.backend, chain); err != nil {
		return fmt.Errorf("failed to apply genesis: %w", err)
	}
	return errors.Join(
		vm.metadataDB.Put(initializedKey, nil),
		database.PutUInt64(vm.metadataDB, heightKey, 0),
	)
}

// ProcessBlock executes txBytes in order at timestamp. A tx that fails is
// rejected and leaves no trace in state; it does not fail the block.
func (vm *VM) ProcessBlock(_ context.Context, timestamp time.Time, txBytes [][]byte) (*BlockResult, error) {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	if vm.shutdown {
		return nil, errShutdown
	}
	if len(txBytes) > int(vm.MaxTxsPerBlock) {
		return nil, fmt.Errorf("%w: %d > %d", errTooManyTxs, len(txBytes), vm.MaxTxsPerBlock)
	}

	blockTxs := make([]blockTx, len(txBytes))
	for i, b := range txBytes {
		tx, err := txs.Parse(b)
		if err != nil {
			// Rejected in place so that results line up with txBytes.
			tx = &txs.Tx{}
			tx.SetBytes(b)
		}
		blockTxs[i] = blockTx{tx: tx, parseErr: err}
	}
	return vm.applyBlock(timestamp, blockTxs)
}

// BuildBlock executes up to MaxTxsPerBlock txs from the mempool at the
// current time.
func (vm *VM) BuildBlock(context.Context) (*BlockResult, error) {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	if vm.shutdown {
		return nil, errShutdown
	}
	if len(vm.mempool) == 0 {
		return nil, ErrNoPendingTxs
	}

	n := min(len(vm.mempool), int(vm.MaxTxsPerBlock))
	blockTxs := make([]blockTx, n)
	for i, tx := range vm.mempool[:n] {
		blockTxs[i] = blockTx{tx: tx}
		delete(vm.issued, tx.ID())
	}
	vm.mempool = vm.mempool[n:]

	chain, err := state.New(vm.db)
	if err != nil {
		return nil, err
	}
	timestamp := vm.clock.Time()
	if chainTime := chain.GetTimestamp(); timestamp.Before(chainTime) {
		timestamp = chainTime
	}
	return vm.applyBlock(timestamp, blockTxs)
}

func (vm *VM) applyBlock(timestamp time.Time, blockTxs []blockTx) (*BlockResult, error) {
	start := time.Now()

	chain, err := state.New(vm.db)
	if err != nil {
		return nil, err
	}
	if timestamp.Unix() < chain.GetTimestamp().Unix() {
		return nil, fmt.Errorf("%w: %s < %s", errTimestampTooEarly, timestamp, chain.GetTimestamp())
	}
	if err := chain.SetTimestamp(timestamp); err != nil {
		vm.db.Abort()
		return nil, err
	}

	result := &BlockResult{
		Height:    vm.height + 1,
		Timestamp: chain.GetTimestamp(),
		Txs:       make([]TxResult, len(blockTxs)),
	}
	for i, btx := range blockTxs {
		result.Txs[i] = vm.executeTx(btx)
	}

	if err := database.PutUInt64(vm.metadataDB, heightKey, result.Height); err != nil {
		vm.db.Abort()
		return nil, err
	}
	if err := vm.db.Commit(); err != nil {
		return nil, err
	}
	vm.height = result.Height
	vm.metrics.MarkBlock(result.Timestamp, len(blockTxs), time.Since(start))

	vm.log.Debug("block processed",
		log.Uint64("height", result.Height),
		log.Stringer("timestamp", result.Timestamp),
		log.Int("numTxs", len(blockTxs)),
	)
	return result, nil
}

func (vm *VM) executeTx(btx blockTx) TxResult {
	tx, txID, err := btx.tx, btx.tx.ID(), btx.parseErr
	if err == nil {
		err = executor.Execute(vm.backend, vm.db, tx)
	}
	if err != nil {
		vm.txStatus.Add(txID, txStatus{status: txs.Rejected, reason: err.Error()})
		vm.metrics.MarkRejected(tx)
		if vm.rejectedTxLogs.Allow() {
			vm.log.Warn("tx rejected",
				log.Stringer("txID", txID),
				log.Err(err),
			)
		}
		return TxResult{TxID: txID, Status: txs.Rejected, Err: err}
	}

	vm.txStatus.Add(txID, txStatus{status: txs.Accepted})
	if err := vm.metrics.MarkAccepted(tx); err != nil {
		vm.log.Warn("failed to record tx metrics",
			log.Stringer("txID", txID),
			log.Err(err),
		)
	}
	return TxResult{TxID: txID, Status: txs.Accepted}
}

// IssueTx queues tx for the next built block.
func (vm *VM) IssueTx(tx *txs.Tx) (ids.ID, error) {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	if vm.shutdown {
		return ids.Empty, errShutdown
	}
	if err := tx.SyntacticVerify(int(vm.MaxInstructionsPerTx)); err != nil {
		return ids.Empty, err
	}
	txID := tx.ID()
	if _, ok := vm.issued[txID]; ok {
		return ids.Empty, fmt.Errorf("%w: %s", errDuplicateTx, txID)
	}

	vm.mempool = append(vm.mempool, tx)
	vm.issued[txID] = struct{}{}
	vm.txStatus.Add(txID, txStatus{status: txs.Processing})
	return txID, nil
}

// GetTxStatus returns the status of a recently seen tx and, for rejected
// txs, why it was rejected.
func (vm *VM) GetTxStatus(txID ids.ID) (txs.Status, string) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if vm.txStatus == nil {
		return txs.Unknown, ""
	}
	v, ok := vm.txStatus.Get(txID)
	if !ok {
		return txs.Unknown, ""
	}
	status := v.(txStatus)
	return status.status, status.reason
}

// View runs f against the last accepted state.
func (vm *VM) View(f func(chain state.Chain, backend *executor.Backend) error) error {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if vm.shutdown {
		return errShutdown
	}
	chain, err := state.New(vm.db)
	if err != nil {
		return err
	}
	return f(chain, vm.backend)
}

// Height is the number of blocks processed since genesis.
func (vm *VM) Height() uint64 {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	return vm.height
}

// HealthCheck reports chain progress and fails while flash loans are halted
// by low protocol stability.
func (vm *VM) HealthCheck(context.Context) (interface{}, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if vm.shutdown {
		return nil, errShutdown
	}
	chain, err := state.New(vm.db)
	if err != nil {
		return nil, err
	}
	details := map[string]interface{}{
		"height":      vm.height,
		"timestamp":   chain.GetTimestamp().Unix(),
		"mempoolSize": len(vm.mempool),
	}

	protocol, err := vm.backend.FlashLoan.GetProtocol(chain)
	switch {
	case errors.Is(err, flashloan.ErrProtocolNotFound):
		return details, nil
	case err != nil:
		return details, err
	}
	details["stability"] = protocol.Stability
	details["entropy"] = protocol.Entropy
	if protocol.Stability < vm.FlashLoan.MinStability {
		return details, fmt.Errorf("%w: stability %d < %d", errFlashLoansHalted, protocol.Stability, vm.FlashLoan.MinStability)
	}
	return details, nil
}

// CreateHandlers returns the JSON-RPC handler of the agentvm service.
func (vm *VM) CreateHandlers(context.Context) (map[string]http.Handler, error) {
	codec := json.NewCodec()

	server := rpc.NewServer()
	server.RegisterCodec(codec, "application/json")
	server.RegisterCodec(codec, "application/json;charset=UTF-8")
	server.RegisterInterceptFunc(vm.metrics.InterceptRequest)
	server.RegisterAfterFunc(vm.metrics.AfterRequest)
	// name this service "agentvm"
	if err := server.RegisterService(api.NewService(vm, vm.log), "agentvm"); err != nil {
		return nil, err
	}
	return map[string]http.Handler{
		"": server,
	}, nil
}

// Shutdown closes the databases. Later calls fail with errShutdown.
func (vm *VM) Shutdown(context.Context) error {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	if vm.shutdown || vm.db == nil {
		vm.shutdown = true
		return nil
	}
	vm.shutdown = true

	vm.log.Info("shutting down agent VM",
		log.Uint64("height", vm.height),
		log.Int("droppedTxs", len(vm.mempool)),
	)
	errs := wrappers.Errs{}
	errs.Add(
		vm.db.Close(),
		vm.baseDB.Close(),
	)
	return errs.Err
}
