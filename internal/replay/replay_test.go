package replay

import (
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	dto "github.com/prometheus/client_model/go"

	"fundingScope/internal/contracts"
	"fundingScope/internal/decoder"
	"fundingScope/internal/metrics"
	"fundingScope/internal/model"
)

var (
	fundingAddr  = common.HexToAddress("0x1000000000000000000000000000000000000004")
	solvencyAddr = common.HexToAddress("0x1000000000000000000000000000000000000002")
	outsideAddr  = common.HexToAddress("0x9000000000000000000000000000000000000009")
)

type fakeChain struct {
	latest     uint64
	logs       []types.Log
	receipts   map[common.Hash]*types.Receipt
	txs        map[common.Hash]*types.Transaction
	timestamps map[uint64]uint64

	mu           sync.Mutex
	filterCalls  int
	filterErrors int
}

func (f *fakeChain) LatestBlockNumber(context.Context) (uint64, error) {
	return f.latest, nil
}

func (f *fakeChain) BlockTimestamp(_ context.Context, number uint64) (uint64, error) {
	return f.timestamps[number], nil
}

func (f *fakeChain) FilterLogs(_ context.Context, fromBlock, toBlock uint64, _ []common.Address) ([]types.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filterCalls++
	if f.filterErrors > 0 {
		f.filterErrors--
		return nil, errors.New("rpc unavailable")
	}
	out := make([]types.Log, 0)
	for _, log := range f.logs {
		if log.BlockNumber >= fromBlock && log.BlockNumber <= toBlock {
			out = append(out, log)
		}
	}
	return out, nil
}

func (f *fakeChain) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	receipt, ok := f.receipts[hash]
	if !ok {
		return nil, errors.New("receipt not found")
	}
	return receipt, nil
}

func (f *fakeChain) TransactionByHash(_ context.Context, hash common.Hash) (*types.Transaction, error) {
	tx, ok := f.txs[hash]
	if !ok {
		return nil, errors.New("transaction not found")
	}
	return tx, nil
}

type recordingSink struct {
	steps []model.EnrichedStep
}

func (r *recordingSink) PutSteps(_ context.Context, steps []model.EnrichedStep) error {
	r.steps = append(r.steps, steps...)
	return nil
}

func testRegistry(t *testing.T) *contracts.Registry {
	t.Helper()
	registry, err := contracts.NewRegistry([]contracts.Spec{
		{Name: string(model.TokenizedFundingEngine), Address: fundingAddr.Hex()},
		{Name: string(model.SolvencyConsumer), Address: solvencyAddr.Hex()},
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return registry
}

type abiHandle struct {
	t      *testing.T
	parsed *abi.ABI
}

func (h *abiHandle) pack(method string, args ...interface{}) []byte {
	h.t.Helper()
	input, err := h.parsed.Pack(method, args...)
	if err != nil {
		h.t.Fatalf("pack %s: %v", method, err)
	}
	return input
}

func embedded(t *testing.T, name model.ContractName) *abiHandle {
	t.Helper()
	parsed, err := contracts.EmbeddedABI(name)
	if err != nil {
		t.Fatalf("embedded abi: %v", err)
	}
	return &abiHandle{t: t, parsed: parsed}
}

func ether(whole int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(whole), big.NewInt(1_000_000_000_000_000_000))
}

func roundCreatedLog(t *testing.T, txHash common.Hash, block uint64, index uint, projectID, roundID int64, target *big.Int) types.Log {
	t.Helper()
	funding := embedded(t, model.TokenizedFundingEngine)
	event := funding.parsed.Events["FundingRoundCreated"]
	data, err := event.Inputs.NonIndexed().Pack(big.NewInt(roundID), target)
	if err != nil {
		t.Fatalf("pack event: %v", err)
	}
	return types.Log{
		Address:     fundingAddr,
		Topics:      []common.Hash{event.ID, common.BigToHash(big.NewInt(projectID))},
		Data:        data,
		BlockNumber: block,
		TxHash:      txHash,
		Index:       index,
	}
}

func unknownLog(txHash common.Hash, block uint64, index uint) types.Log {
	return types.Log{
		Address:     outsideAddr,
		Topics:      []common.Hash{common.HexToHash("0xdeadbeef")},
		BlockNumber: block,
		TxHash:      txHash,
		Index:       index,
	}
}

func TestReplayTransactionsResolvesFunction(t *testing.T) {
	funding := embedded(t, model.TokenizedFundingEngine)
	input := funding.pack("createFundingRound", big.NewInt(7), ether(10), []uint16{5000, 5000})

	txA := common.HexToHash("0xaa")
	txB := common.HexToHash("0xbb")
	logA := roundCreatedLog(t, txA, 100, 0, 7, 1, ether(10))

	chain := &fakeChain{
		receipts: map[common.Hash]*types.Receipt{
			txA: {Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(100), Logs: []*types.Log{&logA}},
			txB: {Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(101)},
		},
		txs: map[common.Hash]*types.Transaction{
			txA: types.NewTx(&types.LegacyTx{To: &fundingAddr, Data: input}),
			txB: types.NewTx(&types.LegacyTx{To: &outsideAddr}),
		},
		timestamps: map[uint64]uint64{100: 1_700_000_000, 101: 1_700_000_012},
	}

	replayer := NewReplayer(Options{ResolveFunctions: true, Concurrency: 2}, chain, testRegistry(t), decoder.DefaultHeroSet(), nil)
	steps, err := replayer.ReplayTransactions(context.Background(), []common.Hash{txA, txB})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}

	first := steps[0]
	if first.Hash != txA.Hex() {
		t.Fatalf("expected first step for %s, got %s", txA.Hex(), first.Hash)
	}
	if first.SourceContract != model.TokenizedFundingEngine || first.Fn != "createFundingRound" {
		t.Fatalf("unexpected source: %s.%s", first.SourceContract, first.Fn)
	}
	if first.Step != "Funding Engine.createFundingRound" {
		t.Fatalf("unexpected label: %s", first.Step)
	}
	if first.Timestamp != 1_700_000_000 || first.BlockNumber != 100 {
		t.Fatalf("unexpected block info: %d %d", first.BlockNumber, first.Timestamp)
	}
	if len(first.Events) != 1 || first.Events[0].Event != "FundingRoundCreated" || !first.Events[0].IsHero {
		t.Fatalf("unexpected events: %+v", first.Events)
	}
	if got, _ := first.Events[0].Args.Get("targetAmount"); got != "10 ETH" {
		t.Fatalf("unexpected targetAmount: %q", got)
	}

	second := steps[1]
	if len(second.Events) != 0 {
		t.Fatalf("expected no events for reverted tx, got %d", len(second.Events))
	}
	if second.SourceContract != "" || second.Fn != "" {
		t.Fatalf("expected unresolved source, got %s.%s", second.SourceContract, second.Fn)
	}
	if second.Data["status"] != "reverted" {
		t.Fatalf("expected reverted status, got %v", second.Data)
	}
}

func TestReplayTransactionsFailsOnMissingReceipt(t *testing.T) {
	chain := &fakeChain{receipts: map[common.Hash]*types.Receipt{}}
	replayer := NewReplayer(Options{MaxRetries: 1, RetryBackoff: time.Millisecond}, chain, testRegistry(t), decoder.DefaultHeroSet(), nil)
	if _, err := replayer.ReplayTransactions(context.Background(), []common.Hash{common.HexToHash("0x01")}); err == nil {
		t.Fatalf("expected error for missing receipt")
	}
}

func TestBuildStepFallsBackToEventSource(t *testing.T) {
	tx := common.HexToHash("0xcc")
	log := roundCreatedLog(t, tx, 0, 0, 1, 2, big.NewInt(500))

	replayer := NewReplayer(Options{InferHooks: true}, &fakeChain{}, testRegistry(t), decoder.DefaultHeroSet(), nil)
	built, err := replayer.BuildStep(context.Background(), tx, 0, []model.LogRecord{buildLogRecord(log)})
	if err != nil {
		t.Fatalf("build step: %v", err)
	}
	if built.SourceContract != model.TokenizedFundingEngine {
		t.Fatalf("expected source from events, got %s", built.SourceContract)
	}
	if built.Step != "Funding Engine" {
		t.Fatalf("unexpected label: %s", built.Step)
	}
	if built.CrossContractHook != nil {
		t.Fatalf("expected no hook for single-contract step, got %+v", built.CrossContractHook)
	}
	if built.Timestamp != 0 {
		t.Fatalf("expected no timestamp lookup for block 0, got %d", built.Timestamp)
	}
}

func TestRunnerWritesStepsAndCheckpoint(t *testing.T) {
	txA := common.HexToHash("0xa1")
	txB := common.HexToHash("0xb2")
	txC := common.HexToHash("0xc3")

	logA := roundCreatedLog(t, txA, 10, 0, 1, 1, ether(2))
	logB := unknownLog(txB, 11, 0)
	logC := roundCreatedLog(t, txC, 12, 3, 1, 2, ether(4))

	chain := &fakeChain{
		latest:       12,
		logs:         []types.Log{logA, logA, logB, logC},
		timestamps:   map[uint64]uint64{10: 1000, 12: 1024},
		filterErrors: 1,
	}

	dir := t.TempDir()
	checkpointPath := filepath.Join(dir, "checkpoint.json")
	sink := &recordingSink{}

	replayer := NewReplayer(Options{MaxRetries: 2, RetryBackoff: time.Millisecond}, chain, testRegistry(t), decoder.DefaultHeroSet(), nil)
	runner := NewRunner(RunConfig{
		FromBlock:         10,
		BatchSize:         2,
		CheckpointPath:    checkpointPath,
		CheckpointEnabled: true,
	}, replayer, sink, nil)

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(sink.steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(sink.steps))
	}
	if sink.steps[0].Hash != txA.Hex() || sink.steps[1].Hash != txC.Hex() {
		t.Fatalf("unexpected step order: %s %s", sink.steps[0].Hash, sink.steps[1].Hash)
	}
	if len(sink.steps[0].Events) != 1 {
		t.Fatalf("expected duplicate log to be dropped, got %d events", len(sink.steps[0].Events))
	}
	if sink.steps[1].Timestamp != 1024 {
		t.Fatalf("unexpected timestamp: %d", sink.steps[1].Timestamp)
	}
	if chain.filterCalls != 3 {
		t.Fatalf("expected 3 filter calls with one retry, got %d", chain.filterCalls)
	}

	cp, ok, err := NewCheckpointStore(checkpointPath, true).Load()
	if err != nil || !ok {
		t.Fatalf("load checkpoint: ok=%v err=%v", ok, err)
	}
	if cp.LastProcessedBlock != 12 || cp.StepsWritten != 2 {
		t.Fatalf("unexpected checkpoint: %+v", cp)
	}

	// A second run resumes past the checkpoint and writes nothing.
	again := NewRunner(RunConfig{FromBlock: 10, BatchSize: 2, CheckpointPath: checkpointPath, CheckpointEnabled: true}, replayer, sink, nil)
	if err := again.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(sink.steps) != 2 {
		t.Fatalf("expected no new steps, got %d", len(sink.steps))
	}
}

func TestRunnerValidatesConfig(t *testing.T) {
	replayer := NewReplayer(Options{}, &fakeChain{}, testRegistry(t), decoder.DefaultHeroSet(), nil)

	if err := NewRunner(RunConfig{BatchSize: 0}, replayer, &recordingSink{}, nil).Run(context.Background()); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
	if err := NewRunner(RunConfig{BatchSize: 10}, replayer, nil, nil).Run(context.Background()); err == nil {
		t.Fatalf("expected error for missing sink")
	}
}

func TestWithRetry(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), "test", 2, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("expected success on third call, got calls=%d err=%v", calls, err)
	}

	calls = 0
	err = withRetry(context.Background(), "test", 1, time.Millisecond, func(context.Context) error {
		calls++
		return errors.New("permanent")
	})
	if err == nil || calls != 2 {
		t.Fatalf("expected failure after 2 calls, got calls=%d err=%v", calls, err)
	}
}

func TestCheckpointStoreDisabled(t *testing.T) {
	store := NewCheckpointStore("", true)
	if err := store.Save(Checkpoint{LastProcessedBlock: 5}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok, err := store.Load(); ok || err != nil {
		t.Fatalf("expected disabled store to load nothing, ok=%v err=%v", ok, err)
	}
}

func TestCheckpointResumeAndAdvance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "checkpoint.json")
	store := NewCheckpointStore(path, true)

	cursor := Checkpoint{}.Advance(20, "0xaa", 3)
	cursor = cursor.Advance(30, "", 0)
	if cursor.LastProcessedBlock != 30 || cursor.LastTxHash != "0xaa" || cursor.StepsWritten != 3 {
		t.Fatalf("unexpected cursor: %+v", cursor)
	}
	if err := store.Save(cursor); err != nil {
		t.Fatalf("save: %v", err)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "checkpoint.json" {
		t.Fatalf("expected only the checkpoint file, got %d entries", len(entries))
	}

	cp, ok, err := store.Load()
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if cp.StepsWritten != 3 || cp.UpdatedAt == "" {
		t.Fatalf("unexpected loaded checkpoint: %+v", cp)
	}

	if next, resumed := cp.ResumeFrom(25); !resumed || next != 31 {
		t.Fatalf("expected resume at 31, got %d resumed=%v", next, resumed)
	}
	if next, resumed := cp.ResumeFrom(40); resumed || next != 40 {
		t.Fatalf("expected a checkpoint behind the start to be ignored, got %d resumed=%v", next, resumed)
	}
}

func TestStepsFromRecords(t *testing.T) {
	solvency := embedded(t, model.SolvencyConsumer)
	alert := solvency.parsed.Events["RiskAlertTriggered"]
	alertData, err := alert.Inputs.NonIndexed().Pack(uint8(3), big.NewInt(12), "reserve deficit")
	if err != nil {
		t.Fatalf("pack alert: %v", err)
	}

	txA := common.HexToHash("0xd1")
	txB := common.HexToHash("0xd2")
	alertLog := types.Log{
		Address:     solvencyAddr,
		Topics:      []common.Hash{alert.ID, common.BigToHash(big.NewInt(1))},
		Data:        alertData,
		BlockNumber: 40,
		TxHash:      txA,
		Index:       0,
	}

	records := []model.LogRecord{
		buildLogRecord(alertLog),
		buildLogRecord(roundCreatedLog(t, txA, 40, 1, 1, 9, ether(3))),
		buildLogRecord(unknownLog(txB, 41, 0)),
	}
	records[0].Timestamp = 5000
	records[1].Timestamp = 5000

	dec := decoder.NewDecoder(testRegistry(t).Entries(), decoder.DefaultHeroSet())
	writtenBefore := stepsWritten(t)
	steps := StepsFromRecords(dec, records, true)
	if written := stepsWritten(t) - writtenBefore; written != 0 {
		t.Fatalf("building steps must not count them as written, got %v", written)
	}
	if len(steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(steps))
	}

	built := steps[0]
	if built.SourceContract != model.SolvencyConsumer || built.Step != "Solvency Oracle" {
		t.Fatalf("unexpected source: %s %q", built.SourceContract, built.Step)
	}
	if built.Timestamp != 5000 || built.BlockNumber != 40 {
		t.Fatalf("unexpected block info: %d %d", built.BlockNumber, built.Timestamp)
	}
	if len(built.Events) != 2 {
		t.Fatalf("unexpected events: %+v", built.Events)
	}
	if risk, _ := built.Events[0].Args.Get("riskLevel"); risk != "CRITICAL" {
		t.Fatalf("unexpected riskLevel: %q", risk)
	}
	hook := built.CrossContractHook
	if hook == nil || hook.To != model.TokenizedFundingEngine || hook.Reason != "FundingRoundCreated emitted by Funding Engine" {
		t.Fatalf("unexpected hook: %+v", hook)
	}
}

func stepsWritten(t *testing.T) float64 {
	t.Helper()
	var m dto.Metric
	if err := metrics.StepsWritten.Write(&m); err != nil {
		t.Fatalf("read steps written: %v", err)
	}
	return m.GetCounter().GetValue()
}
