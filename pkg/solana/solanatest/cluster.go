// Package solanatest provides an in memory Solana cluster that implements
// solana.Client, for exercising transaction submission and state reads
// without a validator.
package solanatest

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/profile-client/pkg/solana"
	"github.com/code-payments/profile-client/pkg/solana/computebudget"
)

// RPC method names, as counted by Calls.
const (
	MethodGetAccountInfo       = "getAccountInfo"
	MethodGetBalance           = "getBalance"
	MethodGetBlockHeight       = "getBlockHeight"
	MethodGetLatestBlockhash   = "getLatestBlockhash"
	MethodGetMinimumBalance    = "getMinimumBalanceForRentExemption"
	MethodGetSignatureStatuses = "getSignatureStatuses"
	MethodRequestAirdrop       = "requestAirdrop"
	MethodSendTransaction      = "sendTransaction"
)

const (
	maxProcessingAge = 150

	lamportsPerByteYear    = 3480
	exemptionThresholdYear = 2
	accountStorageOverhead = 128
)

// NeverConfirm keeps landed transactions at the processed commitment.
const NeverConfirm = -1

var (
	systemProgramID = make(ed25519.PublicKey, ed25519.PublicKeySize)
)

var _ solana.Client = (*Cluster)(nil)

type signatureEntry struct {
	err   *solana.TransactionError
	slot  uint64
	polls int
}

type pendingFailure struct {
	err   error
	times int
}

// Cluster is a single node, single fork in memory cluster. All state changes
// land at the processed commitment immediately; confirmation is simulated by
// status polling.
type Cluster struct {
	log *logrus.Entry

	mu sync.Mutex

	accounts    map[string]solana.AccountInfo
	programs    map[string]Program
	blockhashes map[solana.Blockhash]uint64
	signatures  map[solana.Signature]*signatureEntry
	calls       map[string]int
	failures    map[string]*pendingFailure

	blockHeight       uint64
	advancePerPoll    uint64
	blockhashCounter  uint64
	confirmationPolls int
	expireNext        int
	dropNext          int
	now               func() time.Time
}

// NewCluster returns an empty cluster at block height 1, where transactions
// are confirmed on their first status check. Only the compute budget program
// is deployed.
func NewCluster() *Cluster {
	c := &Cluster{
		log:         logrus.StandardLogger().WithField("type", "solana/solanatest/cluster"),
		accounts:    make(map[string]solana.AccountInfo),
		programs:    make(map[string]Program),
		blockhashes: make(map[solana.Blockhash]uint64),
		signatures:  make(map[solana.Signature]*signatureEntry),
		calls:       make(map[string]int),
		failures:    make(map[string]*pendingFailure),
		blockHeight: 1,
		now:         time.Now,
	}
	c.RegisterProgram(computebudget.ProgramKey, ProgramFunc(executeComputeBudget))
	return c
}

// executeComputeBudget accepts well formed budget instructions. Budgets are
// not metered.
func executeComputeBudget(inv *Invocation, ix solana.Instruction) error {
	command, value, err := computebudget.DecodeInstruction(ix.Data)
	if err != nil {
		return errors.New(string(solana.InstructionErrorInvalidInstructionData))
	}

	inv.Log("Program log: compute budget command %d set to %d", command, value)
	return nil
}

// RegisterProgram deploys a program at the given address.
func (c *Cluster) RegisterProgram(id ed25519.PublicKey, program Program) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.programs[string(id)] = program
	c.accounts[string(id)] = solana.AccountInfo{
		Owner:      systemProgramID,
		Lamports:   1,
		Executable: true,
	}
}

// SetAccount writes an account directly, bypassing any program.
func (c *Cluster) SetAccount(address ed25519.PublicKey, info solana.AccountInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.accounts[string(address)] = cloneAccountInfo(info)
}

// Account returns the current account state, if any.
func (c *Cluster) Account(address ed25519.PublicKey) (solana.AccountInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, ok := c.accounts[string(address)]
	return cloneAccountInfo(info), ok
}

// SetClock overrides the clock used for program timestamps.
func (c *Cluster) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = now
}

// SetConfirmationPolls sets how many status checks a landed transaction
// spends at the processed commitment before it is reported confirmed. Use
// NeverConfirm to hold transactions at processed indefinitely.
func (c *Cluster) SetConfirmationPolls(polls int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.confirmationPolls = polls
}

// ExpireNextSubmissions causes the next n transactions to be rejected with
// BlockhashNotFound, regardless of their blockhash.
func (c *Cluster) ExpireNextSubmissions(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expireNext = n
}

// DropNextSubmissions causes the next n transactions to be accepted by the
// RPC node but never land, as happens when a leader drops them.
func (c *Cluster) DropNextSubmissions(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dropNext = n
}

// FailNext makes the next times calls of method fail with err before any
// state is touched.
func (c *Cluster) FailNext(method string, err error, times int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failures[method] = &pendingFailure{err: err, times: times}
}

// AdvanceBlockHeight moves the chain forward, aging out blockhashes.
func (c *Cluster) AdvanceBlockHeight(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.blockHeight += n
}

// AdvanceBlockHeightPerPoll makes every signature status request advance the
// block height by n, so polling clients observe blockhashes aging out.
func (c *Cluster) AdvanceBlockHeightPerPoll(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.advancePerPoll = n
}

// Calls returns the number of times an RPC method was invoked.
func (c *Cluster) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.calls[method]
}

// TotalCalls returns the number of RPC invocations across all methods.
func (c *Cluster) TotalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total int
	for _, count := range c.calls {
		total += count
	}
	return total
}

func (c *Cluster) ResetCalls() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = make(map[string]int)
}

// record counts a call and returns any injected failure. Callers hold mu.
func (c *Cluster) record(method string) error {
	c.calls[method]++

	failure, ok := c.failures[method]
	if !ok {
		return nil
	}

	failure.times--
	if failure.times <= 0 {
		delete(c.failures, method)
	}
	return failure.err
}

func (c *Cluster) GetAccountInfo(address ed25519.PublicKey, _ solana.Commitment) (solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.record(MethodGetAccountInfo); err != nil {
		return solana.AccountInfo{}, err
	}

	info, ok := c.accounts[string(address)]
	if !ok {
		return solana.AccountInfo{}, solana.ErrNoAccountInfo
	}
	return cloneAccountInfo(info), nil
}

func (c *Cluster) GetBalance(address ed25519.PublicKey, _ solana.Commitment) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.record(MethodGetBalance); err != nil {
		return 0, err
	}

	return c.accounts[string(address)].Lamports, nil
}

func (c *Cluster) GetBlockHeight(_ solana.Commitment) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.record(MethodGetBlockHeight); err != nil {
		return 0, err
	}

	return c.blockHeight, nil
}

// GetLatestBlockhash mints a new blockhash on every call.
func (c *Cluster) GetLatestBlockhash(_ solana.Commitment) (solana.LatestBlockhash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.record(MethodGetLatestBlockhash); err != nil {
		return solana.LatestBlockhash{}, err
	}

	c.blockhashCounter++

	var seed [8]byte
	binary.LittleEndian.PutUint64(seed[:], c.blockhashCounter)
	blockhash := solana.Blockhash(sha256.Sum256(seed[:]))

	lastValid := c.blockHeight + maxProcessingAge
	c.blockhashes[blockhash] = lastValid

	return solana.LatestBlockhash{
		Blockhash:            blockhash,
		LastValidBlockHeight: lastValid,
	}, nil
}

func (c *Cluster) GetMinimumBalanceForRentExemption(size uint64) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.record(MethodGetMinimumBalance); err != nil {
		return 0, err
	}

	return rentExemptBalance(size), nil
}

func (c *Cluster) GetSignatureStatus(sig solana.Signature) (*solana.SignatureStatus, error) {
	statuses, err := c.GetSignatureStatuses([]solana.Signature{sig})
	if err != nil {
		return nil, err
	}

	if statuses[0] == nil {
		return nil, solana.ErrSignatureNotFound
	}
	return statuses[0], nil
}

func (c *Cluster) GetSignatureStatuses(sigs []solana.Signature) ([]*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.record(MethodGetSignatureStatuses); err != nil {
		return nil, err
	}

	c.blockHeight += c.advancePerPoll

	statuses := make([]*solana.SignatureStatus, len(sigs))
	for i, sig := range sigs {
		entry, ok := c.signatures[sig]
		if !ok {
			continue
		}

		entry.polls++

		confirmations := 0
		status := "processed"
		if c.confirmationPolls != NeverConfirm && entry.polls > c.confirmationPolls {
			confirmations = 1
			status = "confirmed"
		}

		statuses[i] = &solana.SignatureStatus{
			Slot:               entry.slot,
			ErrorResult:        entry.err,
			Confirmations:      &confirmations,
			ConfirmationStatus: status,
		}
	}

	return statuses, nil
}

func (c *Cluster) RequestAirdrop(address ed25519.PublicKey, lamports uint64, _ solana.Commitment) (solana.Signature, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.record(MethodRequestAirdrop); err != nil {
		return solana.Signature{}, err
	}

	info, ok := c.accounts[string(address)]
	if !ok {
		info = solana.AccountInfo{Owner: systemProgramID}
	}
	info.Lamports += lamports
	c.accounts[string(address)] = info

	var sig solana.Signature
	h := sha256.Sum256(append([]byte(fmt.Sprintf("airdrop:%d:", len(c.signatures))), address...))
	copy(sig[:], h[:])
	c.signatures[sig] = &signatureEntry{slot: c.blockHeight}

	return sig, nil
}

// SubmitTransaction runs the preflight checks a real RPC node performs,
// then executes the transaction atomically against the registered programs.
func (c *Cluster) SubmitTransaction(txn solana.Transaction, opts solana.SubmitOptions) (solana.Signature, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sig := txn.Signature()

	if err := c.record(MethodSendTransaction); err != nil {
		return sig, err
	}

	if err := txn.Verify(); err != nil {
		return sig, solana.NewTransactionError(solana.TransactionErrorSignatureFailure)
	}

	if _, ok := c.signatures[sig]; ok {
		return sig, solana.NewTransactionError(solana.TransactionErrorAlreadyProcessed)
	}

	lastValid, ok := c.blockhashes[txn.Message.RecentBlockhash]
	if c.expireNext > 0 || !ok || lastValid < c.blockHeight {
		if c.expireNext > 0 {
			c.expireNext--
		}
		return sig, solana.NewTransactionError(solana.TransactionErrorBlockhashNotFound)
	}

	if c.dropNext > 0 {
		c.dropNext--
		c.log.WithField("signature", sig.String()).Debug("dropping transaction")
		return sig, nil
	}

	staged, logs, txErr := c.execute(txn)
	if txErr != nil {
		txErr.Logs = logs
		if !opts.SkipPreflight {
			return sig, txErr
		}

		// Without preflight the transaction lands as failed, with no writes applied
		c.signatures[sig] = &signatureEntry{err: txErr, slot: c.blockHeight}
		return sig, nil
	}

	for k, v := range staged {
		c.accounts[k] = v
	}
	c.signatures[sig] = &signatureEntry{slot: c.blockHeight}

	return sig, nil
}

// execute runs every instruction against a copy of the account set. Callers
// hold mu.
func (c *Cluster) execute(txn solana.Transaction) (map[string]solana.AccountInfo, []string, *solana.TransactionError) {
	staged := make(map[string]solana.AccountInfo)
	inv := &Invocation{
		cluster: c,
		staged:  staged,
		now:     c.now(),
	}

	for i := range txn.Message.Instructions {
		ix, err := txn.Message.DecompileInstruction(i)
		if err != nil {
			return nil, inv.logs, solana.NewTransactionError(solana.TransactionErrorSanitizeFailure)
		}

		program, ok := c.programs[string(ix.Program)]
		if !ok {
			return nil, inv.logs, solana.NewTransactionError(solana.TransactionErrorProgramAccountNotFound)
		}

		programID := base58.Encode(ix.Program)
		inv.Log("Program %s invoke [1]", programID)

		if err := program.Execute(inv, ix); err != nil {
			inv.logs = append(inv.logs, fmt.Sprintf("Program %s failed: %v", programID, err))

			txErr, convErr := solana.TransactionErrorFromInstructionError(&solana.InstructionError{
				Index: i,
				Err:   err,
			})
			if convErr != nil {
				return nil, inv.logs, solana.NewTransactionError(solana.TransactionErrorInstructionError)
			}
			return nil, inv.logs, txErr
		}

		inv.Log("Program %s success", programID)
	}

	return staged, inv.logs, nil
}

// Program is an on chain program emulated in Go. Returning a
// solana.CustomError surfaces as a custom program error; any other error
// surfaces as a named instruction error.
type Program interface {
	Execute(inv *Invocation, ix solana.Instruction) error
}

// ProgramFunc adapts a function into a Program.
type ProgramFunc func(inv *Invocation, ix solana.Instruction) error

func (f ProgramFunc) Execute(inv *Invocation, ix solana.Instruction) error {
	return f(inv, ix)
}

// Invocation is the view a program has of the cluster while executing a
// single transaction. Writes are only applied if every instruction succeeds.
type Invocation struct {
	cluster *Cluster
	staged  map[string]solana.AccountInfo
	logs    []string
	now     time.Time
}

// Account returns an account as seen by the executing transaction.
func (inv *Invocation) Account(address ed25519.PublicKey) (solana.AccountInfo, bool) {
	if info, ok := inv.staged[string(address)]; ok {
		return cloneAccountInfo(info), true
	}

	info, ok := inv.cluster.accounts[string(address)]
	return cloneAccountInfo(info), ok
}

func (inv *Invocation) SetAccount(address ed25519.PublicKey, info solana.AccountInfo) {
	inv.staged[string(address)] = cloneAccountInfo(info)
}

// UnixTimestamp is the cluster clock, as exposed by the Clock sysvar.
func (inv *Invocation) UnixTimestamp() int64 {
	return inv.now.Unix()
}

// RentExemptBalance mirrors GetMinimumBalanceForRentExemption without
// counting as an RPC call.
func (inv *Invocation) RentExemptBalance(size uint64) uint64 {
	return rentExemptBalance(size)
}

func (inv *Invocation) Log(format string, args ...interface{}) {
	inv.logs = append(inv.logs, fmt.Sprintf(format, args...))
}

func rentExemptBalance(size uint64) uint64 {
	return (size + accountStorageOverhead) * lamportsPerByteYear * exemptionThresholdYear
}

func cloneAccountInfo(info solana.AccountInfo) solana.AccountInfo {
	cloned := info
	if info.Data != nil {
		cloned.Data = make([]byte, len(info.Data))
		copy(cloned.Data, info.Data)
	}
	if info.Owner != nil {
		cloned.Owner = make(ed25519.PublicKey, len(info.Owner))
		copy(cloned.Owner, info.Owner)
	}
	return cloned
}

// ErrUnavailable is a convenient transport failure for FailNext.
var ErrUnavailable = errors.New("solanatest: node unavailable")
