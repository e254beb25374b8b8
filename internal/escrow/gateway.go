package escrow

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/mbd888/jobchain/internal/circuitbreaker"
	"github.com/mbd888/jobchain/internal/metrics"
	"github.com/mbd888/jobchain/internal/traces"
)

// jobEscrowABI covers the contract surface the marketplace uses: job
// creation with deposit, acceptance, per-party completion confirmation,
// and a read of the full job record.
const jobEscrowABI = `[
	{"inputs":[{"name":"client","type":"address"},{"name":"provider","type":"address"},{"name":"category","type":"string"}],"name":"createJob","outputs":[{"name":"jobId","type":"uint256"}],"stateMutability":"payable","type":"function"},
	{"inputs":[{"name":"jobId","type":"uint256"}],"name":"acceptJob","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"jobId","type":"uint256"},{"name":"party","type":"address"}],"name":"confirmCompletion","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"jobId","type":"uint256"}],"name":"getJob","outputs":[{"name":"client","type":"address"},{"name":"provider","type":"address"},{"name":"amount","type":"uint256"},{"name":"status","type":"uint8"},{"name":"clientConfirmed","type":"bool"},{"name":"providerConfirmed","type":"bool"}],"stateMutability":"view","type":"function"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"jobId","type":"uint256"},{"indexed":true,"name":"client","type":"address"},{"indexed":true,"name":"provider","type":"address"},{"indexed":false,"name":"amount","type":"uint256"}],"name":"JobCreated","type":"event"}
]`

// EthClient abstracts the go-ethereum client for testing.
type EthClient interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	Close()
}

// Config for creating a chain gateway.
type Config struct {
	RPCURL      string
	OperatorKey string // Hex string, with or without 0x prefix
	ChainID     int64
	Contract    string // JobEscrow contract address
}

// Option configures the gateway.
type Option func(*ChainGateway)

// WithClient sets a custom Ethereum client (useful for testing).
func WithClient(client EthClient) Option {
	return func(g *ChainGateway) {
		g.client = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *ChainGateway) {
		g.logger = logger
	}
}

// ChainGateway talks to the JobEscrow contract through an operator account.
// All marketplace transactions are signed by the operator; the contract
// tracks the real client/provider addresses passed as arguments.
type ChainGateway struct {
	client      EthClient
	operatorKey *ecdsa.PrivateKey
	operator    common.Address
	chainID     *big.Int
	contract    common.Address
	contractABI abi.ABI
	breaker     *circuitbreaker.Breaker
	logger      *slog.Logger
}

// Compile-time interface check
var _ Gateway = (*ChainGateway)(nil)

// NewChainGateway creates a gateway connected to the JobEscrow contract.
func NewChainGateway(cfg Config, opts ...Option) (*ChainGateway, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.OperatorKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOperatorKey, err)
	}

	publicKey, ok := key.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: failed to derive public key", ErrInvalidOperatorKey)
	}

	parsedABI, err := abi.JSON(strings.NewReader(jobEscrowABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse JobEscrow ABI: %w", err)
	}

	g := &ChainGateway{
		operatorKey: key,
		operator:    crypto.PubkeyToAddress(*publicKey),
		chainID:     big.NewInt(cfg.ChainID),
		contract:    common.HexToAddress(cfg.Contract),
		contractABI: parsedABI,
		breaker:     circuitbreaker.New(5, 30*time.Second),
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(g)
	}

	// Connect to RPC if no client provided
	if g.client == nil {
		client, err := ethclient.Dial(cfg.RPCURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRPCConnection, err)
		}
		g.client = client
	}

	return g, nil
}

func validateConfig(cfg Config) error {
	if cfg.RPCURL == "" {
		return fmt.Errorf("%w: RPC URL required", ErrRPCConnection)
	}
	if cfg.OperatorKey == "" {
		return fmt.Errorf("%w: operator key required", ErrInvalidOperatorKey)
	}
	key := strings.TrimPrefix(cfg.OperatorKey, "0x")
	if len(key) != 64 {
		return fmt.Errorf("%w: must be 64 hex characters", ErrInvalidOperatorKey)
	}
	if cfg.ChainID == 0 {
		return fmt.Errorf("chain ID required")
	}
	if cfg.Contract == "" {
		return fmt.Errorf("contract address required")
	}
	return nil
}

// Operator returns the operator account address.
func (g *ChainGateway) Operator() string {
	return g.operator.Hex()
}

// Close closes the client connection.
func (g *ChainGateway) Close() error {
	if g.client != nil {
		g.client.Close()
	}
	return nil
}

// CreateAndDeposit creates the contract-side job, attaching amountWei as the
// transaction value so the client's funds are locked in the same call. The
// new job's contract ID is read back from the JobCreated event.
func (g *ChainGateway) CreateAndDeposit(ctx context.Context, clientWallet, providerWallet string, amountWei *big.Int, category string) (*CreateResult, error) {
	const op = "create_and_deposit"

	if !common.IsHexAddress(clientWallet) || !common.IsHexAddress(providerWallet) {
		return nil, fmt.Errorf("%w: client=%s provider=%s", ErrInvalidAddress, clientWallet, providerWallet)
	}
	if amountWei == nil || amountWei.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	ctx, span := traces.StartSpan(ctx, "escrow.CreateAndDeposit",
		traces.AmountWei(amountWei.String()))
	defer span.End()

	data, err := g.contractABI.Pack("createJob",
		common.HexToAddress(clientWallet), common.HexToAddress(providerWallet), category)
	if err != nil {
		return nil, &CallError{Op: op, Err: err}
	}

	receipt, txHash, err := g.sendAndWait(ctx, op, data, amountWei)
	if err != nil {
		return nil, err
	}

	contractJobID, err := g.jobIDFromReceipt(receipt)
	if err != nil {
		return nil, &CallError{Op: op, TxHash: txHash, Err: err}
	}

	span.SetAttributes(traces.ContractJobID(contractJobID), traces.TxHash(txHash))
	g.logger.Info("escrow job created",
		"contract_job_id", contractJobID, "tx", txHash, "amount_wei", amountWei.String())

	return &CreateResult{ContractJobID: contractJobID, TxHash: txHash}, nil
}

// AcceptInContract flips the contract-side job to in-progress.
func (g *ChainGateway) AcceptInContract(ctx context.Context, contractJobID string) (*TxResult, error) {
	const op = "accept_in_contract"

	jobID, err := parseContractJobID(contractJobID)
	if err != nil {
		return nil, err
	}

	ctx, span := traces.StartSpan(ctx, "escrow.AcceptInContract",
		traces.ContractJobID(contractJobID))
	defer span.End()

	data, err := g.contractABI.Pack("acceptJob", jobID)
	if err != nil {
		return nil, &CallError{Op: op, Err: err}
	}

	_, txHash, err := g.sendAndWait(ctx, op, data, nil)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(traces.TxHash(txHash))
	g.logger.Info("escrow job accepted", "contract_job_id", contractJobID, "tx", txHash)
	return &TxResult{TxHash: txHash}, nil
}

// ConfirmCompletion records one party's confirmation. The contract state is
// read first so an already-confirmed party never produces a duplicate
// transaction.
func (g *ChainGateway) ConfirmCompletion(ctx context.Context, party Party, contractJobID string) (*TxResult, error) {
	const op = "confirm_completion"

	jobID, err := parseContractJobID(contractJobID)
	if err != nil {
		return nil, err
	}

	ctx, span := traces.StartSpan(ctx, "escrow.ConfirmCompletion",
		traces.ContractJobID(contractJobID))
	defer span.End()

	job, err := g.GetContractJob(ctx, contractJobID)
	if err != nil {
		return nil, err
	}

	var partyAddr common.Address
	switch party {
	case PartyClient:
		if job.ClientConfirmed {
			return nil, ErrAlreadyConfirmed
		}
		partyAddr = common.HexToAddress(job.Client)
	case PartyProvider:
		if job.ProviderConfirmed {
			return nil, ErrAlreadyConfirmed
		}
		partyAddr = common.HexToAddress(job.Provider)
	default:
		return nil, fmt.Errorf("%w: unknown party %q", ErrInvalidAddress, party)
	}

	data, err := g.contractABI.Pack("confirmCompletion", jobID, partyAddr)
	if err != nil {
		return nil, &CallError{Op: op, Err: err}
	}

	_, txHash, err := g.sendAndWait(ctx, op, data, nil)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(traces.TxHash(txHash))
	g.logger.Info("escrow completion confirmed",
		"contract_job_id", contractJobID, "party", string(party), "tx", txHash)
	return &TxResult{TxHash: txHash}, nil
}

// GetContractJob reads the contract-side job state.
func (g *ChainGateway) GetContractJob(ctx context.Context, contractJobID string) (*ContractJob, error) {
	const op = "get_contract_job"

	jobID, err := parseContractJobID(contractJobID)
	if err != nil {
		return nil, err
	}

	data, err := g.contractABI.Pack("getJob", jobID)
	if err != nil {
		return nil, &CallError{Op: op, Err: err}
	}

	raw, err := g.client.CallContract(ctx, ethereum.CallMsg{
		To:   &g.contract,
		Data: data,
	}, nil)
	if err != nil {
		metrics.EscrowCallsTotal.WithLabelValues(op, "error").Inc()
		return nil, &CallError{Op: op, Err: err}
	}
	metrics.EscrowCallsTotal.WithLabelValues(op, "ok").Inc()

	out, err := g.contractABI.Unpack("getJob", raw)
	if err != nil {
		return nil, &CallError{Op: op, Err: err}
	}
	if len(out) != 6 {
		return nil, &CallError{Op: op, Err: fmt.Errorf("unexpected getJob output arity %d", len(out))}
	}

	client, _ := out[0].(common.Address)
	provider, _ := out[1].(common.Address)
	amount, _ := out[2].(*big.Int)
	status, _ := out[3].(uint8)
	clientConfirmed, _ := out[4].(bool)
	providerConfirmed, _ := out[5].(bool)

	if client == (common.Address{}) {
		return nil, ErrJobMissingOnChain
	}
	if amount == nil {
		amount = big.NewInt(0)
	}

	return &ContractJob{
		Client:            client.Hex(),
		Provider:          provider.Hex(),
		Amount:            amount,
		AmountWei:         amount.String(),
		Status:            ContractStatus(status),
		ClientConfirmed:   clientConfirmed,
		ProviderConfirmed: providerConfirmed,
	}, nil
}

// sendAndWait signs and sends a contract transaction and blocks until it is
// mined. The circuit breaker rejects sends while the RPC or contract is
// failing repeatedly.
func (g *ChainGateway) sendAndWait(ctx context.Context, op string, calldata []byte, value *big.Int) (*types.Receipt, string, error) {
	if !g.breaker.Allow(op) {
		metrics.EscrowCallsTotal.WithLabelValues(op, "circuit_open").Inc()
		return nil, "", &CallError{Op: op, Err: ErrCircuitOpen}
	}

	timer := time.Now()
	receipt, txHash, err := g.send(ctx, calldata, value)
	metrics.EscrowCallDuration.WithLabelValues(op).Observe(time.Since(timer).Seconds())

	if err != nil {
		g.breaker.RecordFailure(op)
		metrics.EscrowCallsTotal.WithLabelValues(op, "error").Inc()
		return nil, txHash, &CallError{Op: op, TxHash: txHash, Err: err}
	}

	g.breaker.RecordSuccess(op)
	metrics.EscrowCallsTotal.WithLabelValues(op, "ok").Inc()
	return receipt, txHash, nil
}

func (g *ChainGateway) send(ctx context.Context, calldata []byte, value *big.Int) (*types.Receipt, string, error) {
	if value == nil {
		value = big.NewInt(0)
	}

	nonce, err := g.client.PendingNonceAt(ctx, g.operator)
	if err != nil {
		return nil, "", fmt.Errorf("nonce: %w", err)
	}

	gasPrice, err := g.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("gas price: %w", err)
	}

	gasLimit, err := g.client.EstimateGas(ctx, ethereum.CallMsg{
		From:  g.operator,
		To:    &g.contract,
		Value: value,
		Data:  calldata,
	})
	if err != nil {
		// Use default if estimation fails
		gasLimit = DefaultGasLimit
	}

	tx := types.NewTransaction(nonce, g.contract, value, gasLimit, gasPrice, calldata)

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(g.chainID), g.operatorKey)
	if err != nil {
		return nil, "", fmt.Errorf("sign: %w", err)
	}

	txHash := signedTx.Hash().Hex()
	if err := g.client.SendTransaction(ctx, signedTx); err != nil {
		return nil, txHash, fmt.Errorf("send: %w", err)
	}

	receipt, err := g.waitForReceipt(ctx, signedTx.Hash())
	if err != nil {
		return nil, txHash, err
	}
	return receipt, txHash, nil
}

// waitForReceipt polls until the transaction is mined or the timeout hits.
func (g *ChainGateway) waitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultConfirmationTimeout)
	defer cancel()

	ticker := time.NewTicker(ConfirmationPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: waiting for tx %s", ErrTimeout, hash.Hex())
			}
			return nil, ctx.Err()

		case <-ticker.C:
			receipt, err := g.client.TransactionReceipt(ctx, hash)
			if err != nil {
				// Transaction not yet mined, continue waiting
				continue
			}

			if receipt.Status == 0 {
				return nil, ErrTransactionReverted
			}
			return receipt, nil
		}
	}
}

// jobIDFromReceipt extracts the new contract job ID from the JobCreated event.
func (g *ChainGateway) jobIDFromReceipt(receipt *types.Receipt) (string, error) {
	created := g.contractABI.Events["JobCreated"]

	for _, lg := range receipt.Logs {
		if lg.Address != g.contract {
			continue
		}
		if len(lg.Topics) == 0 || lg.Topics[0] != created.ID {
			continue
		}
		if len(lg.Topics) < 2 {
			continue
		}
		// jobId is the first indexed topic
		return new(big.Int).SetBytes(lg.Topics[1].Bytes()).String(), nil
	}

	return "", ErrNoJobCreatedEvent
}

func parseContractJobID(s string) (*big.Int, error) {
	id, ok := new(big.Int).SetString(s, 10)
	if !ok || id.Sign() < 0 {
		return nil, fmt.Errorf("%w: bad contract job id %q", ErrJobMissingOnChain, s)
	}
	return id, nil
}
