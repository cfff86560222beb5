// Package wallet implements the single global wallet: cash and bitcoin
// balances mutated only through deposit, buy and sell operations, plus
// the append-only transaction log. All mutations run under one exclusive
// lock so concurrent requests never pass a balance check against stale
// state.
package wallet

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bitdash/bitdash/internal/domain"
	"github.com/bitdash/bitdash/internal/events"
	"github.com/bitdash/bitdash/internal/instrumentation"
	"github.com/bitdash/bitdash/pkg/decimalutil"
	"github.com/bitdash/bitdash/pkg/txid"
)

// Domain errors returned to callers. None of them mutate wallet state.
var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInsufficientBitcoin = errors.New("insufficient bitcoin")
)

// Publisher receives a wallet update after every successful mutation.
type Publisher interface {
	Publish(events.WalletUpdate)
}

// IDGenerator issues transaction identifiers.
type IDGenerator interface {
	Generate(kind string) (string, error)
}

// Config holds the wallet's tunables.
type Config struct {
	InitialCash decimal.Decimal
	InitialBTC  decimal.Decimal
	// MinTradeBTC is the smallest accepted buy/sell quantity.
	MinTradeBTC decimal.Decimal
	// BuyMaxThreshold is the rounded-difference slack under which a buy
	// consumes the entire cash balance instead of the computed cost.
	BuyMaxThreshold decimal.Decimal
}

func (c *Config) applyDefaults() {
	if c.InitialCash.IsZero() && c.InitialBTC.IsZero() {
		c.InitialCash = decimal.NewFromInt(10000)
	}
	if c.MinTradeBTC.LessThanOrEqual(decimal.Zero) {
		c.MinTradeBTC = decimalutil.Satoshi
	}
	if c.BuyMaxThreshold.LessThanOrEqual(decimal.Zero) {
		c.BuyMaxThreshold = decimal.NewFromFloat(0.01)
	}
}

// Service is the wallet actor.
type Service struct {
	mu sync.Mutex

	cfg    Config
	pub    Publisher
	idgen  IDGenerator
	logger *zap.Logger

	metrics *instrumentation.Metrics
	now     func() time.Time

	cash      decimal.Decimal
	btc       decimal.Decimal
	updatedAt time.Time
	// transaction log, newest first, never mutated after append
	txs []domain.Transaction
}

// Option configures a Service.
type Option func(*Service)

// WithClock fixes the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator replaces the transaction ID source.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Service) {
		s.idgen = g
	}
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New creates a wallet with the configured initial balances.
func New(cfg Config, pub Publisher, logger *zap.Logger, opts ...Option) (*Service, error) {
	if pub == nil {
		return nil, errors.New("publisher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.applyDefaults()

	if cfg.InitialCash.LessThan(decimal.Zero) || cfg.InitialBTC.LessThan(decimal.Zero) {
		return nil, errors.New("initial balances must be non-negative")
	}

	s := &Service{
		cfg:    cfg,
		pub:    pub,
		idgen:  txid.New(),
		logger: logger,
		now:    time.Now,
		cash:   cfg.InitialCash,
		btc:    cfg.InitialBTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.updatedAt = s.now().UTC()

	logger.Info("wallet initialized",
		zap.String("cash", s.cash.String()),
		zap.String("btc", s.btc.String()))
	return s, nil
}

// GetWallet returns the current balances.
func (s *Service) GetWallet() domain.Wallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.walletLocked()
}

// Transactions returns the log, newest first.
func (s *Service) Transactions() []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transactionsLocked()
}

// AddCash deposits cash into the wallet.
func (s *Service) AddCash(amount decimal.Decimal) (domain.Wallet, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		s.metrics.RecordWalletOpError(string(domain.TransactionCashDeposit))
		return domain.Wallet{}, errors.Wrapf(ErrInvalidAmount, "deposit amount %s", amount.String())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.newDepositLocked(amount)
	if err != nil {
		return domain.Wallet{}, err
	}

	s.cash = s.cash.Add(amount)
	s.commitLocked(tx)

	s.logger.Info("cash deposited",
		zap.String("op_id", uuid.NewString()),
		zap.String("amount", amount.String()),
		zap.String("cash_balance", s.cash.String()),
		zap.String("tx_id", tx.TransactionID))
	return s.walletLocked(), nil
}

// BuyBitcoin converts cash into bitcoin at the given price. A purchase
// whose rounded cost lands within the buy-max threshold of the rounded
// cash balance spends the entire balance, leaving exactly zero cash
// instead of residual cents from earlier rounding.
func (s *Service) BuyBitcoin(btcAmount, btcPrice decimal.Decimal) (domain.Wallet, error) {
	if err := s.validateTrade(btcAmount, btcPrice); err != nil {
		s.metrics.RecordWalletOpError(string(domain.TransactionBuyBitcoin))
		return domain.Wallet{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cashNeeded := btcAmount.Mul(btcPrice)
	roundedBalance := decimalutil.RoundCash(s.cash)
	roundedNeeded := decimalutil.RoundCash(cashNeeded)

	buyMax := roundedBalance.Sub(roundedNeeded).Abs().LessThanOrEqual(s.cfg.BuyMaxThreshold)
	if buyMax && s.cash.LessThanOrEqual(decimal.Zero) {
		buyMax = false
	}
	if !buyMax && s.cash.LessThan(cashNeeded) {
		s.metrics.RecordWalletOpError(string(domain.TransactionBuyBitcoin))
		return domain.Wallet{}, errors.Wrapf(ErrInsufficientFunds,
			"have %s, need %s", s.cash.String(), cashNeeded.String())
	}

	spent := cashNeeded
	if buyMax {
		spent = s.cash
	}

	tx, err := s.newTradeLocked(domain.TransactionBuyBitcoin, txid.KindBuy, spent, btcAmount, btcPrice)
	if err != nil {
		return domain.Wallet{}, err
	}

	if buyMax {
		s.cash = decimal.Zero
	} else {
		s.cash = s.cash.Sub(cashNeeded)
	}
	s.btc = s.btc.Add(btcAmount)
	s.commitLocked(tx)

	s.logger.Info("bitcoin bought",
		zap.String("op_id", uuid.NewString()),
		zap.String("btc_amount", btcAmount.String()),
		zap.String("btc_price", btcPrice.String()),
		zap.String("cash_spent", spent.String()),
		zap.Bool("buy_max", buyMax),
		zap.String("tx_id", tx.TransactionID))
	return s.walletLocked(), nil
}

// SellBitcoin converts bitcoin into cash at the given price. Selling a
// quantity that equals the balance at satoshi precision zeroes the
// bitcoin balance exactly rather than leaving dust.
func (s *Service) SellBitcoin(btcAmount, btcPrice decimal.Decimal) (domain.Wallet, error) {
	if err := s.validateTrade(btcAmount, btcPrice); err != nil {
		s.metrics.RecordWalletOpError(string(domain.TransactionSellBitcoin))
		return domain.Wallet{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.btc.LessThan(btcAmount) {
		s.metrics.RecordWalletOpError(string(domain.TransactionSellBitcoin))
		return domain.Wallet{}, errors.Wrapf(ErrInsufficientBitcoin,
			"have %s, need %s", s.btc.String(), btcAmount.String())
	}

	proceeds := btcAmount.Mul(btcPrice)

	tx, err := s.newTradeLocked(domain.TransactionSellBitcoin, txid.KindSell, proceeds, btcAmount, btcPrice)
	if err != nil {
		return domain.Wallet{}, err
	}

	sellMax := decimalutil.RoundBTC(s.btc).Equal(decimalutil.RoundBTC(btcAmount))
	if sellMax {
		s.btc = decimal.Zero
	} else {
		s.btc = s.btc.Sub(btcAmount)
	}
	s.cash = s.cash.Add(proceeds)
	s.commitLocked(tx)

	s.logger.Info("bitcoin sold",
		zap.String("op_id", uuid.NewString()),
		zap.String("btc_amount", btcAmount.String()),
		zap.String("btc_price", btcPrice.String()),
		zap.String("cash_received", proceeds.String()),
		zap.Bool("sell_max", sellMax),
		zap.String("tx_id", tx.TransactionID))
	return s.walletLocked(), nil
}

func (s *Service) validateTrade(btcAmount, btcPrice decimal.Decimal) error {
	if btcAmount.LessThanOrEqual(decimal.Zero) {
		return errors.Wrapf(ErrInvalidAmount, "btc amount %s", btcAmount.String())
	}
	if btcPrice.LessThanOrEqual(decimal.Zero) {
		return errors.Wrapf(ErrInvalidAmount, "btc price %s", btcPrice.String())
	}
	if btcAmount.LessThan(s.cfg.MinTradeBTC) {
		return errors.Wrapf(ErrInvalidAmount, "btc amount %s below minimum %s",
			btcAmount.String(), s.cfg.MinTradeBTC.String())
	}
	return nil
}

// newDepositLocked builds the transaction before any balance changes so
// an ID generation fault leaves the wallet untouched.
func (s *Service) newDepositLocked(amount decimal.Decimal) (domain.Transaction, error) {
	id, err := s.idgen.Generate(txid.KindAddFunds)
	if err != nil {
		return domain.Transaction{}, errors.Wrap(err, "generate transaction id")
	}
	return domain.NewDepositTransaction(id, amount, s.now().UTC())
}

func (s *Service) newTradeLocked(typ domain.TransactionType, kind string, amount, btcAmount, btcPrice decimal.Decimal) (domain.Transaction, error) {
	id, err := s.idgen.Generate(kind)
	if err != nil {
		return domain.Transaction{}, errors.Wrap(err, "generate transaction id")
	}
	return domain.NewTradeTransaction(typ, id, amount, btcAmount, btcPrice, s.now().UTC())
}

// commitLocked prepends the transaction, stamps the wallet and publishes
// the update. Publishing is fire-and-forget.
func (s *Service) commitLocked(tx domain.Transaction) {
	s.txs = append([]domain.Transaction{tx}, s.txs...)
	s.updatedAt = tx.Timestamp
	s.metrics.RecordWalletOp(string(tx.Type))

	s.pub.Publish(events.WalletUpdate{
		Wallet:       s.walletLocked(),
		Transactions: s.transactionsLocked(),
	})
}

func (s *Service) walletLocked() domain.Wallet {
	return domain.Wallet{
		CashBalance:    s.cash,
		BitcoinBalance: s.btc,
		UpdatedAt:      s.updatedAt,
	}
}

func (s *Service) transactionsLocked() []domain.Transaction {
	out := make([]domain.Transaction, len(s.txs))
	copy(out, s.txs)
	return out
}
