package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/taskhive/taskhive-api/internal/pkg/chain"
	"github.com/taskhive/taskhive-api/internal/pkg/money"
)

// ActivityRecorder receives best-effort activity feed events. Failures are
// the recorder's problem; the wallet never blocks or rolls back on them.
type ActivityRecorder interface {
	Record(userID uuid.UUID, activityType, title string)
}

// Balance is the balance-query result.
type Balance struct {
	UserID   uuid.UUID `json:"user_id"`
	Diamonds int64     `json:"diamonds"`
	USDT     string    `json:"usdt"`
	Rates    Rates     `json:"rates"`
}

// Receipt describes a completed money movement: before/after amounts plus
// operation-specific figures, referencing the ledger entry written for it.
type Receipt struct {
	EntryID        uuid.UUID `json:"entry_id"`
	Type           EntryType `json:"type"`
	DiamondsBefore int64     `json:"diamonds_before"`
	DiamondsAfter  int64     `json:"diamonds_after"`
	USDTBefore     string    `json:"usdt_before"`
	USDTAfter      string    `json:"usdt_after"`
	CostUSD        string    `json:"cost_usd,omitempty"`
	USDTReceived   string    `json:"usdt_received,omitempty"`
	Fee            string    `json:"fee,omitempty"`
	TotalDebit     string    `json:"total_debit,omitempty"`
	Destination    string    `json:"destination,omitempty"`
	TxHash         string    `json:"tx_hash,omitempty"`
	Verified       *bool     `json:"verified,omitempty"`
}

// Service is the wallet engine: balance queries plus the money-movement
// operations, each validating preconditions and committing the balance delta
// and ledger entry as one unit.
type Service struct {
	repo     *Repository
	rates    Rates
	chain    *chain.Client
	activity ActivityRecorder
}

func NewService(repo *Repository, rates Rates, chainClient *chain.Client, activity ActivityRecorder) *Service {
	return &Service{repo: repo, rates: rates, chain: chainClient, activity: activity}
}

// Rates returns the engine's current rate table.
func (s *Service) Rates() Rates {
	return s.rates
}

// GetBalance returns current balances and rates, creating the wallet with
// its starting grant on first access.
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (*Balance, error) {
	w, err := s.repo.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Balance{
		UserID:   w.UserID,
		Diamonds: w.Diamonds,
		USDT:     w.USDTMicro.String(),
		Rates:    s.rates,
	}, nil
}

// BuyDiamonds credits quantity diamonds. The purchase is simulated: the
// fiat cost is computed for the receipt only, nothing is debited here.
func (s *Service) BuyDiamonds(ctx context.Context, userID uuid.UUID, quantity int64) (*Receipt, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidAmount)
	}

	costUSD := money.CostUSD(quantity, s.rates.DiamondPriceUSD)

	w, entry, err := s.repo.Apply(ctx, userID, Delta{Diamonds: quantity}, EntryTemplate{
		Type:     EntryTypeBuyDiamonds,
		Amount:   quantity,
		Currency: CurrencyDiamond,
		Metadata: map[string]interface{}{
			"cost_usd":          costUSD.StringFixed(2),
			"price_per_diamond": s.rates.DiamondPriceUSD.String(),
		},
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Int64("quantity", quantity).
		Str("cost_usd", costUSD.StringFixed(2)).
		Msg("diamonds purchased")
	s.record(userID, "buy_diamonds", fmt.Sprintf("Purchased %d diamonds", quantity))

	receipt := s.receipt(w, entry, Delta{Diamonds: quantity})
	receipt.CostUSD = costUSD.StringFixed(2)
	return receipt, nil
}

// ConvertToUSDT exchanges diamonds for USDT at the engine rate. Both legs
// commit atomically under the wallet row lock.
func (s *Service) ConvertToUSDT(ctx context.Context, userID uuid.UUID, diamonds int64) (*Receipt, error) {
	if diamonds <= 0 {
		return nil, fmt.Errorf("%w: diamonds must be positive", ErrInvalidAmount)
	}

	usdt := money.DiamondsToUSDT(diamonds, s.rates.DiamondToUSDT)
	delta := Delta{Diamonds: -diamonds, USDT: usdt}

	w, entry, err := s.repo.Apply(ctx, userID, delta, EntryTemplate{
		Type:     EntryTypeConvertToUSDT,
		Amount:   diamonds,
		Currency: CurrencyDiamond,
		Metadata: map[string]interface{}{
			"usdt_received": usdt.String(),
			"rate":          s.rates.DiamondToUSDT.String(),
		},
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Int64("diamonds", diamonds).
		Str("usdt", usdt.String()).
		Msg("diamonds converted to USDT")
	s.record(userID, "convert_to_usdt", fmt.Sprintf("Converted %d diamonds to %s USDT", diamonds, usdt))

	receipt := s.receipt(w, entry, delta)
	receipt.USDTReceived = usdt.String()
	return receipt, nil
}

// WithdrawUSDT debits amount plus fee to an external destination. The fee is
// removed from circulation, not credited anywhere. Settlement is modeled as
// instant.
func (s *Service) WithdrawUSDT(ctx context.Context, userID uuid.UUID, amount string, destination string) (*Receipt, error) {
	requested, err := money.Parse(amount)
	if err != nil || requested <= 0 {
		return nil, fmt.Errorf("%w: amount must be a positive decimal", ErrInvalidAmount)
	}
	if destination == "" {
		return nil, fmt.Errorf("%w: destination is required", ErrInvalidAmount)
	}

	fee := money.Fee(requested, s.rates.WithdrawFeeRate)
	totalDebit := requested + fee
	delta := Delta{USDT: -totalDebit}

	// Ledger amount is the full debit so the ledger alone reconstructs the
	// balance; the requested amount and fee live in metadata.
	w, entry, err := s.repo.Apply(ctx, userID, delta, EntryTemplate{
		Type:     EntryTypeWithdrawUSDT,
		Amount:   int64(totalDebit),
		Currency: CurrencyUSDT,
		Metadata: map[string]interface{}{
			"amount":      requested.String(),
			"fee":         fee.String(),
			"destination": destination,
		},
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("amount", requested.String()).
		Str("fee", fee.String()).
		Str("destination", destination).
		Msg("USDT withdrawn")
	s.record(userID, "withdraw_usdt", fmt.Sprintf("Withdrew %s USDT", requested))

	receipt := s.receipt(w, entry, delta)
	receipt.Fee = fee.String()
	receipt.TotalDebit = totalDebit.String()
	receipt.Destination = destination
	return receipt, nil
}

// ConfirmOnchainPurchase credits diamonds for an on-chain USDT payment.
// The chain check is advisory corroboration: diamonds are computed from the
// caller-supplied amount, and the entry records whether the receipt was
// verified.
func (s *Service) ConfirmOnchainPurchase(ctx context.Context, userID uuid.UUID, txHash, usdtAmount string) (*Receipt, error) {
	if usdtAmount == "" {
		// The credited amount always comes from the caller; the chain check
		// only corroborates success, it cannot recover the transfer amount.
		if !s.chain.Enabled() {
			return nil, fmt.Errorf("%w: no rpc endpoint and no usdt amount supplied", ErrNotConfigured)
		}
		return nil, fmt.Errorf("%w: usdt amount is required", ErrInvalidAmount)
	}
	if txHash == "" {
		return nil, fmt.Errorf("%w: tx hash is required", ErrInvalidAmount)
	}

	usdt, err := decimal.NewFromString(usdtAmount)
	if err != nil || !usdt.IsPositive() {
		return nil, fmt.Errorf("%w: usdt amount must be a positive decimal", ErrInvalidAmount)
	}

	verified := false
	if s.chain.Enabled() {
		if err := s.chain.VerifyTransaction(ctx, txHash); err != nil {
			if errors.Is(err, chain.ErrUnavailable) {
				// RPC timeout or outage: retryable, never a silent success.
				log.Warn().Err(err).Str("tx_hash", txHash).Msg("chain rpc unavailable")
			}
			return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
		}
		verified = true
	}

	diamonds := money.DiamondsFromUSDT(usdt, s.rates.DiamondsPerUSDT)
	if diamonds <= 0 {
		return nil, fmt.Errorf("%w: %s USDT is below the minimum purchase", ErrInvalidAmount, usdt)
	}

	delta := Delta{Diamonds: diamonds}
	w, entry, err := s.repo.Apply(ctx, userID, delta, EntryTemplate{
		Type:     EntryTypeBuyDiamonds,
		Amount:   diamonds,
		Currency: CurrencyDiamond,
		Metadata: map[string]interface{}{
			"tx_hash":     txHash,
			"usdt_amount": usdt.String(),
			"verified":    verified,
		},
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("tx_hash", txHash).
		Int64("diamonds", diamonds).
		Bool("verified", verified).
		Msg("on-chain purchase credited")
	s.record(userID, "buy_diamonds", fmt.Sprintf("Purchased %d diamonds on-chain", diamonds))

	receipt := s.receipt(w, entry, delta)
	receipt.TxHash = txHash
	receipt.Verified = &verified
	return receipt, nil
}

// AdminAdjust applies a back-office correction to one balance. Exactly one
// of diamondsDelta and usdtDelta must be non-zero.
func (s *Service) AdminAdjust(ctx context.Context, userID uuid.UUID, diamondsDelta int64, usdtDelta string, reason string) (*Receipt, error) {
	var usdt money.Micro
	if usdtDelta != "" {
		var err error
		if usdt, err = money.Parse(usdtDelta); err != nil {
			return nil, fmt.Errorf("%w: usdt delta must be a decimal", ErrInvalidAmount)
		}
	}
	if (diamondsDelta == 0) == (usdt == 0) {
		return nil, fmt.Errorf("%w: exactly one of diamonds_delta and usdt_delta must be non-zero", ErrInvalidAmount)
	}

	template := EntryTemplate{
		Type:     EntryTypeAdminAdjustment,
		Metadata: map[string]interface{}{"reason": reason},
	}
	if diamondsDelta != 0 {
		template.Amount = diamondsDelta
		template.Currency = CurrencyDiamond
	} else {
		template.Amount = int64(usdt)
		template.Currency = CurrencyUSDT
	}

	delta := Delta{Diamonds: diamondsDelta, USDT: usdt}
	w, entry, err := s.repo.Apply(ctx, userID, delta, template)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Int64("diamonds_delta", diamondsDelta).
		Str("usdt_delta", usdt.String()).
		Str("reason", reason).
		Msg("admin balance adjustment")

	return s.receipt(w, entry, delta), nil
}

// ListTransactions returns the user's ledger page, newest first.
func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID, page, limit int, typeFilter string) ([]LedgerEntry, int, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListEntries(ctx, userID, typeFilter, limit, (page-1)*limit)
}

func (s *Service) receipt(after *Wallet, entry *LedgerEntry, delta Delta) *Receipt {
	return &Receipt{
		EntryID:        entry.ID,
		Type:           entry.Type,
		DiamondsBefore: after.Diamonds - delta.Diamonds,
		DiamondsAfter:  after.Diamonds,
		USDTBefore:     (after.USDTMicro - delta.USDT).String(),
		USDTAfter:      after.USDTMicro.String(),
	}
}

func (s *Service) record(userID uuid.UUID, activityType, title string) {
	if s.activity != nil {
		s.activity.Record(userID, activityType, title)
	}
}
