package orchestrator_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	commonerrors "github.com/bentoswap/swap-lib/common/errors"
	"github.com/bentoswap/swap-lib/common/types"
	"github.com/bentoswap/swap-lib/config"
	"github.com/bentoswap/swap-lib/orchestrator"
	"github.com/bentoswap/swap-lib/quote"
)

type fakeWallet struct {
	mutex     sync.Mutex
	connected bool
	chainID   int64
}

func (w *fakeWallet) Address() string { return "0x00000000000000000000000000000000000000aa" }

func (w *fakeWallet) Connected() bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.connected
}

func (w *fakeWallet) CurrentChainID() int64 {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.chainID
}

func (w *fakeWallet) SwitchChain(ctx context.Context, chainID int64) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.chainID = chainID
	return nil
}

func (w *fakeWallet) SendTransaction(ctx context.Context, txReq *types.TransactionRequest) (string, error) {
	return "0xhash", nil
}

func (w *fakeWallet) WaitForReceipt(ctx context.Context, txHash string) (bool, error) {
	return true, nil
}

// fakePrices converts through a fixed USD price table.
type fakePrices struct {
	prices map[string]float64
}

func (p *fakePrices) Convert(fromSymbol, toSymbol string, amount float64) float64 {
	from, okFrom := p.prices[fromSymbol]
	to, okTo := p.prices[toSymbol]
	if !okFrom || !okTo || to == 0 || amount <= 0 {
		return 0
	}
	return amount * from / to
}

func (p *fakePrices) Prices() map[string]float64 { return p.prices }

type fixture struct {
	orch   *orchestrator.Orchestrator
	quotes *quote.Service
	wallet *fakeWallet
	cfg    *config.Config
}

func newFixture(t *testing.T, handler http.HandlerFunc, prices *fakePrices) *fixture {
	t.Helper()

	cfg := config.Default()
	cfg.QuoteDebounce = 20 * time.Millisecond
	cfg.CorrectionDelay = 20 * time.Millisecond
	cfg.NetworkSettleDelay = 20 * time.Millisecond

	if handler != nil {
		server := httptest.NewServer(handler)
		t.Cleanup(server.Close)
		cfg.QuoteBaseURL = server.URL
	}

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	if prices == nil {
		prices = &fakePrices{prices: map[string]float64{}}
	}

	wallet := &fakeWallet{connected: true, chainID: 8453}
	quotes := quote.NewService(cfg, logger)

	orch, err := orchestrator.NewBuilder(cfg, logger).
		WithWallet(wallet).
		WithPriceConverter(prices).
		WithQuoteService(quotes).
		Build()
	require.NoError(t, err)

	return &fixture{orch: orch, quotes: quotes, wallet: wallet, cfg: cfg}
}

func TestBuilderRequiresWalletAndPrices(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	cfg := config.Default()

	_, err := orchestrator.NewBuilder(cfg, logger).Build()
	require.ErrorContains(t, err, "wallet not provided")

	_, err = orchestrator.NewBuilder(cfg, logger).WithWallet(&fakeWallet{}).Build()
	require.ErrorContains(t, err, "price converter not provided")
}

func TestSessionDefaults(t *testing.T) {
	f := newFixture(t, nil, nil)

	require.NotEmpty(t, f.orch.ID())
	require.Equal(t, "ETH", f.orch.PayToken().Symbol)
	require.Equal(t, "Base", f.orch.PayToken().Network)
	require.Equal(t, "USDC", f.orch.ReceiveToken().Symbol)
	require.Equal(t, "Base", f.orch.ReceiveToken().Network)
	require.Equal(t, "0.001", f.orch.PayAmount())
	require.Equal(t, "0", f.orch.ReceiveAmount())
}

func TestSwapTokensIsAnInvolution(t *testing.T) {
	f := newFixture(t, nil, nil)

	payBefore := f.orch.PayToken()
	receiveBefore := f.orch.ReceiveToken()
	payAmountBefore := f.orch.PayAmount()
	receiveAmountBefore := f.orch.ReceiveAmount()

	f.orch.SwapTokens()
	require.Equal(t, receiveBefore, f.orch.PayToken())
	require.Equal(t, payBefore, f.orch.ReceiveToken())
	require.Equal(t, receiveAmountBefore, f.orch.PayAmount())
	require.Equal(t, payAmountBefore, f.orch.ReceiveAmount())

	f.orch.SwapTokens()
	require.Equal(t, payBefore, f.orch.PayToken())
	require.Equal(t, receiveBefore, f.orch.ReceiveToken())
	require.Equal(t, payAmountBefore, f.orch.PayAmount())
	require.Equal(t, receiveAmountBefore, f.orch.ReceiveAmount())
}

func TestDebouncedQuoteFetchUpdatesReceiveAmount(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(types.Quote{TokenAmountOut: "123.4567891"})
	}, nil)

	f.orch.SetConnected(true)
	f.orch.SetPayAmount("1")

	require.Eventually(t, func() bool {
		return f.orch.ReceiveAmount() == "123.456789"
	}, time.Second, 5*time.Millisecond)
	require.NotNil(t, f.quotes.Quote())
}

func TestRapidMutationsCoalesceIntoOneFetch(t *testing.T) {
	var hitsMutex sync.Mutex
	hits := 0
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		hitsMutex.Lock()
		hits++
		hitsMutex.Unlock()
		json.NewEncoder(w).Encode(types.Quote{TokenAmountOut: "1"})
	}, nil)

	f.orch.SetConnected(true)
	for _, amount := range []string{"1", "2", "3", "4", "5"} {
		f.orch.SetPayAmount(amount)
	}

	require.Eventually(t, func() bool {
		return f.quotes.Quote() != nil
	}, time.Second, 5*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	hitsMutex.Lock()
	defer hitsMutex.Unlock()
	require.Equal(t, 1, hits)
}

func TestMutationClearsCurrentQuote(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(types.Quote{TokenAmountOut: "1"})
	}, nil)

	f.orch.SetConnected(true)
	f.orch.SetPayAmount("1")
	require.Eventually(t, func() bool {
		return f.quotes.Quote() != nil
	}, time.Second, 5*time.Millisecond)

	f.orch.SetSlippageBps(50)
	require.Nil(t, f.quotes.Quote())
}

func TestMaxAmountUsesCachedPricesWithFeeDiscount(t *testing.T) {
	prices := &fakePrices{prices: map[string]float64{"ETH": 3000, "USDC": 1}}
	f := newFixture(t, nil, prices)

	payToken := f.orch.PayToken()
	payToken.Balance = 2.5
	f.orch.SetPayToken(payToken)

	f.orch.MaxAmount()
	require.Equal(t, "2.5", f.orch.PayAmount())
	// 2.5 * 3000 * 0.997
	require.Equal(t, "7477.500000", f.orch.ReceiveAmount())
}

func TestMaxAmountFallsBackWithoutPrices(t *testing.T) {
	f := newFixture(t, nil, nil)

	payToken := f.orch.PayToken()
	payToken.Balance = 2
	f.orch.SetPayToken(payToken)

	f.orch.MaxAmount()
	require.Equal(t, "2", f.orch.PayAmount())
	require.Equal(t, "1.980000", f.orch.ReceiveAmount())
}

func TestExecuteWithoutQuote(t *testing.T) {
	f := newFixture(t, nil, nil)
	require.ErrorIs(t, f.orch.Execute(context.Background()), commonerrors.ErrNoQuote)
}

func TestAmountLikelyTooLow(t *testing.T) {
	f := newFixture(t, nil, nil)

	// Default 0.001 ETH sits above the 0.0001 threshold.
	require.False(t, f.orch.AmountLikelyTooLow())

	f.orch.SetPayAmount("0.00005")
	require.True(t, f.orch.AmountLikelyTooLow())

	f.orch.SetPayAmount("abc")
	require.False(t, f.orch.AmountLikelyTooLow())
}

func TestApplyAmountCorrectionMinAmount(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Min amount: 0.002"}`))
	}, nil)

	err := f.quotes.FetchQuote(context.Background(), &types.QuoteRequest{})
	require.EqualError(t, err, "Min amount: 0.002")

	require.True(t, f.orch.ApplyAmountCorrection())
	require.Equal(t, "0.002", f.orch.PayAmount())
}

func TestApplyAmountCorrectionFeeAmount(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Amount 0.0005 is less than fee 0.001"}`))
	}, nil)

	err := f.quotes.FetchQuote(context.Background(), &types.QuoteRequest{})
	require.Error(t, err)

	require.True(t, f.orch.ApplyAmountCorrection())
	// fee 0.001 scaled by the 2.0 safety multiplier.
	require.Equal(t, "0.002", f.orch.PayAmount())
}

func TestApplyAmountCorrectionIgnoresOtherErrors(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, nil)

	require.Error(t, f.quotes.FetchQuote(context.Background(), &types.QuoteRequest{}))
	require.False(t, f.orch.ApplyAmountCorrection())
	require.Equal(t, "0.001", f.orch.PayAmount())
}

func TestNotificationsWhenDisconnected(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.orch.SetConnected(false)

	notifications := f.orch.Notifications()
	require.Len(t, notifications, 1)
	require.Equal(t, types.NotificationInfo, notifications[0].Type)
	require.Contains(t, notifications[0].Description, "Connect")
}

// balanceWallet extends the fake wallet with on-chain balance reads.
type balanceWallet struct {
	fakeWallet
	balance float64
}

func (w *balanceWallet) TokenBalance(ctx context.Context, tokenAddress string, decimals int) (float64, error) {
	return w.balance, nil
}

func TestRefreshBalanceUpdatesPayToken(t *testing.T) {
	cfg := config.Default()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	wallet := &balanceWallet{fakeWallet: fakeWallet{connected: true, chainID: 8453}, balance: 1.25}
	orch, err := orchestrator.NewBuilder(cfg, logger).
		WithWallet(wallet).
		WithPriceConverter(&fakePrices{prices: map[string]float64{}}).
		Build()
	require.NoError(t, err)

	require.NoError(t, orch.RefreshBalance(context.Background()))
	require.Equal(t, 1.25, orch.PayToken().Balance)
}

func TestRefreshBalanceNoopWithoutCapability(t *testing.T) {
	f := newFixture(t, nil, nil)
	require.NoError(t, f.orch.RefreshBalance(context.Background()))
	require.Zero(t, f.orch.PayToken().Balance)
}

func TestResetClearsQuoteAndReceiveAmount(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(types.Quote{TokenAmountOut: "42"})
	}, nil)

	f.orch.SetConnected(true)
	f.orch.SetPayAmount("1")
	require.Eventually(t, func() bool {
		return f.quotes.Quote() != nil
	}, time.Second, 5*time.Millisecond)

	f.orch.Reset()
	require.Nil(t, f.quotes.Quote())
	require.Equal(t, "0", f.orch.ReceiveAmount())
}
