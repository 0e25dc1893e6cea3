package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/SignalMiner/internal/auth"
	"github.com/jmerrifield20/SignalMiner/internal/handler"
	"github.com/jmerrifield20/SignalMiner/internal/kvstore"
	"github.com/jmerrifield20/SignalMiner/internal/rewards"
	"github.com/jmerrifield20/SignalMiner/internal/service"
	"github.com/jmerrifield20/SignalMiner/internal/treasury"
	"github.com/jmerrifield20/SignalMiner/pkg/client"
	"go.uber.org/zap"
)

// ── Daemon under test ───────────────────────────────────────────────────

func startDaemon(t *testing.T, tokens *auth.TokenIssuer) (*httptest.Server, *service.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	store := kvstore.NewMemoryStore()
	ledger := rewards.Open(context.Background(), store,
		rewards.WithClock(rewards.ClockFunc(func() time.Time { return now })),
	)
	svc := service.New(context.Background(), ledger, treasury.NewNoopTreasury(zap.NewNop()), store, zap.NewNop())
	router := handler.NewRouter(t.Context(), svc, handler.RouterConfig{Tokens: tokens}, zap.NewNop())
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, svc
}

func TestNew_invalidURL(t *testing.T) {
	if _, err := client.New("not a url"); err == nil {
		t.Error("expected error for invalid URL")
	}
}

func TestClient_session(t *testing.T) {
	srv, _ := startDaemon(t, nil)
	c := client.MustNew(srv.URL)
	ctx := context.Background()

	l, err := c.StartSession(ctx)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if !l.MiningActive || l.SessionRemaining != "24:00:00" {
		t.Errorf("unexpected ledger %+v", l)
	}

	earned, _, err := c.Settle(ctx)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if earned != 0 {
		t.Errorf("earned = %v, want 0 with a frozen clock", earned)
	}
}

func TestClient_tasksAndSwap(t *testing.T) {
	srv, _ := startDaemon(t, nil)
	c := client.MustNew(srv.URL)
	ctx := context.Background()

	tasks, err := c.Tasks(ctx)
	if err != nil {
		t.Fatalf("Tasks: %v", err)
	}
	if len(tasks) != 9 {
		t.Errorf("got %d tasks, want 9", len(tasks))
	}

	for _, id := range []string{"base_connect", "base_tx"} {
		if _, err := c.ClaimTask(ctx, id); err != nil {
			t.Fatalf("ClaimTask(%s): %v", id, err)
		}
	}
	if _, err := c.ClaimTask(ctx, "base_tx"); !client.IsStatus(err, http.StatusConflict) {
		t.Errorf("duplicate claim err = %v, want 409", err)
	}

	q, err := c.QuoteSwap(ctx, 1000)
	if err != nil || q.Signal != 100 {
		t.Fatalf("QuoteSwap = %+v, %v", q, err)
	}

	res, err := c.Swap(ctx, 1000)
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}
	if res.Receipt.Signal != 100 || res.Ledger.Points != 0 || res.Ledger.TotalSwapped != 100 {
		t.Errorf("unexpected swap result %+v", res)
	}

	_, err = c.Swap(ctx, 1000)
	if !client.IsStatus(err, http.StatusUnprocessableEntity) {
		t.Errorf("second swap err = %v, want 422", err)
	}
}

func TestClient_tiersAndStake(t *testing.T) {
	srv, _ := startDaemon(t, nil)
	c := client.MustNew(srv.URL)
	ctx := context.Background()

	if _, err := c.PurchaseTier(ctx, 1); err != nil {
		t.Fatalf("PurchaseTier: %v", err)
	}
	tiers, err := c.Tiers(ctx)
	if err != nil {
		t.Fatalf("Tiers: %v", err)
	}
	if !tiers[1].Current || !tiers[0].Owned || tiers[2].Owned {
		t.Errorf("unexpected tiers %+v", tiers)
	}

	opts, err := c.StakeOptions(ctx)
	if err != nil || len(opts) != 3 {
		t.Fatalf("StakeOptions = %v, %v", opts, err)
	}
	res, err := c.Stake(ctx, 500, 7)
	if err != nil {
		t.Fatalf("Stake: %v", err)
	}
	if res.Ledger.StakeMultiplier != 1.1 || res.Ledger.StakeUnlockTime == nil {
		t.Errorf("unexpected ledger %+v", res.Ledger)
	}
	if _, err := c.Unstake(ctx); !client.IsStatus(err, http.StatusConflict) {
		t.Errorf("early unstake err = %v, want 409", err)
	}
}

func TestClient_boosts(t *testing.T) {
	srv, _ := startDaemon(t, nil)
	c := client.MustNew(srv.URL)
	ctx := context.Background()

	prices, err := c.BoostPrices(ctx)
	if err != nil || len(prices) != 2 {
		t.Fatalf("BoostPrices = %v, %v", prices, err)
	}

	if _, err := c.Boost(ctx, "warpcast.com/nope", ""); !client.IsStatus(err, http.StatusBadRequest) {
		t.Errorf("bad url err = %v, want 400", err)
	}

	res, err := c.Boost(ctx, "https://x.com/alice/status/9", "eth")
	if err != nil {
		t.Fatalf("Boost: %v", err)
	}
	if res.Receipt.Kind != "boost" || res.Receipt.TxHash == "" || len(res.Boosts) != 1 {
		t.Errorf("unexpected boost result %+v", res)
	}

	boosts, err := c.Boosts(ctx)
	if err != nil {
		t.Fatalf("Boosts: %v", err)
	}
	if len(boosts) != 1 || boosts[0].Platform != "Twitter / X" || boosts[0].Token != "eth" {
		t.Errorf("unexpected boosts %+v", boosts)
	}
}

func TestClient_bearerToken(t *testing.T) {
	tokens, err := auth.NewTokenIssuer("0123456789abcdef0123456789abcdef", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	srv, _ := startDaemon(t, tokens)
	ctx := context.Background()

	if _, err := client.MustNew(srv.URL).StartSession(ctx); !client.IsStatus(err, http.StatusUnauthorized) {
		t.Errorf("without token err = %v, want 401", err)
	}

	token, _ := tokens.Issue("cli")
	if _, err := client.MustNew(srv.URL, client.WithBearerToken(token)).StartSession(ctx); err != nil {
		t.Errorf("with token: %v", err)
	}
}
