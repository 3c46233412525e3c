package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"crocPlanner/internal/chain"
	"crocPlanner/internal/config"
	"crocPlanner/internal/croc"
	"crocPlanner/internal/model"
	"crocPlanner/internal/planner"
	"crocPlanner/internal/storage"
	"crocPlanner/internal/storage/postgres"
	"crocPlanner/internal/token"
)

// session holds everything an online command needs for one invocation.
type session struct {
	cfg    config.Config
	chain  config.ChainSpec
	logger *zap.Logger
	out    io.Writer

	client  *chain.Client
	query   *croc.Query
	tokens  *croc.Tokens
	planner *planner.Context

	journal storage.Storage
	store   *postgres.Store
}

func loadConfig(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// runOnline opens a session against the configured chain and runs fn.
func runOnline(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx, cfg, logger, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer s.close()

	return fn(ctx, s)
}

func openSession(ctx context.Context, cfg config.Config, logger *zap.Logger, out io.Writer) (*session, error) {
	spec, err := cfg.ActiveChain()
	if err != nil {
		return nil, err
	}

	var sender common.Address
	if cfg.Sender != "" {
		sender, err = config.ParseAddress(cfg.Sender)
		if err != nil {
			return nil, fmt.Errorf("sender: %w", err)
		}
	}

	client, err := chain.NewClient(ctx, spec.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	s := &session{cfg: cfg, chain: spec, logger: logger, out: out, client: client}

	id, err := client.ChainID(ctx)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("chain id: %w", err)
	}
	if id.Uint64() != spec.ChainID {
		logger.Warn("rpc chain id differs from the selected chain",
			zap.Uint64("selected", spec.ChainID),
			zap.String("rpc", id.String()),
		)
	}

	policy := croc.RetryPolicy{Attempts: cfg.RetryAttempts, Delay: cfg.RetryDelay}
	s.query = croc.NewQuery(client, spec.Query, policy, logger)
	s.tokens = croc.NewTokens(client, policy, nil, logger)
	impact := croc.NewImpact(client, spec.Impact, policy, logger)
	slots := croc.NewSlotReader(client, spec.Dex)

	s.planner, err = planner.NewContext(spec, sender, s.query, impact, slots, logger)
	if err != nil {
		s.close()
		return nil, err
	}
	if missing, err := s.planner.MissingProxies(ctx); err != nil {
		logger.Warn("proxy path check failed", zap.Error(err))
	} else if len(missing) > 0 {
		logger.Warn("configured call paths have no proxy installed", zap.Uint16s("paths", missing))
	}

	if cfg.Journal != "" {
		s.journal = storage.NewJsonlStorage(cfg.Journal)
	}
	if cfg.PGDSN != "" {
		s.store, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := s.store.EnsureSchema(ctx); err != nil {
			s.close()
			return nil, err
		}
	}

	logger.Debug("session open",
		zap.Uint64("chain_id", spec.ChainID),
		zap.String("rpc", spec.RPCURL),
		zap.String("dex", spec.Dex.Hex()),
		zap.String("sender", sender.Hex()),
	)
	return s, nil
}

func (s *session) close() {
	if s.store != nil {
		s.store.Close()
	}
	if s.client != nil {
		s.client.Close()
	}
}

// resolveToken accepts an address or "eth"/"native" for the native token.
func (s *session) resolveToken(ctx context.Context, input string) (token.View, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", "eth", "native":
		return token.NativeView(), nil
	}
	addr, err := config.ParseAddress(input)
	if err != nil {
		return token.View{}, err
	}
	return s.tokens.View(ctx, addr)
}

func (s *session) resolvePair(ctx context.Context, a, b string) (token.View, token.View, error) {
	first, err := s.resolveToken(ctx, a)
	if err != nil {
		return token.View{}, token.View{}, fmt.Errorf("token %s: %w", a, err)
	}
	second, err := s.resolveToken(ctx, b)
	if err != nil {
		return token.View{}, token.View{}, fmt.Errorf("token %s: %w", b, err)
	}
	if first.Address == second.Address {
		return token.View{}, token.View{}, fmt.Errorf("pair needs two distinct tokens")
	}
	return first, second, nil
}

// record prints the plan and appends it to the configured journals.
func (s *session) record(ctx context.Context, kind string, pool croc.PoolKey, tx planner.TxPlan, plan interface{}) error {
	if err := emit(s.out, plan); err != nil {
		return err
	}
	if s.journal == nil && s.store == nil {
		return nil
	}

	rec, err := model.NewPlanRecord(kind, s.chain.ChainID, plan, time.Now())
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	rec.Base = pool.Base.Hex()
	rec.Quote = pool.Quote.Hex()
	rec.PoolIdx = pool.PoolIdx
	if s.planner.Sender != (common.Address{}) {
		rec.Sender = s.planner.Sender.Hex()
	}
	rec.To = tx.To.Hex()
	rec.Value = "0"
	if tx.Value != nil {
		rec.Value = tx.Value.String()
	}

	records := []model.PlanRecord{rec}
	if s.journal != nil {
		if err := s.journal.PutPlanBatch(records); err != nil {
			return err
		}
	}
	if s.store != nil {
		if err := s.store.InsertPlans(ctx, records); err != nil {
			return fmt.Errorf("insert plan: %w", err)
		}
	}
	s.logger.Info("plan recorded", zap.String("kind", kind), zap.String("to", rec.To), zap.String("value", rec.Value))
	return nil
}

// observePool stores the pool state a plan was computed against.
func (s *session) observePool(ctx context.Context, pool croc.PoolKey, snap planner.Snapshot) {
	if s.store == nil {
		return
	}
	prev, found, err := s.store.LoadPool(ctx, s.chain.ChainID, pool.Base.Hex(), pool.Quote.Hex(), pool.PoolIdx)
	if err != nil {
		s.logger.Warn("pool lookup failed", zap.Error(err))
	} else if found {
		if drift := tickDrift(prev, snap); drift != 0 {
			s.logger.Info("pool moved since last observation",
				zap.Int32("prev_tick", prev.Tick),
				zap.Int32("tick", snap.Tick),
				zap.Int32("drift", drift),
				zap.Time("prev_observed_at", prev.ObservedAt))
		}
	}
	err = s.store.UpsertPools(ctx, []model.Pool{{
		ChainID:    s.chain.ChainID,
		Base:       pool.Base.Hex(),
		Quote:      pool.Quote.Hex(),
		PoolIdx:    pool.PoolIdx,
		GridSize:   s.chain.GridSize,
		SqrtPrice:  snap.SqrtPrice.String(),
		Tick:       snap.Tick,
		ObservedAt: time.Now().UTC(),
	}})
	if err != nil {
		s.logger.Warn("pool upsert failed", zap.Error(err))
	}
}

// tickDrift is how many ticks the pool moved since prev was stored.
func tickDrift(prev model.Pool, snap planner.Snapshot) int32 {
	return snap.Tick - prev.Tick
}

// checkFunding warns when the sender cannot cover a plan sent to spender.
// It never fails the plan itself.
func (s *session) checkFunding(ctx context.Context, tok token.View, need *big.Int, spender common.Address) {
	sender := s.planner.Sender
	if sender == (common.Address{}) || need == nil || need.Sign() <= 0 {
		return
	}
	if tok.IsNative() {
		balance, err := s.client.BalanceAt(ctx, sender, nil)
		if err != nil {
			s.logger.Warn("native balance lookup failed", zap.Error(err))
			return
		}
		if balance.Cmp(need) < 0 {
			s.logger.Warn("insufficient native balance", zap.String("balance", balance.String()), zap.String("need", need.String()))
		}
		return
	}

	allowance, err := s.tokens.Allowance(ctx, tok.Address, sender, spender)
	if err != nil {
		s.logger.Warn("allowance lookup failed", zap.String("token", tok.Address.Hex()), zap.Error(err))
		return
	}
	if allowance.Cmp(need) < 0 {
		s.logger.Warn("approval required", zap.String("token", tok.Address.Hex()), zap.String("spender", spender.Hex()), zap.String("allowance", allowance.String()), zap.String("need", need.String()))
	}
	balance, err := s.tokens.BalanceOf(ctx, tok.Address, sender)
	if err != nil {
		s.logger.Warn("balance lookup failed", zap.String("token", tok.Address.Hex()), zap.Error(err))
		return
	}
	if balance.Cmp(need) < 0 {
		s.logger.Warn("insufficient token balance", zap.String("token", tok.Address.Hex()), zap.String("balance", balance.String()), zap.String("need", need.String()))
	}
}

func emit(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseBlock(block uint64) *big.Int {
	if block == 0 {
		return nil
	}
	return new(big.Int).SetUint64(block)
}
