package reserve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reserve-swap/internal/clock"
	"reserve-swap/internal/domain"
	"reserve-swap/internal/pda/pdatest"
	"reserve-swap/internal/storage"
	"reserve-swap/internal/storage/memory"
	"reserve-swap/internal/token"
)

const t0 = int64(1_700_000_000)

type fixture struct {
	ctx     context.Context
	clock   *clock.Fixed
	journal *memory.TransferJournal
	svc     *Service

	owner       string
	user        string
	premiumMint string
	normalMint  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	f := &fixture{
		ctx:         context.Background(),
		clock:       clock.NewFixed(t0),
		journal:     memory.NewTransferJournal(),
		owner:       pdatest.Signer("owner"),
		user:        pdatest.Signer("user"),
		premiumMint: pdatest.Mint("premium"),
		normalMint:  pdatest.Mint("normal"),
	}

	svc, err := NewService(Options{
		UnitOfWork: memory.NewStore(),
		Clock:      f.clock,
		Journal:    f.journal,
		Logger:     logger,
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) createPremium(t *testing.T, label string, goLiveAt int64) *domain.PremiumReserve {
	t.Helper()
	r, err := f.svc.CreatePremium(f.ctx, CreatePremiumRequest{
		Owner:    f.owner,
		Mint:     f.premiumMint,
		GoLiveAt: goLiveAt,
		Capacity: 4,
		Label:    label,
	})
	require.NoError(t, err)
	return r
}

func (f *fixture) createNormal(t *testing.T, premiumID, mint string, goLiveAt int64) *domain.NormalReserve {
	t.Helper()
	r, err := f.svc.CreateNormal(f.ctx, CreateNormalRequest{
		Payer:     f.owner,
		Mint:      mint,
		PremiumID: premiumID,
		GoLiveAt:  goLiveAt,
	})
	require.NoError(t, err)
	return r
}

// openFunded opens the default account of owner for mint and credits amount.
func (f *fixture) openFunded(t *testing.T, owner, mint string, amount uint64) string {
	t.Helper()
	a, err := f.svc.OpenAccount(f.ctx, owner, mint)
	require.NoError(t, err)
	if amount > 0 {
		_, err = f.svc.Fund(f.ctx, a.Address, amount)
		require.NoError(t, err)
	}
	return a.Address
}

func (f *fixture) fund(t *testing.T, address string, amount uint64) {
	t.Helper()
	_, err := f.svc.Fund(f.ctx, address, amount)
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, address string) uint64 {
	t.Helper()
	a, err := f.svc.Account(f.ctx, address)
	require.NoError(t, err)
	return a.Amount
}

// pairSetup is a live pair with a funded user on both mints.
type pairSetup struct {
	premium     *domain.PremiumReserve
	normal      *domain.NormalReserve
	userPremium string
	userNormal  string
}

func (f *fixture) livePair(t *testing.T, userPremium, userNormal, premiumVault, normalVault uint64) pairSetup {
	t.Helper()
	p := f.createPremium(t, "pair", t0)
	n := f.createNormal(t, p.ID, f.normalMint, t0)
	s := pairSetup{
		premium:     p,
		normal:      n,
		userPremium: f.openFunded(t, f.user, f.premiumMint, userPremium),
		userNormal:  f.openFunded(t, f.user, f.normalMint, userNormal),
	}
	if premiumVault > 0 {
		f.fund(t, p.PremiumVault, premiumVault)
	}
	if normalVault > 0 {
		f.fund(t, n.NormalVault, normalVault)
	}
	f.clock.Advance(1)
	return s
}

func (s pairSetup) swapRequest(f *fixture, dir Direction, amount uint64) SwapRequest {
	req := SwapRequest{
		Signer:       f.user,
		PremiumID:    s.premium.ID,
		NormalID:     s.normal.ID,
		PremiumVault: s.premium.PremiumVault,
		NormalVault:  s.normal.NormalVault,
		Amount:       amount,
	}
	if dir == PremiumForNormal {
		req.Source, req.Destination = s.userPremium, s.userNormal
	} else {
		req.Source, req.Destination = s.userNormal, s.userPremium
	}
	return req
}

func TestNewService_RequiresUnitOfWork(t *testing.T) {
	_, err := NewService(Options{})
	require.Error(t, err)
}

func TestCreatePremium_ClampsGoLive(t *testing.T) {
	f := newFixture(t)

	past := f.createPremium(t, "past", t0-100)
	assert.Equal(t, t0, past.GoLiveAt)
	assert.Equal(t, t0, past.CreatedAt)

	future := f.createPremium(t, "future", t0+50)
	assert.Equal(t, t0+50, future.GoLiveAt)
}

func TestCreatePremium_OpensCustodialVault(t *testing.T) {
	f := newFixture(t)
	r := f.createPremium(t, "vault", t0)

	vault, err := f.svc.Account(f.ctx, r.PremiumVault)
	require.NoError(t, err)
	assert.Equal(t, r.ID, vault.Owner)
	assert.Equal(t, f.premiumMint, vault.Mint)
	assert.Zero(t, vault.Amount)

	loaded, err := f.svc.GetPremium(f.ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r, loaded)
}

func TestCreatePremium_VaultHintMustMatch(t *testing.T) {
	f := newFixture(t)

	id, _, err := f.svc.Deriver().PremiumReserve(f.premiumMint, "hint")
	require.NoError(t, err)
	vault, _, err := f.svc.Deriver().PremiumVault(id)
	require.NoError(t, err)

	_, err = f.svc.CreatePremium(f.ctx, CreatePremiumRequest{
		Owner: f.owner,
		Mint:  f.premiumMint,
		Vault: pdatest.Mint("elsewhere"),
		Label: "hint",
	})
	require.ErrorIs(t, err, ErrAccountMismatch)

	_, err = f.svc.GetPremium(f.ctx, id)
	require.ErrorIs(t, err, storage.ErrNotFound)

	r, err := f.svc.CreatePremium(f.ctx, CreatePremiumRequest{
		Owner: f.owner,
		Mint:  f.premiumMint,
		Vault: vault,
		Label: "hint",
	})
	require.NoError(t, err)
	assert.Equal(t, vault, r.PremiumVault)
}

func TestCreatePremium_Duplicate(t *testing.T) {
	f := newFixture(t)
	f.createPremium(t, "dup", t0)

	_, err := f.svc.CreatePremium(f.ctx, CreatePremiumRequest{
		Owner: f.owner,
		Mint:  f.premiumMint,
		Label: "dup",
	})
	require.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestCreatePremium_InvalidInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreatePremium(f.ctx, CreatePremiumRequest{
		Owner: "not base58 0OIl",
		Mint:  f.premiumMint,
	})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.svc.CreatePremium(f.ctx, CreatePremiumRequest{
		Owner: f.owner,
		Mint:  f.premiumMint,
		Label: "a label that is much longer than thirty-two bytes",
	})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestCreateNormal_MintCollision(t *testing.T) {
	f := newFixture(t)
	p := f.createPremium(t, "collide", t0)

	_, err := f.svc.CreateNormal(f.ctx, CreateNormalRequest{
		Payer:     f.owner,
		Mint:      f.premiumMint,
		PremiumID: p.ID,
	})
	require.ErrorIs(t, err, ErrMintCollision)
	assert.Contains(t, err.Error(), "premium mint can't be the same as normal mint")

	children, err := f.svc.ListNormal(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestCreateNormal_AuthorityMismatch(t *testing.T) {
	f := newFixture(t)
	p := f.createPremium(t, "auth", t0)

	_, err := f.svc.CreateNormal(f.ctx, CreateNormalRequest{
		Payer:     f.user,
		Mint:      f.normalMint,
		PremiumID: p.ID,
	})
	require.ErrorIs(t, err, ErrAuthorityMismatch)

	children, err := f.svc.ListNormal(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestCreateNormal_UnknownParent(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateNormal(f.ctx, CreateNormalRequest{
		Payer:     f.owner,
		Mint:      f.normalMint,
		PremiumID: pdatest.Mint("missing"),
	})
	require.ErrorIs(t, err, ErrAccountMismatch)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCreateNormal_ParentMustBePremium(t *testing.T) {
	f := newFixture(t)
	p := f.createPremium(t, "typed", t0)
	n := f.createNormal(t, p.ID, f.normalMint, t0)

	_, err := f.svc.CreateNormal(f.ctx, CreateNormalRequest{
		Payer:     f.owner,
		Mint:      pdatest.Mint("other"),
		PremiumID: n.ID,
	})
	require.ErrorIs(t, err, ErrAccountMismatch)
	assert.ErrorIs(t, err, storage.ErrTypeMismatch)
}

func TestCreateNormal_Timestamps(t *testing.T) {
	f := newFixture(t)
	p := f.createPremium(t, "times", t0)

	first := f.createNormal(t, p.ID, pdatest.Mint("n1"), t0-10)
	assert.Equal(t, t0, first.GoLiveAt)
	assert.Equal(t, t0, first.CreatedAt)
	assert.Equal(t, p.ID, first.ParentID)

	second, err := f.svc.CreateNormal(f.ctx, CreateNormalRequest{
		Payer:         f.owner,
		Mint:          pdatest.Mint("n2"),
		PremiumID:     p.ID,
		GoLiveAt:      t0 + 50,
		InitializedAt: t0 - 500,
	})
	require.NoError(t, err)
	assert.Equal(t, t0+50, second.GoLiveAt)
	assert.Equal(t, t0-500, second.CreatedAt)

	children, err := f.svc.ListNormal(f.ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, second.ID, children[0].ID)
	assert.Equal(t, first.ID, children[1].ID)

	vault, err := f.svc.Account(f.ctx, first.NormalVault)
	require.NoError(t, err)
	assert.Equal(t, first.ID, vault.Owner)
}

func TestCreateNormal_SameMintTwice(t *testing.T) {
	f := newFixture(t)
	p := f.createPremium(t, "twice", t0)
	f.createNormal(t, p.ID, f.normalMint, t0)

	_, err := f.svc.CreateNormal(f.ctx, CreateNormalRequest{
		Payer:     f.owner,
		Mint:      f.normalMint,
		PremiumID: p.ID,
	})
	require.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestSwap_GoLiveScenario(t *testing.T) {
	f := newFixture(t)

	p := f.createPremium(t, "scenario", t0)
	n := f.createNormal(t, p.ID, f.normalMint, t0+50)
	s := pairSetup{
		premium:     p,
		normal:      n,
		userPremium: f.openFunded(t, f.user, f.premiumMint, 100),
		userNormal:  f.openFunded(t, f.user, f.normalMint, 0),
	}
	f.fund(t, n.NormalVault, 1000)

	f.clock.Set(t0 + 10)
	receipt, err := f.svc.SwapPremiumForNormal(f.ctx, s.swapRequest(f, PremiumForNormal, 40))
	require.ErrorIs(t, err, ErrNotLive)
	assert.Contains(t, err.Error(), "normal reserve not live yet")
	assert.Nil(t, receipt)
	assert.Equal(t, uint64(100), f.balance(t, s.userPremium))
	assert.Equal(t, uint64(1000), f.balance(t, n.NormalVault))

	f.clock.Set(t0 + 60)
	receipt, err = f.svc.SwapPremiumForNormal(f.ctx, s.swapRequest(f, PremiumForNormal, 40))
	require.NoError(t, err)
	require.NotNil(t, receipt)
	require.Len(t, receipt.Transfers, 2)

	assert.Equal(t, uint64(60), f.balance(t, s.userPremium))
	assert.Equal(t, uint64(40), f.balance(t, p.PremiumVault))
	assert.Equal(t, uint64(960), f.balance(t, n.NormalVault))
	assert.Equal(t, uint64(40), f.balance(t, s.userNormal))

	legA, legB := receipt.Transfers[0], receipt.Transfers[1]
	assert.Equal(t, 0, legA.Leg)
	assert.Equal(t, s.userPremium, legA.From)
	assert.Equal(t, p.PremiumVault, legA.To)
	assert.Equal(t, f.user, legA.Authority)
	assert.Equal(t, 1, legB.Leg)
	assert.Equal(t, n.NormalVault, legB.From)
	assert.Equal(t, s.userNormal, legB.To)
	assert.Equal(t, n.ID, legB.Authority)
	assert.Equal(t, t0+60, legB.ExecutedAt)
	assert.Equal(t, domain.OpSwapPremiumForNormal, legB.Operation)
	assert.NotEqual(t, legA.ID, legB.ID)

	history, err := f.svc.History(f.ctx, s.userNormal)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, legB.ID, history[0].ID)
}

func TestSwap_GoLiveIsStrict(t *testing.T) {
	f := newFixture(t)

	p := f.createPremium(t, "strict", t0+5)
	n := f.createNormal(t, p.ID, f.normalMint, t0)
	s := pairSetup{
		premium:     p,
		normal:      n,
		userPremium: f.openFunded(t, f.user, f.premiumMint, 10),
		userNormal:  f.openFunded(t, f.user, f.normalMint, 0),
	}
	f.fund(t, n.NormalVault, 10)

	f.clock.Set(t0 + 5)
	_, err := f.svc.SwapPremiumForNormal(f.ctx, s.swapRequest(f, PremiumForNormal, 1))
	require.ErrorIs(t, err, ErrNotLive)
	assert.Contains(t, err.Error(), "premium reserve not live yet")

	f.clock.Set(t0 + 6)
	_, err = f.svc.SwapPremiumForNormal(f.ctx, s.swapRequest(f, PremiumForNormal, 1))
	require.NoError(t, err)
}

func TestSwap_NormalForPremium(t *testing.T) {
	f := newFixture(t)
	s := f.livePair(t, 0, 75, 500, 0)

	receipt, err := f.svc.SwapNormalForPremium(f.ctx, s.swapRequest(f, NormalForPremium, 75))
	require.NoError(t, err)
	require.Len(t, receipt.Transfers, 2)
	assert.Equal(t, s.premium.ID, receipt.Transfers[1].Authority)

	assert.Zero(t, f.balance(t, s.userNormal))
	assert.Equal(t, uint64(75), f.balance(t, s.normal.NormalVault))
	assert.Equal(t, uint64(425), f.balance(t, s.premium.PremiumVault))
	assert.Equal(t, uint64(75), f.balance(t, s.userPremium))
}

func TestSwap_Conservation(t *testing.T) {
	f := newFixture(t)
	s := f.livePair(t, 300, 300, 300, 300)

	total := func(a, b string) uint64 { return f.balance(t, a) + f.balance(t, b) }
	premiumSupply := total(s.userPremium, s.premium.PremiumVault)
	normalSupply := total(s.userNormal, s.normal.NormalVault)

	steps := []struct {
		dir    Direction
		amount uint64
	}{
		{PremiumForNormal, 100},
		{NormalForPremium, 250},
		{PremiumForNormal, 1},
		{NormalForPremium, 400},
		{PremiumForNormal, 301},
	}
	for i, step := range steps {
		before := f.balance(t, s.userPremium)
		_, err := f.svc.Swap(f.ctx, step.dir, s.swapRequest(f, step.dir, step.amount))
		if err != nil {
			// Rejections leave every balance untouched.
			assert.Equal(t, before, f.balance(t, s.userPremium), "step %d", i)
		}
		assert.Equal(t, premiumSupply, total(s.userPremium, s.premium.PremiumVault), "step %d", i)
		assert.Equal(t, normalSupply, total(s.userNormal, s.normal.NormalVault), "step %d", i)
	}
}

func TestSwap_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *fixture, s pairSetup, req *SwapRequest)
		want   error
		msg    string
	}{
		{
			name:   "zero amount",
			mutate: func(_ *fixture, _ pairSetup, req *SwapRequest) { req.Amount = 0 },
			want:   ErrInvalidRequest,
		},
		{
			name: "premium vault mismatch",
			mutate: func(_ *fixture, s pairSetup, req *SwapRequest) {
				req.PremiumVault = s.normal.NormalVault
			},
			want: ErrAccountMismatch,
			msg:  "invalid premium token account",
		},
		{
			name: "normal vault mismatch",
			mutate: func(_ *fixture, s pairSetup, req *SwapRequest) {
				req.NormalVault = s.userNormal
			},
			want: ErrAccountMismatch,
			msg:  "invalid normal token account",
		},
		{
			name: "normal record passed as premium",
			mutate: func(_ *fixture, s pairSetup, req *SwapRequest) {
				req.PremiumID = s.normal.ID
			},
			want: ErrAccountMismatch,
		},
		{
			name:   "vault cannot cover amount",
			mutate: func(_ *fixture, _ pairSetup, req *SwapRequest) { req.Amount = 51 },
			want:   ErrInsufficientBalance,
			msg:    "token amount too low to swap",
		},
		{
			name: "reserve id presented as signer",
			mutate: func(_ *fixture, s pairSetup, req *SwapRequest) {
				req.Signer = s.premium.ID
				req.Source = s.premium.PremiumVault
			},
			want: ErrInvalidRequest,
			msg:  "signer",
		},
		{
			name: "malformed signer",
			mutate: func(_ *fixture, _ pairSetup, req *SwapRequest) {
				req.Signer = "0OIl"
			},
			want: ErrInvalidRequest,
		},
		{
			name: "source is the inbound vault",
			mutate: func(_ *fixture, s pairSetup, req *SwapRequest) {
				req.Source = s.premium.PremiumVault
			},
			want: token.ErrSelfTransfer,
		},
		{
			name: "signer does not own source",
			mutate: func(f *fixture, _ pairSetup, req *SwapRequest) {
				req.Signer = f.owner
			},
			want: token.ErrOwnerMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			s := f.livePair(t, 100, 0, 0, 50)

			req := s.swapRequest(f, PremiumForNormal, 10)
			tt.mutate(f, s, &req)

			receipt, err := f.svc.SwapPremiumForNormal(f.ctx, req)
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, receipt)
			if tt.msg != "" {
				assert.Contains(t, err.Error(), tt.msg)
			}

			assert.Equal(t, uint64(100), f.balance(t, s.userPremium))
			assert.Zero(t, f.balance(t, s.premium.PremiumVault))
			assert.Equal(t, uint64(50), f.balance(t, s.normal.NormalVault))
			assert.Zero(t, f.balance(t, s.userNormal))
		})
	}
}

func TestSwap_ReserveCannotBeImpersonated(t *testing.T) {
	f := newFixture(t)
	s := f.livePair(t, 0, 0, 500, 500)

	for _, dir := range []Direction{PremiumForNormal, NormalForPremium} {
		req := s.swapRequest(f, dir, 300)
		if dir == PremiumForNormal {
			req.Signer, req.Source = s.premium.ID, s.premium.PremiumVault
		} else {
			req.Signer, req.Source = s.normal.ID, s.normal.NormalVault
		}

		_, err := f.svc.Swap(f.ctx, dir, req)
		require.ErrorIs(t, err, ErrInvalidRequest, dir.String())
	}

	assert.Equal(t, uint64(500), f.balance(t, s.premium.PremiumVault))
	assert.Equal(t, uint64(500), f.balance(t, s.normal.NormalVault))
	assert.Zero(t, f.balance(t, s.userPremium))
	assert.Zero(t, f.balance(t, s.userNormal))
}

func TestSwap_RelationshipMismatch(t *testing.T) {
	f := newFixture(t)
	s := f.livePair(t, 100, 0, 0, 100)
	other := f.createPremium(t, "other", t0)
	f.clock.Advance(1)

	req := s.swapRequest(f, PremiumForNormal, 10)
	req.PremiumID = other.ID
	req.PremiumVault = other.PremiumVault

	_, err := f.svc.SwapPremiumForNormal(f.ctx, req)
	require.ErrorIs(t, err, ErrRelationshipMismatch)
	assert.Contains(t, err.Error(), "not related")
	assert.Equal(t, uint64(100), f.balance(t, s.userPremium))
}

func TestSwap_SecondLegFailureRollsBackFirst(t *testing.T) {
	f := newFixture(t)
	s := f.livePair(t, 100, 0, 0, 100)

	req := s.swapRequest(f, PremiumForNormal, 30)
	// Destination holds the premium mint, so the outbound normal leg fails.
	req.Destination = s.userPremium

	_, err := f.svc.SwapPremiumForNormal(f.ctx, req)
	require.ErrorIs(t, err, ErrTransferFailure)
	assert.ErrorIs(t, err, token.ErrMintMismatch)
	assert.Contains(t, err.Error(), "leg 1")

	assert.Equal(t, uint64(100), f.balance(t, s.userPremium))
	assert.Zero(t, f.balance(t, s.premium.PremiumVault))
	assert.Equal(t, uint64(100), f.balance(t, s.normal.NormalVault))

	history, err := f.svc.History(f.ctx, s.userPremium)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestWithdrawPremium(t *testing.T) {
	f := newFixture(t)
	s := f.livePair(t, 0, 0, 200, 0)
	dest := f.openFunded(t, f.owner, f.premiumMint, 0)

	req := WithdrawPremiumRequest{
		Authority:   f.user,
		PremiumID:   s.premium.ID,
		Vault:       s.premium.PremiumVault,
		Destination: dest,
		Amount:      50,
	}
	_, err := f.svc.WithdrawPremium(f.ctx, req)
	require.ErrorIs(t, err, ErrAuthorityMismatch)
	assert.Contains(t, err.Error(), "invalid authority")

	req.Authority = f.owner
	req.Vault = dest
	_, err = f.svc.WithdrawPremium(f.ctx, req)
	require.ErrorIs(t, err, ErrAccountMismatch)

	req.Vault = s.premium.PremiumVault
	req.Amount = 201
	_, err = f.svc.WithdrawPremium(f.ctx, req)
	require.ErrorIs(t, err, ErrTransferFailure)
	assert.ErrorIs(t, err, token.ErrInsufficientFunds)

	req.Amount = 50
	receipt, err := f.svc.WithdrawPremium(f.ctx, req)
	require.NoError(t, err)
	require.Len(t, receipt.Transfers, 1)
	assert.Equal(t, s.premium.ID, receipt.Transfers[0].Authority)
	assert.Equal(t, uint64(150), f.balance(t, s.premium.PremiumVault))
	assert.Equal(t, uint64(50), f.balance(t, dest))
}

func TestWithdrawPremium_IgnoresGoLive(t *testing.T) {
	f := newFixture(t)
	p := f.createPremium(t, "later", t0+1000)
	f.fund(t, p.PremiumVault, 10)
	dest := f.openFunded(t, f.owner, f.premiumMint, 0)

	_, err := f.svc.WithdrawPremium(f.ctx, WithdrawPremiumRequest{
		Authority:   f.owner,
		PremiumID:   p.ID,
		Vault:       p.PremiumVault,
		Destination: dest,
		Amount:      10,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(10), f.balance(t, dest))
}

func TestWithdrawNormal(t *testing.T) {
	f := newFixture(t)
	s := f.livePair(t, 0, 0, 0, 80)
	other := f.createPremium(t, "unrelated", t0)
	dest := f.openFunded(t, f.owner, f.normalMint, 0)

	req := WithdrawNormalRequest{
		Authority:   f.owner,
		PremiumID:   other.ID,
		NormalID:    s.normal.ID,
		Vault:       s.normal.NormalVault,
		Destination: dest,
		Amount:      30,
	}
	_, err := f.svc.WithdrawNormal(f.ctx, req)
	require.ErrorIs(t, err, ErrRelationshipMismatch)

	req.PremiumID = s.premium.ID
	req.Authority = f.user
	_, err = f.svc.WithdrawNormal(f.ctx, req)
	require.ErrorIs(t, err, ErrAuthorityMismatch)

	req.Authority = f.owner
	receipt, err := f.svc.WithdrawNormal(f.ctx, req)
	require.NoError(t, err)
	require.Len(t, receipt.Transfers, 1)
	assert.Equal(t, s.normal.ID, receipt.Transfers[0].Authority)
	assert.Equal(t, uint64(50), f.balance(t, s.normal.NormalVault))
	assert.Equal(t, uint64(30), f.balance(t, dest))
}

func TestOpenAccount_InvalidOwner(t *testing.T) {
	f := newFixture(t)
	p := f.createPremium(t, "pda-owner", t0)

	// Reserve IDs are off-curve and cannot own user accounts.
	_, err := f.svc.OpenAccount(f.ctx, p.ID, f.premiumMint)
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{rejectf(ErrMintCollision, "x"), "mint_collision"},
		{rejectf(ErrAuthorityMismatch, "x"), "authority_mismatch"},
		{rejectf(ErrRelationshipMismatch, "x"), "relationship_mismatch"},
		{rejectf(ErrAccountMismatch, "x"), "account_mismatch"},
		{rejectf(ErrNotLive, "x"), "not_live"},
		{rejectf(ErrInsufficientBalance, "x"), "insufficient_balance"},
		{fmt.Errorf("%w: leg 0: %w", ErrTransferFailure, token.ErrTransfer), "transfer_failure"},
		{rejectf(ErrInvalidRequest, "x"), "invalid_request"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Kind(tt.err))
	}
}
