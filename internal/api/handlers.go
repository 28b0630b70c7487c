package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"reserve-swap/internal/domain"
	"reserve-swap/internal/reserve"
)

// Amounts travel as decimal strings; plain JSON numbers are accepted too.
type amount json.Number

func (a amount) uint64() (uint64, error) {
	v, err := strconv.ParseUint(string(a), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q: must be an unsigned 64-bit integer", errBadPayload, string(a))
	}
	return v, nil
}

func (a *amount) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*a = amount(n)
	return nil
}

func formatAmount(v uint64) string {
	return strconv.FormatUint(v, 10)
}

type premiumView struct {
	ID           string `json:"id"`
	PremiumMint  string `json:"premium_mint"`
	PremiumVault string `json:"premium_vault"`
	GoLiveAt     int64  `json:"go_live_at"`
	CreatedAt    int64  `json:"created_at"`
	Capacity     uint32 `json:"capacity"`
	Owner        string `json:"owner"`
	Label        string `json:"label"`
	Bump         uint8  `json:"bump"`
	VaultBump    uint8  `json:"vault_bump"`
}

func newPremiumView(r *domain.PremiumReserve) premiumView {
	return premiumView{
		ID:           r.ID,
		PremiumMint:  r.PremiumMint,
		PremiumVault: r.PremiumVault,
		GoLiveAt:     r.GoLiveAt,
		CreatedAt:    r.CreatedAt,
		Capacity:     r.Capacity,
		Owner:        r.Owner,
		Label:        r.Label,
		Bump:         r.Bump,
		VaultBump:    r.VaultBump,
	}
}

type normalView struct {
	ID          string `json:"id"`
	PremiumID   string `json:"premium_id"`
	NormalMint  string `json:"normal_mint"`
	NormalVault string `json:"normal_vault"`
	GoLiveAt    int64  `json:"go_live_at"`
	CreatedAt   int64  `json:"created_at"`
	Bump        uint8  `json:"bump"`
	VaultBump   uint8  `json:"vault_bump"`
}

func newNormalView(r *domain.NormalReserve) normalView {
	return normalView{
		ID:          r.ID,
		PremiumID:   r.ParentID,
		NormalMint:  r.NormalMint,
		NormalVault: r.NormalVault,
		GoLiveAt:    r.GoLiveAt,
		CreatedAt:   r.CreatedAt,
		Bump:        r.Bump,
		VaultBump:   r.VaultBump,
	}
}

type accountView struct {
	Address string `json:"address"`
	Mint    string `json:"mint"`
	Owner   string `json:"owner"`
	Amount  string `json:"amount"`
	Frozen  bool   `json:"frozen"`
}

func newAccountView(a *domain.TokenAccount) accountView {
	return accountView{
		Address: a.Address,
		Mint:    a.Mint,
		Owner:   a.Owner,
		Amount:  formatAmount(a.Amount),
		Frozen:  a.Frozen,
	}
}

type transferView struct {
	ID          string `json:"id"`
	OperationID string `json:"operation_id"`
	Operation   string `json:"operation"`
	Leg         int    `json:"leg"`
	From        string `json:"from"`
	To          string `json:"to"`
	Mint        string `json:"mint"`
	Amount      string `json:"amount"`
	Authority   string `json:"authority"`
	ExecutedAt  int64  `json:"executed_at"`
}

func newTransferViews(transfers []*domain.Transfer) []transferView {
	out := make([]transferView, 0, len(transfers))
	for _, t := range transfers {
		out = append(out, transferView{
			ID:          t.ID,
			OperationID: t.OperationID,
			Operation:   t.Operation,
			Leg:         t.Leg,
			From:        t.From,
			To:          t.To,
			Mint:        t.Mint,
			Amount:      formatAmount(t.Amount),
			Authority:   t.Authority,
			ExecutedAt:  t.ExecutedAt,
		})
	}
	return out
}

type receiptView struct {
	OperationID string         `json:"operation_id"`
	Transfers   []transferView `json:"transfers"`
}

func newReceiptView(r *reserve.Receipt) receiptView {
	return receiptView{OperationID: r.OperationID, Transfers: newTransferViews(r.Transfers)}
}

// CreatePremium handles POST /v1/reserves/premium. The signer becomes the owner.
func (s *Server) CreatePremium(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mint     string `json:"mint"`
		Vault    string `json:"vault"`
		GoLiveAt int64  `json:"go_live_at"`
		Capacity uint32 `json:"capacity"`
		Label    string `json:"label"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.svc.CreatePremium(r.Context(), reserve.CreatePremiumRequest{
		Owner:    signerFrom(r.Context()),
		Mint:     req.Mint,
		Vault:    req.Vault,
		GoLiveAt: req.GoLiveAt,
		Capacity: req.Capacity,
		Label:    req.Label,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newPremiumView(created))
}

// CreateNormal handles POST /v1/reserves/normal. The signer pays and must own the parent.
func (s *Server) CreateNormal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PremiumID     string `json:"premium_id"`
		Mint          string `json:"mint"`
		Vault         string `json:"vault"`
		GoLiveAt      int64  `json:"go_live_at"`
		InitializedAt int64  `json:"initialized_at"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.svc.CreateNormal(r.Context(), reserve.CreateNormalRequest{
		Payer:         signerFrom(r.Context()),
		Vault:         req.Vault,
		Mint:          req.Mint,
		PremiumID:     req.PremiumID,
		GoLiveAt:      req.GoLiveAt,
		InitializedAt: req.InitializedAt,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newNormalView(created))
}

func (s *Server) swapHandler(dir reserve.Direction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			PremiumID    string `json:"premium_id"`
			NormalID     string `json:"normal_id"`
			PremiumVault string `json:"premium_vault"`
			NormalVault  string `json:"normal_vault"`
			Source       string `json:"source"`
			Destination  string `json:"destination"`
			Amount       amount `json:"amount"`
		}
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		amt, err := req.Amount.uint64()
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		receipt, err := s.svc.Swap(r.Context(), dir, reserve.SwapRequest{
			Signer:       signerFrom(r.Context()),
			PremiumID:    req.PremiumID,
			NormalID:     req.NormalID,
			PremiumVault: req.PremiumVault,
			NormalVault:  req.NormalVault,
			Source:       req.Source,
			Destination:  req.Destination,
			Amount:       amt,
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newReceiptView(receipt))
	}
}

// WithdrawPremium handles POST /v1/withdraw/premium.
func (s *Server) WithdrawPremium(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PremiumID   string `json:"premium_id"`
		Vault       string `json:"vault"`
		Destination string `json:"destination"`
		Amount      amount `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	amt, err := req.Amount.uint64()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	receipt, err := s.svc.WithdrawPremium(r.Context(), reserve.WithdrawPremiumRequest{
		Authority:   signerFrom(r.Context()),
		PremiumID:   req.PremiumID,
		Vault:       req.Vault,
		Destination: req.Destination,
		Amount:      amt,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newReceiptView(receipt))
}

// WithdrawNormal handles POST /v1/withdraw/normal.
func (s *Server) WithdrawNormal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PremiumID   string `json:"premium_id"`
		NormalID    string `json:"normal_id"`
		Vault       string `json:"vault"`
		Destination string `json:"destination"`
		Amount      amount `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	amt, err := req.Amount.uint64()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	receipt, err := s.svc.WithdrawNormal(r.Context(), reserve.WithdrawNormalRequest{
		Authority:   signerFrom(r.Context()),
		PremiumID:   req.PremiumID,
		NormalID:    req.NormalID,
		Vault:       req.Vault,
		Destination: req.Destination,
		Amount:      amt,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newReceiptView(receipt))
}

// GetPremium handles GET /v1/reserves/premium/{id}.
func (s *Server) GetPremium(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.GetPremium(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPremiumView(p))
}

// ListNormal handles GET /v1/reserves/premium/{id}/normal.
func (s *Server) ListNormal(w http.ResponseWriter, r *http.Request) {
	children, err := s.svc.ListNormal(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]normalView, 0, len(children))
	for _, n := range children {
		out = append(out, newNormalView(n))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetNormal handles GET /v1/reserves/normal/{id}.
func (s *Server) GetNormal(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.GetNormal(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newNormalView(n))
}

// OpenAccount handles POST /v1/accounts. The signer owns the new account.
func (s *Server) OpenAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mint string `json:"mint"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	a, err := s.svc.OpenAccount(r.Context(), signerFrom(r.Context()), req.Mint)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newAccountView(a))
}

// GetAccount handles GET /v1/accounts/{address}.
func (s *Server) GetAccount(w http.ResponseWriter, r *http.Request) {
	a, err := s.svc.Account(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountView(a))
}

// GetTransfers handles GET /v1/accounts/{address}/transfers.
func (s *Server) GetTransfers(w http.ResponseWriter, r *http.Request) {
	transfers, err := s.svc.History(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransferViews(transfers))
}

// Mint handles POST /v1/accounts/{address}/mint. Development only.
func (s *Server) Mint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount amount `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	amt, err := req.Amount.uint64()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	a, err := s.svc.Fund(r.Context(), chi.URLParam(r, "address"), amt)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountView(a))
}
