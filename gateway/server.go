package gateway

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"vouchnet/native/voucher"
)

// NodeView is the read surface the gateway exposes over HTTP. The voucher
// engine satisfies it directly.
type NodeView interface {
	Voucher(id [32]byte) (*voucher.Voucher, error)
	Promise(id [32]byte) (*voucher.Promise, error)
	Supply(id [32]byte) (*voucher.Supply, error)
	EscrowBalance(holder [20]byte, currency voucher.Currency) (*big.Int, error)
}

// Server is the read-only HTTP front-end for voucher state.
type Server struct {
	view NodeView
	log  *slog.Logger
}

// NewServer constructs a gateway over the supplied view.
func NewServer(view NodeView, log *slog.Logger) *Server {
	if view == nil {
		panic("gateway: node view required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{view: view, log: log}
}

// Router assembles the HTTP routes.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/vouchers/{id}", s.handleVoucher)
		r.Get("/promises/{id}", s.handlePromise)
		r.Get("/supplies/{id}", s.handleSupply)
		r.Get("/escrow/{holder}/{currency}", s.handleEscrowBalance)
	})
	return r
}

type voucherResponse struct {
	ID                  string `json:"id"`
	SupplyID            string `json:"supplyId"`
	Holder              string `json:"holder"`
	Status              string `json:"status"`
	CommittedAt         int64  `json:"committedAt"`
	ComplainWindowStart int64  `json:"complainWindowStart,omitempty"`
	CancelWindowStart   int64  `json:"cancelWindowStart,omitempty"`
	PaymentReleased     bool   `json:"paymentReleased"`
	DepositsReleased    bool   `json:"depositsReleased"`
}

type promiseResponse struct {
	ID              string `json:"id"`
	Seller          string `json:"seller"`
	ValidFrom       int64  `json:"validFrom"`
	ValidTo         int64  `json:"validTo"`
	Price           string `json:"price"`
	SellerDeposit   string `json:"sellerDeposit"`
	BuyerDeposit    string `json:"buyerDeposit"`
	PriceCurrency   string `json:"priceCurrency"`
	DepositCurrency string `json:"depositCurrency"`
	Quantity        uint64 `json:"quantity"`
}

type supplyResponse struct {
	ID                string `json:"id"`
	PromiseID         string `json:"promiseId"`
	Issuer            string `json:"issuer"`
	Remaining         uint64 `json:"remaining"`
	Open              uint64 `json:"open"`
	DepositsReclaimed bool   `json:"depositsReclaimed"`
}

type balanceResponse struct {
	Holder   string `json:"holder"`
	Currency string `json:"currency"`
	Balance  string `json:"balance"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVoucher(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	v, err := s.view.Voucher(id)
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, voucherResponse{
		ID:                  hex.EncodeToString(v.ID[:]),
		SupplyID:            hex.EncodeToString(v.SupplyID[:]),
		Holder:              hex.EncodeToString(v.Holder[:]),
		Status:              v.Status.String(),
		CommittedAt:         v.CommittedAt,
		ComplainWindowStart: v.ComplainWindowStart,
		CancelWindowStart:   v.CancelWindowStart,
		PaymentReleased:     v.PaymentReleased,
		DepositsReleased:    v.DepositsReleased,
	})
}

func (s *Server) handlePromise(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	p, err := s.view.Promise(id)
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, promiseResponse{
		ID:              hex.EncodeToString(p.ID[:]),
		Seller:          hex.EncodeToString(p.Seller[:]),
		ValidFrom:       p.ValidFrom,
		ValidTo:         p.ValidTo,
		Price:           p.Price.String(),
		SellerDeposit:   p.SellerDeposit.String(),
		BuyerDeposit:    p.BuyerDeposit.String(),
		PriceCurrency:   p.PriceCurrency.Key(),
		DepositCurrency: p.DepositCurrency.Key(),
		Quantity:        p.Quantity,
	})
}

func (s *Server) handleSupply(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	sup, err := s.view.Supply(id)
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, supplyResponse{
		ID:                hex.EncodeToString(sup.ID[:]),
		PromiseID:         hex.EncodeToString(sup.PromiseID[:]),
		Issuer:            hex.EncodeToString(sup.Issuer[:]),
		Remaining:         sup.Remaining,
		Open:              sup.Open,
		DepositsReclaimed: sup.DepositsReclaimed,
	})
}

func (s *Server) handleEscrowBalance(w http.ResponseWriter, r *http.Request) {
	holder, err := parseAddress(chi.URLParam(r, "holder"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	currency, err := voucher.ParseCurrency(chi.URLParam(r, "currency"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	balance, err := s.view.EscrowBalance(holder, currency)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, balanceResponse{
		Holder:   hex.EncodeToString(holder[:]),
		Currency: currency.Key(),
		Balance:  balance.String(),
	})
}

func (s *Server) writeLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, voucher.ErrUnknownVoucher),
		errors.Is(err, voucher.ErrUnknownPromise),
		errors.Is(err, voucher.ErrUnknownSupply):
		s.writeError(w, http.StatusNotFound, err)
	default:
		s.writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("gateway: encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func parseID(value string) ([32]byte, error) {
	var id [32]byte
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(value), "0x"))
	if err != nil || len(raw) != 32 {
		return id, errors.New("gateway: identifier must be 32 hex-encoded bytes")
	}
	copy(id[:], raw)
	return id, nil
}

func parseAddress(value string) ([20]byte, error) {
	var addr [20]byte
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(value), "0x"))
	if err != nil || len(raw) != 20 {
		return addr, errors.New("gateway: address must be 20 hex-encoded bytes")
	}
	copy(addr[:], raw)
	return addr, nil
}
