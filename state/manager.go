package state

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	coretypes "vouchnet/core/types"
	"vouchnet/native/voucher"
	"vouchnet/storage"
)

const (
	promisePrefix = "voucher/promise/"
	supplyPrefix  = "voucher/supply/"
	voucherPrefix = "voucher/instance/"
	escrowPrefix  = "voucher/escrow/"
	accountPrefix = "account/"
	paramPrefix   = "params/"
)

// Manager persists the voucher module's records on a key-value database. It
// implements the engine's state contract, the escrow ledger's balance storage
// and the parameter store backend.
type Manager struct {
	db storage.Database
}

// NewManager wraps the supplied database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func (m *Manager) putJSON(key string, value interface{}) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state: database not configured")
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state: encode %s: %w", key, err)
	}
	return m.db.Put([]byte(key), encoded)
}

func (m *Manager) getJSON(key string, out interface{}) (bool, error) {
	if m == nil || m.db == nil {
		return false, fmt.Errorf("state: database not configured")
	}
	raw, err := m.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %s: %w", key, err)
	}
	return true, nil
}

func idKey(prefix string, id [32]byte) string {
	return prefix + hex.EncodeToString(id[:])
}

// PromisePut stores the immutable promise terms.
func (m *Manager) PromisePut(p *voucher.Promise) error {
	if p == nil {
		return fmt.Errorf("state: nil promise")
	}
	return m.putJSON(idKey(promisePrefix, p.ID), p)
}

// PromiseGet loads promise terms by identifier.
func (m *Manager) PromiseGet(id [32]byte) (*voucher.Promise, bool) {
	var p voucher.Promise
	ok, err := m.getJSON(idKey(promisePrefix, id), &p)
	if err != nil || !ok {
		return nil, false
	}
	return &p, true
}

// SupplyPut stores the supply counter record.
func (m *Manager) SupplyPut(s *voucher.Supply) error {
	if s == nil {
		return fmt.Errorf("state: nil supply")
	}
	return m.putJSON(idKey(supplyPrefix, s.ID), s)
}

// SupplyGet loads a supply record by identifier.
func (m *Manager) SupplyGet(id [32]byte) (*voucher.Supply, bool) {
	var s voucher.Supply
	ok, err := m.getJSON(idKey(supplyPrefix, id), &s)
	if err != nil || !ok {
		return nil, false
	}
	return &s, true
}

// VoucherPut stores a voucher status record.
func (m *Manager) VoucherPut(v *voucher.Voucher) error {
	if v == nil {
		return fmt.Errorf("state: nil voucher")
	}
	return m.putJSON(idKey(voucherPrefix, v.ID), v)
}

// VoucherGet loads a voucher record by identifier.
func (m *Manager) VoucherGet(id [32]byte) (*voucher.Voucher, bool) {
	var v voucher.Voucher
	ok, err := m.getJSON(idKey(voucherPrefix, id), &v)
	if err != nil || !ok {
		return nil, false
	}
	return &v, true
}

func escrowKey(holder [20]byte, currency string) string {
	return escrowPrefix + hex.EncodeToString(holder[:]) + "/" + currency
}

// EscrowBalanceGet reads one escrow balance word. Absent entries read as nil,
// which the ledger treats as zero.
func (m *Manager) EscrowBalanceGet(holder [20]byte, currency string) (*uint256.Int, error) {
	var encoded string
	ok, err := m.getJSON(escrowKey(holder, currency), &encoded)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	balance, err := uint256.FromDecimal(encoded)
	if err != nil {
		return nil, fmt.Errorf("state: decode escrow balance: %w", err)
	}
	return balance, nil
}

// EscrowBalancePut writes one escrow balance word.
func (m *Manager) EscrowBalancePut(holder [20]byte, currency string, balance *uint256.Int) error {
	if balance == nil {
		balance = uint256.NewInt(0)
	}
	return m.putJSON(escrowKey(holder, currency), balance.Dec())
}

// GetAccount loads the spendable account record for an address. A fresh empty
// account is returned for unknown addresses.
func (m *Manager) GetAccount(addr [20]byte) (*coretypes.Account, error) {
	var account coretypes.Account
	ok, err := m.getJSON(accountPrefix+hex.EncodeToString(addr[:]), &account)
	if err != nil {
		return nil, err
	}
	if !ok {
		return coretypes.NewAccount(), nil
	}
	if account.Balances == nil {
		account.Balances = coretypes.NewAccount().Balances
	}
	return &account, nil
}

// PutAccount stores the spendable account record for an address.
func (m *Manager) PutAccount(addr [20]byte, account *coretypes.Account) error {
	if account == nil {
		account = coretypes.NewAccount()
	}
	return m.putJSON(accountPrefix+hex.EncodeToString(addr[:]), account)
}

// ParamStoreSet persists a raw parameter payload under its canonical name.
func (m *Manager) ParamStoreSet(name string, value []byte) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("state: params key must not be empty")
	}
	if m == nil || m.db == nil {
		return fmt.Errorf("state: database not configured")
	}
	return m.db.Put([]byte(paramPrefix+trimmed), append([]byte(nil), value...))
}

// ParamStoreGet loads a raw parameter payload.
func (m *Manager) ParamStoreGet(name string) ([]byte, bool, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, false, fmt.Errorf("state: params key must not be empty")
	}
	if m == nil || m.db == nil {
		return nil, false, fmt.Errorf("state: database not configured")
	}
	raw, err := m.db.Get([]byte(paramPrefix + trimmed))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return raw, true, nil
}
