package types

import "math/big"

// Account tracks the spendable (non-escrowed) funds held by an address. The
// balances map is keyed by canonical currency key, one entry per currency the
// account has ever received.
type Account struct {
	Nonce    uint64              `json:"nonce"`
	Balances map[string]*big.Int `json:"balances"`
}

// NewAccount returns an empty account with an initialised balance map.
func NewAccount() *Account {
	return &Account{Balances: make(map[string]*big.Int)}
}

// Balance returns the balance held in the given currency. Missing entries read
// as zero; the returned value is a copy.
func (a *Account) Balance(currency string) *big.Int {
	if a == nil || a.Balances == nil {
		return big.NewInt(0)
	}
	if bal, ok := a.Balances[currency]; ok && bal != nil {
		return new(big.Int).Set(bal)
	}
	return big.NewInt(0)
}

// AddBalance credits the account with the supplied amount. Nil and zero
// amounts are no-ops; negative amounts are ignored by callers before reaching
// this helper.
func (a *Account) AddBalance(currency string, amount *big.Int) {
	if a == nil || amount == nil || amount.Sign() == 0 {
		return
	}
	if a.Balances == nil {
		a.Balances = make(map[string]*big.Int)
	}
	current := big.NewInt(0)
	if existing, ok := a.Balances[currency]; ok && existing != nil {
		current = new(big.Int).Set(existing)
	}
	a.Balances[currency] = current.Add(current, amount)
}

// Clone returns a deep copy of the account so callers can safely mutate the
// copy without affecting the stored instance.
func (a *Account) Clone() *Account {
	if a == nil {
		return NewAccount()
	}
	clone := &Account{Nonce: a.Nonce, Balances: make(map[string]*big.Int, len(a.Balances))}
	for key, bal := range a.Balances {
		if bal == nil {
			clone.Balances[key] = big.NewInt(0)
			continue
		}
		clone.Balances[key] = new(big.Int).Set(bal)
	}
	return clone
}
