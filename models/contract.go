package models

// BalanceKey is the contract field used by the economics transitions
const BalanceKey = "balance"

// ContractState is the keyed state blob owned by one transition engine
type ContractState map[string]any

// Balance reads the numeric balance field, zero when absent or not numeric
func (s ContractState) Balance() float64 {
	switch v := s[BalanceKey].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	}
	return 0
}

// WithBalance returns a copy of the state with the balance replaced
func (s ContractState) WithBalance(balance float64) ContractState {
	next := s.Clone()
	next[BalanceKey] = balance
	return next
}

// Clone copies the top level of the state; values are shared
func (s ContractState) Clone() ContractState {
	next := make(ContractState, len(s)+1)
	for k, v := range s {
		next[k] = v
	}
	return next
}
