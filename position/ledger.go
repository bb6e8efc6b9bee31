package position

import (
	"sync"

	"github.com/ksered/cadence/shared"
)

// Ledger tracks the simulated cash and asset balances. It is mutated only as
// a side effect of trade opens and closures, keeping the balances consistent
// with the realized profit of closed trades and the notional of open ones.
type Ledger struct {
	cash     float64
	asset    float64
	balances sync.RWMutex
}

// NewLedger initializes a new ledger with the provided starting cash balance.
func NewLedger(initialCash float64) *Ledger {
	return &Ledger{
		cash: initialCash,
	}
}

// Balances returns the current cash and asset balances.
func (l *Ledger) Balances() (float64, float64) {
	l.balances.RLock()
	defer l.balances.RUnlock()

	return l.cash, l.asset
}

// applyOpen applies the balance effects of opening a trade. A buy converts
// cash into the asset at the entry price, a sell does the reverse.
func (l *Ledger) applyOpen(direction shared.Direction, price float64, quantity float64) {
	l.balances.Lock()
	defer l.balances.Unlock()

	switch direction {
	case shared.Buy:
		l.cash -= price * quantity
		l.asset += quantity
	case shared.Sell:
		l.cash += price * quantity
		l.asset -= quantity
	}
}

// applyClose applies the balance effects of closing a trade, exactly
// mirroring the open so the net cash change equals the realized profit.
func (l *Ledger) applyClose(direction shared.Direction, price float64, quantity float64) {
	l.balances.Lock()
	defer l.balances.Unlock()

	switch direction {
	case shared.Buy:
		l.cash += price * quantity
		l.asset -= quantity
	case shared.Sell:
		l.cash -= price * quantity
		l.asset += quantity
	}
}
