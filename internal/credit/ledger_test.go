package credit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_NewSessionStartsWithDefault(t *testing.T) {
	l := NewLedger(0)
	assert.Equal(t, DefaultBalance, l.Balance("s1"))
	assert.Equal(t, 500, NewLedger(500).Balance("s1"))
}

func TestLedger_BalanceDoesNotStoreSessions(t *testing.T) {
	l := NewLedger(100)
	for _, s := range []string{"a", "b", "c"} {
		assert.Equal(t, 100, l.Balance(s))
	}
	assert.Empty(t, l.accounts)

	_, err := l.Charge("a", "run-1", 101)
	assert.ErrorIs(t, err, ErrInsufficientCredits)
	assert.Empty(t, l.accounts)

	bal, err := l.Charge("a", "run-1", 30)
	require.NoError(t, err)
	assert.Equal(t, 70, bal)
	assert.Len(t, l.accounts, 1)
	assert.Equal(t, 70, l.Balance("a"))
}

func TestLedger_Charge(t *testing.T) {
	l := NewLedger(100)

	bal, err := l.Charge("s1", "run-1", 40)
	require.NoError(t, err)
	assert.Equal(t, 60, bal)
	assert.Equal(t, 60, l.Balance("s1"))
	assert.Equal(t, 100, l.Balance("s2"))
}

func TestLedger_ChargeOncePerRun(t *testing.T) {
	l := NewLedger(100)

	_, err := l.Charge("s1", "run-1", 40)
	require.NoError(t, err)
	bal, err := l.Charge("s1", "run-1", 40)
	assert.ErrorIs(t, err, ErrAlreadyExported)
	assert.Equal(t, 60, bal)

	// Another session may export the same run.
	_, err = l.Charge("s2", "run-1", 40)
	assert.NoError(t, err)
}

func TestLedger_Insufficient(t *testing.T) {
	l := NewLedger(100)

	bal, err := l.Charge("s1", "run-1", 101)
	assert.ErrorIs(t, err, ErrInsufficientCredits)
	assert.Equal(t, 100, bal)

	// Exactly the balance is allowed.
	bal, err = l.Charge("s1", "run-1", 100)
	require.NoError(t, err)
	assert.Equal(t, 0, bal)
}

func TestLedger_InvalidCharges(t *testing.T) {
	l := NewLedger(100)
	_, err := l.Charge("", "run-1", 1)
	assert.Error(t, err)
	_, err = l.Charge("s1", "run-1", -5)
	assert.Error(t, err)
	assert.Equal(t, 100, l.Balance("s1"))
}

func TestLedger_Concurrent(t *testing.T) {
	l := NewLedger(1000)
	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.Charge("s1", string(rune('a'+i%26))+string(rune('0'+i/26)), 10)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, l.Balance("s1"))
}
