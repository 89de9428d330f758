package task

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const scenarioYAML = `
name: moon-launch
seed: fixed
wallets:
  - name: alice
  - name: bob
steps:
  - name: launch
    action: create
    wallet: alice
    token: moon
    token_name: Moon
    amount: 1
  - action: buy
    wallet: bob
    token: MOON
    amount: "2.5"
    slippage_percent: 5
  - action: sell
    wallet: bob
    token: MOON
    percent_to_sell: 50
  - action: buy
    wallet: carol
    token: MOON
    amount: 1
  - action: teleport
    token: MOON
  - action: advance
    advance: 720h
  - action: graduate
    token: MOON
    exchange: CLMM
`

func TestParseScenario(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	sc, err := m.ParseScenario([]byte(scenarioYAML))
	require.NoError(t, err)

	assert.Equal(t, "moon-launch", sc.Name)
	require.Len(t, sc.Steps, 5, "unknown wallet and unknown action are skipped")
	assert.Contains(t, sc.Wallets, "admin")
	assert.Equal(t, sc.Wallets["admin"], sc.Admin)

	create := sc.Steps[0]
	assert.Equal(t, ActionCreate, create.Action)
	assert.Equal(t, "MOON", create.Token)
	assert.Equal(t, uint64(1_000_000_000), create.Amount)

	buy := sc.Steps[1]
	assert.Equal(t, "buy-1", buy.Name)
	assert.Equal(t, uint64(2_500_000_000), buy.Amount)
	assert.Equal(t, 5.0, buy.SlippagePercent)

	sell := sc.Steps[2]
	assert.Equal(t, 50.0, sell.Percent)
	assert.Zero(t, sell.Amount)

	assert.Equal(t, 720*time.Hour, sc.Steps[3].Advance)
	assert.Equal(t, "clmm", sc.Steps[4].Exchange)
}

func TestParseScenario_DeterministicWallets(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	a, err := m.ParseScenario([]byte(scenarioYAML))
	require.NoError(t, err)
	b, err := m.ParseScenario([]byte(scenarioYAML))
	require.NoError(t, err)

	assert.Equal(t, a.Wallets["alice"].PublicKey, b.Wallets["alice"].PublicKey)
	assert.NotEqual(t, a.Wallets["alice"].PublicKey, a.Wallets["bob"].PublicKey)
}

func TestParseScenario_Errors(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))

	_, err := m.ParseScenario([]byte("name: empty\n"))
	assert.Error(t, err)

	_, err = m.ParseScenario([]byte("steps:\n  - action: buy\n    token: X\n"))
	assert.Error(t, err, "a buy without wallet or amount is dropped, leaving nothing")

	_, err = m.ParseScenario([]byte("steps: [\n"))
	assert.Error(t, err)
}

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(scenarioYAML), 0o600))

	sc, err := NewManager(zaptest.NewLogger(t)).LoadScenario(path)
	require.NoError(t, err)
	assert.Len(t, sc.Steps, 5)

	_, err = NewManager(zaptest.NewLogger(t)).LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWallet(t *testing.T) {
	derived := DeriveWallet("alice", "seed")
	w, err := NewWallet("alice", derived.PrivateKey.String())
	require.NoError(t, err)
	assert.Equal(t, derived.PublicKey, w.PublicKey)
	assert.Equal(t, derived.PublicKey.String(), w.String())

	_, err = NewWallet("bad", "not-a-key")
	assert.Error(t, err)

	_, err = w.Credential("creator", time.Now())
	assert.NoError(t, err)
}

func TestUnits(t *testing.T) {
	v, err := ToUnits("1.2345678919", BaseDecimals)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_234_567_891), v)

	_, err = ToUnits("-1", BaseDecimals)
	assert.Error(t, err)
	_, err = ToUnits("abc", BaseDecimals)
	assert.Error(t, err)
	_, err = ToUnits("1e30", BaseDecimals)
	assert.Error(t, err)

	assert.Equal(t, "2.5", FromUnits(2_500_000, TokenDecimals))

	s := Step{SlippagePercent: 10}
	assert.Equal(t, uint64(900), s.MinOut(1000))
	assert.Zero(t, (&Step{}).MinOut(1000))
}
