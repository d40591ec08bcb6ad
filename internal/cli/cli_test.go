package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/aion/config"
)

const proposalYAML = `proposal:
  schema_version: aion.trade_proposal.v1
  pair: EUR/USD
  strategy_tier: tier3_smc_intraday
  direction: BUY
  account_mode: paper
  entry: 1.1000
  stop_loss: 1.0950
  take_profit: 1.1110
  account_equity: 10000
  risk_pct: 1.0
  pip_value: 10
  stop_pips: 50
metadata:
  session: london
  setup_grade: A
  eod_debrief_ack: true
`

// run executes one aion invocation in a fresh command tree, the way
// separate processes would.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestPaperLifecycleAcrossInvocations(t *testing.T) {
	dir := t.TempDir()
	global := []string{"--runtime-dir", filepath.Join(dir, "rt"), "--db", filepath.Join(dir, "j.sqlite"), "--log-level", "error"}
	with := func(args ...string) []string { return append(append([]string{}, global...), args...) }
	req := writeFile(t, dir, "req.yaml", proposalYAML)

	out, err := run(t, with("submit", "-f", req)...)
	require.NoError(t, err, out)
	var submitted struct {
		OK      bool   `json:"ok"`
		TradeID string `json:"trade_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &submitted))
	require.True(t, submitted.OK)
	id := submitted.TradeID

	out, err = run(t, with("manage", id, "move_stop", "--stop-loss", "1.0900")...)
	assert.Error(t, err, "widening the stop is refused")
	assert.Contains(t, out, "phase2_stop_invariants_failed")

	_, err = run(t, with("manage", id, "move_stop", "--stop-loss", "1.0975", "--reason", "structure")...)
	require.NoError(t, err)

	out, err = run(t, with("close", id, "--price", "1.1110", "--reason", "tp_hit")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, `"WIN"`)

	out, err = run(t, with("list", "--status", "closed")...)
	require.NoError(t, err)
	var trades []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &trades))
	require.Len(t, trades, 1)
	assert.Equal(t, id, trades[0]["trade_id"])

	out, err = run(t, with("get", id, "--events")...)
	require.NoError(t, err)
	assert.Contains(t, out, "paper_trade_manage_rejected")
	assert.Contains(t, out, "paper_trade_closed")

	out, err = run(t, with("journal", "trade", id)...)
	require.NoError(t, err)
	assert.Contains(t, out, "** Paper trade: EUR/USD BUY")

	out, err = run(t, with("journal", "stats")...)
	require.NoError(t, err)
	assert.Contains(t, out, `"WIN": 1`)

	_, err = run(t, with("reset", "--files")...)
	require.NoError(t, err)
	out, err = run(t, with("list")...)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestCloseFromDocument(t *testing.T) {
	dir := t.TempDir()
	global := []string{"--runtime-dir", filepath.Join(dir, "rt"), "--db", filepath.Join(dir, "j.sqlite"), "--log-level", "error"}
	with := func(args ...string) []string { return append(append([]string{}, global...), args...) }

	out, err := run(t, with("submit", "-f", writeFile(t, dir, "req.yaml", proposalYAML))...)
	require.NoError(t, err, out)
	var submitted struct {
		TradeID string `json:"trade_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &submitted))
	id := submitted.TradeID

	_, err = run(t, with("close", id)...)
	assert.ErrorContains(t, err, "--price or --file")

	bad := writeFile(t, dir, "bad.yaml", "close_price: soon\nclose_reason: manual\n")
	out, err = run(t, with("close", id, "-f", bad)...)
	assert.Error(t, err)
	assert.Contains(t, out, "close_price_invalid_type")

	good := writeFile(t, dir, "close.json", `{"close_price": 1.1110, "reason": "tp_hit", "outcome": "win"}`)
	out, err = run(t, with("close", id, "-f", good)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, `"WIN"`)
	assert.Contains(t, out, "tp_hit")
}

func TestSubmitRejectionIsReported(t *testing.T) {
	dir := t.TempDir()
	body := strings.Replace(proposalYAML, "account_mode: paper", "account_mode: live", 1)
	req := writeFile(t, dir, "req.yaml", body)

	out, err := run(t, "--runtime-dir", filepath.Join(dir, "rt"), "--log-level", "error", "submit", "-f", req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
	assert.Contains(t, out, `"status": "rejected"`)
}

func TestCheckpointCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Persistence.BaseDir = filepath.Join(dir, "rt")
	cfg.Journal.Type = "none"
	cfg.DMIP.CaptureDir = filepath.Join(dir, "capture")
	cfg.DMIP.WeightsPath = writeFile(t, dir, "weights.yaml", "snapshot_id: w-7\nllm_trust_weights:\n  claude: 1.3\n  gpt4: 1.3\n")
	cfgPath := filepath.Join(dir, "aion.yaml")
	require.NoError(t, cfg.SaveToFile(cfgPath))

	advice := writeFile(t, dir, "advice.yaml", `EUR/USD:
  A_bias: BULLISH
  B_bias: BULLISH
  confidence: LOW
  key_levels: [1.085, 1.1]
GBP/USD:
  A_bias: BULLISH
  B_bias: BEARISH
`)
	market := writeFile(t, dir, "market.yaml", "risk_environment: risk_on\npairs: [EUR/USD, GBP/USD]\n")

	out, err := run(t, "--config", cfgPath, "checkpoint", "london", "--advice", advice, "--market", market)
	require.NoError(t, err, out)

	var res struct {
		OK        bool `json:"ok"`
		BiasSheet struct {
			RiskEnvironment string `json:"risk_environment"`
			Pairs           []struct {
				Pair       string `json:"pair"`
				Bias       string `json:"bias"`
				Confidence string `json:"confidence"`
			} `json:"pairs"`
			Metadata struct {
				WeightsSnapshotID string `json:"weights_snapshot_id"`
			} `json:"metadata"`
		} `json:"bias_sheet"`
		LearningEvents []struct {
			Status string `json:"status"`
		} `json:"learning_events"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.OK)
	assert.Equal(t, "RISK_ON", res.BiasSheet.RiskEnvironment)
	assert.Equal(t, "w-7", res.BiasSheet.Metadata.WeightsSnapshotID)
	require.Len(t, res.BiasSheet.Pairs, 2)
	assert.Equal(t, "MEDIUM", res.BiasSheet.Pairs[0].Confidence)
	assert.Equal(t, "AVOID", res.BiasSheet.Pairs[1].Bias)
	require.Len(t, res.LearningEvents, 4)
	for _, ev := range res.LearningEvents {
		assert.Equal(t, "written", ev.Status)
	}

	metricsPath := filepath.Join(dir, "aion.prom")
	_, err = run(t, "--config", cfgPath, "--metrics-textfile", metricsPath, "checkpoint", "eod")
	require.NoError(t, err)
	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `aion_dmip_checkpoints_total{checkpoint="eod"}`)

	_, err = run(t, "--config", cfgPath, "checkpoint", "lunch")
	assert.ErrorContains(t, err, "unknown checkpoint")

	out, err = run(t, "--config", cfgPath, "synthesize", "--advice", advice, "--pairs", "EUR/USD")
	require.NoError(t, err)
	assert.Contains(t, out, `"weights_snapshot_id": "w-7"`)
	assert.Contains(t, out, `"total_pairs_seen": 2`)
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aion.yaml")

	out, err := run(t, "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created default configuration")

	out, err = run(t, "config", "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")

	_, err = run(t, "--log-level", "loud", "version")
	assert.Error(t, err)
}

func TestStrategiesCommand(t *testing.T) {
	out, err := run(t, "strategies")
	require.NoError(t, err)
	assert.Contains(t, out, "tier3_smc_intraday")
	assert.Equal(t, 1, strings.Count(out, "allowed"))
}
