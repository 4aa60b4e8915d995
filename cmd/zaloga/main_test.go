package main

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// zaloga runs the CLI against dbPath and returns the exit code and stdout.
func zaloga(t *testing.T, dbPath string, args ...string) (int, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"--db", dbPath}, args...), &stdout, &stderr)
	if code != exitOK {
		t.Logf("zaloga %s: exit %d: %s", strings.Join(args, " "), code, stderr.String())
	}
	return code, stdout.String()
}

func mustRun(t *testing.T, dbPath string, args ...string) string {
	t.Helper()
	code, out := zaloga(t, dbPath, args...)
	require.Equal(t, exitOK, code, "zaloga %s", strings.Join(args, " "))
	return out
}

var orderIDPattern = regexp.MustCompile(`Order:\s+\S+ \((\S+)\)`)

func newCLIDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zaloga.sqlite3")
	out := mustRun(t, path, "init")
	assert.Contains(t, out, "Database created")

	mustRun(t, path, "branch", "add", "B1", "Ljubljana", "--contact", "lj@example.com")
	mustRun(t, path, "branch", "add", "B2", "Maribor")
	mustRun(t, path, "stock", "add", "B1", "Michelin", "Pilot Sport 4", "225/45 R17", "2324", "10", "--price", "120")
	return path
}

func TestInitRefusesExistingDatabase(t *testing.T) {
	path := newCLIDB(t)
	code, _ := zaloga(t, path, "init")
	assert.Equal(t, exitError, code)
}

func TestBranchList(t *testing.T) {
	path := newCLIDB(t)
	mustRun(t, path, "branch", "set", "B2", "--active=false")

	out := mustRun(t, path, "branch", "list")
	assert.Contains(t, out, "Ljubljana")
	assert.Contains(t, out, "Maribor")

	out = mustRun(t, path, "branch", "list", "--active")
	assert.Contains(t, out, "Ljubljana")
	assert.NotContains(t, out, "Maribor")
}

func TestStockCommands(t *testing.T) {
	path := newCLIDB(t)

	out := mustRun(t, path, "stock", "lots", "B1", "michelin", "PILOT SPORT 4")
	assert.Contains(t, out, "2324")
	assert.Contains(t, out, "120.00")
	assert.NotContains(t, out, "mismatch")

	mustRun(t, path, "stock", "adjust", "B1", "Michelin", "Pilot Sport 4", "225/45 R17", "2324", "--by=-3", "--reason", "damaged")
	mustRun(t, path, "stock", "promo", "B1", "Michelin", "Pilot Sport 4", "225/45 R17", "2324", "99.90")
	out = mustRun(t, path, "stock", "lots", "B1", "michelin", "pilot sport 4", "--spec", "225-45 r17")
	assert.Regexp(t, `2324\s+7\s+7\s+120\.00\s+99\.90`, out)

	code, _ := zaloga(t, path, "stock", "adjust", "B1", "Michelin", "Pilot Sport 4", "225/45 R17", "2324", "--by=-100")
	assert.Equal(t, exitInsufficientStock, code)

	code, _ = zaloga(t, path, "stock", "add", "B1", "Michelin", "Pilot Sport 4", "225/45 R17", "2324", "1")
	assert.Equal(t, exitConflict, code)

	code, _ = zaloga(t, path, "stock", "promo", "B1", "Michelin", "Pilot Sport 4", "205/55 R16", "2324", "1")
	assert.Equal(t, exitNotFound, code)

	code, _ = zaloga(t, path, "stock", "add", "B1", "Michelin", "Pilot Sport 4", "225/45 R17", "2401", "many")
	assert.Equal(t, exitValidation, code)

	out = mustRun(t, path, "stock", "list", "B1", "B2")
	assert.Contains(t, out, "Ljubljana")
	assert.Regexp(t, `total\s+7`, out)

	mustRun(t, path, "stock", "delete", "B1", "Michelin", "Pilot Sport 4", "225/45 R17", "2324", "--reason", "recount")
	out = mustRun(t, path, "ledger", "movements", "--branch", "B1")
	assert.Contains(t, out, "stock.inbound")
	assert.Contains(t, out, "damaged")
	assert.Contains(t, out, "recount")
}

func TestOrderLifecycle(t *testing.T) {
	path := newCLIDB(t)

	out := mustRun(t, path, "order", "create", "--buyer", "B2", "--seller", "B1",
		"--item", "michelin|pilot sport 4|225/45 R17|2324|4", "--note", "for the weekend")
	assert.Contains(t, out, "requested")
	m := orderIDPattern.FindStringSubmatch(out)
	require.Len(t, m, 2, "order id in %q", out)
	id := m[1]

	out = mustRun(t, path, "order", "list", "B1", "--role", "seller", "--status", "requested")
	assert.Contains(t, out, id)

	for _, verb := range []string{"approve", "ship", "receive"} {
		mustRun(t, path, "order", verb, id)
	}
	out = mustRun(t, path, "order", "receive", id)
	assert.Contains(t, out, "received")

	out = mustRun(t, path, "stock", "lots", "B2", "MICHELIN", "pilot-sport-4")
	assert.Regexp(t, `2324\s+4\s+4`, out)
	out = mustRun(t, path, "stock", "lots", "B1", "MICHELIN", "pilot-sport-4")
	assert.Regexp(t, `2324\s+6\s+6`, out)

	out = mustRun(t, path, "order", "show", id)
	for _, ev := range []string{"order.requested", "order.approved", "order.shipped", "order.received"} {
		assert.Contains(t, out, ev)
	}

	out = mustRun(t, path, "ledger", "movements", "--order", id)
	assert.Contains(t, out, "transfer.out")
	assert.Contains(t, out, "transfer.in")

	out = mustRun(t, path, "ledger", "events", "--order", id)
	assert.Contains(t, out, "order.received")

	out = mustRun(t, path, "notifications", "list", "B1")
	assert.NotEmpty(t, strings.TrimSpace(out))

	code, _ := zaloga(t, path, "order", "cancel", id, "--reason", "too late")
	assert.Equal(t, exitInvalidTransition, code)

	code, _ = zaloga(t, path, "order", "show", "missing")
	assert.Equal(t, exitNotFound, code)
}

func TestOrderRejectInsufficient(t *testing.T) {
	path := newCLIDB(t)

	out := mustRun(t, path, "order", "create", "--buyer", "B2", "--seller", "B1",
		"--item", "Michelin|Pilot Sport 4|225/45 R17|2324|40")
	id := orderIDPattern.FindStringSubmatch(out)[1]
	mustRun(t, path, "order", "approve", id)

	code, _ := zaloga(t, path, "order", "ship", id)
	assert.Equal(t, exitInsufficientStock, code)

	out = mustRun(t, path, "order", "show", id)
	assert.Contains(t, out, "approved")

	out = mustRun(t, path, "order", "create", "--buyer", "B2", "--seller", "B1",
		"--item", "Michelin|Pilot Sport 4|225/45 R17|2324|1")
	id = orderIDPattern.FindStringSubmatch(out)[1]
	out = mustRun(t, path, "order", "reject", id, "--reason", "reserved")
	assert.Contains(t, out, "rejected")
	out = mustRun(t, path, "order", "show", id)
	assert.Contains(t, out, "reserved")
}

func TestParseItem(t *testing.T) {
	it, err := parseItem("Michelin | Pilot Sport 4 | 225/45 R17 | 2324 | 2 | 110,50")
	require.NoError(t, err)
	assert.Equal(t, "Michelin", it.Brand)
	assert.Equal(t, "2324", it.LotCode)
	assert.Equal(t, 2, it.Quantity)
	require.NotNil(t, it.UnitPrice)
	assert.Equal(t, "110.50", it.UnitPrice.StringFixed(2))

	_, err = parseItem("Michelin|Pilot Sport 4|2")
	assert.Error(t, err)
	_, err = parseItem("a|b|c|d|x")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"--db", ":memory:", "version"}, &stdout, &stderr)
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "zaloga dev\n", stdout.String())
}
