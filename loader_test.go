package capflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFileParsesEmployee(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "employee.yaml", `
type: employee
name: Jane Doe
start_date: "2026-01-01"
tags:
  - core
salary: 120000
`)
	e, err := LoadFile(path)
	require.NoError(t, err)
	require.NotNil(t, e)
	emp, ok := e.(*Employee)
	require.True(t, ok)
	assert.Equal(t, "Jane Doe", emp.Name)
	assert.InDelta(t, 120000, emp.Salary, 0.01)
	assert.Contains(t, emp.Tags, "core")
}

func TestLoadFileReturnsNilOnEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "empty.yaml", "")
	e, err := LoadFile(path)
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestLoadFileRejectsBadDate(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "bad.yaml", `
type: employee
name: Bad Date
start_date: "not-a-date"
salary: 100000
`)
	_, err := LoadFile(path)
	require.Error(t, err)
	var domainErr DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, InvalidField, domainErr.Kind)
}

func TestLoadFileParsesShareClassFields(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "shareclass.yaml", `
type: share_class
name: Series A Preferred
start_date: "2026-01-01"
shares_authorized: 2000000
shares_outstanding: 1500000
voting_rights_per_share: 1
liquidation_preference: 1.5
`)
	e, err := LoadFile(path)
	require.NoError(t, err)
	sc, ok := e.(*ShareClass)
	require.True(t, ok)
	assert.Equal(t, 2000000, sc.SharesAuthorized)
	assert.Equal(t, 1500000, sc.SharesOutstanding)
	assert.InDelta(t, 1.0, sc.VotingRightsPerShare, 0.0001)
	assert.InDelta(t, 1.5, sc.LiquidationPreference, 0.0001)
}

func TestLoadFileParsesShareholderFields(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "shareholder.yaml", `
type: shareholder
name: Founder One
start_date: "2026-01-01"
total_shares: 4000000
share_class_name: Common
`)
	e, err := LoadFile(path)
	require.NoError(t, err)
	sh, ok := e.(*Shareholder)
	require.True(t, ok)
	assert.Equal(t, 4000000, sh.TotalShares)
	assert.Equal(t, "Common", sh.ShareClassName)
}

func TestLoadFileParsesFundingRoundFields(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "round.yaml", `
type: funding_round
name: Seed Round
start_date: "2026-01-01"
amount_raised: 2000000
pre_money_valuation: 8000000
post_money_valuation: 10000000
shares_issued: 500000
`)
	e, err := LoadFile(path)
	require.NoError(t, err)
	fr, ok := e.(*FundingRound)
	require.True(t, ok)
	assert.InDelta(t, 8000000, *fr.PreMoneyValuation, 0.01)
	assert.InDelta(t, 10000000, *fr.PostMoneyValuation, 0.01)
	require.NotNil(t, fr.SharesIssued)
	assert.Equal(t, 500000, *fr.SharesIssued)
}

func TestLoadFileParsesGrantPaymentSchedule(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "grant.yaml", `
type: grant
name: NSF Award
start_date: "2026-01-01"
amount: 300000
payment_schedule:
  - date: "2026-01-01"
    amount: 100000
  - date: "2026-07-01"
    amount: 200000
`)
	e, err := LoadFile(path)
	require.NoError(t, err)
	grant, ok := e.(*Grant)
	require.True(t, ok)
	require.Len(t, grant.PaymentSchedule, 2)
	assert.InDelta(t, 100000, grant.PaymentSchedule[0].Amount, 0.01)
	assert.Equal(t, mustDate(t, "2026-07-01"), grant.PaymentSchedule[1].Date)
}

func TestLoadFileParsesEquipmentPurchaseDate(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "equipment.yaml", `
type: equipment
name: Server
start_date: "2026-01-01"
cost: 10000
depreciation_years: 3
purchase_date: "2026-02-15"
`)
	e, err := LoadFile(path)
	require.NoError(t, err)
	eq, ok := e.(*Equipment)
	require.True(t, ok)
	assert.Equal(t, mustDate(t, "2026-02-15"), eq.PurchaseDate)
}

func TestLoadFilePreservesUnknownFieldsInExtras(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "employee.yaml", `
type: employee
name: Extra Fields
start_date: "2026-01-01"
salary: 100000
onboarding_buddy: Sam
`)
	e, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Sam", e.Base().Extras["onboarding_buddy"])
}

func TestLoadDirectorySkipsUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, "good.yaml", `
type: sale
name: Widget Sale
start_date: "2026-02-01"
amount: 5000
`)
	writeYAML(t, dir, "bad.yaml", `
type: sale
name: Bad Sale
start_date: "nonsense"
amount: 5000
`)
	writeYAML(t, dir, "notes.txt", "not yaml at all")

	entities, err := LoadDirectory(dir)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "Widget Sale", entities[0].Base().Name)
}
