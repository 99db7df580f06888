package importer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trievops/fleet-cli/internal/fetcher"
	"github.com/trievops/fleet-cli/internal/model"
)

var testHeaders = []string{"Rider Name", "Mobile", "Triev ID", "Chassis No", "Wallet", "Team Leader"}

func riderRow(name, mobile, externalID, chassis, wallet, owner string) []string {
	return []string{name, mobile, externalID, chassis, wallet, owner}
}

func testOwners() []model.OwnerDirectoryEntry {
	return []model.OwnerDirectoryEntry{
		{ID: "11111111-1111-1111-1111-111111111111", DisplayName: "Asha Kumar (TRV/10)", Email: "asha@trievops.example"},
		{ID: "22222222-2222-2222-2222-222222222222", DisplayName: "Vikram Singh (TRV/22)", Email: "vikram@trievops.example"},
	}
}

func TestRunInsertThenUpdateSameFile(t *testing.T) {
	st := newMockStore(testOwners()...)
	imp := New(st, Options{Source: "roster.xlsx"})

	tbl := fetcher.Table{
		Headers: testHeaders,
		Rows: [][]string{
			riderRow("Ravi Das", "9876500001", "EV-100", "CH-100", "500", "Asha Kumar"),
			riderRow("Ravi Das", "9876500001", "EV-100", "CH-100", "750", "Asha Kumar"),
		},
	}

	summary, err := imp.Run(context.Background(), tbl)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Success)
	assert.Equal(t, 0, summary.Failed)

	// Second row must update the record the first row inserted.
	require.Equal(t, 1, st.recordCount())
	p, ok := st.recordByExternalID("EV-100")
	require.True(t, ok)
	assert.Equal(t, 750.0, p.WalletAmount)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", p.OwnerID)
	assert.Equal(t, string(model.MatchByBareName), p.OwnerMatch)
}

func TestRunRowFailureDoesNotStopBatch(t *testing.T) {
	st := newMockStore(testOwners()...)
	imp := New(st, Options{Source: "roster.csv"})

	tbl := fetcher.Table{
		Headers: testHeaders,
		Rows: [][]string{
			riderRow("Ravi Das", "9876500001", "EV-100", "", "500", "Asha Kumar"),
			riderRow("Bad Amount", "9876500002", "EV-101", "", "abc", "Asha Kumar"),
			riderRow("Meera Nair", "9876500003", "EV-102", "", "250", "Vikram Singh"),
		},
	}

	summary, err := imp.Run(context.Background(), tbl)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Success)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, summary.Total, summary.Success+summary.Failed)

	require.Len(t, summary.Errors, 1)
	assert.Equal(t, 3, summary.Errors[0].Row) // header is row 1
	assert.Equal(t, "Bad Amount", summary.Errors[0].Identifier)
	assert.Equal(t, "abc", summary.Errors[0].RawData["Wallet"])

	assert.Equal(t, 2, st.recordCount())
}

func TestRunOwnerPreloadFailureIsFatal(t *testing.T) {
	st := newMockStore()
	st.ownersErr = errors.New("directory unavailable")
	imp := New(st, Options{})

	tbl := fetcher.Table{
		Headers: testHeaders,
		Rows:    [][]string{riderRow("Ravi Das", "9876500001", "EV-100", "", "500", "")},
	}

	_, err := imp.Run(context.Background(), tbl)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pre-load owner directory")
	assert.Equal(t, 0, st.recordCount())
}

func TestRunBatchesNotificationsPerOwner(t *testing.T) {
	st := newMockStore(testOwners()...)
	imp := New(st, Options{NotifyRate: 1000, NotifyBurst: 10})

	rows := make([][]string, 0, 8)
	for i := 0; i < 5; i++ {
		rows = append(rows, riderRow("Rider A", "", fmt.Sprintf("EV-A%d", i), "", "10", "Asha Kumar"))
	}
	for i := 0; i < 3; i++ {
		rows = append(rows, riderRow("Rider B", "", fmt.Sprintf("EV-B%d", i), "", "10", "Vikram Singh"))
	}

	summary, err := imp.Run(context.Background(), fetcher.Table{Headers: testHeaders, Rows: rows})
	require.NoError(t, err)
	assert.Equal(t, 8, summary.Success)

	require.Len(t, st.emits, 2)
	assert.Equal(t, mockEmit{ownerID: "11111111-1111-1111-1111-111111111111", count: 5}, st.emits[0])
	assert.Equal(t, mockEmit{ownerID: "22222222-2222-2222-2222-222222222222", count: 3}, st.emits[1])
}

func TestRunUnresolvedOwnerImportsUnassigned(t *testing.T) {
	st := newMockStore(testOwners()...)
	imp := New(st, Options{})

	tbl := fetcher.Table{
		Headers: testHeaders,
		Rows:    [][]string{riderRow("Ravi Das", "9876500001", "EV-100", "", "500", "Nobody Known")},
	}

	summary, err := imp.Run(context.Background(), tbl)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Success)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 1, summary.Unassigned)

	p, ok := st.recordByExternalID("EV-100")
	require.True(t, ok)
	assert.Empty(t, p.OwnerID)
	assert.Equal(t, "Nobody Known", p.OwnerRef)
	assert.Equal(t, string(model.MatchNone), p.OwnerMatch)
	assert.Empty(t, st.emits)
}

func TestRunIsIdempotentAcrossRuns(t *testing.T) {
	st := newMockStore(testOwners()...)
	imp := New(st, Options{})

	tbl := fetcher.Table{
		Headers: testHeaders,
		Rows: [][]string{
			riderRow("Ravi Das", "9876500001", "EV-100", "CH-100", "500", "Asha Kumar"),
			riderRow("Meera Nair", "9876500003", "EV-102", "CH-102", "250", "Vikram Singh"),
		},
	}

	_, err := imp.Run(context.Background(), tbl)
	require.NoError(t, err)
	summary, err := imp.Run(context.Background(), tbl)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Success)
	assert.Equal(t, 2, st.recordCount())
}

func TestRunMissingIdentifyingKeysFailsRow(t *testing.T) {
	st := newMockStore(testOwners()...)
	imp := New(st, Options{})

	tbl := fetcher.Table{
		Headers: testHeaders,
		Rows:    [][]string{riderRow("Nameless Keys", "", "", "", "500", "Asha Kumar")},
	}

	summary, err := imp.Run(context.Background(), tbl)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0].Reason, "none of")
	assert.Equal(t, 0, st.recordCount())
}

func TestRunRecordsHistory(t *testing.T) {
	st := newMockStore(testOwners()...)
	imp := New(st, Options{Kind: model.ImportKindWallets, Source: "wallets.csv"})

	tbl := fetcher.Table{
		Headers: []string{"Rider Name", "Triev ID", "Amount"},
		Rows:    [][]string{{"Ravi Das", "EV-100", "(-) 1,250.50"}},
	}

	summary, err := imp.Run(context.Background(), tbl)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Success)

	p, ok := st.recordByExternalID("EV-100")
	require.True(t, ok)
	assert.Equal(t, -1250.50, p.WalletAmount)

	require.Len(t, st.runs, 1)
	run := st.runs[0]
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.ImportKindWallets, run.Kind)
	assert.Equal(t, "wallets.csv", run.Source)
	assert.Equal(t, 1, run.Summary.Success)
	assert.False(t, run.FinishedAt.Before(run.StartedAt))
}

func TestRunHistoryFailureDoesNotFailRun(t *testing.T) {
	st := newMockStore(testOwners()...)
	st.historyErr = errors.New("history table gone")
	imp := New(st, Options{})

	tbl := fetcher.Table{
		Headers: testHeaders,
		Rows:    [][]string{riderRow("Ravi Das", "9876500001", "EV-100", "", "500", "Asha Kumar")},
	}

	summary, err := imp.Run(context.Background(), tbl)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Success)
}

func TestRunEmitFailureDoesNotFailRun(t *testing.T) {
	st := newMockStore(testOwners()...)
	st.emitErr = errors.New("sink down")
	imp := New(st, Options{})

	tbl := fetcher.Table{
		Headers: testHeaders,
		Rows:    [][]string{riderRow("Ravi Das", "9876500001", "EV-100", "", "500", "Asha Kumar")},
	}

	summary, err := imp.Run(context.Background(), tbl)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Success)
	assert.Empty(t, st.emits)
}
