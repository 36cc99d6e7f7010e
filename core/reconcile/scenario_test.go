package reconcile_test

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"record-sync/core/reconcile"
)

func TestScenarioCreation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})

	f.pairedAccount("1", "001A", "Analytical Engines", t0.Add(-time.Hour))
	f.contactsRemote.Put("003A", reconcile.Attributes{"FirstName": "Ada", "AccountId": "001A"}, t0)
	f.clock.Advance(time.Minute)

	report, err := f.runner.RunMapping(ctx, "contacts")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Collected)
	assert.Equal(t, 1, report.Created)
	assert.Empty(t, report.Failures)

	records := f.contactsLocal.Records()
	require.Len(t, records, 1)
	local := records[0]
	assert.Equal(t, "003A", local.RemoteID())
	assert.Equal(t, "Ada", local.Attributes()["first_name"])
	assert.Equal(t, "1", local.Attributes()["account_id"])
	assert.True(t, local.LastSync().After(local.LastUpdate()))

	remote, ok := f.contactsRemote.Get("003A")
	require.True(t, ok)
	assert.True(t, remote.LastSync().After(remote.LastUpdate()))

	assert.Equal(t, t0.Add(time.Minute), report.Advanced)

	t.Run("next cycle does not pick up its own writes", func(t *testing.T) {
		f.clock.Advance(time.Minute)
		report, err := f.runner.RunMapping(ctx, "contacts")
		require.NoError(t, err)
		assert.Zero(t, report.Collected)
		assert.Zero(t, report.Created)
		assert.Zero(t, report.Updated)
	})

	t.Run("record deleted locally is not recreated", func(t *testing.T) {
		require.NoError(t, f.contactsLocal.DestroyAll(ctx, []string{"003A"}))
		require.NoError(t, f.contactsRemote.Touch("003A", reconcile.Attributes{"LastName": "Lovelace"}, f.clock.Advance(time.Second)))
		f.clock.Advance(time.Minute)

		report, err := f.runner.RunMapping(ctx, "contacts")
		require.NoError(t, err)
		assert.Equal(t, 1, report.Collected)
		assert.Zero(t, report.Created)
		assert.Equal(t, 1, report.Skipped)
		assert.Zero(t, f.contactsLocal.Len())
	})
}

func TestScenarioCreationBuildsPassiveParent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})

	f.accountsRemote.Put("001B", reconcile.Attributes{"Name": "Difference Engines"}, t0.Add(-time.Hour))
	f.contactsRemote.Put("003B", reconcile.Attributes{"FirstName": "Charles", "AccountId": "001B"}, t0)
	f.contactsRemote.Put("003C", reconcile.Attributes{"FirstName": "Augusta", "AccountId": "001B"}, t0.Add(-2*time.Hour))
	f.clock.Advance(time.Minute)
	f.startWindow(t, t0.Add(-time.Minute))

	report, err := f.runner.RunMapping(ctx, "contacts")
	require.NoError(t, err)
	// Contact, its account, and the account's other contact.
	assert.Equal(t, 3, report.Created)

	accounts := f.accountsLocal.Records()
	require.Len(t, accounts, 1)
	assert.Equal(t, "001B", accounts[0].RemoteID())
	assert.Equal(t, "Difference Engines", accounts[0].Attributes()["name"])

	contacts := f.contactsLocal.Records()
	require.Len(t, contacts, 2)
	for _, c := range contacts {
		assert.Equal(t, accounts[0].ID(), c.Attributes()["account_id"])
	}
}

func TestScenarioFailedBuildLeavesNothingBehind(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})

	// 003C is already paired and points at another account.
	f.pairedContact("7", "003C",
		reconcile.Attributes{"first_name": "Augusta", "account_id": "9"},
		reconcile.Attributes{"FirstName": "Augusta", "AccountId": "001B"},
		t0.Add(-2*time.Hour))
	f.accountsRemote.Put("001B", reconcile.Attributes{"Name": "Difference Engines"}, t0.Add(-time.Hour))
	f.contactsRemote.Put("003B", reconcile.Attributes{"FirstName": "Charles", "AccountId": "001B"}, t0)
	f.startWindow(t, t0.Add(-time.Minute))
	f.contactsLocal.OnCreate(func(reconcile.Attributes) error {
		return reconcile.Persistence(errors.New("value too long for column"), "insert contacts")
	})
	f.clock.Advance(time.Minute)

	report, err := f.runner.RunMapping(ctx, "contacts")
	require.NoError(t, err)
	assert.Zero(t, report.Created)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "003B", report.Failures[0].Key.RemoteID)

	// The account built as the parent is destroyed again.
	assert.Zero(t, f.accountsLocal.Len())
	_, err = f.accountsLocal.Find(ctx, "001B")
	assert.True(t, reconcile.IsNotFound(err))

	// The existing child is pointed back at its previous account.
	assert.Equal(t, 1, f.contactsLocal.Len())
	augusta, ok := f.contactsLocal.Get("7")
	require.True(t, ok)
	assert.Equal(t, "9", augusta.Attributes()["account_id"])
}

func TestScenarioCreationFromLocal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})

	f.pairedAccount("1", "001A", "Analytical Engines", t0.Add(-time.Hour))
	f.contactsLocal.Put("5", reconcile.Attributes{"first_name": "Grace", "last_name": "Hopper", "account_id": "1"}, t0)
	f.clock.Advance(time.Minute)
	f.startWindow(t, t0.Add(-time.Minute))

	report, err := f.runner.RunMapping(ctx, "contacts")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Unpaired)
	assert.Equal(t, 1, report.Created)

	remotes := f.contactsRemote.Records()
	require.Len(t, remotes, 1)
	remote := remotes[0]
	assert.Equal(t, "Grace", remote.Attributes()["FirstName"])
	assert.Equal(t, "Hopper", remote.Attributes()["LastName"])
	assert.Equal(t, "001A", remote.Attributes()["AccountId"])

	local, ok := f.contactsLocal.Get("5")
	require.True(t, ok)
	assert.Equal(t, remote.RemoteID(), local.RemoteID())
	assert.True(t, local.LastSync().After(local.LastUpdate()))
}

func TestScenarioMerge(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})

	f.pairedAccount("1", "001A", "Analytical Engines", t0.Add(-time.Hour))
	f.pairedContact("7", "003A",
		reconcile.Attributes{"first_name": "A", "note": "x"},
		reconcile.Attributes{"FirstName": "A"},
		t0.Add(-time.Hour))
	f.startWindow(t, t0.Add(-time.Minute))

	t1 := t0.Add(time.Second)
	t2 := t0.Add(2 * time.Second)
	require.NoError(t, f.contactsLocal.Touch("7", reconcile.Attributes{"note": "y"}, t1))
	require.NoError(t, f.contactsRemote.Touch("003A", reconcile.Attributes{"FirstName": "B"}, t2))
	f.clock.Advance(time.Minute)

	report, err := f.runner.RunMapping(ctx, "contacts")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Collected)
	assert.Zero(t, report.Created)
	assert.Empty(t, report.Failures)

	local, ok := f.contactsLocal.Get("7")
	require.True(t, ok)
	assert.Equal(t, "B", local.Attributes()["first_name"])
	assert.Equal(t, "y", local.Attributes()["note"])

	remote, ok := f.contactsRemote.Get("003A")
	require.True(t, ok)
	assert.Equal(t, "B", remote.Attributes()["FirstName"])
	assert.Equal(t, "y", remote.Attributes()["Description"])

	t.Run("second cycle is idempotent", func(t *testing.T) {
		f.clock.Advance(time.Minute)
		report, err := f.runner.RunMapping(ctx, "contacts")
		require.NoError(t, err)
		assert.Zero(t, report.Collected)
		assert.Zero(t, report.Updated)
	})
}

func TestScenarioModifiedAfterWindowIsDeferred(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})

	f.pairedContact("7", "003A",
		reconcile.Attributes{"first_name": "A"},
		reconcile.Attributes{"FirstName": "A"},
		t0.Add(-time.Hour))
	f.startWindow(t, t0.Add(-time.Minute))
	require.NoError(t, f.contactsRemote.Touch("003A", reconcile.Attributes{"FirstName": "B"}, t0))
	f.clock.Advance(time.Minute)
	// The local record changes after the cycle starts.
	require.NoError(t, f.contactsLocal.Touch("7", reconcile.Attributes{"first_name": "C"}, t0.Add(2*time.Minute)))

	report, err := f.runner.RunMapping(ctx, "contacts")
	require.NoError(t, err)
	assert.Zero(t, report.Updated)
	assert.Equal(t, 1, report.Skipped)

	local, _ := f.contactsLocal.Get("7")
	assert.Equal(t, "C", local.Attributes()["first_name"])
}

func TestScenarioFilteredCleanup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOptions{contactConditions: []string{"Status = 'Active'"}})

	f.pairedContact("7", "003A",
		reconcile.Attributes{"first_name": "Ada"},
		reconcile.Attributes{"FirstName": "Ada", "Status": "Active"},
		t0.Add(-time.Hour))
	f.pairedContact("8", "003B",
		reconcile.Attributes{"first_name": "Grace"},
		reconcile.Attributes{"FirstName": "Grace", "Status": "Active"},
		t0.Add(-time.Hour))
	f.startWindow(t, t0.Add(-time.Minute))

	require.NoError(t, f.contactsRemote.Touch("003A", reconcile.Attributes{"Status": "Inactive"}, t0))
	require.NoError(t, f.contactsRemote.Touch("003B", reconcile.Attributes{"FirstName": "Grace B."}, t0))
	f.clock.Advance(time.Minute)

	report, err := f.runner.RunMapping(ctx, "contacts")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Removed)
	assert.Equal(t, 1, report.Updated)

	_, ok := f.contactsLocal.Get("7")
	assert.False(t, ok)
	kept, ok := f.contactsLocal.Get("8")
	require.True(t, ok)
	assert.Equal(t, "Grace B.", kept.Attributes()["first_name"])

	t.Run("second cycle is a no-op", func(t *testing.T) {
		f.clock.Advance(time.Minute)
		report, err := f.runner.RunMapping(ctx, "contacts")
		require.NoError(t, err)
		assert.Zero(t, report.Removed)
		assert.Zero(t, report.Created)
		assert.Equal(t, 1, f.contactsLocal.Len())
	})
}

func TestScenarioPassiveMappingIsNotCleaned(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOptions{
		contactStrategy:   reconcile.Passive(reconcile.Bidirectional),
		contactConditions: []string{"Status = 'Active'"},
	})

	f.pairedContact("7", "003A",
		reconcile.Attributes{"first_name": "Ada"},
		reconcile.Attributes{"FirstName": "Ada", "Status": "Active"},
		t0.Add(-time.Hour))
	f.startWindow(t, t0.Add(-time.Minute))
	require.NoError(t, f.contactsRemote.Touch("003A", reconcile.Attributes{"Status": "Inactive"}, t0))
	f.contactsRemote.Put("003Z", reconcile.Attributes{"FirstName": "New", "Status": "Active"}, t0)
	f.clock.Advance(time.Minute)

	report, err := f.runner.RunMapping(ctx, "contacts")
	require.NoError(t, err)
	assert.Zero(t, report.Removed)
	assert.Zero(t, report.Created)
	assert.Equal(t, 1, f.contactsLocal.Len())
}

func TestScenarioRetry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})

	f.contactsRemote.Put("003A", reconcile.Attributes{"FirstName": "Ada", "LastName": "Lovelace"}, t0)
	f.startWindow(t, t0.Add(-time.Minute))
	f.contactsLocal.OnCreate(func(reconcile.Attributes) error {
		return reconcile.Persistence(errors.New("duplicate key value violates unique constraint"), "insert contacts")
	})
	f.clock.Advance(time.Minute)

	report, err := f.runner.RunMapping(ctx, "contacts")
	require.NoError(t, err)
	assert.Zero(t, report.Created)
	require.Len(t, report.Failures, 1)
	failure := report.Failures[0]
	assert.Equal(t, "003A", failure.Key.RemoteID)
	assert.Equal(t, "create", failure.Operation)
	assert.Equal(t, reconcile.SideLocal, failure.Side)
	assert.True(t, reconcile.IsPersistence(failure.Err))
	assert.Zero(t, f.contactsLocal.Len())
	// The window stops short of the failed observation.
	assert.True(t, report.Advanced.Before(t0))

	// A racing process created the record meanwhile.
	f.contactsLocal.OnCreate(nil)
	f.clock.Advance(time.Minute)
	f.contactsLocal.Put("99", reconcile.Attributes{"first_name": "Ada", "salesforce_id": "003A"}, f.clock.Now())

	report, err = f.runner.RunMapping(ctx, "contacts")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Collected)
	assert.Zero(t, report.Created)
	assert.Empty(t, report.Failures)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, f.contactsLocal.Len())

	local, ok := f.contactsLocal.Get("99")
	require.True(t, ok)
	assert.Equal(t, "Lovelace", local.Attributes()["last_name"])
	assert.Equal(t, f.clock.Now(), report.Advanced)
}
