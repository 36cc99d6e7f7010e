package remote_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"record-sync/core/reconcile"
	"record-sync/feature/remote"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestRecordTypeLifecycle(t *testing.T) {
	ctx := context.Background()
	f, srv := newFakeAPI(t)
	contacts := remote.NewRecordType(newClient(f, srv), "Contact", "FirstName", "LastName", "AccountId")

	assert.Equal(t, "Contact", contacts.Name())
	assert.Equal(t, reconcile.SideRemote, contacts.Side())

	created, err := contacts.Create(ctx, reconcile.Attributes{"FirstName": "Ada", "LastName": "Lovelace"})
	require.NoError(t, err)
	assert.Equal(t, "Con001", created.ID())
	assert.Equal(t, "Con001", created.RemoteID())
	assert.False(t, created.IsPaired())
	assert.Equal(t, t0, created.LastUpdate())
	assert.NotContains(t, created.Attributes(), "attributes")

	t.Run("mark synced writes the marker ahead of the modstamp", func(t *testing.T) {
		require.NoError(t, created.MarkSynced(ctx))
		assert.True(t, created.IsPaired())

		found, err := contacts.Find(ctx, "Con001")
		require.NoError(t, err)
		assert.True(t, found.LastSync().After(found.LastUpdate()))
	})

	t.Run("update patches attributes and marker", func(t *testing.T) {
		found, err := contacts.Find(ctx, "Con001")
		require.NoError(t, err)
		updated, err := found.Update(ctx, reconcile.Attributes{"LastName": "King"})
		require.NoError(t, err)
		assert.Equal(t, "King", updated.Attributes()["LastName"])
		assert.True(t, updated.LastUpdate().After(found.LastUpdate()))
		assert.True(t, updated.LastSync().After(updated.LastUpdate()))
	})

	t.Run("queries follow pagination", func(t *testing.T) {
		f.put("Contact", "Con900", reconcile.Attributes{"FirstName": "Bob"})
		f.put("Contact", "Con901", reconcile.Attributes{"FirstName": "Cy"})

		all, err := contacts.All(ctx, reconcile.Query{After: t0.Add(-time.Hour), Conditions: []string{"LastName != null"}})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "Con901", all[2].ID())
		assert.Equal(t, 1, f.callCount("GET /query/Contact-2"))
		assert.Equal(t,
			"SELECT Id, SystemModstamp, Last_Sync__c, FirstName, LastName, AccountId FROM Contact "+
				"WHERE SystemModstamp > 2024-05-01T11:00:00.000Z AND (LastName != null) ORDER BY SystemModstamp ASC, Id ASC",
			f.queries[len(f.queries)-1])
	})

	t.Run("describe is fetched once", func(t *testing.T) {
		ok, err := contacts.HasField(ctx, "firstname")
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = contacts.HasField(ctx, "Email")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 1, f.describes)
	})

	t.Run("destroy skips records already gone", func(t *testing.T) {
		require.NoError(t, contacts.DestroyAll(ctx, []string{"Con001", "Con404"}))
		_, err := contacts.Find(ctx, "Con001")
		assert.True(t, reconcile.IsNotFound(err))
	})
}

func TestRecordTypeSelectsDescribedFields(t *testing.T) {
	ctx := context.Background()
	f, srv := newFakeAPI(t)
	f.put("Contact", "Con100", reconcile.Attributes{"FirstName": "Ada"})
	contacts := remote.NewRecordType(newClient(f, srv), "Contact")

	all, err := contacts.All(ctx, reconcile.Query{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Contains(t, f.queries[0], "SELECT Id, SystemModstamp, Last_Sync__c, AccountId, FirstName, LastName FROM Contact ORDER BY")
}

func TestErrorClassification(t *testing.T) {
	ctx := context.Background()
	f, srv := newFakeAPI(t)
	contacts := remote.NewRecordType(newClient(f, srv), "Contact", "FirstName", "Email")

	t.Run("duplicate create is a persistence error", func(t *testing.T) {
		f.put("Contact", "Con100", reconcile.Attributes{"Email": "ada@example.com"})
		_, err := contacts.Create(ctx, reconcile.Attributes{"Email": "ada@example.com"})
		require.Error(t, err)
		assert.True(t, reconcile.IsPersistence(err))
		assert.Contains(t, err.Error(), "DUPLICATE_VALUE")
	})

	t.Run("missing record", func(t *testing.T) {
		_, err := contacts.Find(ctx, "Con404")
		assert.True(t, reconcile.IsNotFound(err))
		_, err = contacts.Find(ctx, "")
		assert.True(t, reconcile.IsNotFound(err))
	})

	t.Run("update of a vanished record", func(t *testing.T) {
		f.put("Contact", "Con200", reconcile.Attributes{"FirstName": "Gone"})
		inst, err := contacts.Find(ctx, "Con200")
		require.NoError(t, err)
		require.NoError(t, contacts.DestroyAll(ctx, []string{"Con200"}))

		_, err = inst.Update(ctx, reconcile.Attributes{"FirstName": "Back"})
		assert.True(t, reconcile.IsPersistence(err))
		assert.True(t, reconcile.IsNotFound(err))
	})

	t.Run("failed reads are retried", func(t *testing.T) {
		f.failNext("GET", 503)
		_, err := contacts.All(ctx, reconcile.Query{})
		assert.NoError(t, err)
	})

	t.Run("persistent outages are transient", func(t *testing.T) {
		f.failNext("GET", 503, 503)
		_, err := contacts.All(ctx, reconcile.Query{})
		assert.True(t, reconcile.IsTransient(err))
		assert.False(t, reconcile.IsPersistence(err))
	})

	t.Run("creates are not retried", func(t *testing.T) {
		before := f.callCount("POST /sobjects/Contact")
		f.failNext("POST", 503)
		_, err := contacts.Create(ctx, reconcile.Attributes{"FirstName": "Once"})
		assert.True(t, reconcile.IsTransient(err))
		assert.Equal(t, before+1, f.callCount("POST /sobjects/Contact"))
	})

	t.Run("expired token is transient", func(t *testing.T) {
		client := remote.NewClient(remote.Config{BaseURL: srv.URL, APIPath: apiPath, Token: "expired"})
		_, err := remote.NewRecordType(client, "Contact", "FirstName").Find(ctx, "Con100")
		assert.True(t, reconcile.IsTransient(err))
		assert.Contains(t, err.Error(), "INVALID_SESSION_ID")
	})

	t.Run("mark synced pairs a record read back later", func(t *testing.T) {
		inst, err := contacts.Find(ctx, "Con100")
		require.NoError(t, err)
		assert.False(t, inst.IsPaired())
		require.NoError(t, inst.MarkSynced(ctx))

		found, err := contacts.Find(ctx, "Con100")
		require.NoError(t, err)
		assert.True(t, found.IsPaired())
		assert.True(t, found.LastSync().After(found.LastUpdate()))
	})
}

func TestConfigValidate(t *testing.T) {
	valid := remote.Config{ModstampField: "SystemModstamp", SyncMarkerField: "SynchronizedAt__c"}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(c *remote.Config)
	}{
		{"missing sync marker", func(c *remote.Config) { c.SyncMarkerField = "" }},
		{"missing modstamp", func(c *remote.Config) { c.ModstampField = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.True(t, reconcile.IsConfiguration(c.Validate()))
		})
	}
}
