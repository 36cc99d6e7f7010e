package reconcile_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"record-sync/core/reconcile"
	"record-sync/core/reconcile/memory"
	"record-sync/core/windowstore"
)

// fixture wires an accounts/contacts pairing over in-memory record types.
type fixture struct {
	clock          *memory.Clock
	accountsLocal  *memory.RecordType
	accountsRemote *memory.RecordType
	contactsLocal  *memory.RecordType
	contactsRemote *memory.RecordType
	windows        *windowstore.Memory
	registry       *reconcile.Registry
	runner         *reconcile.Runner
}

type fixtureOptions struct {
	contactStrategy   reconcile.Strategy
	contactConditions []string
}

func newFixture(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()
	if opts.contactStrategy == nil {
		opts.contactStrategy = reconcile.Always(reconcile.Bidirectional)
	}

	clock := memory.NewClock(t0)
	f := &fixture{
		clock:          clock,
		accountsLocal:  memory.NewLocal("accounts", "salesforce_id", memory.WithClock(clock.Now)),
		accountsRemote: memory.NewRemote("Account", memory.WithClock(clock.Now)),
		contactsLocal:  memory.NewLocal("contacts", "salesforce_id", memory.WithClock(clock.Now)),
		contactsRemote: memory.NewRemote("Contact", memory.WithClock(clock.Now)),
		windows:        windowstore.NewMemory(),
		registry:       reconcile.NewRegistry(),
	}

	accountFields, err := reconcile.NewAttributeMap(map[string]string{"name": "Name"}, nil)
	require.NoError(t, err)
	accounts, err := reconcile.NewMapping(reconcile.Mapping{
		Name:         "accounts",
		Local:        f.accountsLocal,
		Remote:       f.accountsRemote,
		Attributes:   accountFields,
		Strategy:     reconcile.Passive(reconcile.Bidirectional),
		LookupColumn: "salesforce_id",
		Associations: []reconcile.Association{{
			Name:         "contacts",
			Target:       "contacts",
			Kind:         reconcile.HasMany,
			LookupFields: []string{"AccountId"},
			ForeignKey:   "account_id",
		}},
	})
	require.NoError(t, err)

	contactFields, err := reconcile.NewAttributeMap(map[string]string{
		"first_name": "FirstName",
		"last_name":  "LastName",
		"note":       "Description",
	}, nil)
	require.NoError(t, err)
	contacts, err := reconcile.NewMapping(reconcile.Mapping{
		Name:         "contacts",
		Local:        f.contactsLocal,
		Remote:       f.contactsRemote,
		Attributes:   contactFields,
		Strategy:     opts.contactStrategy,
		Conditions:   opts.contactConditions,
		LookupColumn: "salesforce_id",
		Associations: []reconcile.Association{{
			Name:         "account",
			Target:       "accounts",
			Kind:         reconcile.BelongsTo,
			LookupFields: []string{"AccountId"},
			ForeignKey:   "account_id",
		}},
	})
	require.NoError(t, err)

	require.NoError(t, f.registry.Register(accounts))
	require.NoError(t, f.registry.Register(contacts))
	require.NoError(t, f.registry.Validate(context.Background()))

	f.runner = reconcile.NewRunner(f.registry, reconcile.NewTracker(f.windows), nil,
		reconcile.WithClock(clock.Now),
		reconcile.WithConcurrency(2))
	return f
}

// pairedAccount seeds an account that exists on both sides.
func (f *fixture) pairedAccount(localID, remoteID, name string, at time.Time) {
	f.accountsRemote.Put(remoteID, reconcile.Attributes{"Name": name}, at)
	f.accountsLocal.Put(localID, reconcile.Attributes{"name": name, "salesforce_id": remoteID}, at)
}

// pairedContact seeds a contact that exists on both sides.
func (f *fixture) pairedContact(localID, remoteID string, local, remote reconcile.Attributes, at time.Time) {
	remote = remote.Clone()
	f.contactsRemote.Put(remoteID, remote, at)
	local = local.Clone()
	local["salesforce_id"] = remoteID
	f.contactsLocal.Put(localID, local, at)
}

// startWindow stores a window end for every mapping.
func (f *fixture) startWindow(t *testing.T, end time.Time) {
	t.Helper()
	for _, name := range f.registry.Names() {
		require.NoError(t, f.windows.Save(context.Background(), name, end))
	}
}
