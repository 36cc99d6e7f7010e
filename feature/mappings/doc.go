// Package mappings loads mapping definitions from YAML and turns them into a
// validated reconcile.Registry.
//
// # File Format
//
//	mappings:
//	  - name: contacts
//	    local:
//	      table: contacts
//	      lookup_column: salesforce_id
//	      conditions: ["deleted_at IS NULL"]
//	    remote:
//	      type: Contact
//	      conditions: ["Status__c = 'Active'"]
//	    strategy:
//	      kind: associated
//	      via: account
//	      direction: bidirectional
//	    fields:
//	      first_name: FirstName
//	      birthdate: Birthdate
//	    converters:
//	      birthdate: time
//	    associations:
//	      - name: account
//	        target: accounts
//	        kind: belongs_to
//	        lookup_fields: [AccountId]
//	        foreign_key: account_id
//
// # Building
//
// Build asks a Factory for the record types of every mapping, wraps them with
// reconcile.Logged and registers the mappings in file order. The registry is
// validated before it is returned, so a missing column or remote field is
// reported at startup.
package mappings
