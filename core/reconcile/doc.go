// Package reconcile keeps records of a local relational store and a remote
// CRM-style API in step.
//
// Each configured Mapping pairs one local record type with one remote record
// type. Records are paired through the mapping's lookup column, the local
// column that holds the remote identity. A polling cycle for a mapping runs:
//
//	Tracker -> Collector -> Initializer (+ Associator) -> Synchronizer -> Cleaner
//
// # Components
//
// 1. AttributeMap: translates field names and values between the canonical
// (local) schema and the remote schema.
//
// 2. Strategy: decides whether missing counterparts are created (Always,
// Passive, Associated) and which sides receive updates.
//
// 3. Accumulator: collects timestamped observations per ChangeKey and merges
// them with last-writer-wins per field. Ties go to the later observation.
//
// 4. Tracker: computes the (after, before] window from a WindowStore and only
// advances it after a cycle without fatal errors.
//
// 5. Initializer and Associator: create missing counterparts together with
// their belongsTo parents and has* children. A failed creation destroys
// whatever it created.
//
// 6. Synchronizer: pushes the merged diff to existing pairs.
//
// 7. Cleaner: removes local records whose remote counterpart stopped matching
// the mapping's conditions.
//
// # Errors
//
// Adapters mark errors with ErrPersistence (per record, reported, cycle goes
// on), ErrTransient (cycle stops, window untouched) or ErrNotFound.
// ErrConfiguration is raised while building mappings and is never retried.
// Unmarked adapter errors are treated as transient.
//
// # Usage Example
//
//	registry := reconcile.NewRegistry()
//	_ = registry.Register(contacts)
//	if err := registry.Validate(ctx); err != nil {
//	    return err
//	}
//
//	runner := reconcile.NewRunner(registry, reconcile.NewTracker(store), logger,
//	    reconcile.WithConcurrency(4))
//
//	// One cycle
//	report, err := runner.RunMapping(ctx, "contacts")
//
//	// Polling loop
//	err = runner.Run(ctx, time.Minute)
//
// Store adapters live in feature/local and feature/remote. Wrap them with
// Logged to get structured logs for every write.
package reconcile
