// Package pool resolves and owns named client connection pools to a data grid.
//
// # Overview
//
// A pool is declared with a Config and resolved through a Manager. Resolution
// first looks the name up in the process-wide Registry:
//
//   - Found: the handle references the existing pool (StateDiscovered). Nothing
//     is configured; the existing pool's settings win.
//   - Not found: the client runtime is bootstrapped, a fresh Factory receives
//     every tuning parameter and the locator/server endpoints in order, the
//     optional Initializer runs, and the pool is created and registered
//     (StateCreated). The handle owns it.
//
// # Basic Usage
//
//	manager, err := pool.NewManager(registry, runtime, newFactory, pool.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//
//	cfg := pool.DefaultConfig().WithLocators(pool.Endpoint{Host: "10.0.0.5", Port: 10334})
//	h, err := manager.Resolve(ctx, cfg, pool.WithFallbackName("ordersPool"))
//	if err != nil {
//		return err
//	}
//	defer manager.Release(ctx, h)
//
// # Ownership and Teardown
//
// Only created handles are ever destroyed. Release is meant for shutdown: it
// never fails, logging destroy errors instead. Destroy is the explicit
// teardown and returns them as teardown errors.
//
// # Errors
//
// Errors are github.com/goliatone/go-errors values. Use IsConfigurationError,
// IsNativeCreationError and IsTeardownError to classify them.
package pool
