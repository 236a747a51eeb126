// Package ccfacade is the cached-case repository of the contact-centre
// façade. It stores case snapshots keyed by UPRN in a document store and
// retries writes that lose to a concurrent writer.
//
// Components:
//   - ObjectStore: (collection, key) -> CachedCase, e.g. docstore.Store.
//     Writes may fail with ErrContention.
//   - retry.Policy: bounded exponential backoff applied to contended writes.
//   - Logger / Hooks: optional observability.
//
// Collection:
//
//	lower(<project>-<schema>)  - fixed when the store is built
//
// Usage:
//
//	ds, _ := docstore.New(docstore.Options[ccfacade.CachedCase]{Provider: p, Codec: codec.JSON[ccfacade.CachedCase]{}})
//	cs, _ := ccfacade.New(ccfacade.Options{Project: "census-cc", Schema: "cachedcase", Store: ds})
//	err := cs.Store(ctx, cc)            // retried on contention
//	cc, ok, err := cs.Read(ctx, uprn)   // ok=false on miss
package ccfacade
